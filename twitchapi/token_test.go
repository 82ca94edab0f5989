package twitchapi

import (
	"errors"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

func TestTokenHolder(t *testing.T) {
	h := NewTokenHolder("")
	if _, err := h.Token(); !errors.Is(err, ErrNoUserToken) {
		t.Fatalf("empty holder err = %v", err)
	}

	h = NewTokenHolder("oauth:first")
	tok, err := h.Token()
	if err != nil || tok.AccessToken != "first" {
		t.Fatalf("Token = %+v, %v", tok, err)
	}

	// callers cannot mutate the held token
	tok.AccessToken = "mutated"
	if h.AccessToken() != "first" {
		t.Errorf("AccessToken = %s, want first", h.AccessToken())
	}

	h.Set(&oauth2.Token{AccessToken: "second", RefreshToken: "r"})
	h.Set(nil)
	if h.AccessToken() != "second" {
		t.Errorf("AccessToken = %s, want second", h.AccessToken())
	}
}

func TestTokenHolderConcurrent(t *testing.T) {
	h := NewTokenHolder("a")
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Set(&oauth2.Token{AccessToken: string(rune('a' + i%26))})
		}()
		go func() {
			defer wg.Done()
			if _, err := h.Token(); err != nil {
				t.Errorf("Token: %v", err)
			}
		}()
	}
	wg.Wait()
}
