package twitchapi

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoUserToken is returned by an empty TokenHolder.
var ErrNoUserToken = errors.New("no twitch user token configured")

// TokenHolder is an oauth2.TokenSource for the bot's user token. The
// refresher swaps the token in place; readers always get the latest one.
// Unlike app tokens, this token can be used for chat.
type TokenHolder struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

// NewTokenHolder starts with accessToken; an "oauth:" prefix is dropped.
func NewTokenHolder(accessToken string) *TokenHolder {
	h := &TokenHolder{}
	if accessToken != "" {
		h.Set(&oauth2.Token{AccessToken: accessToken, TokenType: "bearer"})
	}
	return h
}

// Token returns the current token even when past its expiry; the refresher
// owns renewal and Helix rejects a stale token on its own.
func (h *TokenHolder) Token() (*oauth2.Token, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.tok == nil || h.tok.AccessToken == "" {
		return nil, ErrNoUserToken
	}
	t := *h.tok
	return &t, nil
}

func (h *TokenHolder) Set(tok *oauth2.Token) {
	if tok == nil {
		return
	}
	t := *tok
	t.AccessToken = strings.TrimPrefix(t.AccessToken, "oauth:")
	h.mu.Lock()
	h.tok = &t
	h.mu.Unlock()
}

// AccessToken returns the raw access token or "".
func (h *TokenHolder) AccessToken() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.tok == nil {
		return ""
	}
	return h.tok.AccessToken
}
