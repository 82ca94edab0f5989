package valorant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.EscapedPath() {
		case "/valorant/v1/account/Some%20One/EU1":
			_, _ = w.Write([]byte(`{"status":200,"data":{"puuid":"p-1","region":"eu","name":"Some One","tag":"EU1"}}`))
		case "/valorant/v1/by-puuid/mmr/eu/p-1":
			_, _ = w.Write([]byte(`{"status":200,"data":{"currenttierpatched":"Gold 2","ranking_in_tier":45,"elo":1045,"mmr_change_to_last_game":-12}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "key"}
	m, err := c.Rank(context.Background(), "Some One#EU1")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if got := m.String(); got != "Gold 2 - 45RR - 1045 elo" {
		t.Errorf("String = %q", got)
	}
	if m.LastChange != -12 {
		t.Errorf("LastChange = %d", m.LastChange)
	}
}

func TestSplitRiotID(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		tag     string
		wantErr bool
	}{
		{in: "Name#TAG", name: "Name", tag: "TAG"},
		{in: " a b#1 ", name: "a b", tag: "1"},
		{in: "NoTag", wantErr: true},
		{in: "#TAG", wantErr: true},
		{in: "Name#", wantErr: true},
	}
	for _, tt := range tests {
		name, tag, err := SplitRiotID(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidRiotID) {
				t.Errorf("%q: err = %v, want ErrInvalidRiotID", tt.in, err)
			}
			continue
		}
		if err != nil || name != tt.name || tag != tt.tag {
			t.Errorf("%q: got %q %q %v", tt.in, name, tag, err)
		}
	}
}

func TestAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	if _, err := c.Account(context.Background(), "a#b"); err == nil {
		t.Fatal("expected error on 429")
	}
}
