package server

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/haxgun/Arcane/store"
)

// TwitchProvider is the oauth_tokens key of the bot's user token.
const TwitchProvider = "twitch"

const stateTTL = 10 * time.Minute

// HandleTwitchOAuthStart redirects the operator to Twitch's consent page.
func (h *Handlers) HandleTwitchOAuthStart(w http.ResponseWriter, r *http.Request) {
	st := rand.Text()
	now := h.now()
	if !h.pending.put(st, now, now.Add(stateTTL)) {
		http.Error(w, "too many pending authorizations", http.StatusServiceUnavailable)
		return
	}
	authURL, err := h.opts.OAuth.AuthorizeURL(st)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleTwitchOAuthCallback trades the authorization code for a user token,
// stores it under TwitchProvider and hands it to OnToken.
func (h *Handlers) HandleTwitchOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		http.Error(w, "missing code/state", http.StatusBadRequest)
		return
	}
	if !h.pending.take(st, h.now()) {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	tok, err := h.opts.OAuth.Exchange(ctx, code)
	if err != nil {
		slog.Warn("twitch code exchange failed", slog.Any("err", err))
		http.Error(w, "code exchange failed", http.StatusBadGateway)
		return
	}
	err = h.opts.Store.SaveToken(ctx, store.Token{
		Provider:     TwitchProvider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		Scope:        tokenScope(tok),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if h.opts.OnToken != nil {
		h.opts.OnToken(tok)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "expires_at": tok.Expiry})
}

// tokenScope flattens the scope field, which Twitch returns as a list.
func tokenScope(tok *oauth2.Token) string {
	switch v := tok.Extra("scope").(type) {
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}
