// Package oauth provides token refresh scheduling for providers whose tokens
// are persisted in the oauth_tokens table. It performs jittered checks and
// refreshes when expiry falls within a configured window.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/oauth2"

	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/telemetry"
)

// RefreshFunc exchanges a refresh token for a new token.
type RefreshFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

// TokenStore persists tokens by provider.
type TokenStore interface {
	GetToken(ctx context.Context, provider string) (store.Token, error)
	SaveToken(ctx context.Context, tok store.Token) error
}

// ErrNoRefreshToken is returned when the stored row cannot be refreshed.
var ErrNoRefreshToken = errors.New("oauth: no refresh token stored")

// RefreshOnce refreshes the provider's token when it expires within window or
// its expiry is unknown. It reports whether a refresh happened.
func RefreshOnce(ctx context.Context, tokens TokenStore, provider string, window time.Duration, fn RefreshFunc) (store.Token, bool, error) {
	cur, err := tokens.GetToken(ctx, provider)
	if err != nil {
		return store.Token{}, false, err
	}
	if cur.RefreshToken == "" {
		return cur, false, ErrNoRefreshToken
	}
	if !cur.ExpiresAt.IsZero() && time.Until(cur.ExpiresAt) > window {
		return cur, false, nil
	}
	nt, err := fn(ctx, cur.RefreshToken)
	telemetry.CountTokenRefresh(err == nil)
	if err != nil {
		return cur, false, fmt.Errorf("refresh %s: %w", provider, err)
	}
	next := store.Token{
		Provider:     provider,
		AccessToken:  nt.AccessToken,
		RefreshToken: nt.RefreshToken,
		ExpiresAt:    nt.Expiry,
		Scope:        cur.Scope,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = cur.RefreshToken
	}
	if err := tokens.SaveToken(ctx, next); err != nil {
		return cur, false, fmt.Errorf("persist %s: %w", provider, err)
	}
	return next, true, nil
}

// StartRefresher launches a goroutine that periodically checks a stored token and refreshes it.
// provider: key in oauth_tokens table.
// interval: how often to wake up and check.
// window: refresh when remaining lifetime <= window.
// onRefresh, when set, receives every newly persisted token.
func StartRefresher(ctx context.Context, tokens TokenStore, provider string, interval, window time.Duration, fn RefreshFunc, onRefresh func(store.Token)) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	log := slog.Default().With(slog.String("component", "oauth"), slog.String("provider", provider))
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval/2) + 1))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			// Refresh right away on the first pass; later passes sleep interval ±20%.
			ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
			tok, refreshed, err := RefreshOnce(ctx2, tokens, provider, window, fn)
			cancel()
			switch {
			case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrNoRefreshToken):
				log.Debug("token not refreshable", slog.Any("err", err))
			case err != nil:
				log.Warn("token refresh failed", slog.Any("err", err))
			case refreshed:
				log.Info("token refreshed", slog.Time("expires_at", tok.ExpiresAt))
				if onRefresh != nil {
					onRefresh(tok)
				}
			}

			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2+1) - jitterRange)
			nextSleep := max(interval+jitter, interval/2)
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
		}
	}()
}
