package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/twitch"
)

// DefaultValidateURL is Twitch's token introspection endpoint.
const DefaultValidateURL = "https://id.twitch.tv/oauth2/validate"

// ChatScopes are the user scopes the bot asks for.
var ChatScopes = []string{"chat:read", "chat:edit", "channel:manage:broadcast", "moderator:read:followers"}

// App is a registered Twitch application.
type App struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Endpoint and ValidateURL default to Twitch's; tests point them elsewhere.
	Endpoint    oauth2.Endpoint
	ValidateURL string
	HTTPClient  *http.Client
}

func (a App) config(scopes ...string) *oauth2.Config {
	ep := a.Endpoint
	if ep.TokenURL == "" {
		ep = twitch.Endpoint
	}
	ep.AuthStyle = oauth2.AuthStyleInParams
	return &oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		RedirectURL:  a.RedirectURI,
		Endpoint:     ep,
		Scopes:       scopes,
	}
}

func (a App) withClient(ctx context.Context) context.Context {
	if a.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, a.HTTPClient)
	}
	return ctx
}

// AppTokenSource returns a cached client credentials token source. App
// tokens cannot be used for chat.
func (a App) AppTokenSource(ctx context.Context) oauth2.TokenSource {
	cfg := a.config()
	cc := clientcredentials.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		TokenURL:     cfg.Endpoint.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cc.TokenSource(a.withClient(ctx))
}

// AuthorizeURL builds the user authorization URL for the code grant.
func (a App) AuthorizeURL(state string, scopes ...string) (string, error) {
	if a.ClientID == "" || a.RedirectURI == "" {
		return "", errors.New("missing clientID or redirectURI")
	}
	if len(scopes) == 0 {
		scopes = ChatScopes
	}
	return a.config(scopes...).AuthCodeURL(state), nil
}

// Exchange trades an authorization code for user tokens.
func (a App) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if a.ClientID == "" || a.ClientSecret == "" || code == "" {
		return nil, errors.New("missing required parameter for auth code exchange")
	}
	return a.config().Exchange(a.withClient(ctx), code)
}

// RefreshUserToken exchanges a refresh token for a new user token.
func (a App) RefreshUserToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if a.ClientID == "" || a.ClientSecret == "" || refreshToken == "" {
		return nil, errors.New("missing clientID/clientSecret/refreshToken")
	}
	tok, err := a.config().TokenSource(a.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("twitch refresh failed: %w", err)
	}
	return tok, nil
}

// TokenInfo is the validate endpoint's view of a user token.
type TokenInfo struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// Expiry converts ExpiresIn to an absolute time; zero when Twitch reports none.
func (ti TokenInfo) Expiry(now time.Time) time.Time {
	if ti.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(ti.ExpiresIn) * time.Second)
}

// ValidateToken asks Twitch who owns accessToken.
func (a App) ValidateToken(ctx context.Context, accessToken string) (TokenInfo, error) {
	u := a.ValidateURL
	if u == "" {
		u = DefaultValidateURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return TokenInfo{}, err
	}
	req.Header.Set("Authorization", "OAuth "+strings.TrimPrefix(accessToken, "oauth:"))
	hc := a.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return TokenInfo{}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return TokenInfo{}, &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	var ti TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&ti); err != nil {
		return TokenInfo{}, err
	}
	return ti, nil
}
