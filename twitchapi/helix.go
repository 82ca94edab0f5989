// Package twitchapi contains the Helix REST calls the chat bot needs: users,
// streams, channel information, categories and followers.
package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Helix API root.
const DefaultBaseURL = "https://api.twitch.tv/helix"

// ErrNotFound is returned when Helix answers with an empty data list.
var ErrNotFound = errors.New("twitchapi: not found")

// APIError is a non-2xx Helix response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("helix request failed: %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// HelixClient calls Helix with an app access token for public reads and the
// bot's user token for calls that need user scopes (followers, channel edits).
type HelixClient struct {
	AppTokens  oauth2.TokenSource
	UserTokens oauth2.TokenSource
	ClientID   string
	BaseURL    string
	HTTPClient *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return strings.TrimRight(hc.BaseURL, "/")
	}
	return DefaultBaseURL
}

// do sends one request. out, when non-nil, receives the decoded JSON body.
func (hc *HelixClient) do(ctx context.Context, ts oauth2.TokenSource, method, path string, q url.Values, in, out any) error {
	if ts == nil {
		return fmt.Errorf("no token source for %s %s", method, path)
	}
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("helix token: %w", err)
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	u := hc.base() + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type User struct {
	ID          string    `json:"id"`
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetUser looks up a user by login.
func (hc *HelixClient) GetUser(ctx context.Context, login string) (User, error) {
	login = strings.ToLower(strings.TrimPrefix(login, "@"))
	if login == "" {
		return User{}, fmt.Errorf("login empty")
	}
	var body struct {
		Data []User `json:"data"`
	}
	if err := hc.do(ctx, hc.AppTokens, http.MethodGet, "/users", url.Values{"login": {login}}, nil, &body); err != nil {
		return User{}, err
	}
	if len(body.Data) == 0 {
		return User{}, fmt.Errorf("user %s: %w", login, ErrNotFound)
	}
	return body.Data[0], nil
}

// GetUserID resolves a login name to its user ID.
func (hc *HelixClient) GetUserID(ctx context.Context, login string) (string, error) {
	u, err := hc.GetUser(ctx, login)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

type Stream struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	UserLogin   string    `json:"user_login"`
	GameName    string    `json:"game_name"`
	Title       string    `json:"title"`
	ViewerCount int       `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at"`
}

// GetStream returns the live stream of login, or ErrNotFound when offline.
func (hc *HelixClient) GetStream(ctx context.Context, login string) (Stream, error) {
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := hc.do(ctx, hc.AppTokens, http.MethodGet, "/streams", url.Values{"user_login": {strings.ToLower(login)}}, nil, &body); err != nil {
		return Stream{}, err
	}
	if len(body.Data) == 0 {
		return Stream{}, fmt.Errorf("stream %s: %w", login, ErrNotFound)
	}
	return body.Data[0], nil
}

type ChannelInfo struct {
	BroadcasterID    string `json:"broadcaster_id"`
	BroadcasterLogin string `json:"broadcaster_login"`
	GameID           string `json:"game_id"`
	GameName         string `json:"game_name"`
	Title            string `json:"title"`
}

func (hc *HelixClient) GetChannelInfo(ctx context.Context, broadcasterID string) (ChannelInfo, error) {
	var body struct {
		Data []ChannelInfo `json:"data"`
	}
	if err := hc.do(ctx, hc.AppTokens, http.MethodGet, "/channels", url.Values{"broadcaster_id": {broadcasterID}}, nil, &body); err != nil {
		return ChannelInfo{}, err
	}
	if len(body.Data) == 0 {
		return ChannelInfo{}, fmt.Errorf("channel %s: %w", broadcasterID, ErrNotFound)
	}
	return body.Data[0], nil
}

// ChannelUpdate holds the fields ModifyChannel changes; empty fields are left alone.
type ChannelUpdate struct {
	Title  string `json:"title,omitempty"`
	GameID string `json:"game_id,omitempty"`
}

// ModifyChannel edits the channel with the user token. The token owner must be
// the broadcaster or one of its editors.
func (hc *HelixClient) ModifyChannel(ctx context.Context, broadcasterID string, upd ChannelUpdate) error {
	if upd == (ChannelUpdate{}) {
		return errors.New("empty channel update")
	}
	return hc.do(ctx, hc.UserTokens, http.MethodPatch, "/channels", url.Values{"broadcaster_id": {broadcasterID}}, upd, nil)
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SearchCategory returns the best match for query.
func (hc *HelixClient) SearchCategory(ctx context.Context, query string) (Category, error) {
	var body struct {
		Data []Category `json:"data"`
	}
	q := url.Values{"query": {query}, "first": {"1"}}
	if err := hc.do(ctx, hc.AppTokens, http.MethodGet, "/search/categories", q, nil, &body); err != nil {
		return Category{}, err
	}
	if len(body.Data) == 0 {
		return Category{}, fmt.Errorf("category %q: %w", query, ErrNotFound)
	}
	return body.Data[0], nil
}

type Follower struct {
	UserID     string    `json:"user_id"`
	UserLogin  string    `json:"user_login"`
	FollowedAt time.Time `json:"followed_at"`
}

// GetFollower reports when userID followed broadcasterID. Needs a user token
// with moderator:read:followers for that channel.
func (hc *HelixClient) GetFollower(ctx context.Context, broadcasterID, userID string) (Follower, error) {
	var body struct {
		Data []Follower `json:"data"`
	}
	q := url.Values{"broadcaster_id": {broadcasterID}, "user_id": {userID}}
	if err := hc.do(ctx, hc.UserTokens, http.MethodGet, "/channels/followers", q, nil, &body); err != nil {
		return Follower{}, err
	}
	if len(body.Data) == 0 {
		return Follower{}, fmt.Errorf("follower %s: %w", userID, ErrNotFound)
	}
	return body.Data[0], nil
}

// Latency measures one round trip to the API root.
func (hc *HelixClient) Latency(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, hc.base(), nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := hc.http().Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return time.Since(start), nil
}
