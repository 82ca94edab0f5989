package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/haxgun/Arcane/twitchapi"
)

// MockTwitchServer creates a test server that mocks Twitch Helix API responses.
// Handlers are keyed by path relative to the Helix root ("/users").
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu      sync.Mutex
	patches []map[string]any
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		handler, ok := m.Handlers[r.URL.Path]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Client returns a HelixClient pointed at the mock with static tokens.
func (m *MockTwitchServer) Client() *twitchapi.HelixClient {
	return &twitchapi.HelixClient{
		AppTokens:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "app-token"}),
		UserTokens: twitchapi.NewTokenHolder("user-token"),
		ClientID:   "test-client-id",
		BaseURL:    m.URL,
	}
}

func (m *MockTwitchServer) handle(path string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[path] = h
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data}) //nolint:errcheck // test mock response
}

// MockUserResponse adds a handler for /users answering any login.
func (m *MockTwitchServer) MockUserResponse(userID, login string, createdAt time.Time) {
	m.handle("/users", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("login") != login {
			writeData(w, []any{})
			return
		}
		writeData(w, []map[string]string{{"id": userID, "login": login, "display_name": login, "created_at": createdAt.UTC().Format(time.RFC3339)}})
	})
}

// MockUsers answers /users for several login → id pairs.
func (m *MockTwitchServer) MockUsers(ids map[string]string) {
	m.handle("/users", func(w http.ResponseWriter, r *http.Request) {
		id, ok := ids[r.URL.Query().Get("login")]
		if !ok {
			writeData(w, []any{})
			return
		}
		writeData(w, []map[string]string{{"id": id, "login": r.URL.Query().Get("login"), "created_at": "2015-01-01T00:00:00Z"}})
	})
}

// MockStreamsResponse adds a handler for /streams. A zero startedAt means offline.
func (m *MockTwitchServer) MockStreamsResponse(login string, startedAt time.Time) {
	m.handle("/streams", func(w http.ResponseWriter, r *http.Request) {
		if startedAt.IsZero() || r.URL.Query().Get("user_login") != login {
			writeData(w, []any{})
			return
		}
		writeData(w, []map[string]any{{"id": "1", "user_login": login, "started_at": startedAt.UTC().Format(time.RFC3339)}})
	})
}

// MockChannelResponse serves GET /channels and records PATCH bodies.
func (m *MockTwitchServer) MockChannelResponse(broadcasterID, title, gameName string) {
	m.handle("/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			var body map[string]any
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, &body)
			m.mu.Lock()
			m.patches = append(m.patches, body)
			m.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeData(w, []map[string]string{{"broadcaster_id": broadcasterID, "title": title, "game_name": gameName}})
	})
}

// Patches returns the PATCH /channels bodies received so far.
func (m *MockTwitchServer) Patches() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.patches...)
}

// MockCategories answers /search/categories from query → {id, name}.
func (m *MockTwitchServer) MockCategories(cats map[string]twitchapi.Category) {
	m.handle("/search/categories", func(w http.ResponseWriter, r *http.Request) {
		c, ok := cats[r.URL.Query().Get("query")]
		if !ok {
			writeData(w, []any{})
			return
		}
		writeData(w, []twitchapi.Category{c})
	})
}

// MockFollowers answers /channels/followers from user id → follow time.
func (m *MockTwitchServer) MockFollowers(followedAt map[string]time.Time) {
	m.handle("/channels/followers", func(w http.ResponseWriter, r *http.Request) {
		uid := r.URL.Query().Get("user_id")
		at, ok := followedAt[uid]
		if !ok {
			writeData(w, []any{})
			return
		}
		writeData(w, []map[string]string{{"user_id": uid, "followed_at": at.UTC().Format(time.RFC3339)}})
	})
}

// MockOAuthTokenResponse adds a handler for the OAuth token endpoint at /oauth2/token.
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken, refreshToken string, expiresIn int) {
	m.handle("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test mock response
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"expires_in":    expiresIn,
			"token_type":    "bearer",
		})
	})
}
