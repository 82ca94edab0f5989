package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/testutil"
	"github.com/haxgun/Arcane/twitchapi"
)

type fakeStore struct {
	pingErr error
	saved   []store.Token
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) SaveToken(_ context.Context, tok store.Token) error {
	f.saved = append(f.saved, tok)
	return nil
}

type fakeBot struct {
	connected bool
	channels  []string
	started   time.Time
}

func (b fakeBot) Connected() bool      { return b.connected }
func (b fakeBot) Channels() []string   { return b.channels }
func (b fakeBot) StartedAt() time.Time { return b.started }

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthzOK(t *testing.T) {
	h := NewMux(t.Context(), Options{Store: &fakeStore{}})
	rr := serve(t, h, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "ok" {
		t.Fatalf("expected ok body, got %q", got)
	}
}

func TestHealthzDatabaseDown(t *testing.T) {
	h := NewMux(t.Context(), Options{Store: &fakeStore{pingErr: errors.New("closed")}})
	if rr := serve(t, h, "/healthz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestHealthzRealStore(t *testing.T) {
	h := NewMux(t.Context(), Options{Store: testutil.SetupTestDB(t)})
	if rr := serve(t, h, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		store      *fakeStore
		bot        BotStatus
		wantCode   int
		wantFailed string
	}{
		{"ready", &fakeStore{}, fakeBot{connected: true}, http.StatusOK, ""},
		{"database down", &fakeStore{pingErr: errors.New("down")}, fakeBot{connected: true}, http.StatusServiceUnavailable, "database"},
		{"not in chat", &fakeStore{}, fakeBot{}, http.StatusServiceUnavailable, "chat"},
		{"no bot", &fakeStore{}, nil, http.StatusServiceUnavailable, "chat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMux(t.Context(), Options{Store: tt.store, Bot: tt.bot})
			rr := serve(t, h, "/readyz")
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rr.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.wantFailed == "" {
				if body["status"] != "ready" {
					t.Errorf("status = %q, want ready", body["status"])
				}
				return
			}
			if body["status"] != "not_ready" || body["failed_check"] != tt.wantFailed {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	handlers := NewHandlers(Options{Bot: fakeBot{connected: true, channels: []string{"foo", "bar"}, started: started}})
	handlers.now = func() time.Time { return started.Add(90 * time.Second) }

	rr := httptest.NewRecorder()
	handlers.HandleStatus(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	var got statusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Connected || len(got.Channels) != 2 || got.UptimeSeconds != 90 || !got.StartedAt.Equal(started) {
		t.Errorf("unexpected status %+v", got)
	}
}

func TestStatusWithoutBot(t *testing.T) {
	rr := serve(t, NewMux(t.Context(), Options{Store: &fakeStore{}}), "/status")
	if !strings.Contains(rr.Body.String(), `"channels":[]`) {
		t.Errorf("expected empty channel list, got %s", rr.Body.String())
	}
}

func TestCorrelationHeader(t *testing.T) {
	h := NewMux(t.Context(), Options{Store: &fakeStore{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("expected echoed correlation id, got %q", got)
	}

	if got := serve(t, h, "/healthz").Header().Get("X-Correlation-ID"); got == "" {
		t.Error("expected generated correlation id")
	}
}

func TestAuthRoutesDisabledWithoutOAuth(t *testing.T) {
	h := NewMux(t.Context(), Options{Store: &fakeStore{}})
	if rr := serve(t, h, "/auth/twitch/start"); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func testApp(m *testutil.MockTwitchServer) twitchapi.App {
	return twitchapi.App{
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:8080/auth/twitch/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  m.URL + "/oauth2/authorize",
			TokenURL: m.URL + "/oauth2/token",
		},
	}
}

func TestTwitchOAuthFlow(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("user-access", "user-refresh", 3600)
	db := testutil.SetupTestDB(t)

	var got *oauth2.Token
	h := NewMux(t.Context(), Options{
		Store:      db,
		OAuth:      testApp(mock),
		OnToken:    func(tok *oauth2.Token) { got = tok },
		AdminToken: "admin",
	})

	// Start requires admin auth.
	if rr := serve(t, h, "/auth/twitch/start"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/twitch/start", nil)
	req.Header.Set("X-Admin-Token", "admin")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if !strings.HasPrefix(loc.String(), mock.URL+"/oauth2/authorize") {
		t.Fatalf("unexpected authorize url %s", loc)
	}
	state := loc.Query().Get("state")
	if state == "" || !strings.Contains(loc.Query().Get("scope"), "chat:edit") {
		t.Fatalf("authorize url missing state or scopes: %s", loc)
	}

	rr = serve(t, h, "/auth/twitch/callback?code=abc&state="+state)
	if rr.Code != http.StatusOK {
		t.Fatalf("callback: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got == nil || got.AccessToken != "user-access" {
		t.Fatalf("OnToken not called with exchanged token: %+v", got)
	}

	tok, err := db.GetToken(t.Context(), TwitchProvider)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if tok.AccessToken != "user-access" || tok.RefreshToken != "user-refresh" || tok.ExpiresAt.IsZero() {
		t.Errorf("unexpected stored token %+v", tok)
	}

	// States are single use.
	if rr := serve(t, h, "/auth/twitch/callback?code=abc&state="+state); rr.Code != http.StatusBadRequest {
		t.Errorf("expected replayed state to fail, got %d", rr.Code)
	}
}

func TestTwitchOAuthCallbackRejects(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	st := &fakeStore{}
	h := NewMux(t.Context(), Options{Store: st, OAuth: testApp(mock), RateLimit: -1})

	for _, target := range []string{
		"/auth/twitch/callback",
		"/auth/twitch/callback?code=abc",
		"/auth/twitch/callback?code=abc&state=unknown",
	} {
		if rr := serve(t, h, target); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rr.Code)
		}
	}
	if len(st.saved) != 0 {
		t.Errorf("no token should be saved, got %d", len(st.saved))
	}
}

func TestOAuthStateExpiry(t *testing.T) {
	h := NewHandlers(Options{})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	if !h.pending.put("s1", now, now.Add(stateTTL)) {
		t.Fatal("put on empty table failed")
	}
	now = now.Add(stateTTL + time.Second)
	if h.pending.take("s1", h.now()) {
		t.Error("expired state should be rejected")
	}
}

func TestPendingStatesFull(t *testing.T) {
	p := newPendingStates(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.put("a", now, now.Add(time.Minute))
	p.put("b", now, now.Add(time.Hour))
	if p.put("c", now, now.Add(time.Hour)) {
		t.Fatal("third state accepted while table is full")
	}
	later := now.Add(2 * time.Minute)
	if !p.put("c", later, later.Add(time.Hour)) {
		t.Fatal("expired entry should have been swept")
	}
	if !p.take("c", later) || p.take("c", later) {
		t.Error("state must be taken exactly once")
	}
}

func TestTokenScope(t *testing.T) {
	list := (&oauth2.Token{}).WithExtra(map[string]any{"scope": []any{"chat:read", "chat:edit"}})
	if got := tokenScope(list); got != "chat:read chat:edit" {
		t.Errorf("list scope = %q", got)
	}
	str := (&oauth2.Token{}).WithExtra(map[string]any{"scope": "chat:read"})
	if got := tokenScope(str); got != "chat:read" {
		t.Errorf("string scope = %q", got)
	}
	if got := tokenScope(&oauth2.Token{}); got != "" {
		t.Errorf("missing scope = %q", got)
	}
}

func TestStartAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Start(ctx, Options{Store: &fakeStore{}}, "127.0.0.1:0") }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestStartDisabled(t *testing.T) {
	if err := Start(t.Context(), Options{}, ""); err != nil {
		t.Fatalf("expected nil for empty addr, got %v", err)
	}
}
