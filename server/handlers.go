package server

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/haxgun/Arcane/store"
)

// Store is the persistence the handlers use.
type Store interface {
	Ping(ctx context.Context) error
	SaveToken(ctx context.Context, tok store.Token) error
}

// BotStatus reports the chat connection.
type BotStatus interface {
	Connected() bool
	Channels() []string
	StartedAt() time.Time
}

// OAuth runs the Twitch authorization code flow.
type OAuth interface {
	AuthorizeURL(state string, scopes ...string) (string, error)
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Options wires the server. OAuth may be nil to disable /auth routes; admin
// credentials empty leaves /auth/twitch/start unprotected.
type Options struct {
	Store   Store
	Bot     BotStatus
	OAuth   OAuth
	OnToken func(*oauth2.Token)

	AdminUsername string
	AdminPassword string
	AdminToken    string

	RateLimit  int
	RateWindow time.Duration
}

// Handlers implements the HTTP endpoints.
type Handlers struct {
	opts    Options
	now     func() time.Time
	pending *pendingStates
}

func NewHandlers(opts Options) *Handlers {
	return &Handlers{opts: opts, now: time.Now, pending: newPendingStates(maxPendingStates)}
}

const maxPendingStates = 10000

// pendingStates tracks OAuth state values between start and callback.
type pendingStates struct {
	limit int

	mu      sync.Mutex
	expires map[string]time.Time
}

func newPendingStates(limit int) *pendingStates {
	return &pendingStates{limit: limit, expires: map[string]time.Time{}}
}

// put records state until deadline. Expired entries are swept once the
// table is full; put reports false if it is still full afterwards.
func (p *pendingStates) put(state string, now, deadline time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.expires) >= p.limit {
		for s, exp := range p.expires {
			if now.After(exp) {
				delete(p.expires, s)
			}
		}
		if len(p.expires) >= p.limit {
			return false
		}
	}
	p.expires[state] = deadline
	return true
}

// take removes state and reports whether it was live at now. A state can
// only be taken once.
func (p *pendingStates) take(state string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	exp, ok := p.expires[state]
	if !ok {
		return false
	}
	delete(p.expires, state)
	return !now.After(exp)
}
