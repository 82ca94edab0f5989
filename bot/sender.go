package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/haxgun/Arcane/chat"
	"github.com/haxgun/Arcane/irc"
	"github.com/haxgun/Arcane/telemetry"
)

// ErrNotConnected is returned when no transport is attached.
var ErrNotConnected = errors.New("bot: not connected")

// Twitch limits for accounts without moderator status.
const (
	DefaultMessagesPerWindow = 20
	DefaultMessageWindow     = 30 * time.Second
	joinsPerWindow           = 20
	joinWindow               = 10 * time.Second
)

// Sender writes chat lines to the current transport. Chat messages and
// joins are paced by separate token buckets; handshake lines and PONG are not.
type Sender struct {
	mu       sync.RWMutex
	t        chat.Transport
	messages *rate.Limiter
	joins    *rate.Limiter
}

// NewSender allows n messages per window. n <= 0 selects the defaults.
func NewSender(n int, window time.Duration) *Sender {
	if n <= 0 || window <= 0 {
		n, window = DefaultMessagesPerWindow, DefaultMessageWindow
	}
	return &Sender{
		messages: rate.NewLimiter(rate.Every(window/time.Duration(n)), n),
		joins:    rate.NewLimiter(rate.Every(joinWindow/joinsPerWindow), joinsPerWindow),
	}
}

// Attach routes output to t; nil detaches.
func (s *Sender) Attach(t chat.Transport) {
	s.mu.Lock()
	s.t = t
	s.mu.Unlock()
}

func (s *Sender) transport() chat.Transport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.t
}

func (s *Sender) write(ctx context.Context, kind, line string, limiter *rate.Limiter) error {
	t := s.transport()
	if t == nil {
		return ErrNotConnected
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	err := t.SendLine(ctx, line)
	telemetry.CountSent(kind, err)
	return err
}

// Say posts text to channel. Leading dots are stripped so user supplied text
// cannot run chat commands such as .ban.
func (s *Sender) Say(ctx context.Context, channel, text string) error {
	line, err := irc.Privmsg(channel, strings.TrimLeft(text, "."))
	if err != nil {
		return err
	}
	return s.write(ctx, "say", line, s.messages)
}

func (s *Sender) Reply(ctx context.Context, parentID, channel, text string) error {
	line, err := irc.Reply(parentID, channel, text)
	if err != nil {
		return err
	}
	return s.write(ctx, "reply", line, s.messages)
}

func (s *Sender) Me(ctx context.Context, channel, text string) error {
	line, err := irc.Me(channel, text)
	if err != nil {
		return err
	}
	return s.write(ctx, "me", line, s.messages)
}

func (s *Sender) Join(ctx context.Context, channel string) error {
	return s.write(ctx, "join", irc.JoinLine(channel), s.joins)
}

func (s *Sender) Part(ctx context.Context, channel string) error {
	return s.write(ctx, "part", irc.PartLine(channel), nil)
}

// Raw writes an already encoded line without pacing.
func (s *Sender) Raw(ctx context.Context, line string) error {
	return s.write(ctx, "raw", line, nil)
}
