// Package bot runs the chat session: handshake, read loop, PING/PONG,
// console echo and command dispatch.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/haxgun/Arcane/chat"
	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/identity"
	"github.com/haxgun/Arcane/irc"
	"github.com/haxgun/Arcane/telemetry"
)

var (
	// ErrAuthFailed ends Run: Twitch rejected the token.
	ErrAuthFailed = errors.New("bot: chat authentication failed")
	// ErrReconnect is returned by HandleLine when the server asks to reconnect.
	ErrReconnect = errors.New("bot: server requested reconnect")
)

// Dialer opens a new chat transport.
type Dialer func(ctx context.Context) (chat.Transport, error)

// Config parameterizes a Bot.
type Config struct {
	Username string
	// Token returns the current chat token; it may change between sessions.
	Token    func() string
	Channels []string
	OwnerID  string
	Debug    bool
	// ReconnectDelay is the first backoff step; it doubles up to a minute.
	ReconnectDelay time.Duration
}

type Bot struct {
	cfg        Config
	dial       Dialer
	sender     *Sender
	dispatcher *command.Dispatcher
	console    *Console

	mu        sync.RWMutex
	channels  map[string]struct{}
	connected atomic.Bool
	startedAt time.Time
	log       *slog.Logger
}

func New(cfg Config, dial Dialer, sender *Sender, dispatcher *command.Dispatcher) *Bot {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.Token == nil {
		cfg.Token = func() string { return "" }
	}
	cfg.Username = strings.ToLower(cfg.Username)
	b := &Bot{
		cfg:        cfg,
		dial:       dial,
		sender:     sender,
		dispatcher: dispatcher,
		channels:   map[string]struct{}{},
		startedAt:  time.Now(),
		log:        slog.Default().With(slog.String("component", "bot")),
	}
	for _, ch := range cfg.Channels {
		if ch = normalize(ch); ch != "" {
			b.channels[ch] = struct{}{}
		}
	}
	return b
}

func normalize(ch string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
}

// SetConsole enables the chat echo; nil disables it.
func (b *Bot) SetConsole(c *Console) { b.console = c }

// StartedAt is when the bot process came up.
func (b *Bot) StartedAt() time.Time { return b.startedAt }

// Connected reports whether a chat session is logged in.
func (b *Bot) Connected() bool {
	if c, ok := b.sender.transport().(interface{ Connected() bool }); ok {
		return c.Connected()
	}
	return b.connected.Load()
}

// Channels lists joined channels, sorted.
func (b *Bot) Channels() []string {
	b.mu.RLock()
	out := lo.Keys(b.channels)
	b.mu.RUnlock()
	slices.Sort(out)
	return out
}

// JoinChannel adds channel and joins it right away when connected.
func (b *Bot) JoinChannel(ctx context.Context, channel string) error {
	channel = normalize(channel)
	if channel == "" {
		return errors.New("empty channel name")
	}
	b.mu.Lock()
	b.channels[channel] = struct{}{}
	n := len(b.channels)
	b.mu.Unlock()
	telemetry.SetChannels(n)
	if !b.Connected() {
		return nil
	}
	return b.sender.Join(ctx, channel)
}

// PartChannel forgets channel and leaves it when connected.
func (b *Bot) PartChannel(ctx context.Context, channel string) error {
	channel = normalize(channel)
	b.mu.Lock()
	delete(b.channels, channel)
	n := len(b.channels)
	b.mu.Unlock()
	telemetry.SetChannels(n)
	if !b.Connected() {
		return nil
	}
	return b.sender.Part(ctx, channel)
}

// Run keeps a chat session open until ctx ends, reconnecting with
// exponential backoff. It returns nil on cancellation and ErrAuthFailed when
// Twitch rejects the token.
func (b *Bot) Run(ctx context.Context) error {
	delay := b.cfg.ReconnectDelay
	for {
		established, err := b.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrAuthFailed) {
			return err
		}
		if established {
			delay = b.cfg.ReconnectDelay
		}
		telemetry.CountReconnect()
		b.log.Warn("chat session ended; reconnecting", slog.Any("err", err), slog.Duration("backoff", delay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, time.Minute)
	}
}

// session runs one connection. established is true once the handshake went out.
func (b *Bot) session(ctx context.Context) (established bool, err error) {
	t, err := b.dial(ctx)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	b.sender.Attach(t)
	defer func() {
		b.sender.Attach(nil)
		b.connected.Store(false)
		telemetry.SetConnected(false)
		_ = t.Close()
	}()

	if err := b.handshake(ctx); err != nil {
		return false, fmt.Errorf("handshake: %w", err)
	}
	for {
		line, err := t.ReadLine(ctx)
		if err != nil {
			return true, err
		}
		if err := b.HandleLine(ctx, line); err != nil {
			return true, err
		}
	}
}

func (b *Bot) handshake(ctx context.Context) error {
	lines := []string{irc.CapReq(irc.Capabilities...), irc.Pass(b.cfg.Token()), irc.Nick(b.cfg.Username)}
	for _, l := range lines {
		if err := b.sender.Raw(ctx, l); err != nil {
			return err
		}
	}
	channels := b.Channels()
	for _, ch := range channels {
		if err := b.sender.Join(ctx, ch); err != nil {
			return err
		}
	}
	telemetry.SetChannels(len(channels))
	b.log.Info("joining channels", slog.Int("count", len(channels)), slog.Any("channels", channels))
	return nil
}

// HandleLine processes one raw line. Undecodable lines are dropped; an error
// is returned only when the session has to end.
func (b *Bot) HandleLine(ctx context.Context, line string) error {
	ev, err := irc.Decode(line)
	if err != nil {
		telemetry.CountDecodeError()
		b.log.Debug("dropping line", slog.String("line", line), slog.Any("err", err))
		return nil
	}
	telemetry.CountEvent(ev.Kind().String())
	if b.cfg.Debug {
		b.log.Debug("event", slog.String("kind", ev.Kind().String()), slog.String("raw", ev.Meta().Raw))
	}

	switch e := ev.(type) {
	case *irc.Ping:
		return b.sender.Raw(ctx, irc.Pong(e.Content))
	case *irc.PrivMsg:
		b.handlePrivmsg(ctx, e)
	case *irc.Notice:
		if e.Channel == "" && isAuthFailure(e.Content) {
			return fmt.Errorf("%w: %s", ErrAuthFailed, e.Content)
		}
		b.log.Info("notice", slog.String("channel", e.Channel), slog.String("msg_id", e.MsgID), slog.String("text", e.Content))
	case *irc.Unknown:
		switch e.Command {
		case "001", "GLOBALUSERSTATE":
			if !b.connected.Swap(true) {
				telemetry.SetConnected(true)
				b.log.Info("connected to twitch chat", slog.String("user", b.cfg.Username))
				if b.console != nil {
					b.console.Status("Connected as %s", b.cfg.Username)
				}
			}
		case "RECONNECT":
			return ErrReconnect
		default:
			b.log.Debug("unhandled command", slog.String("command", e.Command))
		}
	}
	return nil
}

func isAuthFailure(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "authentication failed") || strings.Contains(t, "improperly formatted auth")
}

func (b *Bot) handlePrivmsg(ctx context.Context, msg *irc.PrivMsg) {
	if strings.EqualFold(msg.Author, b.cfg.Username) {
		return
	}
	if b.console != nil {
		b.console.Chat(msg, identity.FromMessage(msg, b.cfg.OwnerID))
	}

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerName, "dispatch", telemetry.ChatAttrs(msg.Channel, msg.Author)...)
	defer span.End()

	start := time.Now()
	out := b.dispatcher.Dispatch(ctx, msg)
	telemetry.ObserveDispatch(out.Status.String(), string(out.Reason), time.Since(start))
	telemetry.SetOutcome(span, out.Status.String(), out.Command)

	switch out.Status {
	case command.Failed:
		telemetry.RecordError(span, out.Err)
		telemetry.LoggerWithCorr(ctx).Debug("command failed", slog.String("command", out.Command),
			slog.String("reason", string(out.Reason)), slog.Any("err", out.Err))
	case command.Invoked:
		telemetry.SetSpanSuccess(span)
		telemetry.LoggerWithCorr(ctx).Debug("command invoked", slog.String("command", out.Command), slog.String("channel", msg.Channel))
	}
}
