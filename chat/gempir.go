package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ergochat/irc-go/ircmsg"
	twitch "github.com/gempir/go-twitch-irc/v4"
)

// ircClient is the part of *twitch.Client the adapter drives.
type ircClient interface {
	Say(channel, text string)
	Reply(channel, parentMsgID, text string)
	Join(channels ...string)
	Depart(channel string)
	Connect() error
	Disconnect() error
}

// Gempir adapts go-twitch-irc to Transport.
type Gempir struct {
	client    ircClient
	lines     chan string
	done      chan struct{}
	errs      chan error
	closeOnce sync.Once
	connected atomic.Bool
	log       *slog.Logger
}

// NewGempir builds an unconnected adapter for username with a user token.
func NewGempir(username, oauthToken string) *Gempir {
	if !strings.HasPrefix(oauthToken, "oauth:") {
		oauthToken = "oauth:" + oauthToken
	}
	client := twitch.NewClient(strings.ToLower(username), oauthToken)
	client.Capabilities = []string{twitch.TagsCapability, twitch.CommandsCapability, twitch.MembershipCapability}

	g := newGempir(client)
	client.OnConnect(func() {
		g.connected.Store(true)
		g.log.Info("connected to twitch chat")
	})
	client.OnReconnectMessage(func(m twitch.ReconnectMessage) {
		g.connected.Store(false)
		g.log.Info("server asked to reconnect")
		g.push(m.Raw)
	})
	client.OnPrivateMessage(func(m twitch.PrivateMessage) { g.push(m.Raw) })
	client.OnWhisperMessage(func(m twitch.WhisperMessage) { g.push(m.Raw) })
	client.OnUserJoinMessage(func(m twitch.UserJoinMessage) { g.push(m.Raw) })
	client.OnUserPartMessage(func(m twitch.UserPartMessage) { g.push(m.Raw) })
	client.OnUserStateMessage(func(m twitch.UserStateMessage) { g.push(m.Raw) })
	client.OnRoomStateMessage(func(m twitch.RoomStateMessage) { g.push(m.Raw) })
	client.OnNoticeMessage(func(m twitch.NoticeMessage) { g.push(m.Raw) })
	client.OnClearChatMessage(func(m twitch.ClearChatMessage) { g.push(m.Raw) })
	client.OnUserNoticeMessage(func(m twitch.UserNoticeMessage) { g.push(m.Raw) })
	client.OnUnsetMessage(func(m twitch.RawMessage) { g.push(m.Raw) })
	return g
}

func newGempir(c ircClient) *Gempir {
	return &Gempir{
		client: c,
		lines:  make(chan string, 256),
		done:   make(chan struct{}),
		errs:   make(chan error, 1),
		log:    slog.Default().With(slog.String("component", "chat"), slog.String("transport", "gempir")),
	}
}

// Start connects in the background. The library reconnects on its own;
// ReadLine reports the error once Connect gives up.
func (g *Gempir) Start() {
	go func() {
		err := g.client.Connect()
		g.connected.Store(false)
		if errors.Is(err, twitch.ErrClientDisconnected) {
			err = ErrClosed
		}
		g.errs <- err
	}()
}

// Connected reports whether the client is currently logged in.
func (g *Gempir) Connected() bool { return g.connected.Load() }

func (g *Gempir) push(raw string) {
	select {
	case g.lines <- raw:
	case <-g.done:
	}
}

func (g *Gempir) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-g.lines:
		return line, nil
	case err := <-g.errs:
		if err == nil {
			err = ErrClosed
		}
		return "", err
	case <-g.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SendLine translates an encoded IRC line into a client call. Handshake and
// keepalive lines are dropped because the library sends its own.
func (g *Gempir) SendLine(_ context.Context, line string) error {
	select {
	case <-g.done:
		return ErrClosed
	default:
	}
	msg, err := ircmsg.ParseLine(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return fmt.Errorf("parse outgoing line: %w", err)
	}
	channel := func() string {
		if len(msg.Params) == 0 {
			return ""
		}
		return strings.TrimPrefix(msg.Params[0], "#")
	}
	switch strings.ToUpper(msg.Command) {
	case "PRIVMSG":
		if len(msg.Params) < 2 {
			return fmt.Errorf("PRIVMSG needs a channel and text")
		}
		text := msg.Params[1]
		if ok, parent := msg.GetTag("reply-parent-msg-id"); ok && parent != "" {
			g.client.Reply(channel(), parent, text)
			return nil
		}
		g.client.Say(channel(), text)
	case "JOIN":
		if len(msg.Params) == 0 {
			return fmt.Errorf("JOIN needs a channel")
		}
		for _, ch := range strings.Split(msg.Params[0], ",") {
			g.client.Join(strings.TrimPrefix(ch, "#"))
		}
	case "PART":
		g.client.Depart(channel())
	case "PASS", "NICK", "CAP", "PONG", "PING":
	default:
		return fmt.Errorf("unsupported command %s over go-twitch-irc", msg.Command)
	}
	return nil
}

func (g *Gempir) Close() error {
	err := ErrClosed
	g.closeOnce.Do(func() {
		close(g.done)
		err = g.client.Disconnect()
		if errors.Is(err, twitch.ErrConnectionIsNotOpen) {
			err = nil
		}
	})
	return err
}
