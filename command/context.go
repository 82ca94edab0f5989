package command

import (
	"context"
	"fmt"

	"github.com/haxgun/Arcane/identity"
	"github.com/haxgun/Arcane/irc"
)

// Sender delivers chat text to a channel.
type Sender interface {
	Say(ctx context.Context, channel, text string) error
	Reply(ctx context.Context, parentID, channel, text string) error
	Me(ctx context.Context, channel, text string) error
}

// Context is handed to every handler invocation.
type Context struct {
	Message *irc.PrivMsg
	Chatter identity.Chatter
	Channel string
	Prefix  string
	// Command is the resolved definition; nil for custom commands.
	Command *Definition

	sender Sender
}

// NewContext builds a Context for msg. Exposed for handlers tested in isolation.
func NewContext(msg *irc.PrivMsg, chatter identity.Chatter, prefix string, sender Sender) *Context {
	return &Context{Message: msg, Chatter: chatter, Channel: msg.Channel, Prefix: prefix, sender: sender}
}

// Reply answers in a thread under the invoking message.
func (c *Context) Reply(ctx context.Context, text string) error {
	return c.sender.Reply(ctx, c.Message.ID(), c.Channel, text)
}

func (c *Context) Replyf(ctx context.Context, format string, a ...any) error {
	return c.Reply(ctx, fmt.Sprintf(format, a...))
}

// Say posts to the channel without threading.
func (c *Context) Say(ctx context.Context, text string) error {
	return c.sender.Say(ctx, c.Channel, text)
}

func (c *Context) Me(ctx context.Context, text string) error {
	return c.sender.Me(ctx, c.Channel, text)
}
