package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"unicode"

	"github.com/haxgun/Arcane/cooldown"
	"github.com/haxgun/Arcane/identity"
	"github.com/haxgun/Arcane/irc"
)

// Status is the terminal state of one dispatch.
type Status int

const (
	// Ignored: the message is not a command for this bot.
	Ignored Status = iota
	Invoked
	Suppressed
	Failed
)

func (s Status) String() string {
	switch s {
	case Invoked:
		return "invoked"
	case Suppressed:
		return "suppressed"
	case Failed:
		return "failed"
	}
	return "ignored"
}

// Reason qualifies Ignored, Suppressed and Failed outcomes.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNoPrefix   Reason = "no_prefix"
	ReasonUnknown    Reason = "unknown_command"
	ReasonPermission Reason = "permission"
	ReasonCooldown   Reason = "cooldown"
	ReasonArguments  Reason = "arguments"
	ReasonHandler    Reason = "handler"
)

// Outcome describes what happened to one message.
type Outcome struct {
	Status  Status
	Reason  Reason
	Command string
	Err     error
}

// Fallback gets tokens that match no registered command, e.g. per channel
// custom commands. It returns false when it does not know the token either.
type Fallback interface {
	Fallback(ctx context.Context, c *Context, token, body string) (Outcome, bool)
}

// Config parameterizes a Dispatcher.
type Config struct {
	Prefix   string
	OwnerID  string
	Fallback Fallback
	Logger   *slog.Logger
}

// Dispatcher routes chat messages to command handlers. Handlers run on the
// caller's goroutine, one message at a time.
type Dispatcher struct {
	registry  *Registry
	cooldowns *cooldown.Tracker
	sender    Sender
	prefix    string
	ownerID   string
	fallback  Fallback
	log       *slog.Logger
}

func NewDispatcher(reg *Registry, tracker *cooldown.Tracker, sender Sender, cfg Config) *Dispatcher {
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		registry:  reg,
		cooldowns: tracker,
		sender:    sender,
		prefix:    cfg.Prefix,
		ownerID:   cfg.OwnerID,
		fallback:  cfg.Fallback,
		log:       cfg.Logger.With(slog.String("component", "dispatch")),
	}
}

// SetFallback installs the handler for unknown tokens.
func (d *Dispatcher) SetFallback(f Fallback) { d.fallback = f }

func (d *Dispatcher) Prefix() string { return d.prefix }

// Dispatch handles one chat message: resolve the command, descend into
// subcommands checking permissions at each level, check the cooldown, bind
// arguments, record the use and run the handler.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *irc.PrivMsg) Outcome {
	body, ok := strings.CutPrefix(msg.Content, d.prefix)
	if !ok || body == "" || unicode.IsSpace(rune(body[0])) {
		return Outcome{Status: Ignored, Reason: ReasonNoPrefix}
	}
	token, rest := firstToken(body)
	if token == "" {
		return Outcome{Status: Ignored, Reason: ReasonNoPrefix}
	}

	chatter := identity.FromMessage(msg, d.ownerID)
	c := NewContext(msg, chatter, d.prefix, d.sender)

	def, ok := d.registry.Resolve(token)
	if !ok {
		if d.fallback != nil {
			if out, handled := d.fallback.Fallback(ctx, c, token, rest); handled {
				return out
			}
		}
		return Outcome{Status: Ignored, Reason: ReasonUnknown}
	}

	for {
		if !chatter.HasAny(def.Roles) {
			return Outcome{Status: Suppressed, Reason: ReasonPermission, Command: def.Path()}
		}
		next, after := firstToken(rest)
		sub, ok := def.Sub(next)
		if next == "" || !ok {
			break
		}
		def, rest = sub, after
	}
	c.Command = def

	if d.cooldowns.Remaining(c.Channel, def.Path(), def.Cooldown) > 0 {
		return Outcome{Status: Suppressed, Reason: ReasonCooldown, Command: def.Path()}
	}

	// A use is only recorded once the arguments bind, so a mistyped call
	// does not lock out the corrected one.
	args, err := bindArgs(def, rest)
	if err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			argErr.Usage = def.Usage(d.prefix)
		}
		if rerr := c.Reply(ctx, err.Error()); rerr != nil {
			d.log.Warn("failed to send usage", slog.String("command", def.Path()), slog.Any("err", rerr))
		}
		return Outcome{Status: Failed, Reason: ReasonArguments, Command: def.Path(), Err: err}
	}
	if !d.cooldowns.Allow(c.Channel, def.Path(), def.Cooldown) {
		return Outcome{Status: Suppressed, Reason: ReasonCooldown, Command: def.Path()}
	}

	if err := d.invoke(ctx, c, def, args); err != nil {
		return Outcome{Status: Failed, Reason: ReasonHandler, Command: def.Path(), Err: err}
	}
	return Outcome{Status: Invoked, Command: def.Path()}
}

// invoke runs the handler, turning a panic into a HandlerError.
func (d *Dispatcher) invoke(ctx context.Context, c *Context, def *Definition, args Args) (err error) {
	defer func() {
		if r := recover(); r != nil {
			herr := &HandlerError{Command: def.Path(), Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
			d.log.Error("command panicked", slog.String("command", def.Path()), slog.String("channel", c.Channel),
				slog.Any("err", herr.Err), slog.String("stack", string(herr.Stack)))
			err = herr
		}
	}()
	if herr := def.Handler(ctx, c, args); herr != nil {
		d.log.Warn("command failed", slog.String("command", def.Path()), slog.String("channel", c.Channel), slog.Any("err", herr))
		return &HandlerError{Command: def.Path(), Err: herr}
	}
	return nil
}
