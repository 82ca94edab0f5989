// Package command holds the chat command model: definitions with aliases,
// role requirements, cooldowns, typed parameters and subcommands, the
// registry that resolves them, and the dispatcher that runs them.
package command

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/haxgun/Arcane/cooldown"
	"github.com/haxgun/Arcane/identity"
)

// HandlerFunc runs a command. args holds the coerced parameters.
type HandlerFunc func(ctx context.Context, c *Context, args Args) error

// Definition describes one command or subcommand.
type Definition struct {
	Name     string          `validate:"required,cmdname"`
	Aliases  []string        `validate:"dive,required,cmdname"`
	Roles    []identity.Role `validate:"dive,oneof=owner broadcaster moderator subscriber turbo vip"`
	Cooldown time.Duration   `validate:"gte=0"`
	Hidden   bool
	Help     string
	Params   []Param     `validate:"dive"`
	Handler  HandlerFunc `validate:"required"`

	parent  *Definition
	subs    map[string]*Definition
	subList []*Definition
}

// Option configures a Definition built with New.
type Option func(*Definition)

func WithAliases(aliases ...string) Option {
	return func(d *Definition) { d.Aliases = append(d.Aliases, aliases...) }
}

// WithRoles restricts the command to chatters holding any of roles.
func WithRoles(roles ...identity.Role) Option {
	return func(d *Definition) { d.Roles = append(d.Roles, roles...) }
}

// WithCooldown overrides cooldown.Default; zero disables throttling.
func WithCooldown(window time.Duration) Option {
	return func(d *Definition) { d.Cooldown = window }
}

// WithParams declares positional parameters in order.
func WithParams(params ...Param) Option {
	return func(d *Definition) { d.Params = append(d.Params, params...) }
}

func WithHelp(help string) Option {
	return func(d *Definition) { d.Help = help }
}

// Hidden keeps the command out of listings.
func Hidden() Option {
	return func(d *Definition) { d.Hidden = true }
}

// New builds a definition with the default cooldown.
func New(name string, handler HandlerFunc, opts ...Option) *Definition {
	d := &Definition{Name: name, Handler: handler, Cooldown: cooldown.Default}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Path is the space separated chain of names from the top level command,
// e.g. "commands add". It identifies the command for cooldowns.
func (d *Definition) Path() string {
	if d.parent == nil {
		return d.Name
	}
	return d.parent.Path() + " " + d.Name
}

// Parent returns the enclosing command, nil at top level.
func (d *Definition) Parent() *Definition { return d.parent }

// AddSub attaches sub under d. Its name and aliases become subcommand tokens.
func (d *Definition) AddSub(sub *Definition) error {
	if err := validateDefinition(sub); err != nil {
		return err
	}
	if sub.parent != nil {
		return fmt.Errorf("command %q is already attached to %q", sub.Name, sub.parent.Path())
	}
	if d.subs == nil {
		d.subs = make(map[string]*Definition)
	}
	key := strings.ToLower(sub.Name)
	if existing, ok := d.subs[key]; ok && strings.EqualFold(existing.Name, key) {
		return fmt.Errorf("%w: %s %s", ErrDuplicate, d.Path(), sub.Name)
	}
	sub.parent = d
	d.subs[key] = sub
	for _, a := range sub.Aliases {
		a = strings.ToLower(a)
		if existing, ok := d.subs[a]; ok && strings.EqualFold(existing.Name, a) {
			continue
		}
		d.subs[a] = sub
	}
	d.subList = append(d.subList, sub)
	return nil
}

// MustSub is AddSub for static command tables; it panics on error.
func (d *Definition) MustSub(sub *Definition) *Definition {
	if err := d.AddSub(sub); err != nil {
		panic(err)
	}
	return d
}

// Sub resolves a subcommand token, ignoring case.
func (d *Definition) Sub(token string) (*Definition, bool) {
	s, ok := d.subs[strings.ToLower(token)]
	return s, ok
}

// Subcommands returns the attached subcommands in registration order.
func (d *Definition) Subcommands() []*Definition {
	return append([]*Definition(nil), d.subList...)
}

// Usage renders "<prefix><path> <required> [optional]".
func (d *Definition) Usage(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(d.Path())
	for _, p := range d.Params {
		if p.Optional {
			fmt.Fprintf(&b, " [%s]", p.Name)
		} else {
			fmt.Fprintf(&b, " <%s>", p.Name)
		}
	}
	return b.String()
}

var getValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cmdname", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && strings.IndexFunc(s, unicode.IsSpace) == -1
	})
	return v
})

func validateDefinition(d *Definition) error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	if err := getValidator().Struct(d); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, d.Name, err)
	}
	optional := false
	for _, p := range d.Params {
		if optional && !p.Optional {
			return fmt.Errorf("%w: %s: required parameter %q follows an optional one", ErrInvalidDefinition, d.Name, p.Name)
		}
		optional = optional || p.Optional
	}
	return nil
}
