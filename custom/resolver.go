// Package custom resolves per-channel custom commands and aliases that the
// static registry does not know about.
package custom

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/cooldown"
	"github.com/haxgun/Arcane/store"
)

// MaxRepeat bounds how many times a moderator may repeat a response.
const MaxRepeat = 20

// Resolver answers custom commands. It plugs into command.Dispatcher as the
// fallback for unknown tokens and shares the dispatcher's cooldown tracker.
type Resolver struct {
	lookup    Lookup
	cooldowns *cooldown.Tracker
	log       *slog.Logger
}

func NewResolver(lookup Lookup, tracker *cooldown.Tracker) *Resolver {
	return &Resolver{
		lookup:    lookup,
		cooldowns: tracker,
		log:       slog.Default().With(slog.String("component", "custom")),
	}
}

// Resolve finds token in channel, checking commands before aliases.
// Tokens starting with an emoji never match.
func (r *Resolver) Resolve(ctx context.Context, channel, token string) (store.Command, error) {
	token = strings.ToLower(token)
	if token == "" || StartsWithEmoji(token) {
		return store.Command{}, store.ErrNotFound
	}
	cmd, err := r.lookup.FindCommand(ctx, channel, token)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return cmd, err
	}
	return r.lookup.ResolveAlias(ctx, channel, token)
}

// CooldownKey identifies a custom command for the cooldown tracker; aliases
// share the key of their target.
func CooldownKey(name string) string { return "custom:" + name }

// Fallback implements command.Fallback.
func (r *Resolver) Fallback(ctx context.Context, c *command.Context, token, body string) (command.Outcome, bool) {
	cmd, err := r.Resolve(ctx, c.Channel, token)
	if errors.Is(err, store.ErrNotFound) {
		return command.Outcome{}, false
	}
	key := CooldownKey(token)
	if err != nil {
		r.log.Warn("custom command lookup failed", slog.String("channel", c.Channel), slog.String("token", token), slog.Any("err", err))
		return command.Outcome{Status: command.Failed, Reason: command.ReasonHandler, Command: key, Err: err}, true
	}
	key = CooldownKey(cmd.Name)

	if !r.cooldowns.Allow(c.Channel, key, cmd.CooldownDuration()) {
		return command.Outcome{Status: command.Suppressed, Reason: command.ReasonCooldown, Command: key}, true
	}

	count := 1
	if c.Chatter.IsModerator() || c.Chatter.IsBroadcaster() {
		count = repeatCount(body)
	}
	if count == 1 {
		err = c.Reply(ctx, cmd.Response)
	} else {
		for i := 0; i < count && err == nil; i++ {
			err = c.Say(ctx, cmd.Response)
		}
	}
	if err != nil {
		return command.Outcome{Status: command.Failed, Reason: command.ReasonHandler, Command: key, Err: err}, true
	}
	return command.Outcome{Status: command.Invoked, Command: key}, true
}

// repeatCount reads an optional leading integer, clamped to 1..MaxRepeat.
func repeatCount(body string) int {
	first, _, _ := strings.Cut(strings.TrimSpace(body), " ")
	n, err := strconv.Atoi(first)
	if err != nil || n < 1 {
		return 1
	}
	return min(n, MaxRepeat)
}
