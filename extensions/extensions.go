// Package extensions holds the built-in chat commands: viewer utilities,
// stream title and game, custom command management and owner tools.
package extensions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/twitchapi"
	"github.com/haxgun/Arcane/valorant"
)

// Helix is the subset of the Twitch API the commands call.
type Helix interface {
	GetUser(ctx context.Context, login string) (twitchapi.User, error)
	GetUserID(ctx context.Context, login string) (string, error)
	GetStream(ctx context.Context, login string) (twitchapi.Stream, error)
	GetChannelInfo(ctx context.Context, broadcasterID string) (twitchapi.ChannelInfo, error)
	ModifyChannel(ctx context.Context, broadcasterID string, upd twitchapi.ChannelUpdate) error
	SearchCategory(ctx context.Context, query string) (twitchapi.Category, error)
	GetFollower(ctx context.Context, broadcasterID, userID string) (twitchapi.Follower, error)
	Latency(ctx context.Context) (time.Duration, error)
}

// Store is the persistence the management commands need.
type Store interface {
	AddCommand(ctx context.Context, channel string, cmd store.Command) (store.Command, error)
	EditCommand(ctx context.Context, channel, name, response string) error
	RemoveCommand(ctx context.Context, channel, name string) error
	ListCommands(ctx context.Context, channel string) ([]store.Command, error)
	AddAlias(ctx context.Context, channel, command, alias string) (store.Alias, error)
	RenameAlias(ctx context.Context, channel, oldName, newName string) error
	RemoveAlias(ctx context.Context, channel, name string) error
	ListAliases(ctx context.Context, channel string) ([]store.Alias, error)
	GetSetting(ctx context.Context, channel, key string) (string, error)
	SetSetting(ctx context.Context, channel, key, value string) error
	AddChannel(ctx context.Context, name string) (store.Channel, error)
	RemoveChannel(ctx context.Context, name string) error
}

// Channels joins and leaves chat rooms at runtime.
type Channels interface {
	JoinChannel(ctx context.Context, channel string) error
	PartChannel(ctx context.Context, channel string) error
	Channels() []string
	StartedAt() time.Time
}

// Ranks looks up Valorant competitive ranks.
type Ranks interface {
	Rank(ctx context.Context, riotID string) (valorant.MMR, error)
}

// Deps are the collaborators of the built-in commands. Helix, Store and Bot
// are required; a nil Ranks leaves out the rank command.
type Deps struct {
	Helix    Helix
	Store    Store
	Bot      Channels
	Ranks    Ranks
	Registry *command.Registry
	Now      func() time.Time
	Rand     *rand.Rand
}

type ext struct {
	Deps
}

// Register adds every built-in command to reg.
func Register(reg *command.Registry, deps Deps) error {
	if deps.Helix == nil || deps.Store == nil || deps.Bot == nil {
		return errors.New("extensions: helix, store and bot are required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	deps.Registry = reg
	e := &ext{Deps: deps}

	defs := append(e.userCommands(), e.streamCommands()...)
	defs = append(defs, e.moderatorCommands()...)
	defs = append(defs, e.ownerCommands()...)
	if deps.Ranks != nil {
		defs = append(defs, e.rankCommand())
	}
	if err := reg.Register(defs...); err != nil {
		return fmt.Errorf("register extensions: %w", err)
	}
	return nil
}

// broadcasterID prefers the room-id tag and falls back to a Helix lookup.
func (e *ext) broadcasterID(ctx context.Context, c *command.Context) (string, error) {
	if id := c.Message.Tags["room-id"]; id != "" {
		return id, nil
	}
	return e.Helix.GetUserID(ctx, c.Channel)
}
