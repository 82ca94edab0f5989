package extensions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/identity"
	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/twitchapi"
)

func (e *ext) ownerCommands() []*command.Definition {
	owner := command.WithRoles(identity.RoleOwner)
	channelParam := command.WithParams(command.Required("channel", command.String))

	channels := command.New("channels", e.listChannels,
		command.WithAliases("ch"), owner, command.Hidden(), command.WithCooldown(0)).
		MustSub(command.New("add", e.addChannel, command.WithAliases("a"), owner, channelParam, command.WithCooldown(0))).
		MustSub(command.New("remove", e.removeChannel, command.WithAliases("rm"), owner, channelParam, command.WithCooldown(0)))

	return []*command.Definition{
		channels,
		command.New("addchannel", e.addChannel,
			command.WithAliases("addchl"), owner, command.Hidden(), channelParam, command.WithCooldown(0)),
		command.New("delchannel", e.removeChannel,
			command.WithAliases("delchl"), owner, command.Hidden(), channelParam, command.WithCooldown(0)),
		command.New("bot", e.botInfo, owner, command.Hidden()),
	}
}

func (e *ext) listChannels(ctx context.Context, c *command.Context, _ command.Args) error {
	return c.Reply(ctx, "Channels: "+strings.Join(e.Bot.Channels(), ", "))
}

func (e *ext) addChannel(ctx context.Context, c *command.Context, args command.Args) error {
	name := store.NormalizeChannel(strings.TrimPrefix(args.String("channel"), "@"))
	if _, err := e.Helix.GetUser(ctx, name); err != nil {
		if errors.Is(err, twitchapi.ErrNotFound) {
			return c.Reply(ctx, "There is no such user!")
		}
		return err
	}
	if _, err := e.Store.AddChannel(ctx, name); err != nil {
		if errors.Is(err, store.ErrExists) {
			return c.Replyf(ctx, "The user @%s already exists.", name)
		}
		return err
	}
	if err := e.Bot.JoinChannel(ctx, name); err != nil {
		return fmt.Errorf("join %s: %w", name, err)
	}
	return c.Replyf(ctx, "The user @%s added.", name)
}

func (e *ext) removeChannel(ctx context.Context, c *command.Context, args command.Args) error {
	name := store.NormalizeChannel(strings.TrimPrefix(args.String("channel"), "@"))
	if err := e.Store.RemoveChannel(ctx, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Replyf(ctx, "The user @%s is not in the database.", name)
		}
		return err
	}
	// Reply before leaving in case the owner removed the current channel.
	if err := c.Replyf(ctx, "The user @%s has been removed from the database.", name); err != nil {
		return err
	}
	return e.Bot.PartChannel(ctx, name)
}

func (e *ext) botInfo(ctx context.Context, c *command.Context, _ command.Args) error {
	up := formatUptime(e.Now().Sub(e.Bot.StartedAt()))
	latency, err := e.Helix.Latency(ctx)
	if err != nil {
		return c.Replyf(ctx, "⚡ Bot online for %s!", up)
	}
	return c.Replyf(ctx, "⚡ Bot online for %s! 🏓 API %dms", up, latency.Milliseconds())
}
