package extensions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/identity"
	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/telemetry"
	"github.com/haxgun/Arcane/twitchapi"
)

const (
	msgOK           = "✅"
	msgFail         = "❌"
	msgTitleInUse   = "Error! This title is already in use!"
	msgGameNotFound = "❌ Game not found."
)

// minTitleLength is the shortest text !title treats as a new title.
const minTitleLength = 4

var staffRoles = []identity.Role{identity.RoleModerator, identity.RoleBroadcaster}

func (e *ext) streamCommands() []*command.Definition {
	return []*command.Definition{
		command.New("title", e.title,
			command.WithRoles(staffRoles...),
			command.WithParams(command.Optional("title", command.String)),
			command.WithHelp("Show or change the stream title")),
		command.New("game", e.game,
			command.WithRoles(staffRoles...),
			command.WithParams(command.Optional("game", command.String)),
			command.WithHelp("Change the stream category; without a name uses the channel's default game")),
	}
}

func (e *ext) title(ctx context.Context, c *command.Context, args command.Args) error {
	bid, err := e.broadcasterID(ctx, c)
	if err != nil {
		return err
	}
	info, err := e.Helix.GetChannelInfo(ctx, bid)
	if err != nil {
		return err
	}
	title := args.String("title")
	if len([]rune(title)) < minTitleLength {
		return c.Reply(ctx, info.Title)
	}
	if title == info.Title {
		return c.Reply(ctx, msgTitleInUse)
	}
	if err := e.Helix.ModifyChannel(ctx, bid, twitchapi.ChannelUpdate{Title: title}); err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("failed to set title", slog.String("channel", c.Channel), slog.Any("err", err))
		return c.Reply(ctx, msgFail)
	}
	return c.Reply(ctx, msgOK)
}

func (e *ext) game(ctx context.Context, c *command.Context, args command.Args) error {
	bid, err := e.broadcasterID(ctx, c)
	if err != nil {
		return err
	}
	name := args.String("game")
	if name == "" {
		name, err = e.Store.GetSetting(ctx, c.Channel, store.SettingGame)
		if errors.Is(err, store.ErrNotFound) {
			info, err := e.Helix.GetChannelInfo(ctx, bid)
			if err != nil {
				return err
			}
			return c.Reply(ctx, info.GameName)
		}
		if err != nil {
			return err
		}
	}
	cat, err := e.Helix.SearchCategory(ctx, name)
	if errors.Is(err, twitchapi.ErrNotFound) {
		return c.Reply(ctx, msgGameNotFound)
	}
	if err != nil {
		return err
	}
	if err := e.Helix.ModifyChannel(ctx, bid, twitchapi.ChannelUpdate{GameID: cat.ID}); err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("failed to set game", slog.String("channel", c.Channel), slog.Any("err", err))
		return c.Reply(ctx, msgFail)
	}
	return c.Reply(ctx, msgOK+" "+cat.Name)
}
