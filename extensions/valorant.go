package extensions

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/telemetry"
)

const msgRankError = "ERROR"

func (e *ext) rankCommand() *command.Definition {
	return command.New("rank", e.rank,
		command.WithParams(command.Optional("riot_id", command.String)),
		command.WithHelp("Valorant rank of Name#TAG, or of the channel's configured account"))
}

func (e *ext) rank(ctx context.Context, c *command.Context, args command.Args) error {
	id := args.String("riot_id")
	if !strings.Contains(id, "#") {
		v, err := e.Store.GetSetting(ctx, c.Channel, store.SettingValorant)
		if errors.Is(err, store.ErrNotFound) {
			return c.Reply(ctx, msgRankError)
		}
		if err != nil {
			return err
		}
		id = v
	}
	mmr, err := e.Ranks.Rank(ctx, id)
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("valorant rank lookup failed", slog.String("riot_id", id), slog.Any("err", err))
		return c.Reply(ctx, msgRankError)
	}
	return c.Reply(ctx, mmr.String())
}
