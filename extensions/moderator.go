package extensions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/custom"
	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/twitchapi"
	"github.com/haxgun/Arcane/valorant"
)

// maxSpam is the exclusive upper bound of !spam's count.
const maxSpam = 20

const msgEmojiName = "❌ Command must not contain an emoji!"

func (e *ext) moderatorCommands() []*command.Definition {
	spam := command.New("spam", e.spam,
		command.WithAliases("sm", "спам"),
		command.WithRoles(staffRoles...),
		command.WithParams(command.Required("count", command.Int), command.Required("response", command.String)),
		command.WithHelp("Repeat a message in chat"))

	commands := command.New("commands", e.listCommands,
		command.WithAliases("cmds"),
		command.WithHelp("List commands")).
		MustSub(command.New("add", e.addCommand,
			command.WithAliases("a"),
			command.WithRoles(staffRoles...),
			command.WithParams(command.Required("command", command.String), command.Required("response", command.String)))).
		MustSub(command.New("remove", e.removeCommand,
			command.WithAliases("rm"),
			command.WithRoles(staffRoles...),
			command.WithParams(command.Required("command", command.String)))).
		MustSub(command.New("edit", e.editCommand,
			command.WithAliases("e"),
			command.WithRoles(staffRoles...),
			command.WithParams(command.Required("command", command.String), command.Required("response", command.String))))

	aliases := command.New("aliases", e.listAliases,
		command.WithAliases("als"),
		command.WithHelp("List aliases of custom commands")).
		MustSub(command.New("add", e.addAlias,
			command.WithAliases("a"),
			command.WithRoles(staffRoles...),
			command.WithParams(command.Required("command", command.String), command.Required("alias", command.String)))).
		MustSub(command.New("remove", e.removeAlias,
			command.WithAliases("rm"),
			command.WithRoles(staffRoles...),
			command.WithParams(command.Required("alias", command.String)))).
		MustSub(command.New("edit", e.renameAlias,
			command.WithAliases("e"),
			command.WithRoles(staffRoles...),
			command.WithParams(command.Required("alias", command.String), command.Required("name", command.String))))

	settings := command.New("settings", e.listSettings,
		command.WithAliases("set"),
		command.WithRoles(staffRoles...),
		command.WithHelp("Per-channel settings")).
		MustSub(command.New("game", e.setGame,
			command.WithRoles(staffRoles...),
			command.WithParams(command.Required("game", command.String)))).
		MustSub(command.New("valorant", e.setValorant,
			command.WithAliases("vlr"),
			command.WithRoles(staffRoles...),
			command.WithParams(command.Required("riot_id", command.String))))

	return []*command.Definition{spam, commands, aliases, settings}
}

func (e *ext) spam(ctx context.Context, c *command.Context, args command.Args) error {
	n := args.Int("count")
	if n >= maxSpam {
		return c.Replyf(ctx, "Error! Count must be less than %d!", maxSpam)
	}
	if n < 1 {
		return c.Reply(ctx, "Usage: "+c.Command.Usage(c.Prefix))
	}
	for range n {
		if err := c.Say(ctx, args.String("response")); err != nil {
			return err
		}
	}
	return nil
}

// commandName strips the chat prefix from a name given as "!name".
func commandName(c *command.Context, raw string) string {
	return strings.ToLower(strings.TrimPrefix(raw, c.Prefix))
}

// nameTaken is true when name shadows a built-in command.
func (e *ext) nameTaken(name string) bool {
	return e.Registry != nil && e.Registry.Taken(name)
}

func (e *ext) listCommands(ctx context.Context, c *command.Context, _ command.Args) error {
	names := e.Registry.Names()
	cmds, err := e.Store.ListCommands(ctx, c.Channel)
	if err != nil {
		return err
	}
	names = append(names, lo.Map(cmds, func(cmd store.Command, _ int) string { return cmd.Name })...)
	return c.Reply(ctx, "Commands: "+strings.Join(names, ", "))
}

func (e *ext) addCommand(ctx context.Context, c *command.Context, args command.Args) error {
	name := commandName(c, args.String("command"))
	if custom.StartsWithEmoji(name) {
		return c.Reply(ctx, msgEmojiName)
	}
	if e.nameTaken(name) {
		return c.Replyf(ctx, "❌ %s%s already exists.", c.Prefix, name)
	}
	_, err := e.Store.AddCommand(ctx, c.Channel, store.Command{
		Name:     name,
		Response: args.String("response"),
		Cooldown: store.DefaultCommandCooldown,
	})
	switch {
	case errors.Is(err, store.ErrExists):
		return c.Replyf(ctx, "❌ %s%s already exists.", c.Prefix, name)
	case err != nil:
		return err
	}
	return c.Replyf(ctx, "%s %s%s", msgOK, c.Prefix, name)
}

func (e *ext) removeCommand(ctx context.Context, c *command.Context, args command.Args) error {
	err := e.Store.RemoveCommand(ctx, c.Channel, commandName(c, args.String("command")))
	return e.replyResult(ctx, c, err, msgOK)
}

func (e *ext) editCommand(ctx context.Context, c *command.Context, args command.Args) error {
	name := commandName(c, args.String("command"))
	err := e.Store.EditCommand(ctx, c.Channel, name, args.String("response"))
	return e.replyResult(ctx, c, err, fmt.Sprintf("%s %s%s", msgOK, c.Prefix, name))
}

// replyResult answers ok on success and ❌ for a missing record.
func (e *ext) replyResult(ctx context.Context, c *command.Context, err error, ok string) error {
	switch {
	case err == nil:
		return c.Reply(ctx, ok)
	case errors.Is(err, store.ErrNotFound):
		return c.Reply(ctx, msgFail)
	}
	return err
}

func (e *ext) listAliases(ctx context.Context, c *command.Context, _ command.Args) error {
	aliases, err := e.Store.ListAliases(ctx, c.Channel)
	if err != nil {
		return err
	}
	if len(aliases) == 0 {
		return c.Reply(ctx, "No aliases.")
	}
	names := lo.Map(aliases, func(a store.Alias, _ int) string { return a.Name })
	return c.Reply(ctx, "Aliases: "+strings.Join(names, ", "))
}

// checkNewName replies and returns false when name cannot be used for a
// custom command or alias.
func (e *ext) checkNewName(ctx context.Context, c *command.Context, name string) (bool, error) {
	if custom.StartsWithEmoji(name) {
		return false, c.Reply(ctx, msgEmojiName)
	}
	if e.nameTaken(name) {
		return false, c.Replyf(ctx, "❌ %s%s already exists.", c.Prefix, name)
	}
	return true, nil
}

func (e *ext) addAlias(ctx context.Context, c *command.Context, args command.Args) error {
	alias := commandName(c, args.String("alias"))
	if ok, err := e.checkNewName(ctx, c, alias); !ok {
		return err
	}
	_, err := e.Store.AddAlias(ctx, c.Channel, commandName(c, args.String("command")), alias)
	if errors.Is(err, store.ErrExists) {
		return c.Replyf(ctx, "❌ %s%s already exists.", c.Prefix, alias)
	}
	return e.replyResult(ctx, c, err, fmt.Sprintf("%s %s%s", msgOK, c.Prefix, alias))
}

func (e *ext) removeAlias(ctx context.Context, c *command.Context, args command.Args) error {
	err := e.Store.RemoveAlias(ctx, c.Channel, commandName(c, args.String("alias")))
	return e.replyResult(ctx, c, err, msgOK)
}

func (e *ext) renameAlias(ctx context.Context, c *command.Context, args command.Args) error {
	name := commandName(c, args.String("name"))
	if ok, err := e.checkNewName(ctx, c, name); !ok {
		return err
	}
	err := e.Store.RenameAlias(ctx, c.Channel, commandName(c, args.String("alias")), name)
	if errors.Is(err, store.ErrExists) {
		return c.Replyf(ctx, "❌ %s%s already exists.", c.Prefix, name)
	}
	return e.replyResult(ctx, c, err, fmt.Sprintf("%s %s%s", msgOK, c.Prefix, name))
}

func (e *ext) listSettings(ctx context.Context, c *command.Context, _ command.Args) error {
	names := lo.Map(c.Command.Subcommands(), func(d *command.Definition, _ int) string { return d.Name })
	return c.Reply(ctx, "Settings: "+strings.Join(names, ", "))
}

func (e *ext) setGame(ctx context.Context, c *command.Context, args command.Args) error {
	cat, err := e.Helix.SearchCategory(ctx, args.String("game"))
	if errors.Is(err, twitchapi.ErrNotFound) {
		return c.Reply(ctx, msgGameNotFound)
	}
	if err != nil {
		return err
	}
	if err := e.Store.SetSetting(ctx, c.Channel, store.SettingGame, cat.Name); err != nil {
		return err
	}
	return c.Reply(ctx, msgOK+" "+cat.Name)
}

func (e *ext) setValorant(ctx context.Context, c *command.Context, args command.Args) error {
	id := args.String("riot_id")
	if _, _, err := valorant.SplitRiotID(id); err != nil {
		return c.Reply(ctx, msgFail)
	}
	if err := e.Store.SetSetting(ctx, c.Channel, store.SettingValorant, strings.TrimSpace(id)); err != nil {
		return err
	}
	return c.Reply(ctx, msgOK)
}
