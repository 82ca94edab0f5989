package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const commandColumns = `id, channel_id, name, response, cooldown, created_at`

// AddCommand creates a custom command. The name may not collide with another
// command or alias of the channel.
func (s *Store) AddCommand(ctx context.Context, channel string, cmd Command) (Command, error) {
	ch, err := s.GetChannel(ctx, channel)
	if err != nil {
		return Command{}, err
	}
	cmd.Name = strings.ToLower(strings.TrimSpace(cmd.Name))
	if cmd.Name == "" || cmd.Response == "" {
		return Command{}, errors.New("command name and response are required")
	}
	if err := s.nameFree(ctx, ch.ID, cmd.Name); err != nil {
		return Command{}, err
	}
	if cmd.Cooldown < 0 {
		cmd.Cooldown = 0
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO commands (channel_id, name, response, cooldown, created_at) VALUES (?, ?, ?, ?, ?)`),
		ch.ID, cmd.Name, cmd.Response, cmd.Cooldown, s.now().UTC())
	if err != nil {
		return Command{}, fmt.Errorf("insert command: %w", err)
	}
	return s.FindCommand(ctx, ch.Name, cmd.Name)
}

// EditCommand replaces the response of an existing command.
func (s *Store) EditCommand(ctx context.Context, channel, name, response string) error {
	cmd, err := s.FindCommand(ctx, channel, name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`UPDATE commands SET response = ? WHERE id = ?`), response, cmd.ID)
	return err
}

// RemoveCommand deletes a command and its aliases.
func (s *Store) RemoveCommand(ctx context.Context, channel, name string) error {
	cmd, err := s.FindCommand(ctx, channel, name)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM aliases WHERE command_id = ?`), cmd.ID); err != nil {
		return fmt.Errorf("delete aliases: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM commands WHERE id = ?`), cmd.ID); err != nil {
		return fmt.Errorf("delete command: %w", err)
	}
	return tx.Commit()
}

// FindCommand looks a command up by name.
func (s *Store) FindCommand(ctx context.Context, channel, name string) (Command, error) {
	var cmd Command
	err := s.db.GetContext(ctx, &cmd, s.q(`SELECT cmd.id, cmd.channel_id, cmd.name, cmd.response, cmd.cooldown, cmd.created_at
		FROM commands cmd JOIN channels c ON c.id = cmd.channel_id
		WHERE c.name = ? AND cmd.name = ?`), NormalizeChannel(channel), strings.ToLower(name))
	if err != nil {
		return Command{}, notFound(err, "command "+name)
	}
	return cmd, nil
}

// ListCommands returns a channel's commands ordered by name.
func (s *Store) ListCommands(ctx context.Context, channel string) ([]Command, error) {
	ch, err := s.GetChannel(ctx, channel)
	if err != nil {
		return nil, err
	}
	var out []Command
	err = s.db.SelectContext(ctx, &out, s.q(`SELECT `+commandColumns+` FROM commands WHERE channel_id = ? ORDER BY name`), ch.ID)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	return out, nil
}

// AddAlias points alias at an existing command.
func (s *Store) AddAlias(ctx context.Context, channel, command, alias string) (Alias, error) {
	cmd, err := s.FindCommand(ctx, channel, command)
	if err != nil {
		return Alias{}, err
	}
	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias == "" {
		return Alias{}, errors.New("alias name is required")
	}
	if err := s.nameFree(ctx, cmd.ChannelID, alias); err != nil {
		return Alias{}, err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO aliases (channel_id, command_id, name) VALUES (?, ?, ?)`), cmd.ChannelID, cmd.ID, alias)
	if err != nil {
		return Alias{}, fmt.Errorf("insert alias: %w", err)
	}
	return s.FindAlias(ctx, channel, alias)
}

// RenameAlias changes the name of an alias.
func (s *Store) RenameAlias(ctx context.Context, channel, oldName, newName string) error {
	a, err := s.FindAlias(ctx, channel, oldName)
	if err != nil {
		return err
	}
	newName = strings.ToLower(strings.TrimSpace(newName))
	if err := s.nameFree(ctx, a.ChannelID, newName); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`UPDATE aliases SET name = ? WHERE id = ?`), newName, a.ID)
	return err
}

func (s *Store) RemoveAlias(ctx context.Context, channel, name string) error {
	a, err := s.FindAlias(ctx, channel, name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`DELETE FROM aliases WHERE id = ?`), a.ID)
	return err
}

// FindAlias looks an alias up by name; Command holds the target's name.
func (s *Store) FindAlias(ctx context.Context, channel, name string) (Alias, error) {
	var a Alias
	err := s.db.GetContext(ctx, &a, s.q(`SELECT a.id, a.channel_id, a.command_id, a.name, cmd.name AS command
		FROM aliases a
		JOIN channels c ON c.id = a.channel_id
		JOIN commands cmd ON cmd.id = a.command_id
		WHERE c.name = ? AND a.name = ?`), NormalizeChannel(channel), strings.ToLower(name))
	if err != nil {
		return Alias{}, notFound(err, "alias "+name)
	}
	return a, nil
}

// ResolveAlias returns the command an alias points at.
func (s *Store) ResolveAlias(ctx context.Context, channel, name string) (Command, error) {
	var cmd Command
	err := s.db.GetContext(ctx, &cmd, s.q(`SELECT cmd.id, cmd.channel_id, cmd.name, cmd.response, cmd.cooldown, cmd.created_at
		FROM aliases a
		JOIN channels c ON c.id = a.channel_id
		JOIN commands cmd ON cmd.id = a.command_id
		WHERE c.name = ? AND a.name = ?`), NormalizeChannel(channel), strings.ToLower(name))
	if err != nil {
		return Command{}, notFound(err, "alias "+name)
	}
	return cmd, nil
}

// ListAliases returns a channel's aliases ordered by name.
func (s *Store) ListAliases(ctx context.Context, channel string) ([]Alias, error) {
	var out []Alias
	err := s.db.SelectContext(ctx, &out, s.q(`SELECT a.id, a.channel_id, a.command_id, a.name, cmd.name AS command
		FROM aliases a
		JOIN channels c ON c.id = a.channel_id
		JOIN commands cmd ON cmd.id = a.command_id
		WHERE c.name = ? ORDER BY a.name`), NormalizeChannel(channel))
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	return out, nil
}

// nameFree fails with ErrExists when name is used by a command or alias.
func (s *Store) nameFree(ctx context.Context, channelID int64, name string) error {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT
		(SELECT COUNT(*) FROM commands WHERE channel_id = ? AND name = ?) +
		(SELECT COUNT(*) FROM aliases WHERE channel_id = ? AND name = ?)`), channelID, name, channelID, name)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	return nil
}
