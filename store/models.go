package store

import (
	"strings"
	"time"
)

// Channel is a Twitch channel the bot joins on startup.
type Channel struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Command is a per-channel custom command with a static response.
type Command struct {
	ID        int64     `db:"id"`
	ChannelID int64     `db:"channel_id"`
	Name      string    `db:"name"`
	Response  string    `db:"response"`
	Cooldown  int       `db:"cooldown"` // seconds
	CreatedAt time.Time `db:"created_at"`
}

// CooldownDuration returns the cooldown as a duration.
func (c Command) CooldownDuration() time.Duration { return time.Duration(c.Cooldown) * time.Second }

// Alias is an extra name for a Command in the same channel.
type Alias struct {
	ID        int64  `db:"id"`
	ChannelID int64  `db:"channel_id"`
	CommandID int64  `db:"command_id"`
	Name      string `db:"name"`
	Command   string `db:"command"`
}

// Token is a persisted OAuth token. A zero ExpiresAt means unknown expiry.
type Token struct {
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
	UpdatedAt    time.Time
}

// DefaultCommandCooldown applies to custom commands added without one.
const DefaultCommandCooldown = 15

// Settings keys.
const (
	SettingGame     = "game"
	SettingValorant = "valorant"
)

// NormalizeChannel lowercases a channel login and strips a leading '#'.
func NormalizeChannel(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}
