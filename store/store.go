// Package store persists channels, custom commands, aliases, per-channel
// settings and OAuth tokens. It runs on SQLite (default) or Postgres through
// sqlx; queries are written with '?' placeholders and rebound per driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"

	"github.com/haxgun/Arcane/crypto"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrExists   = errors.New("store: already exists")
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store is safe for concurrent use.
type Store struct {
	db     *sqlx.DB
	driver string
	enc    crypto.Encryptor
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithEncryptor encrypts OAuth tokens at rest.
func WithEncryptor(enc crypto.Encryptor) Option {
	return func(s *Store) { s.enc = enc }
}

// Open connects to dsn with driver ("sqlite3" or "pgx") and verifies the connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres, "postgres":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := New(db, opts...)
	slog.Info("database connected", slog.String("component", "store"), slog.String("driver", driver), slog.Bool("token_encryption", s.enc != nil))
	return s, nil
}

// New wraps an open connection.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, driver: db.DriverName(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sqliteDSN turns on foreign keys so deleting a command drops its aliases.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "arcane.db"
	}
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Driver() string { return s.driver }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) q(query string) string { return s.db.Rebind(query) }

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// Channels ------------------------------------------------------------------

// AddChannel registers a channel to join.
func (s *Store) AddChannel(ctx context.Context, name string) (Channel, error) {
	name = NormalizeChannel(name)
	if name == "" {
		return Channel{}, errors.New("channel name empty")
	}
	if _, err := s.GetChannel(ctx, name); err == nil {
		return Channel{}, fmt.Errorf("%w: channel %s", ErrExists, name)
	} else if !errors.Is(err, ErrNotFound) {
		return Channel{}, err
	}
	if _, err := s.db.ExecContext(ctx, s.q(`INSERT INTO channels (name, created_at) VALUES (?, ?)`), name, s.now().UTC()); err != nil {
		return Channel{}, fmt.Errorf("insert channel: %w", err)
	}
	return s.GetChannel(ctx, name)
}

// RemoveChannel deletes a channel with its commands, aliases and settings.
func (s *Store) RemoveChannel(ctx context.Context, name string) error {
	ch, err := s.GetChannel(ctx, name)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range []string{
		`DELETE FROM aliases WHERE channel_id = ?`,
		`DELETE FROM commands WHERE channel_id = ?`,
		`DELETE FROM channel_settings WHERE channel_id = ?`,
		`DELETE FROM channels WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, s.q(stmt), ch.ID); err != nil {
			return fmt.Errorf("remove channel %s: %w", ch.Name, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetChannel(ctx context.Context, name string) (Channel, error) {
	var ch Channel
	err := s.db.GetContext(ctx, &ch, s.q(`SELECT id, name, created_at FROM channels WHERE name = ?`), NormalizeChannel(name))
	if err != nil {
		return Channel{}, notFound(err, "channel "+name)
	}
	return ch, nil
}

// ListChannels returns all channels ordered by name.
func (s *Store) ListChannels(ctx context.Context) ([]Channel, error) {
	var out []Channel
	if err := s.db.SelectContext(ctx, &out, `SELECT id, name, created_at FROM channels ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return out, nil
}

func (s *Store) ChannelNames(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.db.SelectContext(ctx, &out, `SELECT name FROM channels ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return out, nil
}

// Settings ------------------------------------------------------------------

// GetSetting returns a per-channel setting or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, channel, key string) (string, error) {
	var v string
	err := s.db.GetContext(ctx, &v, s.q(`SELECT cs.value FROM channel_settings cs
		JOIN channels c ON c.id = cs.channel_id
		WHERE c.name = ? AND cs.key = ?`), NormalizeChannel(channel), key)
	if err != nil {
		return "", notFound(err, "setting "+key)
	}
	return v, nil
}

// SetSetting upserts a per-channel setting.
func (s *Store) SetSetting(ctx context.Context, channel, key, value string) error {
	ch, err := s.GetChannel(ctx, channel)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO channel_settings (channel_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT (channel_id, key) DO UPDATE SET value = excluded.value`), ch.ID, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
