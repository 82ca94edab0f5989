// Package config loads environment variables into the typed Config used
// across the bot. Defaults let the binary start locally with only the chat
// credentials set; for those, use ValidateChatReady.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	// Twitch
	TwitchBotUsername  string   `env:"TWITCH_BOT_USERNAME"`
	TwitchOAuthToken   string   `env:"TWITCH_OAUTH_TOKEN"`
	TwitchRefreshToken string   `env:"TWITCH_REFRESH_TOKEN"`
	TwitchClientID     string   `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string   `env:"TWITCH_CLIENT_SECRET"`
	TwitchRedirectURI  string   `env:"TWITCH_REDIRECT_URI" validate:"omitempty,url"`
	TwitchChannels     []string `env:"TWITCH_CHANNELS" envSeparator:","`

	// Bot
	Prefix         string        `env:"BOT_PREFIX" envDefault:"!" validate:"required,max=8"`
	OwnerID        string        `env:"BOT_OWNER_ID" validate:"omitempty,numeric"`
	Debug          bool          `env:"BOT_DEBUG"`
	SendRate       int           `env:"SEND_RATE" envDefault:"20" validate:"gte=1"`
	SendWindow     time.Duration `env:"SEND_WINDOW" envDefault:"30s" validate:"gt=0"`
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY" envDefault:"2s" validate:"gt=0"`

	// IRC
	IRCAddr      string `env:"IRC_ADDR" envDefault:"irc.chat.twitch.tv:6697" validate:"hostname_port"`
	IRCTransport string `env:"IRC_TRANSPORT" envDefault:"tls" validate:"oneof=tls plain gempir"`

	// Database
	DBDriver      string `env:"DB_DRIVER" envDefault:"sqlite3" validate:"oneof=sqlite3 pgx postgres"`
	DBDsn         string `env:"DB_DSN" envDefault:"arcane.db"`
	EncryptionKey string `env:"ENCRYPTION_KEY" validate:"omitempty,base64"`

	// OAuth refresh
	TokenRefreshInterval time.Duration `env:"TOKEN_REFRESH_INTERVAL" envDefault:"5m" validate:"gt=0"`
	TokenRefreshWindow   time.Duration `env:"TOKEN_REFRESH_WINDOW" envDefault:"15m" validate:"gt=0"`

	// Valorant
	ValorantAPIKey  string `env:"VALORANT_API_KEY"`
	ValorantBaseURL string `env:"VALORANT_API_URL" envDefault:"https://api.henrikdev.xyz" validate:"url"`

	// HTTP admin surface
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	AdminUsername   string        `env:"ADMIN_USERNAME"`
	AdminPassword   string        `env:"ADMIN_PASSWORD"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	RateLimit       int           `env:"RATE_LIMIT_REQUESTS_PER_IP" envDefault:"10"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m" validate:"gt=0"`
	EnablePprof     bool          `env:"ENABLE_PPROF"`

	// Telemetry
	OTELEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1" validate:"gte=0,lte=1"`
	LogLevel        string  `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat       string  `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds are missing;
// use ValidateChatReady() before connecting to chat.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.TwitchChannels = NormalizeChannels(cfg.TwitchChannels)
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if strings.ContainsFunc(cfg.Prefix, unicode.IsSpace) {
		return nil, fmt.Errorf("invalid config: Prefix %q contains whitespace", cfg.Prefix)
	}
	return &cfg, nil
}

// NormalizeChannels lowercases logins, trims '#' and drops blanks and duplicates.
func NormalizeChannels(in []string) []string {
	out := lo.FilterMap(in, func(ch string, _ int) (string, bool) {
		ch = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
		return ch, ch != ""
	})
	return lo.Uniq(out)
}

// ValidateChatReady checks the fields needed to log into chat.
func (c *Config) ValidateChatReady() error {
	if c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return errors.New("missing twitch env: require TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

// HelixEnabled reports whether client credentials for the Helix API are set.
func (c *Config) HelixEnabled() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != ""
}

// UsePlainIRC is true when the chat connection should skip TLS.
func (c *Config) UsePlainIRC() bool { return c.IRCTransport == "plain" }
