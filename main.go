// Command arcane runs the Twitch chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Opens the database (SQLite or Postgres) and runs versioned migrations.
//   - Resolves the bot's user token from the environment or the token table
//     and keeps it fresh with the OAuth refresher.
//   - Registers built-in commands, the per-channel custom command fallback,
//     and connects to chat with reconnect backoff.
//   - Exposes /healthz, /readyz, /status, /metrics and the Twitch OAuth flow.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"golang.org/x/oauth2"

	"github.com/haxgun/Arcane/bot"
	"github.com/haxgun/Arcane/chat"
	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/config"
	"github.com/haxgun/Arcane/cooldown"
	"github.com/haxgun/Arcane/crypto"
	"github.com/haxgun/Arcane/custom"
	"github.com/haxgun/Arcane/extensions"
	"github.com/haxgun/Arcane/oauth"
	"github.com/haxgun/Arcane/server"
	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/telemetry"
	"github.com/haxgun/Arcane/twitchapi"
	"github.com/haxgun/Arcane/valorant"
)

const version = "1.0.0"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	setupLogging(cfg)

	if err := run(cfg); err != nil {
		slog.Error("bot exited with error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down")
}

func setupLogging(cfg *config.Config) {
	lvl := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if cfg.Debug {
		lvl = slog.LevelDebug
	}
	var handler slog.Handler
	switch cfg.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", cfg.LogFormat))
}

func run(cfg *config.Config) error {
	if err := cfg.ValidateChatReady(); err != nil {
		return err
	}

	telemetry.Init()
	telemetry.SetSampleRatio(cfg.OTELSampleRatio)
	shutdown, err := telemetry.InitTracing(cfg.OTELEndpoint, "arcane", version)
	if err != nil {
		return err
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []store.Option
	if cfg.EncryptionKey != "" {
		enc, err := crypto.FromKey(cfg.EncryptionKey)
		if err != nil {
			return err
		}
		opts = append(opts, store.WithEncryptor(enc))
	}
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DBDsn, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(); err != nil {
		return err
	}

	app := twitchapi.App{
		ClientID:     cfg.TwitchClientID,
		ClientSecret: cfg.TwitchClientSecret,
		RedirectURI:  cfg.TwitchRedirectURI,
	}
	holder, err := userToken(ctx, cfg, db)
	if err != nil {
		return err
	}
	helix := &twitchapi.HelixClient{
		AppTokens:  app.AppTokenSource(ctx),
		UserTokens: holder,
		ClientID:   cfg.TwitchClientID,
	}
	if !cfg.HelixEnabled() {
		slog.Warn("TWITCH_CLIENT_ID/TWITCH_CLIENT_SECRET not set; API backed commands will fail", slog.String("component", "helix"))
	}

	stored, err := db.ChannelNames(ctx)
	if err != nil {
		return err
	}
	channels := lo.Uniq(append(cfg.TwitchChannels, stored...))

	registry := command.NewRegistry()
	tracker := cooldown.New()
	sender := bot.NewSender(cfg.SendRate, cfg.SendWindow)
	dispatcher := command.NewDispatcher(registry, tracker, sender, command.Config{
		Prefix:   cfg.Prefix,
		OwnerID:  cfg.OwnerID,
		Fallback: custom.NewResolver(db, tracker),
	})

	b := bot.New(bot.Config{
		Username:       cfg.TwitchBotUsername,
		Token:          holder.AccessToken,
		Channels:       channels,
		OwnerID:        cfg.OwnerID,
		Debug:          cfg.Debug,
		ReconnectDelay: cfg.ReconnectDelay,
	}, dialer(cfg, holder), sender, dispatcher)
	b.SetConsole(bot.NewConsole(os.Stdout))

	deps := extensions.Deps{Helix: helix, Store: db, Bot: b}
	if cfg.ValorantAPIKey != "" {
		deps.Ranks = &valorant.Client{BaseURL: cfg.ValorantBaseURL, APIKey: cfg.ValorantAPIKey}
	}
	if err := extensions.Register(registry, deps); err != nil {
		return err
	}
	slog.Info("commands registered", slog.Int("count", len(registry.Commands())), slog.String("prefix", cfg.Prefix))

	go pruneCooldowns(ctx, tracker)

	if cfg.HelixEnabled() {
		oauth.StartRefresher(ctx, db, server.TwitchProvider, cfg.TokenRefreshInterval, cfg.TokenRefreshWindow, app.RefreshUserToken, func(tok store.Token) {
			holder.Set(&oauth2.Token{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, Expiry: tok.ExpiresAt})
		})
	}

	startPprof(cfg)

	srvOpts := server.Options{
		Store:         db,
		Bot:           b,
		OnToken:       holder.Set,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		AdminToken:    cfg.AdminToken,
		RateLimit:     cfg.RateLimit,
		RateWindow:    cfg.RateLimitWindow,
	}
	if cfg.HelixEnabled() && cfg.TwitchRedirectURI != "" {
		srvOpts.OAuth = app
	}
	go func() {
		if err := server.Start(ctx, srvOpts, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	return b.Run(ctx)
}

// userToken prefers TWITCH_OAUTH_TOKEN and seeds the token table from it when
// a refresh token is configured; otherwise it falls back to the stored token.
func userToken(ctx context.Context, cfg *config.Config, db *store.Store) (*twitchapi.TokenHolder, error) {
	stored, err := db.GetToken(ctx, server.TwitchProvider)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, err
	case stored.AccessToken != "" && (cfg.TwitchRefreshToken == "" || stored.RefreshToken == cfg.TwitchRefreshToken):
		holder := twitchapi.NewTokenHolder(stored.AccessToken)
		slog.Info("using stored twitch user token", slog.Time("expires_at", stored.ExpiresAt))
		return holder, nil
	}

	holder := twitchapi.NewTokenHolder(cfg.TwitchOAuthToken)
	if cfg.TwitchRefreshToken != "" {
		err := db.SaveToken(ctx, store.Token{
			Provider:     server.TwitchProvider,
			AccessToken:  holder.AccessToken(),
			RefreshToken: cfg.TwitchRefreshToken,
		})
		if err != nil {
			return nil, err
		}
	}
	return holder, nil
}

func dialer(cfg *config.Config, holder *twitchapi.TokenHolder) bot.Dialer {
	if cfg.IRCTransport == "gempir" {
		return func(context.Context) (chat.Transport, error) {
			g := chat.NewGempir(cfg.TwitchBotUsername, holder.AccessToken())
			g.Start()
			return g, nil
		}
	}
	return func(ctx context.Context) (chat.Transport, error) {
		return chat.Dial(ctx, cfg.IRCAddr, !cfg.UsePlainIRC())
	}
}

// pruneCooldowns drops entries whose cooldown has expired.
func pruneCooldowns(ctx context.Context, tracker *cooldown.Tracker) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := tracker.Prune(); n > 0 {
				slog.Debug("pruned cooldowns", slog.Int("count", n), slog.String("component", "cooldown"))
			}
		}
	}
}

// startPprof serves /debug/pprof when ENABLE_PPROF is set.
func startPprof(cfg *config.Config) {
	if !cfg.EnablePprof {
		return
	}
	pprofAddr := os.Getenv("PPROF_ADDR")
	if pprofAddr == "" {
		pprofAddr = "localhost:6060"
	}
	go func() {
		slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
		srv := &http.Server{
			Addr:              pprofAddr,
			Handler:           nil, // default mux exposes /debug/pprof
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("pprof server error", slog.Any("err", err))
		}
	}()
}
