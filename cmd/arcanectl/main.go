// Command arcanectl manages the bot's database from the shell.
//
// Usage:
//
//	arcanectl channels
//	arcanectl addchannel <login>
//	arcanectl removechannel <login>
//	arcanectl commands <channel>
//	arcanectl migrate [up|down|version]
//	arcanectl encrypt-tokens [--dry-run]
//	arcanectl token-status
//
// It reads the same environment as the bot (DB_DRIVER, DB_DSN,
// ENCRYPTION_KEY, TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"github.com/haxgun/Arcane/config"
	"github.com/haxgun/Arcane/crypto"
	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/twitchapi"
)

var errUsage = errors.New("usage: arcanectl channels|addchannel <login>|removechannel <login>|commands <channel>|migrate [up|down|version]|encrypt-tokens [--dry-run]|token-status")

// userLookup checks that a login exists before it is stored.
type userLookup interface {
	GetUserID(ctx context.Context, login string) (string, error)
}

type cli struct {
	db    *store.Store
	users userLookup
	out   io.Writer
}

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var opts []store.Option
	if cfg.EncryptionKey != "" {
		enc, err := crypto.FromKey(cfg.EncryptionKey)
		if err != nil {
			fail(err)
		}
		opts = append(opts, store.WithEncryptor(enc))
	}
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DBDsn, opts...)
	if err != nil {
		fail(err)
	}
	defer func() { _ = db.Close() }()

	c := &cli{db: db, out: os.Stdout}
	if cfg.HelixEnabled() {
		app := twitchapi.App{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
		c.users = &twitchapi.HelixClient{AppTokens: app.AppTokenSource(ctx), ClientID: cfg.TwitchClientID}
	}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		_ = db.Close()
		fail(err)
	}
}

func fail(err error) {
	color.Error.Println(err.Error())
	os.Exit(1)
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "channels":
		return c.channels(ctx)
	case "addchannel":
		if len(rest) != 1 {
			return errUsage
		}
		return c.addChannel(ctx, rest[0])
	case "removechannel":
		if len(rest) != 1 {
			return errUsage
		}
		return c.removeChannel(ctx, rest[0])
	case "commands":
		if len(rest) != 1 {
			return errUsage
		}
		return c.commands(ctx, rest[0])
	case "migrate":
		return c.migrate(rest)
	case "encrypt-tokens":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		fs.SetOutput(c.out)
		dryRun := fs.Bool("dry-run", false, "Show what would be encrypted without making changes")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return c.encryptTokens(ctx, *dryRun)
	case "token-status":
		return c.tokenStatus(ctx)
	}
	return errUsage
}

func (c *cli) table(header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(c.out)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func (c *cli) channels(ctx context.Context) error {
	chs, err := c.db.ListChannels(ctx)
	if err != nil {
		return err
	}
	t := c.table("Channel", "Added")
	for _, ch := range chs {
		t.Append([]string{ch.Name, ch.CreatedAt.Local().Format(time.DateTime)})
	}
	t.Render()
	return nil
}

func (c *cli) addChannel(ctx context.Context, login string) error {
	login = store.NormalizeChannel(login)
	if c.users != nil {
		if _, err := c.users.GetUserID(ctx, login); err != nil {
			if errors.Is(err, twitchapi.ErrNotFound) {
				return fmt.Errorf("there is no such user: %s", login)
			}
			return err
		}
	}
	if _, err := c.db.AddChannel(ctx, login); err != nil {
		if errors.Is(err, store.ErrExists) {
			return fmt.Errorf("channel %s already exists", login)
		}
		return err
	}
	_, _ = fmt.Fprintln(c.out, color.Green.Sprintf("added %s", login))
	return nil
}

func (c *cli) removeChannel(ctx context.Context, login string) error {
	login = store.NormalizeChannel(login)
	if err := c.db.RemoveChannel(ctx, login); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("channel %s is not in the database", login)
		}
		return err
	}
	_, _ = fmt.Fprintln(c.out, color.Green.Sprintf("removed %s", login))
	return nil
}

func (c *cli) commands(ctx context.Context, channel string) error {
	cmds, err := c.db.ListCommands(ctx, channel)
	if err != nil {
		return err
	}
	aliases, err := c.db.ListAliases(ctx, channel)
	if err != nil {
		return err
	}
	byCommand := map[string][]string{}
	for _, a := range aliases {
		byCommand[a.Command] = append(byCommand[a.Command], a.Name)
	}
	t := c.table("Command", "Response", "Cooldown", "Aliases")
	for _, cmd := range cmds {
		t.Append([]string{cmd.Name, cmd.Response, cmd.CooldownDuration().String(), fmt.Sprint(byCommand[cmd.Name])})
	}
	t.Render()
	return nil
}

func (c *cli) migrate(args []string) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "up":
		if err := c.db.Migrate(); err != nil {
			return err
		}
	case "down":
		if err := c.db.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		return errUsage
	}
	v, dirty, err := c.db.MigrationVersion()
	if err != nil {
		return err
	}
	line := "schema version " + strconv.FormatUint(uint64(v), 10)
	if dirty {
		line += color.Red.Sprint(" (dirty)")
	}
	_, _ = fmt.Fprintln(c.out, line)
	return nil
}

// encryptTokens rewrites every plaintext token row with the configured key.
func (c *cli) encryptTokens(ctx context.Context, dryRun bool) error {
	if !c.db.Encrypts() {
		return errors.New("ENCRYPTION_KEY is required to encrypt tokens")
	}
	providers, err := c.db.PlaintextTokenProviders(ctx)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		_, _ = fmt.Fprintln(c.out, "no plaintext tokens found")
		return nil
	}

	errorCount := 0
	for _, provider := range providers {
		if dryRun {
			_, _ = fmt.Fprintf(c.out, "would encrypt %s\n", provider)
			continue
		}
		tok, err := c.db.GetToken(ctx, provider)
		if err == nil {
			err = c.db.SaveToken(ctx, tok)
		}
		if err != nil {
			_, _ = fmt.Fprintln(c.out, color.Red.Sprintf("failed %s: %v", provider, err))
			errorCount++
			continue
		}
		_, _ = fmt.Fprintln(c.out, color.Green.Sprintf("encrypted %s", provider))
	}
	if errorCount > 0 {
		return fmt.Errorf("encryption completed with %d errors", errorCount)
	}
	return nil
}

func (c *cli) tokenStatus(ctx context.Context) error {
	status, err := c.db.TokenEncryptionStatus(ctx)
	if err != nil {
		return err
	}
	t := c.table("Version", "Description", "Count")
	for _, v := range []int{0, 1} {
		desc := "plaintext"
		if v == 1 {
			desc = "encrypted (AES-256-GCM)"
		}
		t.Append([]string{strconv.Itoa(v), desc, strconv.Itoa(status[v])})
	}
	t.Render()
	return nil
}
