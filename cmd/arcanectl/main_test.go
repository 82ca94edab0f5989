package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haxgun/Arcane/crypto"
	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/testutil"
	"github.com/haxgun/Arcane/twitchapi"
)

type fakeUsers map[string]string

func (f fakeUsers) GetUserID(_ context.Context, login string) (string, error) {
	if id, ok := f[login]; ok {
		return id, nil
	}
	return "", fmt.Errorf("user %s: %w", login, twitchapi.ErrNotFound)
}

func newCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &cli{db: testutil.SetupTestDB(t), out: out}, out
}

func TestChannelCommands(t *testing.T) {
	c, out := newCLI(t)
	c.users = fakeUsers{"foo": "1"}
	ctx := context.Background()

	require.NoError(t, c.run(ctx, []string{"addchannel", "#Foo"}))
	assert.Contains(t, out.String(), "added foo")

	err := c.run(ctx, []string{"addchannel", "foo"})
	assert.ErrorContains(t, err, "already exists")

	err = c.run(ctx, []string{"addchannel", "ghost"})
	assert.ErrorContains(t, err, "no such user")

	out.Reset()
	require.NoError(t, c.run(ctx, []string{"channels"}))
	assert.Contains(t, out.String(), "foo")

	require.NoError(t, c.run(ctx, []string{"removechannel", "foo"}))
	assert.ErrorContains(t, c.run(ctx, []string{"removechannel", "foo"}), "not in the database")
}

func TestAddChannelWithoutHelix(t *testing.T) {
	c, _ := newCLI(t)
	require.NoError(t, c.run(context.Background(), []string{"addchannel", "anyone"}))
	names, err := c.db.ChannelNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"anyone"}, names)
}

func TestListCustomCommands(t *testing.T) {
	c, out := newCLI(t)
	ctx := context.Background()
	_, err := c.db.AddChannel(ctx, "foo")
	require.NoError(t, err)
	_, err = c.db.AddCommand(ctx, "foo", store.Command{Name: "hello", Response: "hi there", Cooldown: 5})
	require.NoError(t, err)
	_, err = c.db.AddAlias(ctx, "foo", "hello", "hey")
	require.NoError(t, err)

	require.NoError(t, c.run(ctx, []string{"commands", "foo"}))
	assert.Contains(t, out.String(), "hello")
	assert.Contains(t, out.String(), "hi there")
	assert.Contains(t, out.String(), "5s")
	assert.Contains(t, out.String(), "[hey]")
}

func TestMigrateVersion(t *testing.T) {
	c, out := newCLI(t)
	require.NoError(t, c.run(context.Background(), []string{"migrate", "version"}))
	assert.Contains(t, out.String(), "schema version 1")
	assert.ErrorIs(t, c.run(context.Background(), []string{"migrate", "sideways"}), errUsage)
}

func TestEncryptTokens(t *testing.T) {
	plain := testutil.SetupTestDB(t)
	ctx := context.Background()
	require.NoError(t, plain.SaveToken(ctx, store.Token{Provider: "twitch", AccessToken: "secret", RefreshToken: "refresh", Scope: "chat:read"}))

	out := &bytes.Buffer{}
	assert.ErrorContains(t, (&cli{db: plain, out: out}).run(ctx, []string{"encrypt-tokens"}), "ENCRYPTION_KEY")

	enc, err := crypto.NewAESEncryptor(base64.StdEncoding.EncodeToString(make([]byte, 32)))
	require.NoError(t, err)
	c := &cli{db: store.New(plain.DB(), store.WithEncryptor(enc)), out: out}

	require.NoError(t, c.run(ctx, []string{"encrypt-tokens", "--dry-run"}))
	assert.Contains(t, out.String(), "would encrypt twitch")
	status, err := plain.TokenEncryptionStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 1}, status)

	require.NoError(t, c.run(ctx, []string{"encrypt-tokens"}))
	status, err = plain.TokenEncryptionStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 1}, status)

	tok, err := c.db.GetToken(ctx, "twitch")
	require.NoError(t, err)
	assert.Equal(t, "secret", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)
	assert.Equal(t, "chat:read", tok.Scope)

	out.Reset()
	require.NoError(t, c.run(ctx, []string{"encrypt-tokens"}))
	assert.Contains(t, out.String(), "no plaintext tokens")

	out.Reset()
	require.NoError(t, c.run(ctx, []string{"token-status"}))
	assert.Contains(t, out.String(), "AES-256-GCM")
}

func TestUsage(t *testing.T) {
	c, _ := newCLI(t)
	for _, args := range [][]string{nil, {"bogus"}, {"addchannel"}, {"commands"}} {
		assert.ErrorIs(t, c.run(context.Background(), args), errUsage, "%v", args)
	}
}
