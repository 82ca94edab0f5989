package extensions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/cooldown"
	"github.com/haxgun/Arcane/irc"
	"github.com/haxgun/Arcane/store"
	"github.com/haxgun/Arcane/testutil"
	"github.com/haxgun/Arcane/twitchapi"
	"github.com/haxgun/Arcane/valorant"
)

type sent struct{ kind, text string }

type recordingSender struct {
	mu   sync.Mutex
	msgs []sent
}

func (s *recordingSender) add(kind, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, sent{kind, text})
	return nil
}

func (s *recordingSender) Say(_ context.Context, _, text string) error { return s.add("say", text) }
func (s *recordingSender) Reply(_ context.Context, _, _, text string) error {
	return s.add("reply", text)
}
func (s *recordingSender) Me(_ context.Context, _, text string) error { return s.add("me", text) }

func (s *recordingSender) since(n int) []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sent(nil), s.msgs[n:]...)
}

func (s *recordingSender) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

type fakeBot struct {
	mu       sync.Mutex
	channels map[string]bool
	joined   []string
	parted   []string
	started  time.Time
}

func (b *fakeBot) JoinChannel(_ context.Context, ch string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.joined = append(b.joined, ch)
	b.channels[ch] = true
	return nil
}

func (b *fakeBot) PartChannel(_ context.Context, ch string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parted = append(b.parted, ch)
	delete(b.channels, ch)
	return nil
}

func (b *fakeBot) Channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for ch := range b.channels {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

func (b *fakeBot) StartedAt() time.Time { return b.started }

type fakeRanks struct {
	ids []string
	mmr valorant.MMR
	err error
}

func (r *fakeRanks) Rank(_ context.Context, id string) (valorant.MMR, error) {
	r.ids = append(r.ids, id)
	return r.mmr, r.err
}

type chatter struct{ author, tags string }

var (
	viewer      = chatter{"viewer", "display-name=Viewer;id=m1;room-id=100;user-id=200"}
	moderator   = chatter{"mod", "badges=moderator/1;display-name=Mod;id=m2;mod=1;room-id=100;user-id=300"}
	broadcaster = chatter{"foo", "badges=broadcaster/1;display-name=Foo;id=m3;room-id=100;user-id=100"}
	owner       = chatter{"owner", "display-name=Owner;id=m4;room-id=100;user-id=1"}
)

type env struct {
	t      *testing.T
	helix  *testutil.MockTwitchServer
	store  *store.Store
	bot    *fakeBot
	ranks  *fakeRanks
	sender *recordingSender
	d      *command.Dispatcher
	now    time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		t:      t,
		helix:  testutil.NewMockTwitchServer(t),
		store:  testutil.SetupTestDB(t),
		ranks:  &fakeRanks{mmr: valorant.MMR{Tier: "Gold 2", RR: 45, Elo: 1045}},
		sender: &recordingSender{},
		now:    time.Date(2023, 3, 20, 12, 30, 0, 0, time.UTC),
	}
	e.bot = &fakeBot{channels: map[string]bool{"foo": true}, started: e.now.Add(-65 * time.Minute)}
	_, err := e.store.AddChannel(context.Background(), "foo")
	require.NoError(t, err)

	reg := command.NewRegistry()
	require.NoError(t, Register(reg, Deps{
		Helix: e.helix.Client(),
		Store: e.store,
		Bot:   e.bot,
		Ranks: e.ranks,
		Now:   func() time.Time { return e.now },
		Rand:  rand.New(rand.NewPCG(1, 2)),
	}))

	// Every cooldown check sees a later hour so commands are never throttled.
	tick := e.now
	var tmu sync.Mutex
	clock := func() time.Time {
		tmu.Lock()
		defer tmu.Unlock()
		tick = tick.Add(time.Hour)
		return tick
	}
	e.d = command.NewDispatcher(reg, cooldown.NewWithClock(clock), e.sender, command.Config{Prefix: "!", OwnerID: "1"})
	return e
}

// chat dispatches text from who and returns everything the bot sent.
func (e *env) chat(who chatter, text string) (command.Outcome, []sent) {
	e.t.Helper()
	line := fmt.Sprintf("@%s :%s!%s@%s.tmi.twitch.tv PRIVMSG #foo :%s", who.tags, who.author, who.author, who.author, text)
	ev, err := irc.Decode(line)
	require.NoError(e.t, err)
	n := e.sender.len()
	out := e.d.Dispatch(context.Background(), ev.(*irc.PrivMsg))
	return out, e.sender.since(n)
}

// reply dispatches text and expects exactly one threaded reply.
func (e *env) reply(who chatter, text string) string {
	e.t.Helper()
	out, msgs := e.chat(who, text)
	require.Len(e.t, msgs, 1, "outcome %+v", out)
	assert.Equal(e.t, "reply", msgs[0].kind)
	return msgs[0].text
}

func TestEightBall(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, "Please ask a question", e.reply(viewer, "!8ball"))
	assert.Contains(t, eightBallResponses, e.reply(viewer, "!8b will it rain?"))
}

func TestUptime(t *testing.T) {
	e := newEnv(t)
	e.helix.MockStreamsResponse("foo", e.now.Add(-(26*time.Hour + 5*time.Minute)))
	assert.Equal(t, "1d 2h 5m", e.reply(viewer, "!uptime"))

	e.helix.MockStreamsResponse("foo", time.Time{})
	assert.Equal(t, "Offline", e.reply(viewer, "!uptime"))
}

func TestAccountAge(t *testing.T) {
	e := newEnv(t)
	e.helix.MockUserResponse("200", "viewer", time.Date(2020, 1, 15, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, "3y 2m 5d 2h 30m", e.reply(viewer, "!age"))
}

func TestFollowCommands(t *testing.T) {
	e := newEnv(t)
	e.helix.MockFollowers(map[string]time.Time{"200": time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC)})

	assert.Equal(t, "1y 2mo 10d", e.reply(viewer, "!followage"))
	assert.Equal(t, "10 January 2022 (434 days)", e.reply(viewer, "!followsince"))
	assert.Equal(t, msgNotFollower, e.reply(moderator, "!followage"))
	assert.Equal(t, msgBroadcaster, e.reply(broadcaster, "!followsince"))
}

func TestTitle(t *testing.T) {
	e := newEnv(t)
	e.helix.MockChannelResponse("100", "Old title", "Just Chatting")

	out, msgs := e.chat(viewer, "!title something new")
	assert.Equal(t, command.Suppressed, out.Status)
	assert.Equal(t, command.ReasonPermission, out.Reason)
	assert.Empty(t, msgs)

	assert.Equal(t, "Old title", e.reply(moderator, "!title"))
	assert.Equal(t, "Old title", e.reply(moderator, "!title abc"))
	assert.Equal(t, msgTitleInUse, e.reply(moderator, "!title Old title"))
	assert.Equal(t, msgOK, e.reply(broadcaster, "!title New stream title"))

	patches := e.helix.Patches()
	require.Len(t, patches, 1)
	assert.Equal(t, "New stream title", patches[0]["title"])
}

func TestGame(t *testing.T) {
	e := newEnv(t)
	e.helix.MockChannelResponse("100", "Old title", "Just Chatting")
	valo := twitchapi.Category{ID: "516575", Name: "VALORANT"}
	e.helix.MockCategories(map[string]twitchapi.Category{"valorant": valo, "VALORANT": valo})

	assert.Equal(t, "Just Chatting", e.reply(moderator, "!game"))
	assert.Equal(t, msgGameNotFound, e.reply(moderator, "!game no such game"))
	assert.Equal(t, "✅ VALORANT", e.reply(moderator, "!game valorant"))

	assert.Equal(t, "✅ VALORANT", e.reply(moderator, "!settings game valorant"))
	got, err := e.store.GetSetting(context.Background(), "foo", store.SettingGame)
	require.NoError(t, err)
	assert.Equal(t, "VALORANT", got)
	assert.Equal(t, "✅ VALORANT", e.reply(moderator, "!game"))

	patches := e.helix.Patches()
	require.Len(t, patches, 2)
	assert.Equal(t, "516575", patches[1]["game_id"])
}

func TestSpam(t *testing.T) {
	e := newEnv(t)
	_, msgs := e.chat(moderator, "!spam 3 hello world")
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Equal(t, sent{"say", "hello world"}, m)
	}

	assert.Equal(t, "Error! Count must be less than 20!", e.reply(moderator, "!sm 20 flood"))

	out, msgs := e.chat(viewer, "!spam 2 hi")
	assert.Equal(t, command.ReasonPermission, out.Reason)
	assert.Empty(t, msgs)
}

func TestCustomCommandManagement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.Equal(t, "✅ !hello", e.reply(moderator, "!commands add !Hello Hi there"))
	cmd, err := e.store.FindCommand(ctx, "foo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", cmd.Response)
	assert.Equal(t, store.DefaultCommandCooldown, cmd.Cooldown)

	assert.Equal(t, "❌ !hello already exists.", e.reply(moderator, "!commands add hello again"))
	assert.Equal(t, "❌ !uptime already exists.", e.reply(moderator, "!cmds a uptime shadow"))
	assert.Equal(t, msgEmojiName, e.reply(broadcaster, "!commands add 🎉party yay"))

	out, msgs := e.chat(viewer, "!commands add sneaky x")
	assert.Equal(t, command.ReasonPermission, out.Reason)
	assert.Empty(t, msgs)

	list := e.reply(viewer, "!commands")
	assert.Contains(t, list, "Commands: 8ball, accountage")
	assert.Contains(t, list, ", hello")
	assert.NotContains(t, list, "channels")

	assert.Equal(t, "✅ !hello", e.reply(moderator, "!commands edit hello Bye now"))
	cmd, err = e.store.FindCommand(ctx, "foo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Bye now", cmd.Response)

	assert.Equal(t, msgFail, e.reply(moderator, "!commands edit nope x"))
	assert.Equal(t, msgOK, e.reply(moderator, "!commands rm hello"))
	assert.Equal(t, msgFail, e.reply(moderator, "!commands remove hello"))
}

func TestAliasManagement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.store.AddCommand(ctx, "foo", store.Command{Name: "hello", Response: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "No aliases.", e.reply(viewer, "!aliases"))
	assert.Equal(t, "✅ !hi", e.reply(moderator, "!aliases add hello hi"))
	assert.Equal(t, "Aliases: hi", e.reply(viewer, "!als"))
	assert.Equal(t, "❌ !hi already exists.", e.reply(moderator, "!aliases add hello hi"))
	assert.Equal(t, "❌ !game already exists.", e.reply(moderator, "!aliases add hello game"))
	assert.Equal(t, msgFail, e.reply(moderator, "!aliases add nope x"))

	assert.Equal(t, "✅ !hey", e.reply(moderator, "!aliases edit hi hey"))
	cmd, err := e.store.ResolveAlias(ctx, "foo", "hey")
	require.NoError(t, err)
	assert.Equal(t, "hello", cmd.Name)

	assert.Equal(t, msgOK, e.reply(moderator, "!aliases rm hey"))
	assert.Equal(t, msgFail, e.reply(moderator, "!aliases rm hey"))
}

func TestRank(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, msgRankError, e.reply(viewer, "!rank"))
	assert.Equal(t, msgFail, e.reply(moderator, "!settings vlr nohashtag"))
	assert.Equal(t, msgOK, e.reply(moderator, "!settings valorant Name#TAG"))

	assert.Equal(t, "Gold 2 - 45RR - 1045 elo", e.reply(viewer, "!rank"))
	assert.Equal(t, "Gold 2 - 45RR - 1045 elo", e.reply(viewer, "!rank Other#EU1"))
	assert.Equal(t, []string{"Name#TAG", "Other#EU1"}, e.ranks.ids)

	e.ranks.err = errors.New("rate limited")
	assert.Equal(t, msgRankError, e.reply(viewer, "!rank"))
}

func TestSettingsListing(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, "Settings: game, valorant", e.reply(broadcaster, "!set"))
}

func TestOwnerChannels(t *testing.T) {
	e := newEnv(t)
	e.helix.MockUsers(map[string]string{"newchan": "555"})

	out, msgs := e.chat(broadcaster, "!channels add newchan")
	assert.Equal(t, command.ReasonPermission, out.Reason)
	assert.Empty(t, msgs)

	assert.Equal(t, "The user @newchan added.", e.reply(owner, "!channels add @NewChan"))
	assert.Equal(t, []string{"newchan"}, e.bot.joined)
	assert.Equal(t, "The user @newchan already exists.", e.reply(owner, "!ch a newchan"))
	assert.Equal(t, "There is no such user!", e.reply(owner, "!addchl ghost"))
	assert.Equal(t, "Channels: foo, newchan", e.reply(owner, "!channels"))

	assert.Equal(t, "The user @newchan has been removed from the database.", e.reply(owner, "!ch rm newchan"))
	assert.Equal(t, []string{"newchan"}, e.bot.parted)
	assert.Equal(t, "The user @newchan is not in the database.", e.reply(owner, "!delchannel newchan"))

	_, err := e.store.GetChannel(context.Background(), "newchan")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBotInfo(t *testing.T) {
	e := newEnv(t)
	assert.Contains(t, e.reply(owner, "!bot"), "⚡ Bot online for 1h 5m! 🏓 API ")
}

func TestRegisterRequiresDeps(t *testing.T) {
	err := Register(command.NewRegistry(), Deps{})
	require.Error(t, err)
}
