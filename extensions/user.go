package extensions

import (
	"context"
	"errors"

	"github.com/haxgun/Arcane/command"
	"github.com/haxgun/Arcane/twitchapi"
)

var eightBallResponses = []string{
	"It is certain.",
	"It is decidedly so.",
	"Without a doubt.",
	"Yes, definitely.",
	"You may rely on it.",
	"As I see it, yes.",
	"Most likely.",
	"Outlook good.",
	"Yes.",
	"Signs point to yes.",
	"Reply hazy, try again.",
	"Ask again later.",
	"Better not tell you now.",
	"Cannot predict now.",
	"Concentrate and ask again.",
	"Don't count on it.",
	"My reply is no.",
	"My sources say no.",
	"Outlook not so good.",
	"Very doubtful.",
}

const (
	msgOffline     = "Offline"
	msgBroadcaster = "Your broadcaster 🎙️"
	msgNotFollower = "You're not followed to the channel!"
)

func (e *ext) userCommands() []*command.Definition {
	return []*command.Definition{
		command.New("8ball", e.eightBall,
			command.WithAliases("8b"),
			command.WithParams(command.Optional("question", command.String)),
			command.WithHelp("Ask the magic 8-ball a question")),
		command.New("uptime", e.uptime, command.WithHelp("How long the stream has been live")),
		command.New("accountage", e.accountAge,
			command.WithAliases("age"),
			command.WithHelp("How old your Twitch account is")),
		command.New("followage", e.followAge, command.WithHelp("How long you have followed the channel")),
		command.New("followsince", e.followSince, command.WithHelp("When you followed the channel")),
	}
}

func (e *ext) eightBall(ctx context.Context, c *command.Context, args command.Args) error {
	if args.String("question") == "" {
		return c.Reply(ctx, "Please ask a question")
	}
	return c.Reply(ctx, eightBallResponses[e.Rand.IntN(len(eightBallResponses))])
}

func (e *ext) uptime(ctx context.Context, c *command.Context, _ command.Args) error {
	s, err := e.Helix.GetStream(ctx, c.Channel)
	if errors.Is(err, twitchapi.ErrNotFound) {
		return c.Reply(ctx, msgOffline)
	}
	if err != nil {
		return err
	}
	return c.Reply(ctx, formatUptime(e.Now().Sub(s.StartedAt)))
}

func (e *ext) accountAge(ctx context.Context, c *command.Context, _ command.Args) error {
	u, err := e.Helix.GetUser(ctx, c.Chatter.Name)
	if err != nil {
		return err
	}
	return c.Reply(ctx, formatAge(u.CreatedAt, e.Now()))
}

// follower answers with ok=false after replying itself when the chatter is
// the broadcaster or does not follow.
func (e *ext) follower(ctx context.Context, c *command.Context) (twitchapi.Follower, bool, error) {
	if c.Chatter.Name == c.Channel {
		return twitchapi.Follower{}, false, c.Reply(ctx, msgBroadcaster)
	}
	bid, err := e.broadcasterID(ctx, c)
	if err != nil {
		return twitchapi.Follower{}, false, err
	}
	uid := c.Chatter.ID
	if uid == "" {
		if uid, err = e.Helix.GetUserID(ctx, c.Chatter.Name); err != nil {
			return twitchapi.Follower{}, false, err
		}
	}
	f, err := e.Helix.GetFollower(ctx, bid, uid)
	if errors.Is(err, twitchapi.ErrNotFound) {
		return twitchapi.Follower{}, false, c.Reply(ctx, msgNotFollower)
	}
	if err != nil {
		return twitchapi.Follower{}, false, err
	}
	return f, true, nil
}

func (e *ext) followAge(ctx context.Context, c *command.Context, _ command.Args) error {
	f, ok, err := e.follower(ctx, c)
	if !ok {
		return err
	}
	return c.Reply(ctx, formatFollowAge(f.FollowedAt, e.Now()))
}

func (e *ext) followSince(ctx context.Context, c *command.Context, _ command.Args) error {
	f, ok, err := e.follower(ctx, c)
	if !ok {
		return err
	}
	return c.Reply(ctx, formatFollowSince(f.FollowedAt, e.Now()))
}
