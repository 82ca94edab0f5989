package irc

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyEncoding(t *testing.T) {
	line, err := Reply("X", "foo", "bar")
	require.NoError(t, err)
	assert.Equal(t, "@reply-parent-msg-id=X PRIVMSG #foo :bar\r\n", line)

	line, err = Reply("", "#foo", "bar")
	require.NoError(t, err)
	assert.Equal(t, "PRIVMSG #foo :bar\r\n", line)
}

func TestOutgoingLines(t *testing.T) {
	tests := []struct {
		name string
		got  func() (string, error)
		want string
	}{
		{"privmsg", func() (string, error) { return Privmsg("Foo", "hi") }, "PRIVMSG #foo :hi\r\n"},
		{"me", func() (string, error) { return Me("foo", "waves") }, "PRIVMSG #foo :.me waves\r\n"},
		{"newlines flattened", func() (string, error) { return Privmsg("foo", "a\nb\r\nc") }, "PRIVMSG #foo :a b c\r\n"},
		{"join", func() (string, error) { return JoinLine("#Foo"), nil }, "JOIN #foo\r\n"},
		{"part", func() (string, error) { return PartLine("foo"), nil }, "PART #foo\r\n"},
		{"pong", func() (string, error) { return Pong(""), nil }, "PONG :tmi.twitch.tv\r\n"},
		{"pass", func() (string, error) { return Pass("abc"), nil }, "PASS oauth:abc\r\n"},
		{"pass prefixed", func() (string, error) { return Pass("oauth:abc"), nil }, "PASS oauth:abc\r\n"},
		{"nick", func() (string, error) { return Nick("Arcane"), nil }, "NICK arcane\r\n"},
		{"cap", func() (string, error) { return CapReq(Capabilities...), nil }, "CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.got()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessageTooLong(t *testing.T) {
	_, err := Privmsg("foo", strings.Repeat("a", MaxMessageLength))
	require.NoError(t, err)

	_, err = Reply("X", "foo", strings.Repeat("a", MaxMessageLength+1))
	var tooLong *MessageTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.Equal(t, MaxMessageLength+1, tooLong.Length)

	// limit counts characters, not bytes
	_, err = Privmsg("foo", strings.Repeat("ж", MaxMessageLength))
	assert.NoError(t, err)
}

func TestEncodedReplyDecodes(t *testing.T) {
	line, err := Reply("abc-1", "foo", "hello: world")
	require.NoError(t, err)
	ev, err := Decode(line)
	require.NoError(t, err)
	assert.Equal(t, "foo", ev.Meta().Channel)
	assert.Equal(t, "hello: world", ev.Meta().Content)
	assert.Equal(t, "abc-1", ev.Meta().Tags["reply-parent-msg-id"])
}
