package irc

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is the longest chat text Twitch accepts, in characters.
const MaxMessageLength = 500

// Capabilities requested during the handshake.
var Capabilities = []string{"twitch.tv/tags", "twitch.tv/commands", "twitch.tv/membership"}

// MessageTooLongError is returned before anything is written when chat text
// exceeds MaxMessageLength.
type MessageTooLongError struct {
	Length int
}

func (e *MessageTooLongError) Error() string {
	return fmt.Sprintf("the maximum amount of characters in one message is %d, you tried to send %d characters", MaxMessageLength, e.Length)
}

// chatText flattens newlines and enforces the length limit.
func chatText(text string) (string, error) {
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	if n := utf8.RuneCountInString(text); n > MaxMessageLength {
		return "", &MessageTooLongError{Length: n}
	}
	return text, nil
}

func channelName(channel string) string {
	return strings.ToLower(strings.TrimPrefix(channel, "#"))
}

// Privmsg encodes a plain chat message.
func Privmsg(channel, text string) (string, error) {
	text, err := chatText(text)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PRIVMSG #%s :%s\r\n", channelName(channel), text), nil
}

// Reply encodes a chat message threaded under parentID.
func Reply(parentID, channel, text string) (string, error) {
	text, err := chatText(text)
	if err != nil {
		return "", err
	}
	if parentID == "" {
		return fmt.Sprintf("PRIVMSG #%s :%s\r\n", channelName(channel), text), nil
	}
	return fmt.Sprintf("@reply-parent-msg-id=%s PRIVMSG #%s :%s\r\n", escapeTagValue(parentID), channelName(channel), text), nil
}

// Me encodes an action message.
func Me(channel, text string) (string, error) {
	text, err := chatText(text)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PRIVMSG #%s :.me %s\r\n", channelName(channel), text), nil
}

func JoinLine(channel string) string { return fmt.Sprintf("JOIN #%s\r\n", channelName(channel)) }

func PartLine(channel string) string { return fmt.Sprintf("PART #%s\r\n", channelName(channel)) }

// Pong answers a PING. An empty payload answers with the Twitch server name.
func Pong(payload string) string {
	if payload == "" {
		payload = "tmi.twitch.tv"
	}
	return fmt.Sprintf("PONG :%s\r\n", payload)
}

// Pass sends the chat token, adding the "oauth:" prefix when missing.
func Pass(token string) string {
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	return fmt.Sprintf("PASS %s\r\n", token)
}

func Nick(name string) string { return fmt.Sprintf("NICK %s\r\n", strings.ToLower(name)) }

// CapReq requests the given capabilities in one line.
func CapReq(caps ...string) string {
	return fmt.Sprintf("CAP REQ :%s\r\n", strings.Join(caps, " "))
}

var tagEscaper = strings.NewReplacer(`\`, `\\`, ";", `\:`, " ", `\s`, "\r", `\r`, "\n", `\n`)

func escapeTagValue(v string) string { return tagEscaper.Replace(v) }
