// Package irc decodes Twitch IRC lines into typed events and encodes the
// outgoing commands the bot sends back.
package irc

import (
	"strconv"
	"time"
)

// Kind identifies the variant of a decoded Event.
type Kind int

const (
	KindUnknown Kind = iota
	KindPing
	KindPrivMsg
	KindWhisper
	KindJoin
	KindPart
	KindMode
	KindUserState
	KindRoomState
	KindNotice
	KindClearChat
	KindHostTarget
	KindUserNotice
	KindCap
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindPing:       "ping",
	KindPrivMsg:    "privmsg",
	KindWhisper:    "whisper",
	KindJoin:       "join",
	KindPart:       "part",
	KindMode:       "mode",
	KindUserState:  "userstate",
	KindRoomState:  "roomstate",
	KindNotice:     "notice",
	KindClearChat:  "clearchat",
	KindHostTarget: "hosttarget",
	KindUserNotice: "usernotice",
	KindCap:        "cap",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Event is one decoded inbound line. The concrete type is one of the pointer
// types in this file; switch on it or on Kind.
type Event interface {
	Kind() Kind
	Meta() *Header
}

// Header carries the fields shared by every event. Channel is the channel
// login without the leading '#' and is empty when the line names no channel.
// Content is the text after the channel token and is empty when absent.
type Header struct {
	Raw     string
	Command string
	Params  []string
	Tags    Tags
	Author  string
	Channel string
	Content string
}

func (h *Header) Meta() *Header { return h }

// Unknown is any well-formed line whose command has no dedicated variant
// (numerics, RECONNECT, GLOBALUSERSTATE...).
type Unknown struct{ Header }

func (*Unknown) Kind() Kind { return KindUnknown }

// Ping is a server keepalive; Content holds the payload to echo.
type Ping struct{ Header }

func (*Ping) Kind() Kind { return KindPing }

// PrivMsg is a chat message in a channel.
type PrivMsg struct{ Header }

func (*PrivMsg) Kind() Kind { return KindPrivMsg }

// ID returns the message id used as the parent of threaded replies.
func (m *PrivMsg) ID() string { return m.Tags["id"] }

// SentAt returns the server timestamp of the message, or the zero time.
func (m *PrivMsg) SentAt() time.Time {
	ms, err := strconv.ParseInt(m.Tags["tmi-sent-ts"], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Whisper is a private message addressed to the bot.
type Whisper struct{ Header }

func (*Whisper) Kind() Kind { return KindWhisper }

type Join struct{ Header }

func (*Join) Kind() Kind { return KindJoin }

type Part struct{ Header }

func (*Part) Kind() Kind { return KindPart }

// Mode is an operator grant or revoke. Op is "+" or "-" (empty when the
// mode token carries no sign), Mode is the mode letter and User its target.
type Mode struct {
	Header
	Op   string
	Mode string
	User string
}

func (*Mode) Kind() Kind { return KindMode }

// Granted reports whether the mode change adds the flag.
func (m *Mode) Granted() bool { return m.Op == "+" }

type UserState struct{ Header }

func (*UserState) Kind() Kind { return KindUserState }

type RoomState struct{ Header }

func (*RoomState) Kind() Kind { return KindRoomState }

// Notice is a server notice; MsgID mirrors the msg-id tag.
type Notice struct {
	Header
	MsgID string
}

func (*Notice) Kind() Kind { return KindNotice }

// ClearChat is a purge of a user (Target set) or of the whole chat.
type ClearChat struct {
	Header
	Target string
}

func (*ClearChat) Kind() Kind { return KindClearChat }

// HostTarget starts or stops hosting. Viewers is -1 when the count is absent.
type HostTarget struct {
	Header
	Target  string
	Viewers int
	Stop    bool
}

func (*HostTarget) Kind() Kind { return KindHostTarget }

// UserNotice covers subs, raids and similar channel events.
type UserNotice struct {
	Header
	MsgID string
}

func (*UserNotice) Kind() Kind { return KindUserNotice }

// Cap is the server answer to a capability request.
type Cap struct {
	Header
	Sub  string
	Caps []string
}

func (*Cap) Kind() Kind { return KindCap }

// Acked reports whether the server acknowledged the request.
func (c *Cap) Acked() bool { return c.Sub == "ACK" }
