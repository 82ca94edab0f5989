package irc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// ErrDecode is wrapped by every error Decode returns. Callers drop the line.
var ErrDecode = errors.New("irc: cannot decode line")

// Decode turns one raw line into an Event. Trailing CR/LF is ignored.
// A malformed line never panics; it yields an error wrapping ErrDecode.
func Decode(line string) (ev Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			ev, err = nil, fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, fmt.Errorf("%w: empty line", ErrDecode)
	}

	if payload, ok := strings.CutPrefix(line, "PING"); ok && (payload == "" || payload[0] == ' ') {
		payload = strings.TrimPrefix(payload, " ")
		return &Ping{Header: Header{
			Raw:     line,
			Command: "PING",
			Tags:    Tags{},
			Content: strings.TrimPrefix(payload, ":"),
		}}, nil
	}

	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if msg.Command == "" {
		return nil, fmt.Errorf("%w: missing command", ErrDecode)
	}

	h := Header{
		Raw:     line,
		Command: strings.ToUpper(msg.Command),
		Params:  msg.Params,
		Tags:    Tags{},
	}
	for k, v := range msg.AllTags() {
		h.Tags[k] = v
	}
	if nick, _, found := strings.Cut(msg.Source, "!"); found {
		h.Author = nick
	}
	if len(msg.Params) > 0 {
		if ch, ok := strings.CutPrefix(msg.Params[0], "#"); ok {
			h.Channel = ch
		}
		h.Content = strings.Join(msg.Params[1:], " ")
	}

	switch h.Command {
	case "PRIVMSG":
		if h.Channel == "" {
			return nil, fmt.Errorf("%w: PRIVMSG without channel", ErrDecode)
		}
		return &PrivMsg{Header: h}, nil
	case "WHISPER":
		return &Whisper{Header: h}, nil
	case "JOIN":
		return &Join{Header: h}, nil
	case "PART":
		return &Part{Header: h}, nil
	case "MODE":
		return decodeMode(h), nil
	case "USERSTATE":
		return &UserState{Header: h}, nil
	case "ROOMSTATE":
		return &RoomState{Header: h}, nil
	case "NOTICE":
		return &Notice{Header: h, MsgID: h.Tags["msg-id"]}, nil
	case "CLEARCHAT":
		return &ClearChat{Header: h, Target: h.Content}, nil
	case "HOSTTARGET":
		return decodeHostTarget(h), nil
	case "USERNOTICE":
		return &UserNotice{Header: h, MsgID: h.Tags["msg-id"]}, nil
	case "CAP":
		c := &Cap{Header: h}
		if len(h.Params) > 1 {
			c.Sub = strings.ToUpper(h.Params[1])
		}
		if len(h.Params) > 2 {
			c.Caps = strings.Fields(h.Params[len(h.Params)-1])
		}
		return c, nil
	}
	return &Unknown{Header: h}, nil
}

// decodeMode reads "#chan +o user".
func decodeMode(h Header) *Mode {
	m := &Mode{Header: h}
	if len(h.Params) > 1 {
		flag := h.Params[1]
		if strings.HasPrefix(flag, "+") || strings.HasPrefix(flag, "-") {
			m.Op, flag = flag[:1], flag[1:]
		}
		m.Mode = flag
	}
	if len(h.Params) > 2 {
		m.User = h.Params[2]
	}
	return m
}

// decodeHostTarget reads "#host :target viewers". A target of "-" ends hosting.
func decodeHostTarget(h Header) *HostTarget {
	ht := &HostTarget{Header: h, Viewers: -1}
	fields := strings.Fields(h.Content)
	if len(fields) > 0 {
		ht.Target = fields[0]
	}
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil && n >= 0 {
			ht.Viewers = n
		}
	}
	ht.Stop = ht.Target == "" || ht.Target == "-"
	if ht.Stop {
		ht.Target = ""
	}
	return ht
}
