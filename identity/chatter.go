// Package identity derives who sent a chat message from its IRC tags: display
// name, badges, roles and chat colour.
package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/haxgun/Arcane/irc"
)

// Role is a permission class a chatter may hold in a channel.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleBroadcaster Role = "broadcaster"
	RoleModerator   Role = "moderator"
	RoleSubscriber  Role = "subscriber"
	RoleTurbo       Role = "turbo"
	RoleVIP         Role = "vip"
)

// Chatter is the sender of one message. It is a value derived from the
// message tags and never changes after construction.
type Chatter struct {
	Name        string
	DisplayName string
	ID          string
	Channel     string
	Badges      map[string]int

	tags    irc.Tags
	ownerID string
}

// Derive builds the identity of name speaking in channel. ownerID is the
// Twitch user id of the bot owner; empty disables the owner role.
func Derive(name, channel string, tags irc.Tags, ownerID string) Chatter {
	if tags == nil {
		tags = irc.Tags{}
	}
	display := tags["display-name"]
	if display == "" {
		display = name
	}
	if name == "" {
		name = strings.ToLower(display)
	}
	return Chatter{
		Name:        strings.ToLower(name),
		DisplayName: display,
		ID:          tags["user-id"],
		Channel:     strings.ToLower(strings.TrimPrefix(channel, "#")),
		Badges:      tags.Badges("badges"),
		tags:        tags,
		ownerID:     ownerID,
	}
}

// FromMessage derives the sender of a chat message.
func FromMessage(msg *irc.PrivMsg, ownerID string) Chatter {
	return Derive(msg.Author, msg.Channel, msg.Tags, ownerID)
}

// Mention returns "@DisplayName".
func (c Chatter) Mention() string { return "@" + c.DisplayName }

func (c Chatter) IsBroadcaster() bool {
	_, ok := c.Badges["broadcaster"]
	return ok
}

// IsModerator is true for the mod tag and for the channel's own account.
func (c Chatter) IsModerator() bool {
	if c.tags.Flag("mod") {
		return true
	}
	return c.Channel != "" && (strings.EqualFold(c.DisplayName, c.Channel) || c.Name == c.Channel)
}

// IsSubscriber also counts founders.
func (c Chatter) IsSubscriber() bool {
	if c.tags.Flag("subscriber") {
		return true
	}
	_, founder := c.Badges["founder"]
	return founder
}

func (c Chatter) IsTurbo() bool { return c.tags.Flag("turbo") }

func (c Chatter) IsVIP() bool {
	if c.tags.Flag("vip") {
		return true
	}
	_, ok := c.Badges["vip"]
	return ok
}

// IsOwner compares the user-id tag with the configured owner id.
func (c Chatter) IsOwner() bool {
	return c.ownerID != "" && c.ID != "" && c.ID == c.ownerID
}

// Has reports whether the chatter holds role.
func (c Chatter) Has(role Role) bool {
	switch role {
	case RoleOwner:
		return c.IsOwner()
	case RoleBroadcaster:
		return c.IsBroadcaster()
	case RoleModerator:
		return c.IsModerator()
	case RoleSubscriber:
		return c.IsSubscriber()
	case RoleTurbo:
		return c.IsTurbo()
	case RoleVIP:
		return c.IsVIP()
	}
	return false
}

// HasAny reports whether the chatter holds at least one of roles. An empty
// list admits everyone.
func (c Chatter) HasAny(roles []Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if c.Has(r) {
			return true
		}
	}
	return false
}

// Roles lists every role the chatter holds.
func (c Chatter) Roles() []Role {
	var out []Role
	for _, r := range []Role{RoleOwner, RoleBroadcaster, RoleModerator, RoleSubscriber, RoleTurbo, RoleVIP} {
		if c.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// RGB is a chat colour.
type RGB struct{ R, G, B uint8 }

// Hex formats the colour as #RRGGBB.
func (c RGB) Hex() string {
	const digits = "0123456789ABCDEF"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{c.R, c.G, c.B} {
		b[1+i*2] = digits[v>>4]
		b[2+i*2] = digits[v&0x0f]
	}
	return string(b)
}

// Color returns the chatter's chosen colour, or one derived from the display
// name when the color tag is empty or malformed.
func (c Chatter) Color() RGB {
	if rgb, ok := ParseColor(c.tags["color"]); ok {
		return rgb
	}
	return NameColor(c.DisplayName)
}

// ParseColor parses "#RRGGBB".
func ParseColor(s string) (RGB, bool) {
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

// NameColor derives a stable colour for name. The first eight bytes of the
// SHA-256 digest are read as a little endian integer; its leading binary
// digits pick, per channel, whether the low seven bits and the high bit are set.
func NameColor(name string) RGB {
	sum := sha256.Sum256([]byte(name))
	bits := strconv.FormatUint(binary.LittleEndian.Uint64(sum[:8]), 2)
	bit := func(i int) uint8 {
		if i < len(bits) && bits[i] == '1' {
			return 1
		}
		return 0
	}
	channel := func(i int) uint8 { return bit(i)*0x7f + bit(i+1)<<7 }
	return RGB{R: channel(0), G: channel(2), B: channel(4)}
}
