package bot

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gookit/color"

	"github.com/haxgun/Arcane/identity"
	"github.com/haxgun/Arcane/irc"
)

// Console echoes chat to a terminal, colouring names like Twitch does.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w, now: time.Now}
}

// Chat prints "[15:04:05] [@channel] Name: text".
func (c *Console) Chat(msg *irc.PrivMsg, who identity.Chatter) {
	ts := msg.SentAt()
	if ts.IsZero() {
		ts = c.now()
	}
	rgb := who.Color()
	name := color.RGB(rgb.R, rgb.G, rgb.B).Sprint(who.DisplayName)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "%s %s %s: %s\n",
		color.Gray.Sprintf("[%s]", ts.Local().Format(time.TimeOnly)),
		color.Magenta.Sprintf("[@%s]", msg.Channel),
		name, msg.Content)
}

// Status prints a bot lifecycle line.
func (c *Console) Status(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "%s %s\n", color.Gray.Sprintf("[%s]", c.now().Local().Format(time.TimeOnly)), color.Cyan.Sprintf(format, a...))
}
