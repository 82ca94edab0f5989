package chat

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircreader"
)

// DefaultAddr is the Twitch chat TLS endpoint.
const DefaultAddr = "irc.chat.twitch.tv:6697"

const writeTimeout = 10 * time.Second

// Conn is a Transport over a plain net.Conn.
type Conn struct {
	conn   net.Conn
	reader *ircreader.Reader

	wmu       sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to addr, with TLS when useTLS is set.
func Dial(ctx context.Context, addr string, useTLS bool) (*Conn, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	nd := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	var (
		c   net.Conn
		err error
	)
	if useTLS {
		host, _, splitErr := net.SplitHostPort(addr)
		if splitErr != nil {
			return nil, fmt.Errorf("chat address %q: %w", addr, splitErr)
		}
		td := &tls.Dialer{NetDialer: nd, Config: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}}
		c, err = td.DialContext(ctx, "tcp", addr)
	} else {
		c, err = nd.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewConn(c), nil
}

// NewConn wraps an established connection.
func NewConn(c net.Conn) *Conn {
	return &Conn{conn: c, reader: ircreader.NewIRCReader(c), closed: make(chan struct{})}
}

func (c *Conn) ReadLine(ctx context.Context) (string, error) {
	// a past deadline unblocks the pending Read when ctx ends
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetReadDeadline(time.Unix(1, 0)) })
	defer stop()

	for {
		b, err := c.reader.ReadLine()
		if err != nil {
			select {
			case <-c.closed:
				return "", ErrClosed
			default:
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return "", ErrClosed
			}
			return "", err
		}
		// the reader reuses its buffer; string() copies
		line := strings.TrimRight(string(b), "\r\n")
		if line != "" {
			return line, nil
		}
	}
}

// SendLine writes line, appending CRLF when missing.
func (c *Conn) SendLine(ctx context.Context, line string) error {
	if !strings.HasSuffix(line, "\r\n") {
		line += "\r\n"
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := io.WriteString(c.conn, line)
	return err
}

func (c *Conn) Close() error {
	err := ErrClosed
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
