package chat

import (
	"context"
	"errors"
)

// ErrClosed is returned once a transport has been closed.
var ErrClosed = errors.New("chat: transport closed")

// Transport carries raw IRC lines. ReadLine returns one line without CR/LF
// and blocks until a line arrives, the context ends or the connection fails.
// SendLine may be called concurrently with ReadLine.
type Transport interface {
	ReadLine(ctx context.Context) (string, error)
	SendLine(ctx context.Context, line string) error
	Close() error
}
