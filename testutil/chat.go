package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haxgun/Arcane/chat"
)

// FakeTransport is an in-memory chat.Transport. Tests push server lines into
// In and inspect what the bot wrote with Sent.
type FakeTransport struct {
	In chan string

	mu     sync.Mutex
	sent   []string
	once   sync.Once
	closed chan struct{}
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{In: make(chan string, 64), closed: make(chan struct{})}
}

func (f *FakeTransport) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-f.In:
		return line, nil
	case <-f.closed:
		return "", chat.ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *FakeTransport) SendLine(_ context.Context, line string) error {
	select {
	case <-f.closed:
		return chat.ErrClosed
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, strings.TrimRight(line, "\r\n"))
	return nil
}

func (f *FakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

// Sent returns the lines written so far without CRLF.
func (f *FakeTransport) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// WaitSent blocks until at least n lines were written and returns them.
func (f *FakeTransport) WaitSent(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := f.Sent(); len(s) >= n {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, got %v", n, f.Sent())
	return nil
}
