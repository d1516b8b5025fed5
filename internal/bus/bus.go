// Package bus decouples the input reader from the shell session loop.
// Input lines flow in as Commands; the session publishes Notices back
// to whoever renders them.
package bus

import (
	"context"
	"sync"
	"time"
)

// Command is one line of user input.
type Command struct {
	Line      string
	Timestamp time.Time
}

// Notice is output for the user.
type Notice struct {
	Content string
}

type ShellBus struct {
	inbound     chan Command
	done        chan struct{}
	closeOnce   sync.Once
	subscribers []chan Notice
	mu          sync.RWMutex
}

func New(bufferSize int) *ShellBus {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &ShellBus{
		inbound: make(chan Command, bufferSize),
		done:    make(chan struct{}),
	}
}

// Publish delivers one command to the session. A closed bus discards
// it: the reader goroutine may still be mid-line when the shell shuts
// down, and the inbound channel itself is never closed, so a late
// Publish can not panic.
func (b *ShellBus) Publish(cmd Command) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case <-b.done:
	case b.inbound <- cmd:
	}
}

func (b *ShellBus) Subscribe() chan Notice {
	ch := make(chan Notice, 16)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

func (b *ShellBus) Send(n Notice) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub <- n:
		default:
			// drop if subscriber is full
		}
	}
}

func (b *ShellBus) Inbound() <-chan Command {
	return b.inbound
}

// Done is closed when the bus shuts down. Consumers select on it
// instead of waiting for Inbound to close.
func (b *ShellBus) Done() <-chan struct{} {
	return b.done
}

func (b *ShellBus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		for _, ch := range b.subscribers {
			close(ch)
		}
		b.mu.Unlock()
	})
}

// Drain discards pending commands until the bus closes or ctx ends.
func (b *ShellBus) Drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-b.inbound:
		}
	}
}
