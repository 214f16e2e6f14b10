// Package consumer reads messages from a broker and keeps the most recent one
// available to the HTTP layer.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoMessage is returned when no message has been received yet.
var ErrNoMessage = errors.New("no message received yet")

// TimeoutText is served when no message arrives within the read timeout.
const TimeoutText = "Timeout waiting to read data from Kafka.  Please refresh the page to try again."

// Message is a single record read from a Source.
type Message struct {
	Value     string
	Key       string
	ID        string
	Partition int
	Offset    int64
	Time      time.Time
	Source    string
}

// Latest holds the most recently received message.
type Latest struct {
	mu    sync.RWMutex
	msg   Message
	seen  uint64
	ready chan struct{}
}

// NewLatest returns an empty store.
func NewLatest() *Latest {
	return &Latest{ready: make(chan struct{})}
}

// Set replaces the stored message. The first call releases every Wait.
func (l *Latest) Set(msg Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msg = msg
	l.seen++
	if l.seen == 1 {
		close(l.ready)
	}
}

// Get returns the stored message or ErrNoMessage.
func (l *Latest) Get() (Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.seen == 0 {
		return Message{}, ErrNoMessage
	}
	return l.msg, nil
}

// Count reports how many messages have been stored.
func (l *Latest) Count() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seen
}

// Ready reports whether at least one message has arrived.
func (l *Latest) Ready() bool {
	select {
	case <-l.ready:
		return true
	default:
		return false
	}
}

// Wait returns the stored message, blocking until the first one arrives or ctx ends.
func (l *Latest) Wait(ctx context.Context) (Message, error) {
	select {
	case <-l.ready:
		return l.Get()
	case <-ctx.Done():
		return Message{}, fmt.Errorf("wait for message: %w", ctx.Err())
	}
}
