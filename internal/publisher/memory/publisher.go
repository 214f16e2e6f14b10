// Package memory contains an in-memory publisher for tests and dry runs.
package memory

import (
	"context"
	"sync"
)

// Publisher stores published values for inspection.
type Publisher struct {
	mu     sync.RWMutex
	values []string
	err    error
	closed bool
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Name implements publisher.Publisher.
func (p *Publisher) Name() string {
	return "memory"
}

// FailWith makes subsequent publishes return err. A nil err restores success.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish records the values.
func (p *Publisher) Publish(_ context.Context, values ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.values = append(p.values, values...)
	return nil
}

// Values returns a copy of everything published so far.
func (p *Publisher) Values() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.values))
	copy(out, p.values)
	return out
}

// Close marks the publisher closed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Publisher) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
