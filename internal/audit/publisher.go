// Package audit captures structured audit events for completed
// verifications. Publishing is best-effort: an audit failure must never fail
// the verification that produced the event.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher is the sink for audit events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Prepare stamps identity and timestamp fields that every publisher needs.
func Prepare(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return event
}

// MemoryPublisher buffers events in memory, for tests and single-node
// deployments without a broker.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher constructs an empty in-memory sink.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish appends the event to the buffer.
func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Prepare(event))
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
