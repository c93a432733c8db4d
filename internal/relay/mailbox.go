// Package relay provides the per-user mailbox: an unbounded FIFO of
// pending deliveries written by publisher goroutines and drained by one
// subscriber goroutine.
package relay

import (
	"context"
	"sync"
)

// Mailbox is a thread-safe FIFO of pending outbound messages. Any number
// of goroutines may enqueue concurrently; the design assumes a single
// consumer, though the pop itself is lock-protected either way.
//
// There is no capacity bound. Back-pressure for slow subscribers is out of
// scope; a subscriber that falls behind simply accumulates messages.
type Mailbox struct {
	mu    sync.Mutex
	queue []Message

	// notify carries at most one pending wakeup. Dequeue re-checks the
	// queue before waiting, so a collapsed signal can never strand a
	// message.
	notify chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

// Enqueue appends a message to the tail and signals availability. It
// always succeeds.
func (m *Mailbox) Enqueue(msg Message) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Dequeue blocks until a message is available or ctx is cancelled. It
// returns ok=false only on cancellation; messages come out in the order
// they were enqueued.
func (m *Mailbox) Dequeue(ctx context.Context) (Message, bool) {
	for {
		if msg, ok := m.TryDequeue(); ok {
			return msg, true
		}

		select {
		case <-m.notify:
		case <-ctx.Done():
			return Message{}, false
		}
	}
}

// TryDequeue pops the head without blocking, reporting whether a message
// was available.
func (m *Mailbox) TryDequeue() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return Message{}, false
	}

	msg := m.queue[0]
	m.queue = m.queue[1:]
	return msg, true
}

// Len returns the number of pending messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
