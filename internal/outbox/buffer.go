// Package outbox holds responses captured in debug mode.
package outbox

import (
	"sync"

	"nestor/internal/domain"
)

// Buffer is an in-memory, append-only debug sink.
type Buffer struct {
	mu      sync.Mutex
	entries []domain.OutboundPayload
}

var _ domain.Sink = (*Buffer)(nil)

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Append records p. It never fails.
func (b *Buffer) Append(p domain.OutboundPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, p)
}

// Entries returns a copy of the buffered payloads in append order.
func (b *Buffer) Entries() []domain.OutboundPayload {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.OutboundPayload, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len reports how many payloads are buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Last returns the most recent payload.
func (b *Buffer) Last() (domain.OutboundPayload, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == 0 {
		return domain.OutboundPayload{}, false
	}
	return b.entries[len(b.entries)-1], true
}

// Reset drops everything buffered so far.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}
