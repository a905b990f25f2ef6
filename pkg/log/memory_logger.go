package log

import (
	"sync"
)

// DefaultMemoryCapacity is the default number of events MemoryLogger retains.
const DefaultMemoryCapacity = 512

// MemoryLogger retains the most recent events in a bounded in-memory ring.
// Oldest events are evicted first when the capacity is reached. Useful for
// tests and for the interactive console's trace view.
type MemoryLogger struct {
	mu       sync.Mutex
	capacity int
	events   []Event
	start    int
	count    int
}

// NewMemoryLogger creates a MemoryLogger with the given capacity.
// Non-positive capacities fall back to DefaultMemoryCapacity.
func NewMemoryLogger(capacity int) *MemoryLogger {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryLogger{
		capacity: capacity,
		events:   make([]Event, capacity),
	}
}

// Log records the event, evicting the oldest one when full.
func (m *MemoryLogger) Log(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := (m.start + m.count) % m.capacity
	m.events[idx] = event
	if m.count < m.capacity {
		m.count++
	} else {
		m.start = (m.start + 1) % m.capacity
	}
}

// Events returns a snapshot of retained events, oldest first.
func (m *MemoryLogger) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, m.count)
	for i := 0; i < m.count; i++ {
		out[i] = m.events[(m.start+i)%m.capacity]
	}
	return out
}

// Len returns the number of retained events.
func (m *MemoryLogger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Reset discards all retained events.
func (m *MemoryLogger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start = 0
	m.count = 0
}

// Compile-time interface satisfaction check.
var _ Logger = (*MemoryLogger)(nil)
