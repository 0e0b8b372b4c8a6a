// Package bot implements the per-persona protocol session: the state
// machine over one transport connection, trigger evaluation, the
// reply pipeline, and the rate-limited send queue.
package bot

import (
	"sync"
	"time"
)

// ContextEntry is one observed message kept for prompt assembly.
type ContextEntry struct {
	Sender string
	Text   string
	At     time.Time
	// Self marks the bot's own sent messages.
	Self bool
}

// ConversationContext is a bounded FIFO of recent channel messages.
// The session appends on every observed message; reply generation
// reads snapshots. Capacity is fixed; the oldest entry is evicted
// first. Never persisted across restarts.
type ConversationContext struct {
	mu      sync.Mutex
	entries []ContextEntry
	cap     int
}

// NewConversationContext creates a context bounded to capacity
// entries. capacity <= 0 selects the default of 10.
func NewConversationContext(capacity int) *ConversationContext {
	if capacity <= 0 {
		capacity = 10
	}
	return &ConversationContext{
		entries: make([]ContextEntry, 0, capacity),
		cap:     capacity,
	}
}

// Add records a message, evicting the oldest entry when full.
func (c *ConversationContext) Add(entry ContextEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == c.cap {
		copy(c.entries, c.entries[1:])
		c.entries = c.entries[:c.cap-1]
	}
	c.entries = append(c.entries, entry)
}

// Snapshot returns the entries ordered oldest first. The returned
// slice is private to the caller.
func (c *ConversationContext) Snapshot() []ContextEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ContextEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Tail returns up to n of the most recent entries, oldest first.
func (c *ConversationContext) Tail(n int) []ContextEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > len(c.entries) {
		n = len(c.entries)
	}
	out := make([]ContextEntry, n)
	copy(out, c.entries[len(c.entries)-n:])
	return out
}

// Len returns the number of entries currently held.
func (c *ConversationContext) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
