package logging

import "sync"

// DefaultBufferSize is the number of entries the TUI log panel keeps.
const DefaultBufferSize = 200

// LogBuffer holds recent log entries in a ring buffer.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	start   int
	count   int
}

// NewLogBuffer creates a buffer holding at most size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &LogBuffer{entries: make([]LogEntry, size)}
}

// Add appends an entry, overwriting the oldest when full.
func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := len(b.entries)
	b.entries[(b.start+b.count)%size] = entry
	if b.count < size {
		b.count++
	} else {
		b.start = (b.start + 1) % size
	}
}

// Last returns up to n of the most recent entries, oldest first.
// A negative n returns everything.
func (b *LogBuffer) Last(n int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n < 0 || n > b.count {
		n = b.count
	}

	out := make([]LogEntry, n)
	skip := b.count - n
	for i := range out {
		out[i] = b.entries[(b.start+skip+i)%len(b.entries)]
	}
	return out
}

// AtLeast returns the buffered entries at or above level, oldest first.
func (b *LogBuffer) AtLeast(level Level) []LogEntry {
	var out []LogEntry
	for _, e := range b.Last(-1) {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of buffered entries.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}
