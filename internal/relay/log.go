package relay

import "sync"

// Log is the ordered, append-only record of every accepted message. Entries
// are stored verbatim as text.
type Log struct {
	mu      sync.RWMutex
	entries []string
}

// NewLog returns a log seeded with previously persisted entries. The slice is
// copied; the caller keeps ownership of initial.
func NewLog(initial []string) *Log {
	entries := make([]string, len(initial))
	copy(entries, initial)
	return &Log{entries: entries}
}

// Append adds entry at the end of the log and returns its position.
func (l *Log) Append(entry string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return len(l.entries) - 1
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of the entries in log order. It never returns nil.
func (l *Log) Snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}
