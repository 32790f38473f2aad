package logqueue

import (
	"sync"
	"time"
)

// Entry is one user-facing notice. Displayed is flipped once the single UI
// consumer has rendered the entry.
type Entry struct {
	Message   string
	Displayed bool
	At        time.Time
}

// maxEntries bounds queue growth over long sessions. Oldest entries are
// dropped first once the cap is reached.
const maxEntries = 1000

// Queue is an append-only notice queue shared between the connector and the
// UI refresh loop. It assumes exactly one display consumer; multi-consumer
// display would need per-consumer offsets instead of the shared flag.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Append(message string) {
	q.mu.Lock()
	q.entries = append(q.entries, Entry{Message: message, At: time.Now().UTC()})
	if len(q.entries) > maxEntries {
		overflow := len(q.entries) - maxEntries
		trimmed := make([]Entry, maxEntries)
		copy(trimmed, q.entries[overflow:])
		q.entries = trimmed
	}
	q.mu.Unlock()
}

// Undisplayed returns every entry not yet rendered and marks them displayed.
func (q *Queue) Undisplayed() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var pending []Entry
	for i := range q.entries {
		if q.entries[i].Displayed {
			continue
		}

		q.entries[i].Displayed = true
		pending = append(pending, q.entries[i])
	}

	return pending
}

// Snapshot returns a copy of the full queue without touching display flags.
func (q *Queue) Snapshot() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]Entry, len(q.entries))
	copy(snapshot, q.entries)

	return snapshot
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.entries)
}
