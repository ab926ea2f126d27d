// Package history keeps the append-only log of completed queries.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"hashrecipe/internal/locale"
	"hashrecipe/internal/retrieval"
)

// Entry is one completed query. Entries are immutable once appended.
type Entry struct {
	ID          string              `json:"id"`
	Timestamp   time.Time           `json:"timestamp"`
	Query       string              `json:"query"`
	Mode        retrieval.Mode      `json:"mode"`
	Algorithm   retrieval.Algorithm `json:"algorithm"`
	ResultCount int                 `json:"result_count"`
	// Locale is the display locale at creation. The exported timestamp is
	// formatted in it.
	Locale locale.Locale `json:"locale,omitempty"`
}

// Fields are the caller-supplied parts of an Entry.
type Fields struct {
	Query       string
	Mode        retrieval.Mode
	Algorithm   retrieval.Algorithm
	ResultCount int
	Locale      locale.Locale
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger is newest-first and append-only. Safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry // newest first
	now     func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stamps f with a fresh time-ordered id and the current time and
// inserts it at the front of the log.
func (l *Ledger) Append(f Fields) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Timestamp:   l.now(),
		Query:       f.Query,
		Mode:        f.Mode,
		Algorithm:   f.Algorithm,
		ResultCount: f.ResultCount,
		Locale:      f.Locale,
	}
	l.entries = append([]Entry{e}, l.entries...)
	return e
}

// Entries returns a copy of the log, newest first.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
