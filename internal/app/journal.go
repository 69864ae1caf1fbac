package app

import (
	"sync"
	"time"

	"github.com/SamMDev/Console-Banking-App/internal/domain"
)

// FailureEntry is one partially applied transfer awaiting reconciliation.
type FailureEntry struct {
	SenderID   int64
	ReceiverID int64
	Amount     domain.Money
	OccurredAt time.Time
	Reason     string
}

// FailureJournal collects partial failures so the reconciliation sweep can
// keep re-reporting them until an operator resolves the affected accounts.
type FailureJournal struct {
	mu      sync.Mutex
	entries []FailureEntry
}

func NewFailureJournal() *FailureJournal {
	return &FailureJournal{}
}

// Record appends an entry.
func (j *FailureJournal) Record(entry FailureEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

// Snapshot returns a copy of the unresolved entries.
func (j *FailureJournal) Snapshot() []FailureEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]FailureEntry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Resolve drops all recorded entries and returns how many were dropped.
// Called after an operator has repaired the affected balances.
func (j *FailureJournal) Resolve() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := len(j.entries)
	j.entries = nil
	return n
}
