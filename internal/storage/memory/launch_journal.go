package memory

import (
	"context"
	"sync"

	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/storage"
)

// DefaultJournalCapacity bounds the in-memory journal.
const DefaultJournalCapacity = 10_000

// LaunchJournal keeps the most recent launch records in a ring buffer.
type LaunchJournal struct {
	mu   sync.RWMutex
	buf  []*domain.LaunchRecord
	next int
	full bool
}

// NewLaunchJournal creates a journal holding up to capacity rows.
func NewLaunchJournal(capacity int) *LaunchJournal {
	if capacity <= 0 {
		capacity = DefaultJournalCapacity
	}
	return &LaunchJournal{buf: make([]*domain.LaunchRecord, capacity)}
}

// Record appends r, evicting the oldest row when full.
func (j *LaunchJournal) Record(_ context.Context, r *domain.LaunchRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	copy := *r
	j.mu.Lock()
	j.buf[j.next] = &copy
	j.next = (j.next + 1) % len(j.buf)
	if j.next == 0 {
		j.full = true
	}
	j.mu.Unlock()
	return nil
}

// Recent returns up to limit rows, newest first. limit <= 0 returns all.
func (j *LaunchJournal) Recent(_ context.Context, limit int) ([]*domain.LaunchRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	size := j.next
	if j.full {
		size = len(j.buf)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	result := make([]*domain.LaunchRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.next - i + len(j.buf)) % len(j.buf)
		copy := *j.buf[idx]
		result = append(result, &copy)
	}
	return result, nil
}

var _ storage.LaunchJournal = (*LaunchJournal)(nil)
