package store

import (
	"context"
	"sync"
	"time"

	"healthgate/internal/audit/models"
	dErrors "healthgate/pkg/domain-errors"
)

const (
	defaultFindLimit = 50
	maxFindLimit     = 500
)

// InMemoryStore keeps the chain in process memory. Entries are ordered by
// sequence; a single mutex covers both the entry list and the head pointer
// so the CAS check and the commit are one critical section.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*models.Entry
	byID    map[string]*models.Entry
	head    Head
	root    Root
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID: make(map[string]*models.Entry),
		head: Head{Seq: 0, Hash: models.ChainSeed},
		root: Root{Seq: 1, PrevHash: models.ChainSeed},
	}
}

func (s *InMemoryStore) Head(_ context.Context) (Head, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head, nil
}

func (s *InMemoryStore) Append(_ context.Context, entry *models.Entry, expectedPrevHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.head.Hash != expectedPrevHash || entry.Seq != s.head.Seq+1 {
		return dErrors.New(dErrors.CodeChainConflict, "chain head moved during append")
	}

	s.entries = append(s.entries, entry)
	s.byID[entry.ID] = entry
	s.head = Head{Seq: entry.Seq, Hash: entry.IntegrityHash}
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *InMemoryStore) GetBySeq(_ context.Context, seq int64) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry := s.bySeqLocked(seq)
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

// bySeqLocked relies on entries being a contiguous run starting at root.Seq.
func (s *InMemoryStore) bySeqLocked(seq int64) *models.Entry {
	if len(s.entries) == 0 {
		return nil
	}
	first := s.entries[0].Seq
	idx := seq - first
	if idx < 0 || idx >= int64(len(s.entries)) {
		return nil
	}
	return s.entries[idx]
}

func (s *InMemoryStore) Root(_ context.Context) (Root, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root, nil
}

func (s *InMemoryStore) FindMany(_ context.Context, filter models.Filter) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultFindLimit
	}
	if limit > maxFindLimit {
		limit = maxFindLimit
	}

	matched := make([]*models.Entry, 0, limit)
	skipped := 0
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if !matchesFilter(entry, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		matched = append(matched, entry)
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

func matchesFilter(entry *models.Entry, filter models.Filter) bool {
	if filter.ActorID != "" && entry.ActorID != filter.ActorID {
		return false
	}
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	return inRange(entry.Timestamp, filter.From, filter.To)
}

func inRange(ts, from, to time.Time) bool {
	if !from.IsZero() && ts.Before(from) {
		return false
	}
	if !to.IsZero() && !ts.Before(to) {
		return false
	}
	return true
}

func (s *InMemoryStore) ListRange(_ context.Context, from, to time.Time) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if inRange(entry.Timestamp, from, to) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Cleanup(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Prune only the contiguous oldest run; an out-of-order old timestamp
	// behind a survivor stays, keeping the remaining chain contiguous.
	keep := 0
	for keep < len(s.entries) && s.entries[keep].Timestamp.Before(cutoff) {
		keep++
	}
	if keep == 0 {
		return 0, nil
	}

	removed := s.entries[:keep]
	for _, entry := range removed {
		delete(s.byID, entry.ID)
	}
	s.entries = append([]*models.Entry(nil), s.entries[keep:]...)

	// Re-anchor: the new earliest entry was chained against the last
	// removed entry's hash. A fully cleared log anchors the next append.
	lastRemoved := removed[len(removed)-1]
	s.root = Root{Seq: lastRemoved.Seq + 1, PrevHash: lastRemoved.IntegrityHash}

	return int64(len(removed)), nil
}

var _ Store = (*InMemoryStore)(nil)
