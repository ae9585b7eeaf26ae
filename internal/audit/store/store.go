// Package store persists the hash-chained audit log.
//
// Two implementations share one contract: an in-memory store for tests and
// single-node deployments, and a postgres store for production. Both
// serialize appends with a compare-and-swap on the chain head so concurrent
// writers can never fork the chain.
package store

import (
	"context"
	"time"

	"healthgate/internal/audit/models"
	dErrors "healthgate/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "audit entry not found")
)

// Head is the chain's last committed position. An empty log reports
// Seq 0 and Hash models.ChainSeed.
type Head struct {
	Seq  int64
	Hash string
}

// Root marks the earliest verifiable entry. PrevHash is what the entry at
// Seq was chained against; retention pruning moves the root forward.
type Root struct {
	Seq      int64
	PrevHash string
}

// Store is the audit persistence contract. Append is the only operation that
// contends; everything else is a read or an admin-scoped prune.
type Store interface {
	// Head returns the current chain head.
	Head(ctx context.Context) (Head, error)

	// Append commits entry iff the head hash still equals expectedPrevHash
	// and entry.Seq is the next sequence number. A lost race returns a
	// chain_conflict error and commits nothing.
	Append(ctx context.Context, entry *models.Entry, expectedPrevHash string) error

	GetByID(ctx context.Context, id string) (*models.Entry, error)
	GetBySeq(ctx context.Context, seq int64) (*models.Entry, error)

	// Root returns the current chain-root marker.
	Root(ctx context.Context) (Root, error)

	// FindMany returns matching entries ordered by descending sequence.
	FindMany(ctx context.Context, filter models.Filter) ([]*models.Entry, error)

	// ListRange returns entries with Timestamp in [from, to) ordered by
	// ascending sequence. Zero bounds are open.
	ListRange(ctx context.Context, from, to time.Time) ([]*models.Entry, error)

	// Cleanup removes the contiguous oldest run of entries whose Timestamp
	// is before cutoff, stopping at the first survivor, and re-anchors the
	// root marker so the new earliest entry still verifies. The head is
	// never rewound.
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
}
