package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthgate/internal/audit/models"
	dErrors "healthgate/pkg/domain-errors"
)

// appendNext commits one entry through the real CAS path.
func appendNext(t *testing.T, s *InMemoryStore, action models.Action, actor string, ts time.Time) *models.Entry {
	t.Helper()
	ctx := context.Background()

	head, err := s.Head(ctx)
	require.NoError(t, err)

	entry := &models.Entry{
		ID:          actor + "-" + ts.Format(time.RFC3339Nano),
		Seq:         head.Seq + 1,
		Timestamp:   ts,
		Action:      action,
		ActorID:     actor,
		SourceIP:    "203.0.113.9",
		UserAgent:   "test-agent",
		RequestPath: "/records",
		Method:      "GET",
	}
	entry.IntegrityHash = models.ComputeHash(head.Hash, entry)

	require.NoError(t, s.Append(ctx, entry, head.Hash))
	return entry
}

func TestAppendAdvancesHead(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	head, err := s.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), head.Seq)
	assert.Equal(t, models.ChainSeed, head.Hash)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	first := appendNext(t, s, models.ActionLoginSuccess, "patient-1", base)
	second := appendNext(t, s, models.ActionRecordView, "patient-1", base.Add(time.Minute))

	head, err = s.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), head.Seq)
	assert.Equal(t, second.IntegrityHash, head.Hash)

	got, err := s.GetBySeq(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = s.GetBySeq(ctx, 3)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestAppendStaleHeadConflicts(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	appendNext(t, s, models.ActionLoginSuccess, "patient-1", base)

	// Chained against the seed even though the head has moved.
	stale := &models.Entry{ID: "stale", Seq: 1, Timestamp: base, Action: models.ActionLogout}
	stale.IntegrityHash = models.ComputeHash(models.ChainSeed, stale)

	err := s.Append(ctx, stale, models.ChainSeed)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeChainConflict))

	head, err := s.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), head.Seq)
}

func TestConcurrentAppendsNeverFork(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	const writers = 32

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Optimistic append loop: recompute against the fresh head on
			// every conflict, as the service does.
			for {
				head, err := s.Head(ctx)
				if !assert.NoError(t, err) {
					return
				}

				entry := &models.Entry{
					ID:        uuid.New().String(),
					Seq:       head.Seq + 1,
					Timestamp: time.Now(),
					Action:    models.ActionRecordView,
					ActorID:   "patient-7",
				}
				entry.IntegrityHash = models.ComputeHash(head.Hash, entry)

				err = s.Append(ctx, entry, head.Hash)
				if err == nil {
					return
				}
				if !assert.True(t, dErrors.HasCode(err, dErrors.CodeChainConflict)) {
					return
				}
			}
		}()
	}
	wg.Wait()

	head, err := s.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), head.Seq)

	// Every committed hash must be distinct and the chain must replay.
	prevHash := models.ChainSeed
	seen := make(map[string]bool)
	for seq := int64(1); seq <= writers; seq++ {
		entry, err := s.GetBySeq(ctx, seq)
		require.NoError(t, err)
		assert.Equal(t, models.ComputeHash(prevHash, entry), entry.IntegrityHash)
		assert.False(t, seen[entry.IntegrityHash])
		seen[entry.IntegrityHash] = true
		prevHash = entry.IntegrityHash
	}
}

func TestFindManyFiltersAndPaginates(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		appendNext(t, s, models.ActionRecordView, "patient-1", base.Add(time.Duration(i)*time.Hour))
	}
	appendNext(t, s, models.ActionLoginFailure, "patient-2", base.Add(6*time.Hour))

	byActor, err := s.FindMany(ctx, models.Filter{ActorID: "patient-2"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, models.ActionLoginFailure, byActor[0].Action)

	// Descending by sequence, offset skips the newest.
	page, err := s.FindMany(ctx, models.Filter{ActorID: "patient-1", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Greater(t, page[0].Seq, page[1].Seq)
	assert.Equal(t, int64(4), page[0].Seq)

	windowed, err := s.FindMany(ctx, models.Filter{
		From: base.Add(2 * time.Hour),
		To:   base.Add(4 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, windowed, 2)
}

func TestCleanupReanchorsRoot(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	var entries []*models.Entry
	for i := 0; i < 6; i++ {
		entries = append(entries, appendNext(t, s, models.ActionRecordView, "patient-1", base.Add(time.Duration(i)*24*time.Hour)))
	}

	removed, err := s.Cleanup(ctx, base.Add(3*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	root, err := s.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), root.Seq)
	assert.Equal(t, entries[2].IntegrityHash, root.PrevHash)

	// The new earliest entry still verifies against the root marker.
	oldest, err := s.GetBySeq(ctx, root.Seq)
	require.NoError(t, err)
	assert.Equal(t, models.ComputeHash(root.PrevHash, oldest), oldest.IntegrityHash)

	_, err = s.GetBySeq(ctx, 3)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCleanupSparesOutOfOrderTimestampsBehindSurvivors(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	appendNext(t, s, models.ActionRecordView, "patient-1", base)
	appendNext(t, s, models.ActionRecordView, "patient-1", base.Add(48*time.Hour))
	// Caller clock skew: older timestamp after a newer one.
	appendNext(t, s, models.ActionRecordView, "patient-1", base.Add(time.Hour))

	removed, err := s.Cleanup(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	// Only the contiguous oldest run goes; the skewed entry survives.
	_, err = s.GetBySeq(ctx, 3)
	assert.NoError(t, err)
}

func TestCleanupAllLeavesAppendableRoot(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	appendNext(t, s, models.ActionLoginSuccess, "patient-1", base)
	last := appendNext(t, s, models.ActionLogout, "patient-1", base.Add(time.Hour))

	removed, err := s.Cleanup(ctx, base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	root, err := s.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), root.Seq)
	assert.Equal(t, last.IntegrityHash, root.PrevHash)

	// Head survives the prune so the next append keeps chaining.
	next := appendNext(t, s, models.ActionLoginSuccess, "patient-1", base.Add(72*time.Hour))
	assert.Equal(t, int64(3), next.Seq)
	assert.Equal(t, models.ComputeHash(root.PrevHash, next), next.IntegrityHash)
}

func TestCleanupNothingToRemove(t *testing.T) {
	s := NewInMemoryStore()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	appendNext(t, s, models.ActionLoginSuccess, "patient-1", base)

	removed, err := s.Cleanup(context.Background(), base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	root, err := s.Root(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), root.Seq)
	assert.Equal(t, models.ChainSeed, root.PrevHash)
}
