package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sandevgo/muse/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *MemoryStore {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "muse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMemoryStore(db)
}

func TestMemoryStore_LoadEmpty(t *testing.T) {
	s := newStore(t)

	recs, err := s.Load(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemoryStore_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, "g1", []core.MemoryRecord{
		{MemoryID: "id1", SpecialPhrase: "p", Memory: "original", Timestamp: 5},
	}))
	require.NoError(t, s.Upsert(ctx, "g1", []core.MemoryRecord{
		{MemoryID: "id1", SpecialPhrase: "p", Memory: "updated", Timestamp: 9},
	}))

	recs, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, core.MemoryRecord{MemoryID: "id1", SpecialPhrase: "p", Memory: "updated", Timestamp: 9}, recs[0])
}

func TestMemoryStore_UpsertKeepsNewerTimestamp(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, "g1", []core.MemoryRecord{{MemoryID: "id1", Memory: "new", Timestamp: 10}}))

	err := s.Upsert(ctx, "g1", []core.MemoryRecord{
		{MemoryID: "id1", Memory: "stale", Timestamp: 3},
		{MemoryID: "id2", Memory: "fresh", Timestamp: 4},
	})
	require.ErrorIs(t, err, core.ErrStaleRecord)
	var stale *core.StaleRecordsError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, []string{"id1"}, stale.MemoryIDs)

	recs, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "new", recs[0].Memory)
	assert.Equal(t, "fresh", recs[1].Memory)
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	batch := []core.MemoryRecord{
		{MemoryID: "a", SpecialPhrase: "pa", Memory: "ma", Timestamp: 1},
		{MemoryID: "b", SpecialPhrase: "pb", Memory: "mb", Timestamp: 2},
		{SpecialPhrase: "no id"},
	}

	require.NoError(t, s.Upsert(ctx, "g1", batch))
	require.NoError(t, s.Upsert(ctx, "g1", batch))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]core.MemoryRecord{"g1": batch[:2]}, all)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, "g1", []core.MemoryRecord{{MemoryID: "a"}, {MemoryID: "b"}}))
	require.NoError(t, s.Upsert(ctx, "g2", []core.MemoryRecord{{MemoryID: "a"}}))

	require.NoError(t, s.Delete(ctx, "g1", []string{"a"}))
	recs, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].MemoryID)

	require.NoError(t, s.Delete(ctx, "g1", []string{"b"}))
	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.NotContains(t, all, "g1")
	assert.Len(t, all["g2"], 1)

	assert.ErrorIs(t, s.Delete(ctx, "g1", []string{"b"}), core.ErrGuildNotFound)
}
