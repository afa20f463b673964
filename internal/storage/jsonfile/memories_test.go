package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sandevgo/muse/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(filepath.Join(t.TempDir(), "data", "muse-memories.json"))
}

func TestMemoryStore_LoadMissingFile(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	recs, err := s.Load(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemoryStore_UpsertReplacesByID(t *testing.T) {
	t.Parallel()
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
	assert.Equal(t, "updated", recs[0].Memory)
	assert.EqualValues(t, 9, recs[0].Timestamp)
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	batch := []core.MemoryRecord{
		{MemoryID: "a", SpecialPhrase: "pa", Memory: "ma", Timestamp: 1},
		{MemoryID: "b", SpecialPhrase: "pb", Memory: "mb", Timestamp: 2},
	}

	require.NoError(t, s.Upsert(ctx, "g1", batch))
	first, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, "g1", batch))
	second, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestMemoryStore_UpsertKeepsNewerTimestamp(t *testing.T) {
	t.Parallel()
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

func TestMemoryStore_UpsertSkipsRecordsWithoutID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, "g1", []core.MemoryRecord{
		{SpecialPhrase: "orphan", Memory: "x"},
		{MemoryID: "ok", SpecialPhrase: "p", Memory: "y"},
	}))

	recs, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ok", recs[0].MemoryID)
}

func TestMemoryStore_DeleteExactIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, "g1", []core.MemoryRecord{
		{MemoryID: "a"}, {MemoryID: "b"}, {MemoryID: "c"},
	}))
	require.NoError(t, s.Delete(ctx, "g1", []string{"a", "c", "missing"}))

	recs, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].MemoryID)
}

func TestMemoryStore_DeleteLastRemovesGuild(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Upsert(ctx, "g1", []core.MemoryRecord{{MemoryID: "a"}}))
	require.NoError(t, s.Upsert(ctx, "g2", []core.MemoryRecord{{MemoryID: "z"}}))
	require.NoError(t, s.Delete(ctx, "g1", []string{"a"}))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.NotContains(t, doc, "g1")
	assert.Contains(t, doc, "g2")
}

func TestMemoryStore_DeleteUnknownGuild(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	err := s.Delete(context.Background(), "nope", []string{"a"})
	assert.ErrorIs(t, err, core.ErrGuildNotFound)
}

func TestMemoryStore_MalformedFileIsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"g1": [`), 0644))

	recs, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, recs)

	assert.ErrorIs(t, s.Delete(ctx, "g1", []string{"a"}), core.ErrMalformedState)

	require.NoError(t, s.Upsert(ctx, "g1", []core.MemoryRecord{{MemoryID: "a", Memory: "fresh"}}))
	recs, err = s.Load(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	backups, err := filepath.Glob(s.Path() + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestMemoryStore_ConcurrentUpserts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			assert.NoError(t, s.Upsert(ctx, "g1", []core.MemoryRecord{{MemoryID: id, Timestamp: int64(i)}}))
		}(i)
	}
	wg.Wait()

	recs, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, recs, 20)
}
