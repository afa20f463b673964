package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

type guildMemories = map[string][]core.MemoryRecord

// MemoryStore keeps every guild's memory records in one JSON file:
// an object mapping guild id to a list of records.
type MemoryStore struct {
	path string
	mu   sync.Mutex
}

func NewMemoryStore(path string) *MemoryStore {
	return &MemoryStore{path: path}
}

func (s *MemoryStore) Path() string {
	return s.path
}

// read loads the whole document. Corrupt content is logged and reported as empty
// together with corrupt=true so writers can move the file aside first.
func (s *MemoryStore) read(ctx context.Context) (data guildMemories, corrupt bool, err error) {
	data = make(guildMemories)
	if _, err := readJSON(s.path, &data); err != nil {
		if errors.Is(err, core.ErrMalformedState) {
			log.FromCtx(ctx).Error().Err(err).Str("path", s.path).Msg("memories file is malformed, treating as empty")
			return make(guildMemories), true, nil
		}
		return nil, false, err
	}
	if data == nil {
		data = make(guildMemories)
	}
	return data, false, nil
}

func (s *MemoryStore) Load(ctx context.Context, guildID string) ([]core.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return append([]core.MemoryRecord(nil), data[guildID]...), nil
}

func (s *MemoryStore) All(ctx context.Context) (map[string][]core.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _, err := s.read(ctx)
	return data, err
}

// Upsert replaces records by memory_id or appends new ones, then writes once.
// A record only replaces a stored one with an equal or older timestamp; the
// others are returned in a *core.StaleRecordsError after the write.
func (s *MemoryStore) Upsert(ctx context.Context, guildID string, records []core.MemoryRecord) error {
	logger := log.FromCtx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, corrupt, err := s.read(ctx)
	if err != nil {
		return err
	}

	list := data[guildID]
	changed := false
	var stale []string
	for _, rec := range records {
		if rec.MemoryID == "" {
			logger.Warn().Str("guild", guildID).Str("phrase", rec.SpecialPhrase).Msg("skipping memory without memory_id")
			continue
		}

		var ok bool
		list, ok = upsertRecord(list, rec)
		if !ok {
			logger.Warn().Str("guild", guildID).Str("memory_id", rec.MemoryID).Msg("stored memory is newer, skipping")
			stale = append(stale, rec.MemoryID)
		}
		changed = changed || ok
	}

	if !changed {
		return core.StaleOrNil(stale)
	}
	data[guildID] = list

	if corrupt {
		quarantine(ctx, s.path)
	}
	if err := writeJSON(s.path, data); err != nil {
		return fmt.Errorf("failed to save memories: %w", err)
	}

	logger.Debug().Str("guild", guildID).Int("count", len(list)).Msg("memories updated")
	return core.StaleOrNil(stale)
}

// Delete removes the listed ids from a guild. An emptied guild is dropped from the file.
func (s *MemoryStore) Delete(ctx context.Context, guildID string, memoryIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, corrupt, err := s.read(ctx)
	if err != nil {
		return err
	}
	if corrupt {
		return fmt.Errorf("%w: memories file", core.ErrMalformedState)
	}

	list, ok := data[guildID]
	if !ok {
		return core.ErrGuildNotFound
	}

	remaining := removeRecords(list, memoryIDs)
	if len(remaining) == len(list) {
		return nil
	}

	if len(remaining) == 0 {
		delete(data, guildID)
	} else {
		data[guildID] = remaining
	}

	if err := writeJSON(s.path, data); err != nil {
		return fmt.Errorf("failed to save memories: %w", err)
	}

	log.FromCtx(ctx).Debug().Str("guild", guildID).Int("count", len(remaining)).Msg("memories deleted")
	return nil
}

func upsertRecord(list []core.MemoryRecord, rec core.MemoryRecord) ([]core.MemoryRecord, bool) {
	for i := range list {
		if list[i].MemoryID != rec.MemoryID {
			continue
		}
		if rec.Timestamp < list[i].Timestamp {
			return list, false
		}
		list[i] = rec
		return list, true
	}
	return append(list, rec), true
}

func removeRecords(list []core.MemoryRecord, ids []string) []core.MemoryRecord {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	remaining := make([]core.MemoryRecord, 0, len(list))
	for _, rec := range list {
		if _, ok := drop[rec.MemoryID]; !ok {
			remaining = append(remaining, rec)
		}
	}
	return remaining
}
