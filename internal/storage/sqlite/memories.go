package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

type MemoryStore struct {
	db *sql.DB
}

func NewMemoryStore(db *sql.DB) *MemoryStore {
	return &MemoryStore{db: db}
}

func (s *MemoryStore) Load(ctx context.Context, guildID string) ([]core.MemoryRecord, error) {
	query := `SELECT memory_id, special_phrase, memory, timestamp FROM memories WHERE guild_id = ? ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(ctx, rows, nil)
	if err != nil {
		return nil, err
	}
	return records[""], nil
}

func (s *MemoryStore) All(ctx context.Context) (map[string][]core.MemoryRecord, error) {
	query := `SELECT guild_id, memory_id, special_phrase, memory, timestamp FROM memories ORDER BY guild_id, rowid`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	return scanRecords(ctx, rows, new(string))
}

// scanRecords reads rows into a guild map. When guild is nil the rows carry
// no guild column and land under the empty key.
func scanRecords(ctx context.Context, rows *sql.Rows, guild *string) (map[string][]core.MemoryRecord, error) {
	logger := log.FromCtx(ctx)
	out := make(map[string][]core.MemoryRecord)

	for rows.Next() {
		var rec core.MemoryRecord
		var phrase, memory sql.NullString
		var ts sql.NullInt64

		dest := []any{&rec.MemoryID, &phrase, &memory, &ts}
		if guild != nil {
			dest = append([]any{guild}, dest...)
		}

		// Rows that don't fit the record shape are skipped, not fatal
		if err := rows.Scan(dest...); err != nil {
			logger.Error().Err(err).Msg("failed to scan memory row, skipping")
			continue
		}

		rec.SpecialPhrase = phrase.String
		rec.Memory = memory.String
		rec.Timestamp = ts.Int64

		key := ""
		if guild != nil {
			key = *guild
		}
		out[key] = append(out[key], rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert writes the whole batch in one transaction. Stored rows with a newer
// timestamp win over the incoming record and are reported after the commit.
func (s *MemoryStore) Upsert(ctx context.Context, guildID string, records []core.MemoryRecord) error {
	logger := log.FromCtx(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO memories (guild_id, memory_id, special_phrase, memory, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (guild_id, memory_id) DO UPDATE SET
			special_phrase = excluded.special_phrase,
			memory = excluded.memory,
			timestamp = excluded.timestamp
		WHERE excluded.timestamp >= memories.timestamp`

	var stale []string
	for _, rec := range records {
		if rec.MemoryID == "" {
			logger.Warn().Str("guild", guildID).Str("phrase", rec.SpecialPhrase).Msg("skipping memory without memory_id")
			continue
		}
		res, err := tx.ExecContext(ctx, query, guildID, rec.MemoryID, rec.SpecialPhrase, rec.Memory, rec.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to upsert memory %s: %w", rec.MemoryID, err)
		}
		// The conflict clause leaves no changed row when the stored one is newer
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			logger.Warn().Str("guild", guildID).Str("memory_id", rec.MemoryID).Msg("stored memory is newer, skipping")
			stale = append(stale, rec.MemoryID)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return core.StaleOrNil(stale)
}

func (s *MemoryStore) Delete(ctx context.Context, guildID string, memoryIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE guild_id = ?`, guildID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to count memories: %w", err)
	}
	if exists == 0 {
		return core.ErrGuildNotFound
	}

	if len(memoryIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(memoryIDs)), ",")
	args := make([]any, 0, len(memoryIDs)+1)
	args = append(args, guildID)
	for _, id := range memoryIDs {
		args = append(args, id)
	}

	query := `DELETE FROM memories WHERE guild_id = ? AND memory_id IN (` + placeholders + `)`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete memories: %w", err)
	}

	return tx.Commit()
}
