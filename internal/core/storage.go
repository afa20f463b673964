package core

import "context"

// MemoryStore persists memory records grouped by guild.
type MemoryStore interface {
	Load(ctx context.Context, guildID string) ([]MemoryRecord, error)
	// Upsert saves records keyed by memory_id. Records older than the stored
	// copy are skipped and reported as a *StaleRecordsError.
	Upsert(ctx context.Context, guildID string, records []MemoryRecord) error
	Delete(ctx context.Context, guildID string, memoryIDs []string) error
	All(ctx context.Context) (map[string][]MemoryRecord, error)
}

// ActivationStore tracks conversations where the bot answers without being mentioned.
type ActivationStore interface {
	IsActive(ctx context.Context, conversationID string) bool
	SetActive(ctx context.Context, conversationID string, active bool) error
}

// SettingsStore keeps the last runtime settings across restarts.
type SettingsStore interface {
	Load(ctx context.Context) (Settings, bool, error)
	Save(ctx context.Context, s Settings) error
}
