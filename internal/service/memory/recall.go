package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

// Recall is a guild's memories folded into phrase -> memory. When several
// records share a phrase the one with the latest timestamp wins.
type Recall struct {
	phrases []string
	memory  map[string]string
}

func (r Recall) Phrases() []string {
	return r.phrases
}

func (r Recall) Empty() bool {
	return len(r.phrases) == 0
}

// Lookup finds the memory for phrase, falling back to a case-insensitive match.
func (r Recall) Lookup(phrase string) (string, bool) {
	if m, ok := r.memory[phrase]; ok {
		return m, true
	}
	want := strings.ToLower(strings.TrimSpace(phrase))
	for _, p := range r.phrases {
		if strings.ToLower(strings.TrimSpace(p)) == want {
			return r.memory[p], true
		}
	}
	return "", false
}

// FetchSorted loads the guild's records ordered by timestamp and folds them.
// Load failures are logged and yield an empty recall.
func FetchSorted(ctx context.Context, store core.MemoryStore, guildID string) Recall {
	records, err := store.Load(ctx, guildID)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("guild", guildID).Msg("failed to load memories")
		return Recall{}
	}
	return fold(records)
}

func fold(records []core.MemoryRecord) Recall {
	sorted := append([]core.MemoryRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	r := Recall{memory: make(map[string]string, len(sorted))}
	for _, rec := range sorted {
		if _, seen := r.memory[rec.SpecialPhrase]; !seen {
			r.phrases = append(r.phrases, rec.SpecialPhrase)
		}
		r.memory[rec.SpecialPhrase] = rec.Memory
	}
	return r
}
