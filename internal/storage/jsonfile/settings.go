package jsonfile

import (
	"context"
	"fmt"
	"sync"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

// SettingsStore keeps the runtime reply flags in one JSON object.
type SettingsStore struct {
	path string
	mu   sync.Mutex
}

func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// Load reports found=false when nothing was saved yet.
func (s *SettingsStore) Load(ctx context.Context) (core.Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out core.Settings
	found, err := readJSON(s.path, &out)
	if err != nil {
		return core.Settings{}, false, err
	}
	return out, found, nil
}

func (s *SettingsStore) Save(ctx context.Context, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(s.path, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	log.FromCtx(ctx).Debug().Str("path", s.path).Msg("settings saved")
	return nil
}
