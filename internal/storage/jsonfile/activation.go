package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

// ActivationStore records conversations where the bot replies without a mention.
type ActivationStore struct {
	path string
	mu   sync.Mutex
}

func NewActivationStore(path string) *ActivationStore {
	return &ActivationStore{path: path}
}

// Init creates an empty activation file when none exists.
func (s *ActivationStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags := make(map[string]bool)
	found, err := readJSON(s.path, &flags)
	if err != nil && !errors.Is(err, core.ErrMalformedState) {
		return err
	}
	if found {
		return nil
	}

	log.FromCtx(ctx).Info().Str("path", s.path).Msg("activation file not found, creating default")
	return writeJSON(s.path, flags)
}

func (s *ActivationStore) read(ctx context.Context) (map[string]bool, bool) {
	flags := make(map[string]bool)
	if _, err := readJSON(s.path, &flags); err != nil {
		log.FromCtx(ctx).Error().Err(err).Str("path", s.path).Msg("failed to read activation file")
		return make(map[string]bool), errors.Is(err, core.ErrMalformedState)
	}
	if flags == nil {
		flags = make(map[string]bool)
	}
	return flags, false
}

func (s *ActivationStore) IsActive(ctx context.Context, conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, _ := s.read(ctx)
	return flags[conversationID]
}

func (s *ActivationStore) SetActive(ctx context.Context, conversationID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, corrupt := s.read(ctx)
	if active {
		flags[conversationID] = true
	} else {
		delete(flags, conversationID)
	}

	if corrupt {
		quarantine(ctx, s.path)
	}
	if err := writeJSON(s.path, flags); err != nil {
		return fmt.Errorf("failed to save activation: %w", err)
	}
	return nil
}

func (s *ActivationStore) All(ctx context.Context) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, _ := s.read(ctx)
	return flags
}
