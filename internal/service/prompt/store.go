package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sandevgo/muse/pkg/log"
	"gopkg.in/yaml.v3"
)

const reloadDebounce = 500 * time.Millisecond

// Store holds the current persona profile and keeps it in sync with its file.
type Store struct {
	path string

	mu      sync.RWMutex
	current Profile

	writeMu sync.Mutex
	watcher *fsnotify.Watcher
}

func NewStore(path string) *Store {
	return &Store{
		path:    path,
		current: Profile{}.WithDefaults(),
	}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Current() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Name is the current persona's name.
func (s *Store) Name() string {
	return s.Current().Name()
}

// Load reads the profile file. A missing file keeps the defaults; a broken one
// keeps whatever profile was loaded before.
func (s *Store) Load(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn().Str("path", s.path).Msg("persona profile not found, using defaults")
			return nil
		}
		return fmt.Errorf("failed to read persona profile: %w", err)
	}

	p, err := DecodeProfile(s.path, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = p
	s.mu.Unlock()

	logger.Info().Str("persona", string(p.Traits.Name)).Msg("persona profile loaded")
	return nil
}

// Merge applies patch keys onto the stored document, writes it back in its own
// format and reloads. Nested objects such as personality_traits are merged key by key.
func (s *Store) Merge(ctx context.Context, patch map[string]any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	doc := make(map[string]any)
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := s.unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode persona profile: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("failed to read persona profile: %w", err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}

	mergeInto(doc, patch)

	// Validate before touching the file
	out, err := s.marshal(doc)
	if err != nil {
		return fmt.Errorf("encode persona profile: %w", err)
	}
	if _, err := DecodeProfile(s.path, out); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create persona directory: %w", err)
	}
	if err := os.WriteFile(s.path, out, 0644); err != nil {
		return fmt.Errorf("failed to write persona profile: %w", err)
	}

	return s.Load(ctx)
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				mergeInto(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

func (s *Store) unmarshal(data []byte, v *map[string]any) error {
	if isYAML(s.path) {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func (s *Store) marshal(v map[string]any) ([]byte, error) {
	if isYAML(s.path) {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// Start watches the profile's directory and reloads on changes to the file.
func (s *Store) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create persona watcher: %w", err)
	}

	// Watching the directory survives editors that replace the file on save
	dir := filepath.Dir(s.path)
	filename := filepath.Base(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to create persona directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	logger.Info().Str("path", s.path).Msg("watching persona profile for changes")

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := s.Load(ctx); err != nil {
					logger.Error().Err(err).Msg("failed to reload persona profile")
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("persona watcher error")
		}
	}
}

func (s *Store) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
