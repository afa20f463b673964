package attachment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/sandevgo/muse/pkg/retry"
)

var (
	ErrAttachmentFailed  = errors.New("attachment processing failed")
	ErrAttachmentUnready = errors.New("attachment not ready in time")
	ErrUnknownState      = errors.New("attachment in unknown state")
)

const releaseTimeout = 30 * time.Second

type Config struct {
	StagingDir       string
	PollAttempts     int
	PollInitialDelay time.Duration
	PollMaxDelay     time.Duration
}

type Pipeline struct {
	files core.FileService
	cfg   Config
}

func NewPipeline(files core.FileService, cfg Config) *Pipeline {
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 10
	}
	if cfg.PollInitialDelay <= 0 {
		cfg.PollInitialDelay = 2 * time.Second
	}
	if cfg.PollMaxDelay < cfg.PollInitialDelay {
		cfg.PollMaxDelay = cfg.PollInitialDelay
	}
	return &Pipeline{files: files, cfg: cfg}
}

// Stage saves the attachment locally as "<messageID> <name>".
func (p *Pipeline) Stage(ctx context.Context, messageID string, a core.Attachment) (string, error) {
	if err := os.MkdirAll(p.cfg.StagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}

	name := filepath.Base(a.Name())
	path := filepath.Join(p.cfg.StagingDir, fmt.Sprintf("%s %s", sanitize(messageID), name))
	if err := a.Save(ctx, path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save attachment %s: %w", name, err)
	}

	log.FromCtx(ctx).Debug().Str("path", path).Msg("attachment staged")
	return path, nil
}

// Discard removes a staged file. Missing files are fine.
func (p *Pipeline) Discard(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.FromCtx(ctx).Warn().Err(err).Str("path", path).Msg("failed to remove staged attachment")
	}
}

// Prepare uploads path and waits until the file service reports it ACTIVE.
// Polling is bounded with exponential backoff. On any failure the handle is
// released and nil is returned.
func (p *Pipeline) Prepare(ctx context.Context, path string) (*core.FileHandle, error) {
	logger := log.FromCtx(ctx).With().Str("path", filepath.Base(path)).Logger()

	h, err := p.files.Upload(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	retrier := retry.NewRetrier(retry.NewPollConfig(p.cfg.PollAttempts, p.cfg.PollInitialDelay, p.cfg.PollMaxDelay))
	current := h
	attempt := 0

	err = retrier.Do(ctx, func() error {
		attempt++
		if attempt > 1 {
			next, err := p.files.Get(ctx, h.Name)
			if err != nil {
				logger.Warn().Err(err).Int("attempt", attempt).Msg("failed to poll attachment state")
				return err
			}
			current = next
		}

		switch current.State {
		case core.FileStateActive:
			return nil
		case core.FileStateProcessing:
			logger.Debug().Int("attempt", attempt).Msg("attachment still processing")
			return ErrAttachmentUnready
		case core.FileStateFailed:
			return retry.Permanent(ErrAttachmentFailed)
		default:
			logger.Error().Str("state", string(current.State)).Msg("attachment reported an unknown state")
			return retry.Permanent(fmt.Errorf("%w: %s", ErrUnknownState, current.State))
		}
	})

	if err != nil {
		p.Release(ctx, h)
		switch {
		case errors.Is(err, ErrAttachmentFailed), errors.Is(err, ErrUnknownState):
			return nil, err
		case errors.Is(err, ErrAttachmentUnready):
			logger.Warn().Int("attempts", attempt).Msg("attachment did not become ready")
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrAttachmentUnready, err)
		}
	}

	logger.Debug().Int("attempts", attempt).Msg("attachment ready")
	return current, nil
}

// Release deletes the remote file. It runs even when ctx is already cancelled.
func (p *Pipeline) Release(ctx context.Context, h *core.FileHandle) {
	if h == nil || h.Name == "" {
		return
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := p.files.Delete(rctx, h.Name); err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("file", h.Name).Msg("failed to release attachment")
		return
	}
	log.FromCtx(ctx).Debug().Str("file", h.Name).Msg("attachment released")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, s)
}
