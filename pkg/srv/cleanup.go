package srv

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandevgo/muse/pkg/log"
)

// cleanupService releases resources that have nothing to start, like an
// open database or a staging directory.
type cleanupService struct {
	name string
	fns  []func() error
}

func (c *cleanupService) Start(ctx context.Context) error {
	return nil
}

// Shutdown runs every cleanup in reverse order, even after a failure.
func (c *cleanupService) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s cleanup: %w", c.name, err)
	}
	log.FromCtx(ctx).Debug().Str("resource", c.name).Msg("released")
	return nil
}

func NewCleanup(name string, fns ...func() error) Service {
	return &cleanupService{name: name, fns: fns}
}
