package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandevgo/muse/internal/core"
)

var ErrOwnerOnly = errors.New("only the owner can do that")

// ActivationCommand toggles whether the bot answers every message in a
// conversation or only when addressed.
type ActivationCommand struct {
	store     core.ActivationStore
	activate  bool
	formatter *ResponseFormatter
}

func NewActivationCommand(store core.ActivationStore, activate bool) *ActivationCommand {
	return &ActivationCommand{store: store, activate: activate, formatter: NewResponseFormatter()}
}

func (c *ActivationCommand) Name() string {
	if c.activate {
		return "activate"
	}
	return "deactivate"
}

func (c *ActivationCommand) Description() string {
	if c.activate {
		return "Answer every message in this chat"
	}
	return "Answer only when mentioned"
}

func (c *ActivationCommand) Execute(ctx context.Context, call core.CommandCall) (string, error) {
	if !call.IsOwner {
		return "", ErrOwnerOnly
	}
	if err := c.store.SetActive(ctx, call.ConversationID, c.activate); err != nil {
		return "", fmt.Errorf("failed to %s: %w", c.Name(), err)
	}
	if c.activate {
		return c.formatter.Success("Activated in this chat."), nil
	}
	return c.formatter.Success("Deactivated in this chat."), nil
}
