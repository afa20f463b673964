package command

import (
	"context"
	"errors"

	"github.com/sandevgo/muse/internal/core"
)

type ForgetCommand struct {
	forgetter Forgetter
	formatter *ResponseFormatter
}

func NewForgetCommand(f Forgetter) *ForgetCommand {
	return &ForgetCommand{forgetter: f, formatter: NewResponseFormatter()}
}

func (c *ForgetCommand) Name() string {
	return "forget"
}

func (c *ForgetCommand) Description() string {
	return "Reply to a message to drop it from the conversation context"
}

func (c *ForgetCommand) Execute(ctx context.Context, call core.CommandCall) (string, error) {
	if call.ReplyToID == "" {
		return c.formatter.Usage("reply to a message with /forget"), nil
	}
	if !c.forgetter.Forget(call.ConversationID, call.ReplyToID) {
		return "", errors.New("that message is not in my context anymore")
	}
	return c.formatter.Success("Forgotten."), nil
}
