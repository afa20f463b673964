package command

import (
	"context"
	"errors"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/memory"
)

type SummaryCommand struct {
	summarizer Summarizer
	persona    PersonaNamer
}

func NewSummaryCommand(s Summarizer, persona PersonaNamer) *SummaryCommand {
	return &SummaryCommand{summarizer: s, persona: persona}
}

func (c *SummaryCommand) Name() string {
	return "summary"
}

func (c *SummaryCommand) Description() string {
	return "Summarize the recent conversation"
}

func (c *SummaryCommand) Execute(ctx context.Context, call core.CommandCall) (string, error) {
	summary, err := c.summarizer.Summarize(ctx, call.ConversationID, c.persona.Name())
	if errors.Is(err, memory.ErrNothingToSummarize) {
		return "Nothing to summarize yet.", nil
	}
	if err != nil {
		return "", err
	}
	return summary, nil
}
