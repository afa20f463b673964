package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/memory"
)

type MemoriesCommand struct {
	store     core.MemoryStore
	formatter *ResponseFormatter
}

func NewMemoriesCommand(store core.MemoryStore) *MemoriesCommand {
	return &MemoriesCommand{store: store, formatter: NewResponseFormatter()}
}

func (c *MemoriesCommand) Name() string {
	return "memories"
}

func (c *MemoriesCommand) Description() string {
	return "List the trigger phrases remembered for this chat"
}

func (c *MemoriesCommand) Execute(ctx context.Context, call core.CommandCall) (string, error) {
	recall := memory.FetchSorted(ctx, c.store, call.GuildID)
	if recall.Empty() {
		return "No memories for this chat.", nil
	}
	return c.formatter.Combine(
		c.formatter.Info(fmt.Sprintf("Memories (%d)", len(recall.Phrases()))),
		c.formatter.List(recall.Phrases()),
	), nil
}
