package command

import (
	"context"

	"github.com/sandevgo/muse/internal/core"
)

// Forgetter retracts a single message from a conversation's context.
type Forgetter interface {
	Forget(convID, messageID string) bool
}

type Summarizer interface {
	Summarize(ctx context.Context, convID, persona string) (string, error)
}

// PersonaNamer reports the name of the persona currently speaking.
type PersonaNamer interface {
	Name() string
}

type Deps struct {
	Forgetter  Forgetter
	Activation core.ActivationStore
	Summarizer Summarizer
	Persona    PersonaNamer
	Memories   core.MemoryStore
}

func NewCommands(deps Deps) []core.Command {
	return []core.Command{
		NewForgetCommand(deps.Forgetter),
		NewActivationCommand(deps.Activation, true),
		NewActivationCommand(deps.Activation, false),
		NewSummaryCommand(deps.Summarizer, deps.Persona),
		NewMemoriesCommand(deps.Memories),
	}
}
