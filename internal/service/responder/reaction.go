package responder

import (
	"context"
	"fmt"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

// MuteEmoji retracts the message it is put on from the conversation context.
const MuteEmoji = "🔇"

// Reacted handles an emoji a user put on a message. The mute emoji forgets
// the message; any other emoji on one of the bot's own replies is added to
// the context as a turn, so the next reply can take it into account.
func (o *Orchestrator) Reacted(ctx context.Context, convID, messageID, user, emoji string) bool {
	logger := log.FromCtx(ctx)

	if emoji == MuteEmoji {
		ok := o.Forget(convID, messageID)
		if ok {
			logger.Debug().Msg("message muted by reaction")
		}
		return ok
	}

	target, ok := o.findTurn(convID, messageID)
	if !ok || target.Author != o.deps.Persona.Current().Name() {
		return false
	}

	o.deps.Window.Append(convID, core.Turn{
		Author:     user,
		Text:       fmt.Sprintf("reacted with '%s' to your message '%s'", emoji, target.Text),
		SequenceID: "reaction:" + messageID + ":" + user,
	})
	logger.Debug().Str("emoji", emoji).Msg("reaction added to context")
	return true
}

func (o *Orchestrator) findTurn(convID, seqID string) (core.Turn, bool) {
	for _, t := range o.deps.Window.Turns(convID) {
		if t.SequenceID == seqID {
			return t, true
		}
	}
	return core.Turn{}, false
}
