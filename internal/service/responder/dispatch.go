package responder

import (
	"context"
	"fmt"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/service/attachment"
	"github.com/sandevgo/muse/pkg/log"
)

// dispatch picks the branch for the event's first attachment and returns the
// reply text. voiceNote reports whether the user spoke a voice note.
func (o *Orchestrator) dispatch(ctx context.Context, ev core.Event, system string) (text string, voiceNote bool) {
	if len(ev.Attachments) == 0 {
		return o.generate(ctx, ev.ConversationID, system, nil), false
	}

	first := ev.Attachments[0]
	kind := attachment.Classify(first.Name())

	switch kind {
	case attachment.KindMedia, attachment.KindAudio:
		return o.withMedia(ctx, ev, system, kind, first), false
	case attachment.KindVoiceNote:
		return o.withVoiceNote(ctx, ev, system, first), true
	default:
		log.FromCtx(ctx).Debug().Str("name", first.Name()).Msg("unsupported attachment ignored")
		return o.generate(ctx, ev.ConversationID, system, nil), false
	}
}

func (o *Orchestrator) withMedia(ctx context.Context, ev core.Event, system string, kind attachment.Kind, a core.Attachment) string {
	h, cleanup := o.prepare(ctx, ev.MessageID, kind, a)
	defer cleanup()

	return o.generate(ctx, ev.ConversationID, system, h)
}

func (o *Orchestrator) withVoiceNote(ctx context.Context, ev core.Event, system string, a core.Attachment) string {
	logger := log.FromCtx(ctx)

	h, cleanup := o.prepare(ctx, ev.MessageID, attachment.KindVoiceNote, a)
	defer cleanup()

	// The empty placeholder turn only makes sense once a transcript replaces it
	if h == nil {
		o.deps.Window.Remove(ev.ConversationID, ev.MessageID)
		o.deps.Metrics.Degraded("voice_note")
		return o.degradedText(fmt.Errorf("voice note unavailable"))
	}

	transcript, err := o.deps.Transcriber.Transcribe(ctx, h)
	if err != nil || transcript == "" {
		logger.Error().Err(err).Msg("failed to transcribe voice note")
		o.deps.Metrics.Degraded("transcription")
		if err == nil {
			err = fmt.Errorf("empty transcript")
		}
		o.deps.Window.Remove(ev.ConversationID, ev.MessageID)
		return o.degradedText(err)
	}

	o.deps.Window.Remove(ev.ConversationID, ev.MessageID)
	o.deps.Window.Append(ev.ConversationID, core.Turn{
		Author:     ev.AuthorName,
		Text:       transcript,
		SequenceID: ev.MessageID,
	})
	logger.Debug().Int("chars", len(transcript)).Msg("voice note transcribed")

	return o.generate(ctx, ev.ConversationID, system, nil)
}

// prepare stages and uploads an attachment. The returned cleanup releases
// the remote handle and removes the staged file; it is safe to call always.
func (o *Orchestrator) prepare(ctx context.Context, messageID string, kind attachment.Kind, a core.Attachment) (*core.FileHandle, func()) {
	logger := log.FromCtx(ctx)

	path, err := o.deps.Attachments.Stage(ctx, messageID, a)
	if err != nil {
		logger.Error().Err(err).Msg("failed to stage attachment")
		o.deps.Metrics.Attachment(kind.String(), "stage_failed")
		return nil, func() {}
	}

	h, err := o.deps.Attachments.Prepare(ctx, path)
	if err != nil {
		logger.Warn().Err(err).Str("kind", kind.String()).Msg("attachment not usable, answering without it")
		o.deps.Metrics.Attachment(kind.String(), "unusable")
	} else {
		o.deps.Metrics.Attachment(kind.String(), "ready")
	}

	return h, func() {
		o.deps.Attachments.Release(ctx, h)
		o.deps.Attachments.Discard(ctx, path)
	}
}
