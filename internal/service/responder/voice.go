package responder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

// voiceReply speaks text as an Opus voice note. ok is false on any failure,
// in which case the caller falls back to text.
func (o *Orchestrator) voiceReply(ctx context.Context, messageID, text string) (core.Reply, bool) {
	logger := log.FromCtx(ctx)

	note, err := o.synthesize(ctx, messageID, text)
	if err != nil {
		logger.Warn().Err(err).Msg("voice reply failed, sending text")
		o.deps.Metrics.Degraded("voice_synthesis")
		return nil, false
	}

	logger.Debug().Int("duration", note.Duration).Msg("voice reply ready")
	return core.VoiceReply{Text: text, Note: note}, true
}

func (o *Orchestrator) synthesize(ctx context.Context, messageID, text string) (core.VoiceNote, error) {
	audio, err := o.deps.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		return core.VoiceNote{}, fmt.Errorf("synthesize: %w", err)
	}

	if err := os.MkdirAll(o.cfg.StagingDir, 0755); err != nil {
		return core.VoiceNote{}, fmt.Errorf("create staging dir: %w", err)
	}

	base := filepath.Join(o.cfg.StagingDir, "reply-"+filepath.Base(messageID))
	mp3 := base + ".mp3"
	ogg := base + ".ogg"

	if err := os.WriteFile(mp3, audio, 0644); err != nil {
		return core.VoiceNote{}, fmt.Errorf("write speech: %w", err)
	}
	defer os.Remove(mp3)

	if err := o.deps.Audio.ConvertToOpus(ctx, mp3, ogg); err != nil {
		os.Remove(ogg)
		return core.VoiceNote{}, err
	}

	duration, waveform, err := o.deps.Audio.Metadata(ctx, ogg)
	if err != nil {
		os.Remove(ogg)
		return core.VoiceNote{}, err
	}

	return core.VoiceNote{Path: ogg, Duration: duration, Waveform: waveform}, nil
}
