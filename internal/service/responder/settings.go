package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/pkg/log"
)

// Apply overlays saved runtime settings on the configured defaults.
func (c Config) Apply(s core.Settings) Config {
	c.VoiceMessages = s.VoiceMessages
	c.VoiceChance = s.VoiceChance
	c.VoiceMessageConvo = s.VoiceMessageConvo
	c.TextFrequency = s.TextFrequency
	c.KeywordChance = s.KeywordChance
	c.Keywords = slices.Clone(s.Keywords)
	return c
}

func (c Config) settings() core.Settings {
	return core.Settings{
		VoiceMessages:     c.VoiceMessages,
		VoiceChance:       c.VoiceChance,
		VoiceMessageConvo: c.VoiceMessageConvo,
		TextFrequency:     c.TextFrequency,
		KeywordChance:     c.KeywordChance,
		Keywords:          slices.Clone(c.Keywords),
	}
}

func (o *Orchestrator) Settings() core.Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := o.settings
	s.Keywords = slices.Clone(s.Keywords)
	return s
}

// UpdateSettings merges a JSON object of setting keys into the live settings
// and saves the result. Unknown keys and out of range values reject the whole
// patch with core.ErrInvalidSettings.
func (o *Orchestrator) UpdateSettings(ctx context.Context, patch json.RawMessage) (core.Settings, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := o.settings
	next.Keywords = slices.Clone(next.Keywords)

	dec := json.NewDecoder(bytes.NewReader(patch))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		return o.settings, fmt.Errorf("%w: %v", core.ErrInvalidSettings, err)
	}
	if err := validateSettings(next); err != nil {
		return o.settings, err
	}

	if o.deps.Settings != nil {
		if err := o.deps.Settings.Save(ctx, next); err != nil {
			return o.settings, err
		}
	}
	o.settings = next

	log.FromCtx(ctx).Info().
		Bool("voice_messages", next.VoiceMessages).
		Float64("voice_chance", next.VoiceChance).
		Float64("text_frequency", next.TextFrequency).
		Msg("runtime settings updated")
	return next, nil
}

func validateSettings(s core.Settings) error {
	switch {
	case s.VoiceChance < 0 || s.VoiceChance > 1:
		return fmt.Errorf("%w: voice_chance must be within 0..1", core.ErrInvalidSettings)
	case s.TextFrequency < 0 || s.TextFrequency > 100:
		return fmt.Errorf("%w: freewill_text_frequency must be within 0..100", core.ErrInvalidSettings)
	case s.KeywordChance < 0 || s.KeywordChance > 100:
		return fmt.Errorf("%w: freewill_keyword_chance must be within 0..100", core.ErrInvalidSettings)
	}
	return nil
}
