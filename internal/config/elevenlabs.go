package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/muse/pkg/log"
)

type ElevenLabsConfig struct {
	APIKey  string `env:"ELEVENLABS_API_KEY" secret:"true"`
	VoiceID string `env:"ELEVENLABS_VOICE_ID"`
	Model   string `env:"ELEVENLABS_MODEL" envDefault:"eleven_multilingual_v2"`
	BaseURL string `env:"ELEVENLABS_BASE_URL" envDefault:"https://api.elevenlabs.io"`
}

func NewElevenLabsConfig(ctx context.Context) *ElevenLabsConfig {
	c := &ElevenLabsConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse ElevenLabs config")
	}
	return c
}

func (c ElevenLabsConfig) IsConfigured() bool {
	return c.APIKey != "" && c.VoiceID != ""
}
