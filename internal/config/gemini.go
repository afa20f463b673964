package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/muse/pkg/log"
)

type GeminiConfig struct {
	APIKey  string `env:"GEMINI_API_KEY,required,notEmpty" secret:"true"`
	Model   string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	BaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`

	Temperature float64 `env:"GEMINI_TEMPERATURE" envDefault:"1"`
	TopP        float64 `env:"GEMINI_TOP_P" envDefault:"0.95"`
	TopK        int     `env:"GEMINI_TOP_K" envDefault:"64"`

	// Safety thresholds, e.g. BLOCK_NONE, BLOCK_ONLY_HIGH, BLOCK_MEDIUM_AND_ABOVE
	HateSpeech       string `env:"GEMINI_SAFETY_HATE_SPEECH" envDefault:"BLOCK_NONE"`
	Harassment       string `env:"GEMINI_SAFETY_HARASSMENT" envDefault:"BLOCK_NONE"`
	SexuallyExplicit string `env:"GEMINI_SAFETY_SEXUALLY_EXPLICIT" envDefault:"BLOCK_NONE"`
	DangerousContent string `env:"GEMINI_SAFETY_DANGEROUS_CONTENT" envDefault:"BLOCK_NONE"`
}

func NewGeminiConfig(ctx context.Context) *GeminiConfig {
	c := &GeminiConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Gemini config")
	}
	return c
}
