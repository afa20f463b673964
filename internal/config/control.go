package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/muse/pkg/log"
)

type ControlConfig struct {
	Enabled bool   `env:"CONTROL_ENABLED" envDefault:"true"`
	Addr    string `env:"CONTROL_ADDR" envDefault:"127.0.0.1:8787"`
	Token   string `env:"CONTROL_TOKEN" secret:"true"`
}

func NewControlConfig(ctx context.Context) *ControlConfig {
	c := &ControlConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Control config")
	}
	return c
}
