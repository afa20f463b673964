package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/muse/internal/config"
	menv "github.com/sandevgo/muse/pkg/env"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/spf13/cobra"
)

var showSecrets bool

var configCmd = &cobra.Command{
	Use:          "config",
	Short:        "Print the effective configuration as .env",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()
		logger := log.FromCtx(ctx)

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}

		groups := []struct {
			name string
			cfg  any
		}{
			{"App", &config.AppConfig{}},
			{"Gemini", &config.GeminiConfig{}},
			{"ElevenLabs", &config.ElevenLabsConfig{}},
			{"Telegram", &config.TelegramConfig{}},
			{"Control", &config.ControlConfig{}},
		}

		for _, g := range groups {
			// Missing required values are reported but the rest still prints
			if err := env.Parse(g.cfg); err != nil {
				logger.Warn().Err(err).Str("group", g.name).Msg("incomplete configuration")
			}
			out, err := menv.MarshalEnv(g.cfg, !showSecrets)
			if err != nil {
				return fmt.Errorf("failed to render %s config: %w", g.name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s\n", g.name, out)
		}
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print secret values instead of masking them")
	rootCmd.AddCommand(configCmd)
}
