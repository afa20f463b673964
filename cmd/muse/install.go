package main

import (
	"github.com/joho/godotenv"
	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/service/installer"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/spf13/cobra"
)

var forceSetup bool

var setupCmd = &cobra.Command{
	Use:          "setup",
	Short:        "Interactively write the runtime .env",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting setup")

		runtimePath := config.GetRuntimePath()
		state, err := installer.RunWizard(runtimePath, forceSetup)
		if err != nil {
			return err
		}

		// Load the new .env so a follow-up command in this process sees it
		if err := godotenv.Load(state.EnvPath); err != nil {
			logger.Warn().Err(err).Str("path", state.EnvPath).Msg("failed to load .env file")
		}

		logger.Info().Msgf("initialized runtime directory at: %s", runtimePath)
		logger.Info().Msg("Setup complete! You can now run 'muse start'.")
		return nil
	},
}

func init() {
	setupCmd.Flags().BoolVarP(&forceSetup, "force", "f", false, "overwrite an existing .env")
	rootCmd.AddCommand(setupCmd)
}
