package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/transport/mcp"
	"github.com/sandevgo/muse/pkg/log"
	"github.com/spf13/cobra"
)

// version is stamped by the release build.
var version = "dev"

var mcpCmd = &cobra.Command{
	Use:          "mcp",
	Short:        "Serve memory tools to an MCP client over stdio",
	Long:         `Exposes memory_list, memory_upsert and memory_delete over stdin/stdout. Logs go to stderr.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// stdout belongs to the protocol
		var flushLog func()
		ctx, flushLog = log.NewContextWithLoggerTo(ctx, debug || config.IsDebug(), os.Stderr)
		defer flushLog()

		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			return err
		}

		store, closer, err := initMemoryStore(ctx, config.NewAppConfig(ctx))
		if err != nil {
			return err
		}
		if closer != nil {
			defer closer.Shutdown(ctx)
		}

		return mcp.New(store, version).Serve(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
