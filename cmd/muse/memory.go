package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "List, add or delete guild memories",
}

var memoryListCmd = &cobra.Command{
	Use:          "list [guild]",
	Short:        "List memories, optionally for one guild",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: withMemoryStore(func(ctx context.Context, cmd *cobra.Command, store core.MemoryStore, args []string) error {
		all, err := store.All(ctx)
		if err != nil {
			return err
		}

		guilds := make([]string, 0, len(all))
		for g := range all {
			if len(args) == 0 || args[0] == g {
				guilds = append(guilds, g)
			}
		}
		sort.Strings(guilds)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "GUILD\tID\tPHRASE\tMEMORY\tTIMESTAMP")
		for _, g := range guilds {
			for _, r := range all[g] {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", g, r.MemoryID, r.SpecialPhrase, r.Memory, r.Timestamp)
			}
		}
		return w.Flush()
	}),
}

var memoryAddCmd = &cobra.Command{
	Use:          "add <guild> <phrase> <memory...>",
	Short:        "Add a memory with a generated id",
	Args:         cobra.MinimumNArgs(3),
	SilenceUsage: true,
	RunE: withMemoryStore(func(ctx context.Context, cmd *cobra.Command, store core.MemoryStore, args []string) error {
		rec := core.MemoryRecord{
			MemoryID:      uuid.NewString(),
			SpecialPhrase: args[1],
			Memory:        strings.Join(args[2:], " "),
			Timestamp:     time.Now().Unix(),
		}
		if err := store.Upsert(ctx, args[0], []core.MemoryRecord{rec}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rec.MemoryID)
		return nil
	}),
}

var memoryDeleteCmd = &cobra.Command{
	Use:          "delete <guild> <id...>",
	Short:        "Delete memories by id",
	Args:         cobra.MinimumNArgs(2),
	SilenceUsage: true,
	RunE: withMemoryStore(func(ctx context.Context, cmd *cobra.Command, store core.MemoryStore, args []string) error {
		return store.Delete(ctx, args[0], args[1:])
	}),
}

type memoryRunFunc func(ctx context.Context, cmd *cobra.Command, store core.MemoryStore, args []string) error

// withMemoryStore opens the configured backend around fn.
func withMemoryStore(fn memoryRunFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
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
		return fn(ctx, cmd, store, args)
	}
}

func init() {
	memoryCmd.AddCommand(memoryListCmd, memoryAddCmd, memoryDeleteCmd)
	rootCmd.AddCommand(memoryCmd)
}
