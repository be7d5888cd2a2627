package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fontkeep/fontkeep/internal/ops"
)

func newCleanupCmd() *cobra.Command {
	var (
		system    bool
		pruneOnly bool
		cacheOnly bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune stale state and flush font caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pruneOnly && cacheOnly {
				return fmt.Errorf("--prune-only and --cache-only are mutually exclusive")
			}

			runner, _, _ := newRunner()

			result, err := runner.Cleanup(ops.CleanupOptions{
				Scope:     scopeFromFlag(system),
				PruneOnly: pruneOnly,
				CacheOnly: cacheOnly,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Pruned %d stale registration(s), %d old journal entr(ies)\n",
				result.PrunedRegistrations, result.PrunedJournalEntries)
			if result.CacheCleared {
				fmt.Println("Font caches flushed.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&system, "system", false, "Clean the system scope (requires elevation)")
	cmd.Flags().BoolVar(&pruneOnly, "prune-only", false, "Skip the cache flush")
	cmd.Flags().BoolVar(&cacheOnly, "cache-only", false, "Skip registry and journal pruning")
	return cmd
}
