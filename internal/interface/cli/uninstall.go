package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fontkeep/fontkeep/internal/ops"
)

func newUninstallCmd() *cobra.Command {
	var (
		system     bool
		deleteFile bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall FONT",
		Short: "Unregister an installed font",
		Long: `Unregister a font identified by path, PostScript name or full name.
Only the requested scope is touched; a font also present at the other
scope stays installed there.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, _ := newRunner()

			result, err := runner.Uninstall(args[0], ops.UninstallOptions{
				Scope:      scopeFromFlag(system),
				DeleteFile: deleteFile,
				DryRun:     dryRun,
			})
			if err != nil {
				return err
			}

			if result.DryRun {
				fmt.Println("Dry run; planned actions:")
				for i, action := range result.Plan {
					fmt.Printf("  %d. %s\n", i+1, action.Describe())
				}
				return nil
			}

			fmt.Printf("Uninstalled %s\n", result.Target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&system, "system", false, "Uninstall from the system scope (requires elevation)")
	cmd.Flags().BoolVar(&deleteFile, "delete-file", false, "Also delete the font file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without executing it")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	var (
		system bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "remove FONT",
		Short: "Unregister a font and delete its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, _ := newRunner()

			result, err := runner.Remove(args[0], ops.UninstallOptions{
				Scope:  scopeFromFlag(system),
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}

			if result.DryRun {
				fmt.Println("Dry run; planned actions:")
				for i, action := range result.Plan {
					fmt.Printf("  %d. %s\n", i+1, action.Describe())
				}
				return nil
			}

			fmt.Printf("Removed %s\n", result.Target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&system, "system", false, "Remove from the system scope (requires elevation)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without executing it")
	return cmd
}
