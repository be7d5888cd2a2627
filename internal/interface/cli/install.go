package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fontkeep/fontkeep/internal/ops"
	"github.com/fontkeep/fontkeep/internal/validator"
)

func newInstallCmd() *cobra.Command {
	var (
		system     bool
		dryRun     bool
		noValidate bool
		strictness string
	)

	cmd := &cobra.Command{
		Use:   "install FILE...",
		Short: "Validate and install font files",
		Long: `Validate the given font files out-of-process, resolve conflicts with
already-installed fonts, and install them under a durable journal entry.
An interrupted install is repaired by "fontkeep doctor".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, _ := newRunner()

			result, err := runner.Install(cmd.Context(), args, ops.InstallOptions{
				Scope:      scopeFromFlag(system),
				DryRun:     dryRun,
				NoValidate: noValidate,
				Strictness: validator.Strictness(strictness),
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

			for _, conflict := range result.ResolvedConflicts {
				fmt.Printf("Replaced %s\n", conflict)
			}
			for _, face := range result.Installed {
				fmt.Printf("Installed %s (%s scope)\n", face, face.Scope)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&system, "system", false, "Install for all users (requires elevation)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without executing it")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip out-of-process validation")
	cmd.Flags().StringVar(&strictness, "strictness", "", "Validation limits: lenient, normal or paranoid")
	return cmd
}
