package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fontkeep/fontkeep/internal/recovery"
)

func newDoctorCmd() *cobra.Command {
	var preview bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Repair operations interrupted by a crash",
		Long: `Scan the operation journal for entries that never completed and
reconcile them against the real filesystem and registration state.
With --preview, the repair plan is printed without changing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := newRecoveryEngine()

			reports, err := engine.Run(preview)
			if err != nil {
				return err
			}

			if len(reports) == 0 {
				fmt.Println("Journal is clean; nothing to repair.")
				return nil
			}

			needsRepair := 0
			for _, r := range reports {
				printReport(r, preview)
				if r.NeedsRepair {
					needsRepair++
				}
			}

			if needsRepair > 0 {
				return fmt.Errorf("%d entr(ies) need manual repair", needsRepair)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "Report what would be repaired without mutating anything")
	return cmd
}

func printReport(r recovery.Report, preview bool) {
	header := r.EntryID
	if r.Description != "" {
		header += " (" + r.Description + ")"
	}

	switch {
	case preview:
		fmt.Printf("Entry %s:\n", header)
	case r.Fixed:
		fmt.Printf("Entry %s: recovered\n", header)
	default:
		fmt.Printf("Entry %s: needs manual repair\n", header)
	}

	for _, step := range r.Steps {
		line := fmt.Sprintf("  step %d: %s [%s]", step.Step, step.Action, step.Status)
		if step.Detail != "" {
			line += " " + step.Detail
		}
		fmt.Println(line)
	}
}
