package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fontkeep/fontkeep/internal/ops"
)

func newListCmd() *cobra.Command {
	var (
		system   bool
		asJSON   bool
		pathOnly bool
		nameOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed fonts",
		Long: `List fonts registered through fontkeep, deduplicated and in a stable
order. With --system, font files found on the host's standard font
paths are included as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, _ := newRunner()

			faces, err := runner.List(ops.ListOptions{IncludeSystem: system})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(faces)
			}

			for _, f := range faces {
				switch {
				case pathOnly:
					fmt.Println(f.Path)
				case nameOnly:
					fmt.Println(f.PostScriptName)
				default:
					fmt.Printf("%-40s %-12s %s\n", f.String(), f.Scope, f.Path)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&system, "system", false, "Include fonts found on the host's font paths")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	cmd.Flags().BoolVar(&pathOnly, "path", false, "Print file paths only")
	cmd.Flags().BoolVar(&nameOnly, "name", false, "Print PostScript names only")
	return cmd
}
