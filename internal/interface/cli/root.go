package cli

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fontkeep/fontkeep/internal/app"
	"github.com/fontkeep/fontkeep/internal/font"
	"github.com/fontkeep/fontkeep/internal/infra/config"
	"github.com/fontkeep/fontkeep/internal/journal"
	"github.com/fontkeep/fontkeep/internal/ops"
	"github.com/fontkeep/fontkeep/internal/recovery"
	"github.com/fontkeep/fontkeep/internal/validator"
)

// globalPaths and globalPolicy hold the resolved environment for all
// commands, loaded once in the root's persistent pre-run.
var (
	globalPaths  app.Paths
	globalPolicy *config.Policy
)

func NewRoot() *cobra.Command {
	var quiet, verbose bool

	cmd := &cobra.Command{
		Use:          "fontkeep",
		Short:        "Crash-safe font installation manager",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration before any command runs
			// Priority: policy.yaml > defaults
			globalPaths = app.ResolvePaths()

			policy, err := config.LoadPolicy(afero.NewOsFs(), globalPaths.Policy)
			if err != nil {
				return err
			}
			globalPolicy = policy

			level := policy.StderrLevel
			if verbose {
				level = "debug"
			}
			if quiet {
				level = "error"
			}
			InitGlobalLogger(level)

			Debug("state root: %s (policy source: %s)", globalPaths.Home, policy.Source)
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")

	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newUninstallCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// newRunner builds the operation runner for the resolved environment.
func newRunner() (*ops.Runner, *journal.Store, font.Manager) {
	fs := afero.NewOsFs()

	store := journal.NewStore(fs, globalPaths.Journal, globalPaths.JournalLock)
	manager := font.NewDirRegistry(fs, globalPaths.Home)
	supervisor := validator.NewSupervisor()

	return ops.NewRunner(fs, manager, store, supervisor, globalPolicy), store, manager
}

// newRecoveryEngine builds the recovery engine over the same state.
func newRecoveryEngine() *recovery.Engine {
	fs := afero.NewOsFs()

	store := journal.NewStore(fs, globalPaths.Journal, globalPaths.JournalLock)
	manager := font.NewDirRegistry(fs, globalPaths.Home)

	return recovery.NewEngine(fs, store, manager)
}

// scopeFromFlag maps the --system flag to a scope.
func scopeFromFlag(system bool) font.Scope {
	if system {
		return font.ScopeSystem
	}
	return font.ScopeUser
}
