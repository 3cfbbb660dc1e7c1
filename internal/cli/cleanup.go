package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/database"
	"github.com/roach88/strata/internal/lifetime"
)

// CleanupResult is the JSON payload of the cleanup command.
type CleanupResult struct {
	Dir string `json:"dir"`
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	var extension string
	cmd := &cobra.Command{
		Use:   "cleanup <dir>",
		Short: "Remove database files and their sidecars from a directory",
		Long: `Remove database files and their sidecars from a directory.

Only the top level of the directory is examined. For a database file
<name><ext>, removed: the file itself, <name><ext>.lock, .note and .log,
and the <name><ext>.management directory. Everything else, including an
unrelated Cargo.lock or server.log, is left alone.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(rootOpts, cmd, args[0], extension)
		},
	}
	cmd.Flags().StringVar(&extension, "extension", lifetime.DefaultExtension, "database file extension")
	return cmd
}

func runCleanup(opts *RootOptions, cmd *cobra.Command, dir, extension string) error {
	f := newFormatter(opts, cmd)
	tracker := lifetime.New[database.Database](
		lifetime.WithExtension(extension),
		lifetime.WithLogger(newLogger(opts, cmd)),
	)
	if err := tracker.Sweep(dir); err != nil {
		_ = f.Error(ErrCodeSweep, err.Error(), nil)
		return WrapExitError(ExitFailure, "cleanup", err)
	}
	if f.Format == "json" {
		return f.Success(CleanupResult{Dir: dir})
	}
	return f.Success("Swept " + dir)
}
