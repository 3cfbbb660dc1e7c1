package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/schema"
)

// SchemaResult is the JSON payload of the schema command.
type SchemaResult struct {
	Path    string                   `json:"path"`
	Version uint64                   `json:"version"`
	Classes []schema.RawObjectSchema `json:"classes"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Describe the live schema of a database",
		Long: `Describe the live schema of a database.

With --schema, the document is reconciled with the stored schema first:
new classes are created and new properties added when the document's
version is higher than the stored one. Without it the database is opened
read-only and the stored schema is shown.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}
	return cmd
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	d, err := openDatabase(opts, cmd, f, opts.Schema == "")
	if err != nil {
		return err
	}
	defer d.Close()

	live, err := d.Schema()
	if err != nil {
		return f.Fail("read schema", err)
	}
	version, err := d.SchemaVersion()
	if err != nil {
		return f.Fail("read schema version", err)
	}

	if f.Format == "json" {
		return f.Success(SchemaResult{Path: d.Path(), Version: version, Classes: schema.ToRaw(live)})
	}
	fmt.Fprintf(f.Writer, "version %d\n\n", version)
	return schema.Describe(f.Writer, live)
}
