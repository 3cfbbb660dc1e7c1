package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/database"
	"github.com/roach88/strata/internal/schema"
)

// Environment variables supplying flag defaults.
const (
	EnvPath   = "STRATA_PATH"
	EnvSchema = "STRATA_SCHEMA"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Path    string // database file
	Schema  string // optional schema document (.yaml, .yml or .cue)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// LoadEnv loads .env-style files into the process environment. Missing
// files are skipped; variables already set are not overridden.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// NewRootCommand creates the root command for the strata CLI. Flag
// defaults are read from STRATA_PATH and STRATA_SCHEMA.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "strata",
		Short: "strata - schema-typed object database",
		Long:  "Inspect and maintain strata databases: describe the live schema, dump objects, look up by primary key and sweep test artifacts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	defaultPath := os.Getenv(EnvPath)
	if defaultPath == "" {
		defaultPath = database.DefaultPath
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Path, "path", defaultPath, "database file (env "+EnvPath+")")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", os.Getenv(EnvSchema), "schema document to open with (env "+EnvSchema+")")

	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewObjectsCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewCleanupCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openDatabase opens opts.Path, with the schema document when one is set.
func openDatabase(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter, readOnly bool) (*database.Database, error) {
	cfg := database.Config{
		Path:     opts.Path,
		ReadOnly: readOnly,
		Logger:   newLogger(opts, cmd),
	}
	if opts.Schema != "" {
		doc, err := schema.LoadFile(opts.Schema)
		if err != nil {
			_ = f.Error(ErrCodeSchema, err.Error(), nil)
			return nil, WrapExitError(ExitCommandError, "load schema", err)
		}
		cfg.Schema = doc.Classes
		cfg.SchemaVersion = doc.Version
		f.VerboseLog("Loaded %d class(es) from %s (version %d)", len(doc.Classes), opts.Schema, doc.Version)
	}
	if readOnly {
		if _, err := os.Stat(opts.Path); err != nil {
			_ = f.Error(ErrCodeGeneric, fmt.Sprintf("database not found: %s", opts.Path), nil)
			return nil, WrapExitError(ExitCommandError, "open database", err)
		}
	}
	d, err := database.Open(cfg)
	if err != nil {
		return nil, f.Fail("open database", err)
	}
	return d, nil
}
