package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/classmap"
	"github.com/roach88/strata/internal/value"
)

// ObjectsResult is the JSON payload of the objects command.
type ObjectsResult struct {
	Class   string              `json:"class"`
	Count   int                 `json:"count"`
	Objects []map[string]string `json:"objects"`
}

// NewObjectsCommand creates the objects command.
func NewObjectsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "objects <class>",
		Short: "Dump the objects of a class",
		Long: `Dump the objects of a class in storage order.

Scalar and link properties are printed; list, set and dictionary
properties are skipped. Embedded and asymmetric classes cannot be listed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObjects(rootOpts, cmd, args[0], limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most n objects (0 for all)")
	return cmd
}

func runObjects(opts *RootOptions, cmd *cobra.Command, class string, limit int) error {
	f := newFormatter(opts, cmd)
	d, err := openDatabase(opts, cmd, f, opts.Schema == "")
	if err != nil {
		return err
	}
	defer d.Close()

	results, err := d.Objects(class)
	if err != nil {
		return f.Fail("list "+class, err)
	}
	total, err := results.Len()
	if err != nil {
		return f.Fail("list "+class, err)
	}
	f.VerboseLog("%s has %d object(s)", class, total)

	out := ObjectsResult{Class: class, Count: total, Objects: []map[string]string{}}
	var lines []string
	for obj, err := range results.All() {
		if err != nil {
			return f.Fail("read "+class, err)
		}
		if limit > 0 && len(out.Objects) == limit {
			break
		}
		fields, line, err := formatObject(obj)
		if err != nil {
			return f.Fail("read "+class, err)
		}
		lines = append(lines, fmt.Sprintf("[%d] %s", len(out.Objects), line))
		out.Objects = append(out.Objects, fields)
	}

	if f.Format == "json" {
		return f.Success(out)
	}
	fmt.Fprintf(f.Writer, "%s: %d object(s)\n", class, total)
	for _, line := range lines {
		fmt.Fprintln(f.Writer, line)
	}
	return nil
}

// formatObject renders the non-collection properties of obj in schema order.
func formatObject(obj *classmap.Object) (map[string]string, string, error) {
	values, err := obj.ToMap()
	if err != nil {
		return nil, "", err
	}
	fields := make(map[string]string, len(values))
	var parts []string
	for _, name := range obj.Keys() {
		v, ok := values[name]
		if !ok {
			continue
		}
		s := value.Format(v)
		fields[name] = s
		parts = append(parts, name+"="+s)
	}
	return fields, strings.Join(parts, " "), nil
}
