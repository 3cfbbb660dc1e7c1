package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/value"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <class> <primary-key>",
		Short: "Print the object with a primary key",
		Long: `Print the object of a class with the given primary key.

The key is parsed according to the primary key's type: a decimal integer,
a 24-digit hex ObjectId, a UUID, or a plain string. A miss exits with
status 1.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, cmd, args[0], args[1])
		},
	}
	return cmd
}

func runGet(opts *RootOptions, cmd *cobra.Command, class, arg string) error {
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
	var key value.Value = value.String(arg)
	if cls, ok := live.Find(class); ok {
		if pk, ok := cls.PrimaryKeyProperty(); ok {
			if key, err = parseKey(pk, arg); err != nil {
				_ = f.Error(ErrCodeBadRequest, err.Error(), nil)
				return WrapExitError(ExitCommandError, "parse primary key", err)
			}
		}
	}

	obj, err := d.ObjectForPrimaryKey(class, key)
	if err != nil {
		return f.Fail("get "+class, err)
	}
	fields, line, err := formatObject(obj)
	if err != nil {
		return f.Fail("read "+class, err)
	}
	if f.Format == "json" {
		return f.Success(fields)
	}
	fmt.Fprintln(f.Writer, line)
	return nil
}

func parseKey(pk schema.Property, s string) (value.Value, error) {
	switch pk.Type {
	case schema.TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("primary key %s is an int: %w", pk.Name, err)
		}
		return value.Int(n), nil
	case schema.TypeObjectID:
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, fmt.Errorf("primary key %s is an objectId: %w", pk.Name, err)
		}
		return value.ObjectID(id), nil
	case schema.TypeUUID:
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("primary key %s is a uuid: %w", pk.Name, err)
		}
		return value.UUID(id), nil
	default:
		return value.String(s), nil
	}
}
