// Package database is the object lifecycle layer: it opens a schema-typed
// database and creates, finds, lists and deletes managed objects inside
// write transactions.
//
// Every operation checks that the handle is open. Mutations are valid only
// inside a write transaction; the storage engine enforces this and the
// failure is surfaced as a StateError. Single mutations are never wrapped
// in an implicit transaction.
//
// A Database is not safe for concurrent use, except for Retain and Release.
package database

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/strata/internal/classmap"
	"github.com/roach88/strata/internal/collection"
	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/dberr/nativeerr"
	"github.com/roach88/strata/internal/lifetime"
	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/value"
)

// DefaultPath is the file opened when Config names neither a path nor an
// in-memory database.
const DefaultPath = "default.strata"

// Config configures Open.
type Config struct {
	Path     string
	InMemory bool
	ReadOnly bool

	// Schema is normalized before opening. Empty opens with the stored
	// schema.
	Schema        []schema.RawObjectSchema
	SchemaVersion uint64

	// Logger receives lifecycle diagnostics. Default discards.
	Logger *slog.Logger

	// Tracker, if set, has the opened handle registered with it.
	Tracker *lifetime.Tracker[Database]
}

// Database is an open database handle.
type Database struct {
	native  *native.DB
	classes *classmap.ClassMap
	logger  *slog.Logger

	mu   sync.Mutex
	refs int
}

// Open normalizes cfg.Schema, opens the database and binds its classes.
func Open(cfg Config) (*Database, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	path := cfg.Path
	if path == "" && !cfg.InMemory {
		path = DefaultPath
	}

	var configured schema.Schema
	if len(cfg.Schema) > 0 {
		s, err := schema.Normalize(cfg.Schema)
		if err != nil {
			return nil, err
		}
		configured = s
	}

	db, err := native.Open(native.Options{
		Path:          path,
		InMemory:      cfg.InMemory,
		ReadOnly:      cfg.ReadOnly,
		Schema:        configured,
		SchemaVersion: cfg.SchemaVersion,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	classes, err := classmap.Build(db, db.Schema())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bind classes: %w", err)
	}

	d := &Database{native: db, classes: classes, logger: logger, refs: 1}
	if cfg.Tracker != nil {
		cfg.Tracker.Register(d)
	}
	logger.Info("database opened",
		"path", db.Path(),
		"classes", len(classes.Names()),
		"schema_version", db.SchemaVersion(),
	)
	return d, nil
}

// Retain adds a reference to the handle. Each Retain is balanced by one
// Release.
func (d *Database) Retain() *Database {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refs++
	return d
}

// Release drops a reference. The handle closes when the last reference is
// released. Releasing an already closed handle is a no-op.
func (d *Database) Release() error {
	d.mu.Lock()
	if d.refs == 0 {
		d.mu.Unlock()
		return nil
	}
	d.refs--
	last := d.refs == 0
	d.mu.Unlock()
	if !last {
		return nil
	}
	return d.close()
}

// Close closes the handle regardless of outstanding references. Any open
// transaction is rolled back. Closing twice is a no-op.
func (d *Database) Close() error {
	d.mu.Lock()
	d.refs = 0
	d.mu.Unlock()
	return d.close()
}

func (d *Database) close() error {
	if d.native.IsClosed() {
		return nil
	}
	d.classes.Invalidate()
	if err := d.native.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	d.logger.Info("database closed", "path", d.native.Path())
	return nil
}

// IsClosed reports whether the handle has been closed.
func (d *Database) IsClosed() bool { return d.native.IsClosed() }

// Path returns the database file, or "" for an in-memory database.
func (d *Database) Path() string { return d.native.Path() }

// Schema returns the live canonical schema: the configured classes followed
// by any classes only present in storage.
func (d *Database) Schema() (schema.Schema, error) {
	if err := d.check("schema"); err != nil {
		return nil, err
	}
	return d.native.Schema(), nil
}

// SchemaVersion returns the stored schema version.
func (d *Database) SchemaVersion() (uint64, error) {
	if err := d.check("schema version"); err != nil {
		return 0, err
	}
	return d.native.SchemaVersion(), nil
}

// Classes returns the class map bound to this handle.
func (d *Database) Classes() *classmap.ClassMap { return d.classes }

func (d *Database) check(op string) error {
	if d.native.IsClosed() {
		return dberr.NewClosedError(op)
	}
	return nil
}

func (d *Database) helpers(op string, class any) (*classmap.Entry, error) {
	if err := d.check(op); err != nil {
		return nil, err
	}
	return d.classes.Helpers(class)
}

// Create creates an object of class from values. Every value is converted
// before the row is created, so a failed create leaves nothing behind.
// Absent, undefined and null values of required properties keep the
// storage default. A duplicate primary key fails with the storage engine's
// KEY_ALREADY_USED error.
func (d *Database) Create(class any, values map[string]value.Value) (*classmap.Object, error) {
	e, err := d.helpers("create", class)
	if err != nil {
		return nil, err
	}
	op := "create " + e.Name()
	if e.Schema.Embedded() {
		return nil, &dberr.SchemaError{Class: e.Name(), Message: "embedded objects can only be created through a link from their parent"}
	}
	prepared, err := e.Prepare(values)
	if err != nil {
		return nil, err
	}
	obj, err := prepared.Create()
	if err != nil {
		return nil, nativeerr.Translate(op, err)
	}
	d.logger.Debug("object created", "class", e.Name(), "key", obj.Native().Key())
	return obj, nil
}

// ObjectForPrimaryKey finds the object of class whose primary key is key.
func (d *Database) ObjectForPrimaryKey(class any, key value.Value) (*classmap.Object, error) {
	e, err := d.helpers("find by primary key", class)
	if err != nil {
		return nil, err
	}
	pk := e.Schema.PrimaryKey
	if pk == "" {
		return nil, &dberr.SchemaError{Class: e.Name(), Message: "class has no primary key"}
	}
	conv, _, err := e.Converter(pk)
	if err != nil {
		return nil, err
	}
	n, err := conv.ToNative(key)
	if err != nil {
		return nil, err
	}
	obj, err := e.Table.FindPrimaryKey(n)
	if native.HasCode(err, native.ErrCodeKeyNotFound) {
		return nil, &dberr.NotFoundError{Class: e.Name(), Key: value.Format(key)}
	}
	if err != nil {
		return nil, nativeerr.Translate("find "+e.Name(), err)
	}
	return e.Wrap(obj), nil
}

// Objects returns the live objects of class. Embedded and asymmetric
// classes are not queryable on their own.
func (d *Database) Objects(class any) (*collection.Results[*classmap.Object], error) {
	e, err := d.helpers("objects", class)
	if err != nil {
		return nil, err
	}
	switch {
	case e.Schema.Embedded():
		return nil, &dberr.SchemaError{Class: e.Name(), Message: "embedded objects cannot be queried directly"}
	case e.Schema.Asymmetric():
		return nil, &dberr.SchemaError{Class: e.Name(), Message: "asymmetric objects cannot be queried"}
	}
	return e.Results(), nil
}

// Delete removes a wrapper object, every object of a collection, or every
// object of a slice. Collections are snapshotted first and deleted one by
// one.
func (d *Database) Delete(target any) error {
	if err := d.check("delete"); err != nil {
		return err
	}
	switch t := target.(type) {
	case *classmap.Object:
		return d.deleteOne(t)
	case *collection.Results[*classmap.Object]:
		objs, err := t.Snapshot()
		if err != nil {
			return err
		}
		return d.deleteAll(objs)
	case []*classmap.Object:
		return d.deleteAll(t)
	default:
		return &dberr.TypeError{Expected: "object or collection", Got: fmt.Sprintf("%T", target)}
	}
}

func (d *Database) deleteAll(objs []*classmap.Object) error {
	for _, obj := range objs {
		if err := d.deleteOne(obj); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) deleteOne(obj *classmap.Object) error {
	if obj == nil {
		return &dberr.TypeError{Expected: "object", Got: "null"}
	}
	op := "delete " + obj.ClassName()
	if err := obj.Native().Remove(); err != nil {
		return nativeerr.Translate(op, err)
	}
	return nil
}
