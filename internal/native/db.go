package native

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sys/unix"

	"github.com/roach88/strata/internal/schema"
)

//go:embed classes.sql
var classesSQL string

const keyColumn = "__key"

// Options configures Open.
type Options struct {
	// Path is the database file. Ignored when InMemory is set.
	Path     string
	InMemory bool
	ReadOnly bool

	// Schema is the canonical schema to reconcile with what is stored. An
	// empty schema opens with the stored schema unchanged.
	Schema        schema.Schema
	SchemaVersion uint64

	Logger *slog.Logger
}

// DB is an open database. It is not safe for concurrent use.
type DB struct {
	sql      *sql.DB
	tx       *sql.Tx
	path     string
	lock     *os.File
	readOnly bool
	closed   bool
	logger   *slog.Logger

	schema  schema.Schema
	version uint64
	tables  map[TableKey]*Table
	byName  map[string]*Table
}

type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Open opens or creates a database and reconciles its stored schema with
// opts.Schema. Classes and properties that are stored but not configured
// stay in the live schema.
//
// Reconciliation rules:
//   - a version lower than the stored one fails with SCHEMA_MISMATCH
//   - a changed property, primary key or class kind fails with SCHEMA_MISMATCH
//   - new classes are created at any version
//   - new properties on a stored class require a higher version
func Open(opts Options) (*DB, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db := &DB{
		path:     opts.Path,
		readOnly: opts.ReadOnly,
		logger:   logger,
		tables:   make(map[TableKey]*Table),
		byName:   make(map[string]*Table),
	}

	dsn := ":memory:"
	if !opts.InMemory {
		if opts.Path == "" {
			return nil, newError(ErrCodeIllegalOperation, "no database path")
		}
		if err := db.acquireLock(); err != nil {
			return nil, err
		}
		dsn = opts.Path
		if opts.ReadOnly {
			dsn = "file:" + opts.Path + "?mode=ro"
		}
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		db.releaseLock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		db.releaseLock()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// One connection: an in-memory database lives and dies with it, and
	// every statement must see the open transaction.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	db.sql = conn

	if err := db.applyPragmas(); err != nil {
		db.abort()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := db.applySchema(opts.Schema, opts.SchemaVersion); err != nil {
		db.abort()
		return nil, err
	}

	db.logger.Debug("database opened",
		"path", db.path,
		"in_memory", opts.InMemory,
		"read_only", opts.ReadOnly,
		"version", db.version,
		"classes", len(db.schema))
	return db, nil
}

func (db *DB) acquireLock() error {
	f, err := os.OpenFile(db.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	how := unix.LOCK_EX
	if db.readOnly {
		how = unix.LOCK_SH
	}
	if err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return newError(ErrCodeFileInUse, "%s is open elsewhere", db.path)
		}
		return fmt.Errorf("lock %s: %w", db.path, err)
	}
	db.lock = f
	return nil
}

func (db *DB) releaseLock() {
	if db.lock == nil {
		return
	}
	_ = unix.Flock(int(db.lock.Fd()), unix.LOCK_UN)
	db.lock.Close()
	db.lock = nil
}

func (db *DB) abort() {
	db.sql.Close()
	db.releaseLock()
	db.closed = true
}

func (db *DB) applyPragmas() error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if !db.readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = DELETE",
			"PRAGMA synchronous = NORMAL",
		)
	}
	for _, pragma := range pragmas {
		if _, err := db.sql.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

type storedClass struct {
	key    TableKey
	schema schema.ObjectSchema
}

// loadStored reads the class registry and schema version. A database that
// has never been written has no registry.
func (db *DB) loadStored() ([]storedClass, uint64, error) {
	var version int64
	if err := db.sql.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return nil, 0, fmt.Errorf("get user_version: %w", err)
	}

	var n int
	err := db.sql.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = '_strata_classes'",
	).Scan(&n)
	if err != nil {
		return nil, 0, fmt.Errorf("inspect registry: %w", err)
	}
	if n == 0 {
		return nil, uint64(version), nil
	}

	rows, err := db.sql.Query("SELECT key, definition FROM _strata_classes ORDER BY key")
	if err != nil {
		return nil, 0, fmt.Errorf("read registry: %w", err)
	}
	defer rows.Close()

	var stored []storedClass
	for rows.Next() {
		var key int64
		var def string
		if err := rows.Scan(&key, &def); err != nil {
			return nil, 0, fmt.Errorf("scan registry: %w", err)
		}
		var cls schema.ObjectSchema
		if err := json.Unmarshal([]byte(def), &cls); err != nil {
			return nil, 0, fmt.Errorf("decode class %d: %w", key, err)
		}
		stored = append(stored, storedClass{key: TableKey(key), schema: cls})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate registry: %w", err)
	}
	return stored, uint64(version), nil
}

// change is one class the reconciler has to create or extend.
type change struct {
	class schema.ObjectSchema
	added []schema.Property
	isNew bool
}

func (db *DB) applySchema(configured schema.Schema, version uint64) error {
	stored, storedVersion, err := db.loadStored()
	if err != nil {
		return err
	}

	live, changes, err := reconcile(stored, storedVersion, configured, version)
	if err != nil {
		return err
	}
	if len(configured) == 0 {
		version = storedVersion
	}
	if version < storedVersion {
		version = storedVersion
	}

	if len(changes) > 0 || version != storedVersion {
		if db.readOnly {
			return newError(ErrCodeSchemaMismatch, "read-only database requires schema changes")
		}
		if err := db.migrate(changes, version); err != nil {
			return err
		}
	}

	db.schema = live
	db.version = version
	return db.loadTables()
}

// reconcile merges the stored and configured schemas. It returns the live
// schema (configured order, then stored-only classes) and the DDL work.
func reconcile(stored []storedClass, storedVersion uint64, configured schema.Schema, version uint64) (schema.Schema, []change, error) {
	storedByName := make(map[string]schema.ObjectSchema, len(stored))
	for _, sc := range stored {
		storedByName[sc.schema.Name] = sc.schema
	}

	if len(configured) == 0 {
		live := make(schema.Schema, 0, len(stored))
		for _, sc := range stored {
			live = append(live, sc.schema.Clone())
		}
		return live, nil, nil
	}

	if len(stored) > 0 && version < storedVersion {
		return nil, nil, newError(ErrCodeSchemaMismatch,
			"schema version %d is older than stored version %d", version, storedVersion)
	}

	var live schema.Schema
	var changes []change
	seen := make(map[string]bool, len(configured))
	for _, cls := range configured {
		seen[cls.Name] = true
		old, ok := storedByName[cls.Name]
		if !ok {
			live = append(live, cls.Clone())
			changes = append(changes, change{class: cls.Clone(), isNew: true})
			continue
		}
		merged, added, err := mergeClass(old, cls)
		if err != nil {
			return nil, nil, err
		}
		if len(added) > 0 {
			if version <= storedVersion {
				return nil, nil, newError(ErrCodeSchemaMismatch,
					"class %s gained properties without a schema version bump", cls.Name)
			}
			changes = append(changes, change{class: merged, added: added})
		}
		live = append(live, merged)
	}
	for _, sc := range stored {
		if !seen[sc.schema.Name] {
			live = append(live, sc.schema.Clone())
		}
	}
	return live, changes, nil
}

func mergeClass(old, cls schema.ObjectSchema) (schema.ObjectSchema, []schema.Property, error) {
	if old.Kind != cls.Kind {
		return schema.ObjectSchema{}, nil, newError(ErrCodeSchemaMismatch,
			"class %s changed kind from %s to %s", cls.Name, old.Kind, cls.Kind)
	}
	if old.PrimaryKey != cls.PrimaryKey {
		return schema.ObjectSchema{}, nil, newError(ErrCodeSchemaMismatch,
			"class %s changed primary key from %q to %q", cls.Name, old.PrimaryKey, cls.PrimaryKey)
	}

	merged := cls.Clone()
	var added []schema.Property
	for _, p := range cls.Properties {
		prev, ok := old.Property(p.Name)
		if !ok {
			added = append(added, p)
			continue
		}
		if prev != p {
			return schema.ObjectSchema{}, nil, newError(ErrCodeSchemaMismatch,
				"property %s.%s changed", cls.Name, p.Name)
		}
	}
	for _, prev := range old.Properties {
		if _, ok := cls.Property(prev.Name); !ok {
			merged.Properties = append(merged.Properties, prev)
		}
	}
	return merged, added, nil
}

func (db *DB) migrate(changes []change, version uint64) error {
	tx, err := db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(classesSQL); err != nil {
		return fmt.Errorf("failed to create class registry: %w", err)
	}

	for _, c := range changes {
		def, err := json.Marshal(c.class)
		if err != nil {
			return fmt.Errorf("encode class %s: %w", c.class.Name, err)
		}

		var stmts []string
		if c.isNew {
			if _, err := tx.Exec(
				"INSERT INTO _strata_classes (name, definition) VALUES (?, ?)", c.class.Name, string(def),
			); err != nil {
				return fmt.Errorf("register class %s: %w", c.class.Name, err)
			}
			stmts = createClassDDL(c.class)
			db.logger.Debug("creating class", "class", c.class.Name)
		} else {
			if _, err := tx.Exec(
				"UPDATE _strata_classes SET definition = ? WHERE name = ?", string(def), c.class.Name,
			); err != nil {
				return fmt.Errorf("update class %s: %w", c.class.Name, err)
			}
			for _, p := range c.added {
				stmts = append(stmts, addPropertyDDL(c.class, p)...)
				db.logger.Debug("adding property", "class", c.class.Name, "property", p.Name)
			}
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("migrate class %s: %w", c.class.Name, err)
			}
		}
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

func (db *DB) loadTables() error {
	if len(db.schema) == 0 {
		return nil
	}
	rows, err := db.sql.Query("SELECT key, name FROM _strata_classes")
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}
	keys := make(map[string]TableKey)
	for rows.Next() {
		var key int64
		var name string
		if err := rows.Scan(&key, &name); err != nil {
			rows.Close()
			return fmt.Errorf("scan registry: %w", err)
		}
		keys[name] = TableKey(key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate registry: %w", err)
	}

	for _, cls := range db.schema {
		key, ok := keys[cls.Name]
		if !ok {
			return newError(ErrCodeSchemaMismatch, "class %s is not registered", cls.Name)
		}
		t := &Table{db: db, key: key, schema: cls}
		db.tables[key] = t
		db.byName[cls.Name] = t
	}
	return nil
}

// Schema returns the live schema: configured classes plus those only stored.
func (db *DB) Schema() schema.Schema { return db.schema.Clone() }

// SchemaVersion returns the schema version recorded in the file.
func (db *DB) SchemaVersion() uint64 { return db.version }

// Path returns the file path, or "" for an in-memory database.
func (db *DB) Path() string { return db.path }

// IsClosed reports whether Close has been called.
func (db *DB) IsClosed() bool { return db.closed }

// ReadOnly reports whether the database was opened read-only.
func (db *DB) ReadOnly() bool { return db.readOnly }

// Table returns the table for a class.
func (db *DB) Table(name string) (*Table, error) {
	if db.closed {
		return nil, closedError()
	}
	t, ok := db.byName[name]
	if !ok {
		return nil, newError(ErrCodeNoSuchTable, "no table for class %q", name)
	}
	return t, nil
}

// TableByKey returns the table with the given key.
func (db *DB) TableByKey(key TableKey) (*Table, error) {
	if db.closed {
		return nil, closedError()
	}
	t, ok := db.tables[key]
	if !ok {
		return nil, newError(ErrCodeNoSuchTable, "no table with key %d", key)
	}
	return t, nil
}

// Resolve returns the object a link descriptor points at.
func (db *DB) Resolve(link ObjLink) (*Obj, error) {
	t, err := db.TableByKey(link.Table)
	if err != nil {
		return nil, err
	}
	return t.Object(link.Key)
}

// BeginTransaction opens a write transaction.
func (db *DB) BeginTransaction() error {
	if db.closed {
		return closedError()
	}
	if db.readOnly {
		return newError(ErrCodeIllegalOperation, "database is read-only")
	}
	if db.tx != nil {
		return newError(ErrCodeWrongTransactionState, "a write transaction is already open")
	}
	tx, err := db.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	db.tx = tx
	return nil
}

// CommitTransaction commits the open write transaction.
func (db *DB) CommitTransaction() error {
	if db.closed {
		return closedError()
	}
	if db.tx == nil {
		return newError(ErrCodeWrongTransactionState, "no write transaction is open")
	}
	tx := db.tx
	db.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CancelTransaction rolls back the open write transaction.
func (db *DB) CancelTransaction() error {
	if db.closed {
		return closedError()
	}
	if db.tx == nil {
		return newError(ErrCodeWrongTransactionState, "no write transaction is open")
	}
	tx := db.tx
	db.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// InTransaction reports whether a write transaction is open.
func (db *DB) InTransaction() bool { return !db.closed && db.tx != nil }

// Close rolls back any open transaction and releases the file. Closing
// twice is a no-op.
func (db *DB) Close() error {
	if db.closed {
		return nil
	}
	db.closed = true

	var errs []error
	if db.tx != nil {
		if err := db.tx.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("rollback on close: %w", err))
		}
		db.tx = nil
	}
	if err := db.sql.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	db.releaseLock()
	db.logger.Debug("database closed", "path", db.path)
	return errors.Join(errs...)
}

func (db *DB) q() querier {
	if db.tx != nil {
		return db.tx
	}
	return db.sql
}

// reader checks the database can serve a read.
func (db *DB) reader() (querier, error) {
	if db.closed {
		return nil, closedError()
	}
	return db.q(), nil
}

// mutator checks the database can serve a write.
func (db *DB) mutator(op string) (querier, error) {
	if db.closed {
		return nil, closedError()
	}
	if db.tx == nil {
		return nil, newError(ErrCodeNotInWriteTransaction, "cannot %s outside a write transaction", op)
	}
	return db.tx, nil
}

func closedError() *Error {
	return newError(ErrCodeClosedRealm, "database is closed")
}

func quoteIdent(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}

func classTable(class string) string { return quoteIdent("class:" + class) }

func listTable(class string, p schema.Property) string {
	return quoteIdent("list:" + class + "." + p.MappedName)
}

// hasColumn reports whether p is stored in a column of the class table.
func hasColumn(p schema.Property) bool { return !p.Type.IsCollection() }

// hasListTable reports whether p is stored in a list table.
func hasListTable(p schema.Property) bool { return p.Type == schema.TypeList && p.IsLink() }

func columnDef(p schema.Property) string {
	def := quoteIdent(p.MappedName) + " " + sqlType(p.Type)
	if p.Type == schema.TypeObject {
		return def + " REFERENCES " + classTable(p.ObjectType) + "(" + keyColumn + ") ON DELETE SET NULL"
	}
	if !p.Optional {
		def += " NOT NULL DEFAULT " + sqlDefault(p.Type)
	}
	return def
}

func indexDDL(class string, p schema.Property) string {
	if p.IsPrimary {
		return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s(%s)",
			quoteIdent("pk:"+class), classTable(class), quoteIdent(p.MappedName))
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
		quoteIdent("idx:"+class+"."+p.MappedName), classTable(class), quoteIdent(p.MappedName))
}

func listDDL(class string, p schema.Property) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    owner  INTEGER NOT NULL REFERENCES %s(%s) ON DELETE CASCADE,
    pos    INTEGER NOT NULL,
    target INTEGER NOT NULL REFERENCES %s(%s) ON DELETE CASCADE,
    PRIMARY KEY (owner, pos)
)`, listTable(class, p), classTable(class), keyColumn, classTable(p.ObjectType), keyColumn)
}

func createClassDDL(cls schema.ObjectSchema) []string {
	cols := []string{keyColumn + " INTEGER PRIMARY KEY AUTOINCREMENT"}
	var extra []string
	for _, p := range cls.Properties {
		switch {
		case hasColumn(p):
			cols = append(cols, columnDef(p))
			if p.Indexed || p.IsPrimary {
				extra = append(extra, indexDDL(cls.Name, p))
			}
		case hasListTable(p):
			extra = append(extra, listDDL(cls.Name, p))
		}
	}
	stmt := "CREATE TABLE IF NOT EXISTS " + classTable(cls.Name) + " (\n    "
	for i, c := range cols {
		if i > 0 {
			stmt += ",\n    "
		}
		stmt += c
	}
	stmt += "\n)"
	return append([]string{stmt}, extra...)
}

func addPropertyDDL(cls schema.ObjectSchema, p schema.Property) []string {
	switch {
	case hasColumn(p):
		stmts := []string{"ALTER TABLE " + classTable(cls.Name) + " ADD COLUMN " + columnDef(p)}
		if p.Indexed {
			stmts = append(stmts, indexDDL(cls.Name, p))
		}
		return stmts
	case hasListTable(p):
		return []string{listDDL(cls.Name, p)}
	}
	return nil
}

// listProperties returns the list-of-object properties of cls.
func listProperties(cls schema.ObjectSchema) []schema.Property {
	var out []schema.Property
	for _, p := range cls.Properties {
		if hasListTable(p) {
			out = append(out, p)
		}
	}
	return out
}
