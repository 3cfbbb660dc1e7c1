package native

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/schema"
)

func testSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.Normalize([]schema.RawObjectSchema{
		{
			Name:       "Task",
			PrimaryKey: "_id",
			Properties: schema.RawProperties{
				{Name: "_id", Type: "int"},
				{Name: "description", Type: "string"},
				{Name: "done", Type: "bool", Indexed: true},
				{Name: "score", Type: "float?"},
				{Name: "owner", Type: "Person"},
				{Name: "extra", Type: "mixed"},
			},
		},
		{
			Name: "Person",
			Properties: schema.RawProperties{
				{Name: "name", Type: "string", MappedTo: "full_name"},
				{Name: "address", Type: "Address"},
				{Name: "tasks", Type: "Task[]"},
				{Name: "pets", Type: "Address[]"},
			},
		},
		{
			Name:     "Address",
			Embedded: true,
			Properties: schema.RawProperties{
				{Name: "street", Type: "string"},
			},
		},
	})
	require.NoError(t, err)
	return s
}

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{InMemory: true, Schema: testSchema(t)})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func write(t *testing.T, db *DB, fn func()) {
	t.Helper()
	require.NoError(t, db.BeginTransaction())
	fn()
	require.NoError(t, db.CommitTransaction())
}

func col(t *testing.T, tbl *Table, name string) ColKey {
	t.Helper()
	c, err := tbl.ColumnKey(name)
	require.NoError(t, err)
	return c
}

func TestOpen_CreatesFileAndLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.strata")
	db, err := Open(Options{Path: path, Schema: testSchema(t), SchemaVersion: 1})
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
	_, err = os.Stat(path + ".lock")
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), db.SchemaVersion())
	assert.Equal(t, []string{"Task", "Person", "Address"}, db.Schema().Names())
}

func TestOpen_SecondOpenFailsWhileLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.strata")
	db, err := Open(Options{Path: path, Schema: testSchema(t)})
	require.NoError(t, err)

	_, err = Open(Options{Path: path, Schema: testSchema(t)})
	assert.True(t, HasCode(err, ErrCodeFileInUse), "got %v", err)

	require.NoError(t, db.Close())
	again, err := Open(Options{Path: path, Schema: testSchema(t)})
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestOpen_ReopenKeepsDataAndTableKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.strata")
	db, err := Open(Options{Path: path, Schema: testSchema(t), SchemaVersion: 2})
	require.NoError(t, err)
	tasks, err := db.Table("Task")
	require.NoError(t, err)
	key := tasks.Key()
	write(t, db, func() {
		_, err := tasks.CreateObjectWithPrimaryKey(Int(7))
		require.NoError(t, err)
	})
	require.NoError(t, db.Close())

	// No configured schema: the stored one is used as is.
	db, err = Open(Options{Path: path})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, uint64(2), db.SchemaVersion())
	tasks, err = db.Table("Task")
	require.NoError(t, err)
	assert.Equal(t, key, tasks.Key())
	n, err := tasks.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_SchemaReconciliation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.strata")
	base := testSchema(t)
	db, err := Open(Options{Path: path, Schema: base, SchemaVersion: 1})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	t.Run("older version", func(t *testing.T) {
		_, err := Open(Options{Path: path, Schema: base, SchemaVersion: 0})
		assert.True(t, HasCode(err, ErrCodeSchemaMismatch), "got %v", err)
	})

	t.Run("changed property", func(t *testing.T) {
		changed := base.Clone()
		changed[0].Properties[1].Optional = true
		_, err := Open(Options{Path: path, Schema: changed, SchemaVersion: 5})
		assert.True(t, HasCode(err, ErrCodeSchemaMismatch), "got %v", err)
	})

	extended := base.Clone()
	extended[0].Properties = append(extended[0].Properties,
		schema.Property{Name: "priority", MappedName: "priority", Type: schema.TypeInt})

	t.Run("added property without bump", func(t *testing.T) {
		_, err := Open(Options{Path: path, Schema: extended, SchemaVersion: 1})
		assert.True(t, HasCode(err, ErrCodeSchemaMismatch), "got %v", err)
	})

	t.Run("added property with bump", func(t *testing.T) {
		db, err := Open(Options{Path: path, Schema: extended, SchemaVersion: 2})
		require.NoError(t, err)
		defer db.Close()
		tasks, err := db.Table("Task")
		require.NoError(t, err)
		_, err = tasks.ColumnKey("priority")
		assert.NoError(t, err)
	})

	t.Run("stored-only classes stay live", func(t *testing.T) {
		db, err := Open(Options{Path: path, Schema: base[2:], SchemaVersion: 2})
		require.NoError(t, err)
		defer db.Close()
		assert.Equal(t, []string{"Address", "Task", "Person"}, db.Schema().Names())
		tasks, err := db.Table("Task")
		require.NoError(t, err)
		_, err = tasks.ColumnKey("priority")
		assert.NoError(t, err, "stored-only property must survive")
	})
}

func TestTransactions_StateErrors(t *testing.T) {
	db := openMemory(t)
	tasks, err := db.Table("Task")
	require.NoError(t, err)

	_, err = tasks.CreateObjectWithPrimaryKey(Int(1))
	assert.True(t, HasCode(err, ErrCodeNotInWriteTransaction), "got %v", err)

	assert.True(t, HasCode(db.CommitTransaction(), ErrCodeWrongTransactionState))
	assert.True(t, HasCode(db.CancelTransaction(), ErrCodeWrongTransactionState))

	require.NoError(t, db.BeginTransaction())
	assert.True(t, db.InTransaction())
	assert.True(t, HasCode(db.BeginTransaction(), ErrCodeWrongTransactionState))
	require.NoError(t, db.CancelTransaction())
	assert.False(t, db.InTransaction())
}

func TestTransactions_CancelDiscardsChanges(t *testing.T) {
	db := openMemory(t)
	tasks, _ := db.Table("Task")

	require.NoError(t, db.BeginTransaction())
	_, err := tasks.CreateObjectWithPrimaryKey(Int(1))
	require.NoError(t, err)
	n, _ := tasks.Size()
	assert.Equal(t, 1, n)
	require.NoError(t, db.CancelTransaction())

	n, err = tasks.Size()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestClose_Idempotent(t *testing.T) {
	db := openMemory(t)
	tasks, _ := db.Table("Task")
	require.NoError(t, db.BeginTransaction())
	obj, err := tasks.CreateObjectWithPrimaryKey(Int(1))
	require.NoError(t, err)

	require.NoError(t, db.Close())
	require.NoError(t, db.Close())
	assert.True(t, db.IsClosed())
	assert.False(t, obj.IsValid())

	_, err = obj.Get(col(t, tasks, "description"))
	assert.True(t, HasCode(err, ErrCodeClosedRealm))
	_, err = db.Table("Task")
	assert.True(t, HasCode(err, ErrCodeClosedRealm))
	assert.True(t, HasCode(db.BeginTransaction(), ErrCodeClosedRealm))
}

func TestReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.strata")
	db, err := Open(Options{Path: path, Schema: testSchema(t)})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ro, err := Open(Options{Path: path, ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()
	assert.True(t, ro.ReadOnly())
	assert.True(t, HasCode(ro.BeginTransaction(), ErrCodeIllegalOperation))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"class:Task"`, quoteIdent("class:Task"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
