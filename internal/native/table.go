package native

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/strata/internal/schema"
)

// Table is the storage for one class.
type Table struct {
	db     *DB
	key    TableKey
	schema schema.ObjectSchema
}

// Key returns the table key.
func (t *Table) Key() TableKey { return t.key }

// Name returns the class name.
func (t *Table) Name() string { return t.schema.Name }

// Embedded reports whether rows of this table live inside a parent.
func (t *Table) Embedded() bool { return t.schema.Embedded() }

// Schema returns the class schema.
func (t *Table) Schema() schema.ObjectSchema { return t.schema.Clone() }

// ColumnKey returns the column for a property.
func (t *Table) ColumnKey(property string) (ColKey, error) {
	for i, p := range t.schema.Properties {
		if p.Name == property {
			return ColKey(i), nil
		}
	}
	return 0, newError(ErrCodeNoSuchColumn, "class %s has no property %q", t.schema.Name, property)
}

// PrimaryKeyColumn returns the primary key column, if the class has one.
func (t *Table) PrimaryKeyColumn() (ColKey, bool) {
	if t.schema.PrimaryKey == "" {
		return 0, false
	}
	col, err := t.ColumnKey(t.schema.PrimaryKey)
	return col, err == nil
}

func (t *Table) property(col ColKey) (schema.Property, error) {
	if col < 0 || int(col) >= len(t.schema.Properties) {
		return schema.Property{}, newError(ErrCodeNoSuchColumn, "class %s has no column %d", t.schema.Name, col)
	}
	return t.schema.Properties[col], nil
}

func (t *Table) ident() string { return classTable(t.schema.Name) }

// target returns the table a link property points at.
func (t *Table) target(p schema.Property) (*Table, error) {
	return t.db.Table(p.ObjectType)
}

// Size returns the number of objects in the table.
func (t *Table) Size() (int, error) {
	q, err := t.db.reader()
	if err != nil {
		return 0, err
	}
	var n int
	if err := q.QueryRow("SELECT COUNT(*) FROM " + t.ident()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.schema.Name, err)
	}
	return n, nil
}

// CreateObject inserts an object with every column at its default.
func (t *Table) CreateObject() (*Obj, error) {
	q, err := t.db.mutator("create object")
	if err != nil {
		return nil, err
	}
	if t.schema.PrimaryKey != "" {
		return nil, newError(ErrCodeIllegalOperation, "class %s requires a primary key", t.schema.Name)
	}
	res, err := q.Exec("INSERT INTO " + t.ident() + " DEFAULT VALUES")
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.schema.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.schema.Name, err)
	}
	return &Obj{table: t, key: ObjKey(id)}, nil
}

// CreateObjectWithPrimaryKey inserts an object with the given primary key.
// An existing object with the same key fails with KEY_ALREADY_USED.
func (t *Table) CreateObjectWithPrimaryKey(pk Value) (*Obj, error) {
	q, err := t.db.mutator("create object")
	if err != nil {
		return nil, err
	}
	col, ok := t.PrimaryKeyColumn()
	if !ok {
		return nil, newError(ErrCodeIllegalOperation, "class %s has no primary key", t.schema.Name)
	}
	p := t.schema.Properties[col]
	arg, err := encodeColumn(p, 0, pk)
	if err != nil {
		return nil, err
	}

	if _, found, err := t.lookup(q, p, arg); err != nil {
		return nil, err
	} else if found {
		return nil, newError(ErrCodeKeyAlreadyUsed, "%s with primary key %s already exists", t.schema.Name, formatNative(pk))
	}

	res, err := q.Exec(fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", t.ident(), quoteIdent(p.MappedName)), arg)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.schema.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.schema.Name, err)
	}
	return &Obj{table: t, key: ObjKey(id)}, nil
}

// FindPrimaryKey returns the object with the given primary key, or
// KEY_NOT_FOUND.
func (t *Table) FindPrimaryKey(pk Value) (*Obj, error) {
	q, err := t.db.reader()
	if err != nil {
		return nil, err
	}
	col, ok := t.PrimaryKeyColumn()
	if !ok {
		return nil, newError(ErrCodeIllegalOperation, "class %s has no primary key", t.schema.Name)
	}
	p := t.schema.Properties[col]
	arg, err := encodeColumn(p, 0, pk)
	if err != nil {
		return nil, err
	}
	key, found, err := t.lookup(q, p, arg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, newError(ErrCodeKeyNotFound, "no %s with primary key %s", t.schema.Name, formatNative(pk))
	}
	return &Obj{table: t, key: key}, nil
}

func (t *Table) lookup(q querier, p schema.Property, arg any) (ObjKey, bool, error) {
	var key int64
	err := q.QueryRow(
		fmt.Sprintf("SELECT %s FROM %s WHERE %s IS ? LIMIT 1", keyColumn, t.ident(), quoteIdent(p.MappedName)), arg,
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s.%s: %w", t.schema.Name, p.Name, err)
	}
	return ObjKey(key), true, nil
}

// Object returns the object with the given key, or KEY_NOT_FOUND.
func (t *Table) Object(key ObjKey) (*Obj, error) {
	q, err := t.db.reader()
	if err != nil {
		return nil, err
	}
	ok, err := t.exists(q, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(ErrCodeKeyNotFound, "no %s with key %d", t.schema.Name, key)
	}
	return &Obj{table: t, key: key}, nil
}

func (t *Table) exists(q querier, key ObjKey) (bool, error) {
	var one int
	err := q.QueryRow(fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", t.ident(), keyColumn), int64(key)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s %d: %w", t.schema.Name, key, err)
	}
	return true, nil
}

// RemoveObject deletes an object and the embedded objects it owns.
// Removing a missing object fails with INVALIDATED_OBJECT.
func (t *Table) RemoveObject(key ObjKey) error {
	q, err := t.db.mutator("remove object")
	if err != nil {
		return err
	}
	children, err := t.embeddedChildren(q, key)
	if err != nil {
		return err
	}

	res, err := q.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.ident(), keyColumn), int64(key))
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.schema.Name, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete %s: %w", t.schema.Name, err)
	} else if n == 0 {
		return newError(ErrCodeInvalidatedObject, "%s %d no longer exists", t.schema.Name, key)
	}

	for _, child := range children {
		if err := child.table.RemoveObject(child.key); err != nil && !HasCode(err, ErrCodeInvalidatedObject) {
			return err
		}
	}
	return nil
}

// embeddedChildren lists the embedded objects owned by key, through link
// columns and list tables.
func (t *Table) embeddedChildren(q querier, key ObjKey) ([]*Obj, error) {
	var out []*Obj
	for _, p := range t.schema.Properties {
		if !p.IsLink() {
			continue
		}
		target, err := t.target(p)
		if err != nil {
			return nil, err
		}
		if !target.schema.Embedded() {
			continue
		}

		var stmt string
		switch {
		case p.Type == schema.TypeObject:
			stmt = fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s IS NOT NULL",
				quoteIdent(p.MappedName), t.ident(), keyColumn, quoteIdent(p.MappedName))
		case hasListTable(p):
			stmt = fmt.Sprintf("SELECT target FROM %s WHERE owner = ?", listTable(t.schema.Name, p))
		default:
			continue
		}
		keys, err := queryKeys(q, stmt, int64(key))
		if err != nil {
			return nil, fmt.Errorf("children of %s %d: %w", t.schema.Name, key, err)
		}
		for _, k := range keys {
			out = append(out, &Obj{table: target, key: k})
		}
	}
	return out, nil
}

// Results returns the live collection of every object in the table,
// ordered by creation.
func (t *Table) Results() *Results {
	return &Results{table: t}
}

func queryKeys(q querier, stmt string, args ...any) ([]ObjKey, error) {
	rows, err := q.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []ObjKey
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, ObjKey(k))
	}
	return keys, rows.Err()
}

func formatNative(v Value) string {
	switch val := v.(type) {
	case String:
		return fmt.Sprintf("%q", string(val))
	case ObjectID:
		return fmt.Sprintf("%x", val[:])
	case UUID:
		return fmt.Sprintf("%x", val[:])
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case nil, Null:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}
