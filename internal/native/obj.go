package native

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/strata/internal/schema"
)

// Obj is a handle to one row. It stays valid until the row is removed or the
// database is closed.
type Obj struct {
	table *Table
	key   ObjKey
}

// Key returns the row key.
func (o *Obj) Key() ObjKey { return o.key }

// Table returns the owning table.
func (o *Obj) Table() *Table { return o.table }

// Link returns a link descriptor for the row.
func (o *Obj) Link() ObjLink { return ObjLink{Table: o.table.key, Key: o.key} }

// IsValid reports whether the database is open and the row still exists.
func (o *Obj) IsValid() bool {
	q, err := o.table.db.reader()
	if err != nil {
		return false
	}
	ok, err := o.table.exists(q, o.key)
	return err == nil && ok
}

func (o *Obj) invalidated() error {
	return newError(ErrCodeInvalidatedObject, "%s %d no longer exists", o.table.schema.Name, o.key)
}

// Get reads a column.
func (o *Obj) Get(col ColKey) (Value, error) {
	q, err := o.table.db.reader()
	if err != nil {
		return nil, err
	}
	p, err := o.table.property(col)
	if err != nil {
		return nil, err
	}
	if !hasColumn(p) {
		return nil, newError(ErrCodeIllegalOperation, "%s.%s is a collection", o.table.schema.Name, p.Name)
	}

	var raw any
	err = q.QueryRow(
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", quoteIdent(p.MappedName), o.table.ident(), keyColumn),
		int64(o.key),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, o.invalidated()
	}
	if err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", o.table.schema.Name, p.Name, err)
	}
	return decodeColumn(p, raw)
}

// Set writes a column. The value must already be of the column's native
// type; primary keys cannot be changed once set.
func (o *Obj) Set(col ColKey, v Value) error {
	q, err := o.table.db.mutator("set property")
	if err != nil {
		return err
	}
	p, err := o.table.property(col)
	if err != nil {
		return err
	}
	if p.IsPrimary {
		return newError(ErrCodeIllegalOperation, "primary key %s.%s cannot be changed", o.table.schema.Name, p.Name)
	}
	if !hasColumn(p) {
		return newError(ErrCodeIllegalOperation, "%s.%s is a collection", o.table.schema.Name, p.Name)
	}

	var target *Table
	if p.Type == schema.TypeObject {
		if target, err = o.table.target(p); err != nil {
			return err
		}
	}
	var targetKey TableKey
	if target != nil {
		targetKey = target.key
	}
	arg, err := encodeColumn(p, targetKey, v)
	if err != nil {
		return err
	}
	if err := o.checkLinkTarget(q, p, target, v); err != nil {
		return err
	}

	// Overwriting a link to an embedded object deletes the old object.
	var orphan *Obj
	if target != nil && target.schema.Embedded() {
		old, err := o.Get(col)
		if err != nil {
			return err
		}
		if k, ok := old.(ObjKey); ok && (arg == nil || arg.(int64) != int64(k)) {
			orphan = &Obj{table: target, key: k}
		}
	}

	res, err := q.Exec(
		fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", o.table.ident(), quoteIdent(p.MappedName), keyColumn),
		arg, int64(o.key),
	)
	if err != nil {
		return fmt.Errorf("update %s.%s: %w", o.table.schema.Name, p.Name, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update %s.%s: %w", o.table.schema.Name, p.Name, err)
	} else if n == 0 {
		return o.invalidated()
	}

	if orphan != nil {
		if err := orphan.table.RemoveObject(orphan.key); err != nil && !HasCode(err, ErrCodeInvalidatedObject) {
			return err
		}
	}
	return nil
}

// checkLinkTarget verifies that a link value points at an existing row.
func (o *Obj) checkLinkTarget(q querier, p schema.Property, target *Table, v Value) error {
	switch link := v.(type) {
	case ObjKey:
		ok, err := target.exists(q, link)
		if err != nil {
			return err
		}
		if !ok {
			return newError(ErrCodeKeyNotFound, "no %s with key %d", target.schema.Name, link)
		}
	case ObjLink:
		t := target
		if t == nil {
			var err error
			if t, err = o.table.db.TableByKey(link.Table); err != nil {
				return err
			}
			if t.schema.Embedded() {
				return newError(ErrCodeIllegalOperation, "%s.%s cannot link to embedded class %s",
					o.table.schema.Name, p.Name, t.schema.Name)
			}
		}
		ok, err := t.exists(q, link.Key)
		if err != nil {
			return err
		}
		if !ok {
			return newError(ErrCodeKeyNotFound, "no %s with key %d", t.schema.Name, link.Key)
		}
	}
	return nil
}

// List returns the list stored in a list-of-object column.
func (o *Obj) List(col ColKey) (*List, error) {
	if o.table.db.closed {
		return nil, closedError()
	}
	p, err := o.table.property(col)
	if err != nil {
		return nil, err
	}
	if !hasListTable(p) {
		return nil, newError(ErrCodeIllegalOperation, "%s.%s is not a list of objects", o.table.schema.Name, p.Name)
	}
	target, err := o.table.target(p)
	if err != nil {
		return nil, err
	}
	return &List{owner: o, prop: p, target: target}, nil
}

// Remove deletes the row.
func (o *Obj) Remove() error {
	return o.table.RemoveObject(o.key)
}
