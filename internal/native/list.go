package native

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/strata/internal/schema"
)

// List is the ordered links stored in one list-of-object property of one
// row. It is live: every call reads the current state.
type List struct {
	owner  *Obj
	prop   schema.Property
	target *Table
}

var _ Collection = (*List)(nil)

// Target returns the table of the linked objects.
func (l *List) Target() *Table { return l.target }

func (l *List) ident() string { return listTable(l.owner.table.schema.Name, l.prop) }

func (l *List) checkOwner(q querier) error {
	ok, err := l.owner.table.exists(q, l.owner.key)
	if err != nil {
		return err
	}
	if !ok {
		return l.owner.invalidated()
	}
	return nil
}

// Size returns the number of links.
func (l *List) Size() (int, error) {
	q, err := l.owner.table.db.reader()
	if err != nil {
		return 0, err
	}
	if err := l.checkOwner(q); err != nil {
		return 0, err
	}
	var n int
	if err := q.QueryRow("SELECT COUNT(*) FROM "+l.ident()+" WHERE owner = ?", int64(l.owner.key)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", l.prop.Name, err)
	}
	return n, nil
}

// Get returns the object linked at position i.
func (l *List) Get(i int) (*Obj, error) {
	q, err := l.owner.table.db.reader()
	if err != nil {
		return nil, err
	}
	if err := l.checkOwner(q); err != nil {
		return nil, err
	}
	_, target, err := l.at(q, i)
	if err != nil {
		return nil, err
	}
	return &Obj{table: l.target, key: target}, nil
}

func (l *List) at(q querier, i int) (int64, ObjKey, error) {
	if i < 0 {
		return 0, 0, newError(ErrCodeIndexOutOfBounds, "index %d out of range", i)
	}
	var pos, target int64
	err := q.QueryRow(
		"SELECT pos, target FROM "+l.ident()+" WHERE owner = ? ORDER BY pos LIMIT 1 OFFSET ?",
		int64(l.owner.key), i,
	).Scan(&pos, &target)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, newError(ErrCodeIndexOutOfBounds, "index %d out of range", i)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", l.prop.Name, err)
	}
	return pos, ObjKey(target), nil
}

// Add appends a link to an existing object of the target table.
func (l *List) Add(key ObjKey) error {
	q, err := l.owner.table.db.mutator("modify list")
	if err != nil {
		return err
	}
	if err := l.checkOwner(q); err != nil {
		return err
	}
	ok, err := l.target.exists(q, key)
	if err != nil {
		return err
	}
	if !ok {
		return newError(ErrCodeKeyNotFound, "no %s with key %d", l.target.schema.Name, key)
	}
	_, err = q.Exec(
		"INSERT INTO "+l.ident()+" (owner, pos, target) "+
			"SELECT ?, COALESCE(MAX(pos), -1) + 1, ? FROM "+l.ident()+" WHERE owner = ?",
		int64(l.owner.key), int64(key), int64(l.owner.key),
	)
	if err != nil {
		return fmt.Errorf("append to %s: %w", l.prop.Name, err)
	}
	return nil
}

// Remove drops the link at position i. Embedded targets are deleted.
func (l *List) Remove(i int) error {
	q, err := l.owner.table.db.mutator("modify list")
	if err != nil {
		return err
	}
	if err := l.checkOwner(q); err != nil {
		return err
	}
	pos, target, err := l.at(q, i)
	if err != nil {
		return err
	}
	if _, err := q.Exec("DELETE FROM "+l.ident()+" WHERE owner = ? AND pos = ?", int64(l.owner.key), pos); err != nil {
		return fmt.Errorf("remove from %s: %w", l.prop.Name, err)
	}
	if l.target.schema.Embedded() {
		return l.target.RemoveObject(target)
	}
	return nil
}

// Clear drops every link. Embedded targets are deleted.
func (l *List) Clear() error {
	q, err := l.owner.table.db.mutator("modify list")
	if err != nil {
		return err
	}
	if err := l.checkOwner(q); err != nil {
		return err
	}
	var orphans []ObjKey
	if l.target.schema.Embedded() {
		if orphans, err = queryKeys(q, "SELECT target FROM "+l.ident()+" WHERE owner = ?", int64(l.owner.key)); err != nil {
			return fmt.Errorf("clear %s: %w", l.prop.Name, err)
		}
	}
	if _, err := q.Exec("DELETE FROM "+l.ident()+" WHERE owner = ?", int64(l.owner.key)); err != nil {
		return fmt.Errorf("clear %s: %w", l.prop.Name, err)
	}
	for _, k := range orphans {
		if err := l.target.RemoveObject(k); err != nil {
			return err
		}
	}
	return nil
}
