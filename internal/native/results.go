package native

import (
	"database/sql"
	"errors"
	"fmt"
)

// Collection is a live, ordered sequence of objects of one table.
type Collection interface {
	Size() (int, error)
	Get(i int) (*Obj, error)
	Target() *Table
}

// Results is every object of a table, re-queried on each access.
type Results struct {
	table  *Table
	sort   *ColKey
	ascend bool
}

var _ Collection = (*Results)(nil)

// Target returns the table the results range over.
func (r *Results) Target() *Table { return r.table }

// Size returns the current number of objects.
func (r *Results) Size() (int, error) { return r.table.Size() }

// Sort returns results ordered by a scalar column, ties broken by creation
// order.
func (r *Results) Sort(col ColKey, ascending bool) (*Results, error) {
	p, err := r.table.property(col)
	if err != nil {
		return nil, err
	}
	if !hasColumn(p) {
		return nil, newError(ErrCodeIllegalOperation, "cannot sort by collection %s.%s", r.table.schema.Name, p.Name)
	}
	return &Results{table: r.table, sort: &col, ascend: ascending}, nil
}

func (r *Results) orderBy() string {
	if r.sort == nil {
		return keyColumn
	}
	dir := "DESC"
	if r.ascend {
		dir = "ASC"
	}
	p := r.table.schema.Properties[*r.sort]
	return fmt.Sprintf("%s %s, %s", quoteIdent(p.MappedName), dir, keyColumn)
}

// Get returns the object at position i.
func (r *Results) Get(i int) (*Obj, error) {
	q, err := r.table.db.reader()
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, newError(ErrCodeIndexOutOfBounds, "index %d out of range", i)
	}
	var key int64
	err = q.QueryRow(
		fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT 1 OFFSET ?", keyColumn, r.table.ident(), r.orderBy()), i,
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrCodeIndexOutOfBounds, "index %d out of range", i)
	}
	if err != nil {
		return nil, fmt.Errorf("results of %s: %w", r.table.schema.Name, err)
	}
	return &Obj{table: r.table, key: ObjKey(key)}, nil
}
