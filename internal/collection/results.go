// Package collection provides index-addressed views over native results and
// lists that wrap rows only when they are read.
package collection

import (
	"iter"

	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/dberr/nativeerr"
	"github.com/roach88/strata/internal/native"
)

// Materializer wraps a native row.
type Materializer[T any] func(*native.Obj) (T, error)

// Results is a live view over a native collection. It holds no wrapped
// objects: every access asks the native collection again, so reads always
// reflect the database's current state.
type Results[T any] struct {
	source native.Collection
	wrap   Materializer[T]
}

// New returns a view over source.
func New[T any](source native.Collection, wrap Materializer[T]) *Results[T] {
	return &Results[T]{source: source, wrap: wrap}
}

// ClassName returns the class of the objects in the collection.
func (r *Results[T]) ClassName() string { return r.source.Target().Name() }

// Native returns the underlying native collection.
func (r *Results[T]) Native() native.Collection { return r.source }

// Len returns the current number of objects.
func (r *Results[T]) Len() (int, error) {
	n, err := r.source.Size()
	if err != nil {
		return 0, nativeerr.Translate("results length", err)
	}
	return n, nil
}

// At wraps the object at index i.
func (r *Results[T]) At(i int) (T, error) {
	var zero T
	n, err := r.Len()
	if err != nil {
		return zero, err
	}
	if i < 0 || i >= n {
		return zero, &dberr.RangeError{Index: i, Len: n}
	}
	obj, err := r.source.Get(i)
	if err != nil {
		return zero, nativeerr.Translate("results index", err)
	}
	return r.wrap(obj)
}

// All iterates the collection in order, wrapping each object as it is
// reached. Iteration stops after the first error.
func (r *Results[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i := 0; ; i++ {
			n, err := r.Len()
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if i >= n {
				return
			}
			item, err := r.At(i)
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// Snapshot wraps every current object.
func (r *Results[T]) Snapshot() ([]T, error) {
	var out []T
	for item, err := range r.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Sorted returns the results ordered by a property. Only table results can
// be sorted.
func (r *Results[T]) Sorted(property string, ascending bool) (*Results[T], error) {
	res, ok := r.source.(*native.Results)
	if !ok {
		return nil, &dberr.NotSupportedError{Feature: "sorting a list"}
	}
	col, err := res.Target().ColumnKey(property)
	if err != nil {
		return nil, &dberr.ReferenceError{Class: r.ClassName(), Property: property}
	}
	sorted, err := res.Sort(col, ascending)
	if err != nil {
		return nil, &dberr.NotSupportedError{Feature: "sorting by " + r.ClassName() + "." + property}
	}
	return New(sorted, r.wrap), nil
}
