// Package classmap binds each class of an open database to its schema, its
// property converters and a factory for wrapper objects.
//
// A ClassMap is built once per open database from the live schema. Property
// converters are created at build time, so reading or writing a property is
// a map lookup plus the conversion itself. Closing the database invalidates
// the map: every later lookup fails with "handle is closed".
package classmap

import (
	"reflect"

	"github.com/roach88/strata/internal/convert"
	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/dberr/nativeerr"
	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/value"
)

// Named is a class identity that names its class, such as a Go type
// standing in for a class constructor.
type Named interface {
	ClassName() string
}

// Entry is the bound helpers for one class.
type Entry struct {
	Schema schema.ObjectSchema
	Table  *native.Table

	cm         *ClassMap
	columns    map[string]native.ColKey
	converters map[string]convert.Converter
	// elements converts the items of list-of-object properties.
	elements map[string]convert.Converter
}

// ClassMap is the registry of bound classes for one open database.
type ClassMap struct {
	db      *native.DB
	entries map[string]*Entry
	names   []string
	invalid bool
}

var _ convert.Resolver = (*ClassMap)(nil)

// Build binds every class of the live schema.
func Build(db *native.DB, live schema.Schema) (*ClassMap, error) {
	m := &ClassMap{db: db, entries: make(map[string]*Entry, len(live))}
	for _, cls := range live {
		table, err := db.Table(cls.Name)
		if err != nil {
			return nil, nativeerr.Translate("build class map", err)
		}
		e := &Entry{
			Schema:     cls.Clone(),
			Table:      table,
			cm:         m,
			columns:    make(map[string]native.ColKey, len(cls.Properties)),
			converters: make(map[string]convert.Converter, len(cls.Properties)),
			elements:   make(map[string]convert.Converter),
		}
		for _, p := range cls.Properties {
			col, err := table.ColumnKey(p.Name)
			if err != nil {
				return nil, err
			}
			e.columns[p.Name] = col
			e.converters[p.Name] = convert.Get(p.Type, convert.Options{
				Optional:   p.Optional,
				ObjectType: p.ObjectType,
				Realm:      m,
				Class:      cls.Name,
				Property:   p.Name,
			})
			if p.Type == schema.TypeList && p.IsLink() {
				e.elements[p.Name] = convert.Get(schema.TypeObject, convert.Options{
					ObjectType: p.ObjectType,
					Realm:      m,
					Class:      cls.Name,
					Property:   p.Name,
				})
			}
		}
		m.entries[cls.Name] = e
		m.names = append(m.names, cls.Name)
	}
	return m, nil
}

// Names returns the bound class names in schema order.
func (m *ClassMap) Names() []string { return append([]string(nil), m.names...) }

// Invalidate drops every entry. Called when the owning database closes.
func (m *ClassMap) Invalidate() {
	m.invalid = true
	m.entries = nil
}

// Valid reports whether the map has not been invalidated.
func (m *ClassMap) Valid() bool { return !m.invalid }

// Helpers returns the entry for a class identity: a class name, a Named
// value, a reflect.Type, or any Go value whose type name is a class name.
func (m *ClassMap) Helpers(identity any) (*Entry, error) {
	if m.invalid {
		return nil, dberr.NewClosedError("get class helpers")
	}
	name := identityName(identity)
	e, ok := m.entries[name]
	if !ok {
		return nil, &dberr.ReferenceError{Class: name}
	}
	return e, nil
}

func identityName(identity any) string {
	switch id := identity.(type) {
	case nil:
		return "<nil>"
	case string:
		return id
	case Named:
		return id.ClassName()
	case reflect.Type:
		return typeName(id)
	default:
		return typeName(reflect.TypeOf(identity))
	}
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Table implements convert.Resolver.
func (m *ClassMap) Table(class string) (*native.Table, error) {
	if m.invalid {
		return nil, dberr.NewClosedError("resolve link")
	}
	t, err := m.db.Table(class)
	return t, nativeerr.Translate("resolve link", err)
}

// Resolve implements convert.Resolver.
func (m *ClassMap) Resolve(link native.ObjLink) (*native.Obj, error) {
	if m.invalid {
		return nil, dberr.NewClosedError("resolve link")
	}
	obj, err := m.db.Resolve(link)
	if err != nil {
		return nil, nativeerr.Translate("resolve link", err)
	}
	return obj, nil
}

// Wrap implements convert.Resolver.
func (m *ClassMap) Wrap(obj *native.Obj) (value.Value, error) {
	e, err := m.Helpers(obj.Table().Name())
	if err != nil {
		return nil, err
	}
	return e.Wrap(obj), nil
}

// Name returns the class name.
func (e *Entry) Name() string { return e.Schema.Name }

// Wrap returns a new wrapper for a row of this class. Wrappers are not
// interned; two wrappers over one row are Equal but not identical.
func (e *Entry) Wrap(obj *native.Obj) *Object {
	return &Object{entry: e, obj: obj}
}

// Converter returns the bound converter and schema of a property.
func (e *Entry) Converter(property string) (convert.Converter, schema.Property, error) {
	c, ok := e.converters[property]
	if !ok {
		return convert.Converter{}, schema.Property{}, &dberr.ReferenceError{Class: e.Schema.Name, Property: property}
	}
	p, _ := e.Schema.Property(property)
	return c, p, nil
}

func (e *Entry) checkOpen(op string) error {
	if e.cm.invalid || e.cm.db.IsClosed() {
		return dberr.NewClosedError(op)
	}
	return nil
}
