package classmap

import (
	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/value"
)

// Prepared is a set of property values for a new object, already converted
// and checked. Creating from it writes nothing that was not validated.
type Prepared struct {
	entry  *Entry
	pk     native.Value
	fields []field
}

type field struct {
	col   native.ColKey
	value native.Value
	// child is set instead of value for an embedded object given as a Dict.
	child *Prepared
	// items holds the links of a list-of-object property.
	items []item
}

type item struct {
	key   native.ObjKey
	child *Prepared
}

// Prepare converts values for a new object of this class. Unknown keys fail
// with ReferenceError and mismatched values with TypeError. Undefined
// values, and null for required properties, are skipped so the column keeps
// its default. The primary key, if the class has one, is converted even
// when absent, so a missing required key fails here.
func (e *Entry) Prepare(values map[string]value.Value) (*Prepared, error) {
	if err := e.checkOpen("create " + e.Schema.Name); err != nil {
		return nil, err
	}
	for name := range values {
		if _, ok := e.converters[name]; !ok {
			return nil, &dberr.ReferenceError{Class: e.Schema.Name, Property: name}
		}
	}

	p := &Prepared{entry: e}
	for _, prop := range e.Schema.Properties {
		v, present := values[prop.Name]
		conv := e.converters[prop.Name]

		if prop.IsPrimary {
			n, err := conv.ToNative(v)
			if err != nil {
				return nil, err
			}
			p.pk = n
			continue
		}
		if !present || isUndefined(v) {
			continue
		}
		if _, ok := v.(value.Null); ok && !prop.Optional {
			continue
		}

		f := field{col: e.columns[prop.Name]}
		switch {
		case prop.Type == schema.TypeList && prop.IsLink():
			items, err := e.prepareItems(prop, v)
			if err != nil {
				return nil, err
			}
			f.items = items
		case prop.Type.IsCollection():
			if _, err := conv.ToNative(v); err != nil {
				return nil, err
			}
		default:
			child, embedded, err := e.prepareEmbedded(prop, v)
			if err != nil {
				return nil, err
			}
			if embedded {
				f.child = child
				break
			}
			n, err := conv.ToNative(v)
			if err != nil {
				return nil, err
			}
			f.value = n
		}
		p.fields = append(p.fields, f)
	}
	return p, nil
}

func isUndefined(v value.Value) bool {
	switch v.(type) {
	case nil, value.Undefined:
		return true
	}
	return false
}

// prepareEmbedded handles a Dict assigned to a link to an embedded class.
func (e *Entry) prepareEmbedded(prop schema.Property, v value.Value) (*Prepared, bool, error) {
	dict, ok := v.(value.Dict)
	if !ok || prop.Type != schema.TypeObject {
		return nil, false, nil
	}
	target, err := e.cm.Helpers(prop.ObjectType)
	if err != nil {
		return nil, false, err
	}
	if !target.Schema.Embedded() {
		return nil, false, nil
	}
	child, err := target.Prepare(dict)
	return child, true, err
}

// listValue is implemented by values that carry a sequence of items for a
// list property.
type listValue interface {
	Items() []value.Value
}

// List is a managed sequence used to initialize list properties at creation.
type List struct {
	value.Extension
	Values []value.Value
}

// Items returns the list items.
func (l List) Items() []value.Value { return l.Values }

func (e *Entry) prepareItems(prop schema.Property, v value.Value) ([]item, error) {
	lv, ok := v.(listValue)
	if !ok {
		return nil, &dberr.TypeError{Class: e.Schema.Name, Property: prop.Name, Expected: prop.ObjectType + "[]", Got: value.TypeName(v)}
	}
	elem := e.elements[prop.Name]
	target, err := e.cm.Helpers(prop.ObjectType)
	if err != nil {
		return nil, err
	}
	items := make([]item, 0, len(lv.Items()))
	for _, iv := range lv.Items() {
		if dict, ok := iv.(value.Dict); ok && target.Schema.Embedded() {
			child, err := target.Prepare(dict)
			if err != nil {
				return nil, err
			}
			items = append(items, item{child: child})
			continue
		}
		n, err := elem.ToNative(iv)
		if err != nil {
			return nil, err
		}
		items = append(items, item{key: n.(native.ObjKey)})
	}
	return items, nil
}

// Create inserts the object and writes its prepared values. The caller is
// responsible for the write transaction.
func (p *Prepared) Create() (*Object, error) {
	obj, err := p.insert()
	if err != nil {
		return nil, err
	}
	return p.entry.Wrap(obj), nil
}

func (p *Prepared) insert() (*native.Obj, error) {
	var obj *native.Obj
	var err error
	if p.entry.Schema.PrimaryKey != "" {
		obj, err = p.entry.Table.CreateObjectWithPrimaryKey(p.pk)
	} else {
		obj, err = p.entry.Table.CreateObject()
	}
	if err != nil {
		return nil, err
	}
	if err := p.apply(obj); err != nil {
		// No half-written rows.
		_ = obj.Remove()
		return nil, err
	}
	return obj, nil
}

func (p *Prepared) apply(obj *native.Obj) error {
	for _, f := range p.fields {
		switch {
		case f.child != nil:
			child, err := f.child.insert()
			if err != nil {
				return err
			}
			if err := obj.Set(f.col, child.Key()); err != nil {
				return err
			}
		case f.items != nil:
			list, err := obj.List(f.col)
			if err != nil {
				return err
			}
			for _, it := range f.items {
				key := it.key
				if it.child != nil {
					child, err := it.child.insert()
					if err != nil {
						return err
					}
					key = child.Key()
				}
				if err := list.Add(key); err != nil {
					return err
				}
			}
		case f.value != nil:
			if err := obj.Set(f.col, f.value); err != nil {
				return err
			}
		}
	}
	return nil
}
