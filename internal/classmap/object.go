package classmap

import (
	"fmt"

	"github.com/roach88/strata/internal/collection"
	"github.com/roach88/strata/internal/convert"
	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/dberr/nativeerr"
	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/value"
)

// Object is a managed wrapper over one stored row. Every accessor checks
// that the database is open and the row still exists.
type Object struct {
	value.Extension
	entry *Entry
	obj   *native.Obj
}

var _ convert.Row = (*Object)(nil)

// ClassName returns the object's class.
func (o *Object) ClassName() string { return o.entry.Schema.Name }

// Native returns the row handle.
func (o *Object) Native() *native.Obj { return o.obj }

// IsValid reports whether the database is open and the row still exists.
func (o *Object) IsValid() bool {
	return o.entry.checkOpen("") == nil && o.obj.IsValid()
}

// Equal reports whether o and other wrap the same row.
func (o *Object) Equal(other *Object) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.obj.Table() == other.obj.Table() && o.obj.Key() == other.obj.Key()
}

// Keys returns the property names in schema order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.entry.Schema.Properties))
	for i, p := range o.entry.Schema.Properties {
		keys[i] = p.Name
	}
	return keys
}

func (o *Object) validate(op string) error {
	if err := o.entry.checkOpen(op); err != nil {
		return err
	}
	if !o.obj.IsValid() {
		return &dberr.StateError{Op: op, Message: dberr.MsgInvalidObject}
	}
	return nil
}

// Get reads a property.
func (o *Object) Get(property string) (value.Value, error) {
	op := "get " + o.ClassName() + "." + property
	if err := o.entry.checkOpen(op); err != nil {
		return nil, err
	}
	conv, p, err := o.entry.Converter(property)
	if err != nil {
		return nil, err
	}
	if p.Type.IsCollection() {
		return nil, &dberr.NotSupportedError{Feature: fmt.Sprintf("reading %s property %s.%s as a value", p.Type, o.ClassName(), property)}
	}
	raw, err := o.obj.Get(o.entry.columns[property])
	if err != nil {
		return nil, nativeerr.Translate(op, err)
	}
	v, err := conv.FromNative(raw)
	if err != nil {
		return nil, nativeerr.Translate(op, err)
	}
	return v, nil
}

// Set writes a property. The value is checked against the property's type
// before anything is written. A Dict assigned to a link to an embedded
// class creates the embedded object.
func (o *Object) Set(property string, v value.Value) error {
	op := "set " + o.ClassName() + "." + property
	if err := o.validate(op); err != nil {
		return err
	}
	conv, p, err := o.entry.Converter(property)
	if err != nil {
		return err
	}
	if p.IsPrimary {
		return &dberr.StateError{Op: op, Message: "primary key cannot be changed after creation"}
	}

	if dict, ok := v.(value.Dict); ok && p.Type == schema.TypeObject {
		target, err := o.entry.cm.Helpers(p.ObjectType)
		if err != nil {
			return err
		}
		if target.Schema.Embedded() {
			prepared, err := target.Prepare(dict)
			if err != nil {
				return err
			}
			child, err := prepared.insert()
			if err != nil {
				return nativeerr.Translate(op, err)
			}
			return nativeerr.Translate(op, o.obj.Set(o.entry.columns[property], child.Key()))
		}
	}

	n, err := conv.ToNative(v)
	if err != nil {
		return err
	}
	return nativeerr.Translate(op, o.obj.Set(o.entry.columns[property], n))
}

// PrimaryKey returns the primary key value.
func (o *Object) PrimaryKey() (value.Value, error) {
	if o.entry.Schema.PrimaryKey == "" {
		return nil, &dberr.SchemaError{Class: o.ClassName(), Message: "class has no primary key"}
	}
	return o.Get(o.entry.Schema.PrimaryKey)
}

// ToMap reads every non-collection property.
func (o *Object) ToMap() (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(o.entry.Schema.Properties))
	for _, p := range o.entry.Schema.Properties {
		if p.Type.IsCollection() {
			continue
		}
		v, err := o.Get(p.Name)
		if err != nil {
			return nil, err
		}
		out[p.Name] = v
	}
	return out, nil
}

// List returns the live objects of a list-of-object property.
func (o *Object) List(property string) (*collection.Results[*Object], error) {
	op := "list " + o.ClassName() + "." + property
	if err := o.validate(op); err != nil {
		return nil, err
	}
	_, p, err := o.entry.Converter(property)
	if err != nil {
		return nil, err
	}
	if _, ok := o.entry.elements[property]; !ok {
		return nil, &dberr.NotSupportedError{Feature: fmt.Sprintf("%s property %s.%s of %s", p.Type, o.ClassName(), property, p.ObjectType)}
	}
	list, err := o.obj.List(o.entry.columns[property])
	if err != nil {
		return nil, nativeerr.Translate(op, err)
	}
	target, err := o.entry.cm.Helpers(p.ObjectType)
	if err != nil {
		return nil, err
	}
	return collection.New(list, target.materialize), nil
}

// Append adds objects to a list-of-object property. Each item is a wrapper
// or link descriptor of the element class, or a Dict when the element class
// is embedded.
func (o *Object) Append(property string, items ...value.Value) error {
	op := "append to " + o.ClassName() + "." + property
	if err := o.validate(op); err != nil {
		return err
	}
	_, p, err := o.entry.Converter(property)
	if err != nil {
		return err
	}
	elem, ok := o.entry.elements[property]
	if !ok {
		return &dberr.NotSupportedError{Feature: fmt.Sprintf("appending to %s property %s.%s", p.Type, o.ClassName(), property)}
	}
	target, err := o.entry.cm.Helpers(p.ObjectType)
	if err != nil {
		return err
	}

	// Validate everything before the first write.
	keys := make([]native.ObjKey, len(items))
	children := make([]*Prepared, len(items))
	for i, item := range items {
		if dict, ok := item.(value.Dict); ok && target.Schema.Embedded() {
			if children[i], err = target.Prepare(dict); err != nil {
				return err
			}
			continue
		}
		n, err := elem.ToNative(item)
		if err != nil {
			return err
		}
		keys[i] = n.(native.ObjKey)
	}

	list, err := o.obj.List(o.entry.columns[property])
	if err != nil {
		return nativeerr.Translate(op, err)
	}
	for i := range items {
		if children[i] != nil {
			child, err := children[i].insert()
			if err != nil {
				return nativeerr.Translate(op, err)
			}
			keys[i] = child.Key()
		}
		if err := list.Add(keys[i]); err != nil {
			return nativeerr.Translate(op, err)
		}
	}
	return nil
}

// RemoveAt drops the item at index from a list-of-object property. An
// embedded item is deleted with it.
func (o *Object) RemoveAt(property string, index int) error {
	list, err := o.mutableList("remove from", property)
	if err != nil {
		return err
	}
	return nativeerr.Translate("remove from "+o.ClassName()+"."+property, list.Remove(index))
}

// ClearList drops every item of a list-of-object property.
func (o *Object) ClearList(property string) error {
	list, err := o.mutableList("clear", property)
	if err != nil {
		return err
	}
	return nativeerr.Translate("clear "+o.ClassName()+"."+property, list.Clear())
}

func (o *Object) mutableList(verb, property string) (*native.List, error) {
	op := verb + " " + o.ClassName() + "." + property
	if err := o.validate(op); err != nil {
		return nil, err
	}
	_, p, err := o.entry.Converter(property)
	if err != nil {
		return nil, err
	}
	if _, ok := o.entry.elements[property]; !ok {
		return nil, &dberr.NotSupportedError{Feature: fmt.Sprintf("%s on %s property %s.%s", verb, p.Type, o.ClassName(), property)}
	}
	list, err := o.obj.List(o.entry.columns[property])
	return list, nativeerr.Translate(op, err)
}

func (e *Entry) materialize(obj *native.Obj) (*Object, error) {
	if err := e.checkOpen("read results"); err != nil {
		return nil, err
	}
	return e.Wrap(obj), nil
}

// Results returns the live objects of the class's table.
func (e *Entry) Results() *collection.Results[*Object] {
	return collection.New(e.Table.Results(), e.materialize)
}
