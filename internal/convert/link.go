package convert

import (
	"fmt"

	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/value"
)

// rowOf extracts the native row behind a managed link value. It accepts
// exactly two shapes: a wrapper object and a link descriptor.
func (c Converter) rowOf(v value.Value) (*native.Obj, bool, error) {
	switch ref := v.(type) {
	case Row:
		if !ref.IsValid() {
			return nil, true, &dberr.StateError{Op: "link " + c.opts.Class + "." + c.opts.Property, Message: dberr.MsgInvalidObject}
		}
		return ref.Native(), true, nil
	case Link:
		if c.opts.Realm == nil {
			return nil, true, fmt.Errorf("%s.%s: no resolver for link descriptors", c.opts.Class, c.opts.Property)
		}
		obj, err := c.opts.Realm.Resolve(ref.Target)
		if err != nil {
			return nil, true, err
		}
		return obj, true, nil
	}
	return nil, false, nil
}

func (c Converter) linkTo(v value.Value) (native.Value, error) {
	obj, ok, err := c.rowOf(v)
	if !ok {
		return nil, c.typeError(v)
	}
	if err != nil {
		return nil, err
	}
	if obj.Table().Name() != c.opts.ObjectType {
		return nil, &dberr.TypeError{
			Class:    c.opts.Class,
			Property: c.opts.Property,
			Expected: c.expected(),
			Got:      "object<" + obj.Table().Name() + ">",
		}
	}
	// An embedded object already has its one parent. New ones are created
	// from a Dict.
	if obj.Table().Embedded() {
		return nil, &dberr.TypeError{
			Class:    c.opts.Class,
			Property: c.opts.Property,
			Expected: "a Dict for embedded " + c.expected(),
			Got:      "existing embedded object<" + obj.Table().Name() + ">",
		}
	}
	return obj.Key(), nil
}

// linkFrom resolves a stored key through the target table. The resolved row
// is wrapped directly, so it never re-enters a converter.
func (c Converter) linkFrom(v native.Value) (value.Value, error) {
	var obj *native.Obj
	switch link := v.(type) {
	case native.ObjKey:
		if c.opts.Realm == nil {
			return nil, fmt.Errorf("%s.%s: no resolver for links", c.opts.Class, c.opts.Property)
		}
		table, err := c.opts.Realm.Table(c.opts.ObjectType)
		if err != nil {
			return nil, err
		}
		if obj, err = table.Object(link); err != nil {
			return nil, err
		}
	case native.ObjLink:
		if c.opts.Realm == nil {
			return Link{Target: link}, nil
		}
		// Mixed links carry no back-link, so the target may be gone.
		var err error
		if obj, err = c.opts.Realm.Resolve(link); native.HasCode(err, native.ErrCodeKeyNotFound) {
			return value.Null{}, nil
		} else if err != nil {
			return nil, err
		}
	default:
		return nil, c.nativeError(v)
	}
	return c.opts.Realm.Wrap(obj)
}
