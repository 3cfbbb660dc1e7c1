// Package convert maps property values between the managed value domain
// and the native engine's typed columns.
//
// Get returns the converter for a property type. Converters are pure: they
// read through the Resolver to follow links but never mutate the database.
package convert

import (
	"fmt"

	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/value"
)

// Resolver follows links for link and mixed converters. The class map of an
// open database implements it.
type Resolver interface {
	Table(class string) (*native.Table, error)
	Resolve(link native.ObjLink) (*native.Obj, error)
	Wrap(obj *native.Obj) (value.Value, error)
}

// Row is a managed object backed by a native row.
type Row interface {
	value.Object
	Native() *native.Obj
}

// Link is a managed reference to a row by link descriptor, produced when a
// link is read without a resolver.
type Link struct {
	value.Extension
	Target native.ObjLink
}

// Options binds a converter to one property.
type Options struct {
	Optional bool
	// ObjectType is the target class of an object property.
	ObjectType string
	Realm      Resolver

	// Class and Property name the property in error messages.
	Class    string
	Property string
}

// Converter converts one property's values in both directions.
type Converter struct {
	Type       schema.PropertyType
	opts       Options
	toNative   func(value.Value) (native.Value, error)
	fromNative func(native.Value) (value.Value, error)

	unsupported bool
}

// Optional reports whether the converter accepts null.
func (c Converter) Optional() bool { return c.opts.Optional }

// ObjectType returns the link target class, if any.
func (c Converter) ObjectType() string { return c.opts.ObjectType }

// ToNative converts a managed value for storage. Null and undefined map to
// native null on optional properties and fail otherwise.
func (c Converter) ToNative(v value.Value) (native.Value, error) {
	if c.unsupported {
		return nil, c.notSupported()
	}
	if value.IsNullish(v) {
		if c.opts.Optional {
			return native.Null{}, nil
		}
		return nil, c.typeError(v)
	}
	return c.toNative(v)
}

// FromNative converts a stored value back to a managed one.
func (c Converter) FromNative(v native.Value) (value.Value, error) {
	if c.unsupported {
		return nil, c.notSupported()
	}
	if native.IsNull(v) {
		if c.opts.Optional {
			return value.Null{}, nil
		}
		return nil, fmt.Errorf("%s.%s: unexpected null in required column", c.opts.Class, c.opts.Property)
	}
	return c.fromNative(v)
}

func (c Converter) expected() string {
	name := string(c.Type)
	if c.Type == schema.TypeObject {
		name = "object<" + c.opts.ObjectType + ">"
	}
	if c.opts.Optional {
		name += "?"
	}
	return name
}

func (c Converter) typeError(v value.Value) error {
	return &dberr.TypeError{
		Class:    c.opts.Class,
		Property: c.opts.Property,
		Expected: c.expected(),
		Got:      value.TypeName(v),
	}
}

func (c Converter) nativeError(v native.Value) error {
	return fmt.Errorf("%s.%s: stored %s does not match %s",
		c.opts.Class, c.opts.Property, native.TypeName(v), c.Type)
}

// Get returns the converter for property type t. Collection types return a
// converter whose every call fails with NotSupportedError.
func Get(t schema.PropertyType, opts Options) Converter {
	c := Converter{Type: t, opts: opts}
	switch t {
	case schema.TypeBool:
		c.toNative, c.fromNative = c.boolTo, c.boolFrom
	case schema.TypeInt:
		c.toNative, c.fromNative = c.intTo, c.intFrom
	case schema.TypeFloat:
		c.toNative, c.fromNative = c.floatTo, c.floatFrom
	case schema.TypeDouble:
		c.toNative, c.fromNative = c.doubleTo, c.doubleFrom
	case schema.TypeString:
		c.toNative, c.fromNative = c.stringTo, c.stringFrom
	case schema.TypeData:
		c.toNative, c.fromNative = c.dataTo, c.dataFrom
	case schema.TypeDate:
		c.toNative, c.fromNative = c.dateTo, c.dateFrom
	case schema.TypeObjectID:
		c.toNative, c.fromNative = c.objectIDTo, c.objectIDFrom
	case schema.TypeDecimal:
		c.toNative, c.fromNative = c.decimalTo, c.decimalFrom
	case schema.TypeUUID:
		c.toNative, c.fromNative = c.uuidTo, c.uuidFrom
	case schema.TypeObject:
		c.toNative, c.fromNative = c.linkTo, c.linkFrom
	case schema.TypeMixed:
		c.opts.Optional = true
		c.toNative, c.fromNative = c.mixedTo, c.mixedFrom
	default:
		c.unsupported = true
	}
	return c
}

func (c Converter) notSupported() error {
	return &dberr.NotSupportedError{
		Feature: fmt.Sprintf("converting %s property %s.%s", c.Type, c.opts.Class, c.opts.Property),
	}
}
