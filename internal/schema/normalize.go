package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/strata/internal/dberr"
)

// Normalize turns a declarative schema into its canonical form.
//
// It is pure: the input is never mutated and a new Schema is returned.
// Class order and property order are preserved. Normalizing the ToRaw form
// of a canonical schema yields an identical schema.
func Normalize(raw []RawObjectSchema) (Schema, error) {
	classes := make(map[string]RawObjectSchema, len(raw))
	names := make([]string, 0, len(raw))
	for _, rc := range raw {
		name := canonicalName(rc.Name)
		if name == "" {
			return nil, &dberr.SchemaError{Message: "class name must not be empty"}
		}
		if _, dup := classes[name]; dup {
			return nil, &dberr.SchemaError{Class: name, Message: "class is declared more than once"}
		}
		classes[name] = rc
		names = append(names, name)
	}

	out := make(Schema, 0, len(raw))
	for _, name := range names {
		os, err := normalizeClass(name, classes[name], classes)
		if err != nil {
			return nil, err
		}
		out = append(out, os)
	}
	return out, nil
}

func normalizeClass(name string, rc RawObjectSchema, classes map[string]RawObjectSchema) (ObjectSchema, error) {
	if rc.Embedded && rc.Asymmetric {
		return ObjectSchema{}, &dberr.SchemaError{Class: name, Message: "a class cannot be both embedded and asymmetric"}
	}

	os := ObjectSchema{Name: name, Kind: KindNormal}
	switch {
	case rc.Embedded:
		os.Kind = KindEmbedded
	case rc.Asymmetric:
		os.Kind = KindAsymmetric
	}

	primary := canonicalName(rc.PrimaryKey)
	seen := make(map[string]bool, len(rc.Properties))
	mapped := make(map[string]bool, len(rc.Properties))
	os.Properties = make([]Property, 0, len(rc.Properties))

	for _, rp := range rc.Properties {
		prop, err := normalizeProperty(name, rp, classes)
		if err != nil {
			return ObjectSchema{}, err
		}
		if seen[prop.Name] {
			return ObjectSchema{}, &dberr.SchemaError{Class: name, Property: prop.Name, Message: "property is declared more than once"}
		}
		if mapped[prop.MappedName] {
			return ObjectSchema{}, &dberr.SchemaError{Class: name, Property: prop.Name, Message: fmt.Sprintf("mapped name %q is already in use", prop.MappedName)}
		}
		seen[prop.Name] = true
		mapped[prop.MappedName] = true

		if rp.PrimaryKey {
			if primary != "" && primary != prop.Name {
				return ObjectSchema{}, &dberr.SchemaError{
					Class:    name,
					Property: prop.Name,
					Message:  fmt.Sprintf("duplicate primary key: %q is already the primary key", primary),
				}
			}
			primary = prop.Name
		}
		os.Properties = append(os.Properties, prop)
	}

	if primary == "" {
		return os, nil
	}
	if os.Kind == KindEmbedded {
		return ObjectSchema{}, &dberr.SchemaError{Class: name, Property: primary, Message: "embedded classes cannot have a primary key"}
	}

	found := false
	for i := range os.Properties {
		p := &os.Properties[i]
		if p.Name != primary {
			continue
		}
		if !p.Type.CanBePrimaryKey() {
			return ObjectSchema{}, &dberr.SchemaError{Class: name, Property: primary, Message: fmt.Sprintf("type %s cannot be a primary key", p.Type)}
		}
		p.IsPrimary = true
		p.Indexed = true
		found = true
	}
	if !found {
		return ObjectSchema{}, &dberr.SchemaError{Class: name, Property: primary, Message: "primary key property does not exist"}
	}
	os.PrimaryKey = primary
	return os, nil
}

func normalizeProperty(class string, rp RawProperty, classes map[string]RawObjectSchema) (Property, error) {
	name := canonicalName(rp.Name)
	if name == "" {
		return Property{}, &dberr.SchemaError{Class: class, Message: "property name must not be empty"}
	}
	if rp.Type == "" && rp.ObjectType == "" {
		return Property{}, &dberr.SchemaError{Class: class, Property: name, Message: "type is required"}
	}

	sh := parseShorthand(rp.Type)
	if rp.Type == "" {
		sh = shorthand{typ: TypeObject}
	}
	objectType := sh.objectType
	if rp.ObjectType != "" {
		objectType = canonicalName(rp.ObjectType)
	}
	optional := sh.optional
	if sh.typ.IsCollection() {
		optional = sh.elementOptional
	}
	if rp.Optional != nil {
		optional = *rp.Optional
	}

	prop := Property{
		Name:       name,
		MappedName: name,
		Type:       sh.typ,
		Optional:   optional,
		Indexed:    rp.Indexed,
	}
	if rp.MappedTo != "" {
		prop.MappedName = canonicalName(rp.MappedTo)
	}

	fail := func(format string, args ...any) (Property, error) {
		return Property{}, &dberr.SchemaError{Class: class, Property: name, Message: fmt.Sprintf(format, args...)}
	}

	switch {
	case prop.Type == TypeObject:
		if objectType == "" {
			return fail("object property requires an object type")
		}
		target, ok := classes[objectType]
		if !ok {
			return fail("unknown object type %q", objectType)
		}
		if target.Asymmetric {
			return fail("cannot link to asymmetric class %q", objectType)
		}
		prop.ObjectType = objectType
		prop.Optional = true
	case prop.Type.IsCollection():
		if objectType == "" {
			return fail("%s property requires an element type", prop.Type)
		}
		elem := PropertyType(objectType)
		switch {
		case elem.IsPrimitive():
			if elem == TypeMixed {
				prop.Optional = true
			}
		case elem.IsCollection() || elem == TypeObject:
			return fail("invalid %s element type %q", prop.Type, objectType)
		default:
			target, ok := classes[objectType]
			if !ok {
				return fail("unknown object type %q", objectType)
			}
			if target.Asymmetric {
				return fail("cannot link to asymmetric class %q", objectType)
			}
			if prop.Type == TypeDictionary {
				prop.Optional = true
			} else if prop.Optional {
				return fail("%s of objects cannot be optional", prop.Type)
			}
		}
		prop.ObjectType = objectType
	case prop.Type.IsPrimitive():
		if rp.ObjectType != "" {
			return fail("%s property cannot have an object type", prop.Type)
		}
		if prop.Type == TypeMixed {
			prop.Optional = true
		}
	default:
		return fail("unrecognized type %q", rp.Type)
	}

	if prop.Indexed && !(prop.Type.IsIndexable()) {
		return fail("type %s cannot be indexed", prop.Type)
	}
	return prop, nil
}

// ToRaw renders a canonical schema in fully explicit raw form.
func ToRaw(s Schema) []RawObjectSchema {
	out := make([]RawObjectSchema, len(s))
	for i, os := range s {
		rc := RawObjectSchema{
			Name:       os.Name,
			PrimaryKey: os.PrimaryKey,
			Embedded:   os.Kind == KindEmbedded,
			Asymmetric: os.Kind == KindAsymmetric,
			Properties: make(RawProperties, len(os.Properties)),
		}
		for j, p := range os.Properties {
			rp := RawProperty{
				Name:       p.Name,
				Type:       string(p.Type),
				ObjectType: p.ObjectType,
				Optional:   Bool(p.Optional),
				Indexed:    p.Indexed,
				PrimaryKey: p.IsPrimary,
			}
			if p.MappedName != p.Name {
				rp.MappedTo = p.MappedName
			}
			rc.Properties[j] = rp
		}
		out[i] = rc
	}
	return out
}

func canonicalName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
