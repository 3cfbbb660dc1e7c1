package schema

import "slices"

// PropertyType is the storage type of a property.
type PropertyType string

const (
	TypeBool       PropertyType = "bool"
	TypeInt        PropertyType = "int"
	TypeFloat      PropertyType = "float"
	TypeDouble     PropertyType = "double"
	TypeString     PropertyType = "string"
	TypeDate       PropertyType = "date"
	TypeData       PropertyType = "data"
	TypeObject     PropertyType = "object"
	TypeObjectID   PropertyType = "objectId"
	TypeDecimal    PropertyType = "decimal"
	TypeUUID       PropertyType = "uuid"
	TypeMixed      PropertyType = "mixed"
	TypeList       PropertyType = "list"
	TypeSet        PropertyType = "set"
	TypeDictionary PropertyType = "dictionary"
)

// primitiveTypes are the types valid as a scalar property or collection element.
var primitiveTypes = []PropertyType{
	TypeBool, TypeInt, TypeFloat, TypeDouble, TypeString, TypeDate,
	TypeData, TypeObjectID, TypeDecimal, TypeUUID, TypeMixed,
}

var indexableTypes = []PropertyType{
	TypeBool, TypeInt, TypeString, TypeDate, TypeObjectID, TypeUUID, TypeMixed,
}

var primaryKeyTypes = []PropertyType{
	TypeInt, TypeString, TypeObjectID, TypeUUID,
}

// IsPrimitive reports whether t is a scalar, non-link type.
func (t PropertyType) IsPrimitive() bool { return slices.Contains(primitiveTypes, t) }

// IsCollection reports whether t is list, set or dictionary.
func (t PropertyType) IsCollection() bool {
	return t == TypeList || t == TypeSet || t == TypeDictionary
}

// IsIndexable reports whether properties of type t may be indexed.
func (t PropertyType) IsIndexable() bool { return slices.Contains(indexableTypes, t) }

// CanBePrimaryKey reports whether t is valid for a primary key.
func (t PropertyType) CanBePrimaryKey() bool { return slices.Contains(primaryKeyTypes, t) }

// Kind is the category of an object schema.
type Kind string

const (
	KindNormal     Kind = "normal"
	KindEmbedded   Kind = "embedded"
	KindAsymmetric Kind = "asymmetric"
)

// Property is a canonical property: every field is explicit.
type Property struct {
	Name       string       `json:"name"`
	MappedName string       `json:"mapped_name"`
	Type       PropertyType `json:"type"`
	ObjectType string       `json:"object_type,omitempty"`
	Optional   bool         `json:"optional"`
	Indexed    bool         `json:"indexed"`
	IsPrimary  bool         `json:"is_primary"`
}

// IsLink reports whether the property references another class, either
// directly or as a collection element.
func (p Property) IsLink() bool {
	if p.Type == TypeObject {
		return true
	}
	return p.Type.IsCollection() && p.ObjectType != "" && !PropertyType(p.ObjectType).IsPrimitive()
}

// ObjectSchema is a canonical schema entry for one class.
type ObjectSchema struct {
	Name       string     `json:"name"`
	PrimaryKey string     `json:"primary_key,omitempty"`
	Kind       Kind       `json:"kind"`
	Properties []Property `json:"properties"`
}

// Property returns the named property.
func (o ObjectSchema) Property(name string) (Property, bool) {
	for _, p := range o.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// PrimaryKeyProperty returns the primary key property, if the class has one.
func (o ObjectSchema) PrimaryKeyProperty() (Property, bool) {
	if o.PrimaryKey == "" {
		return Property{}, false
	}
	return o.Property(o.PrimaryKey)
}

// Embedded reports whether the class is embedded-only.
func (o ObjectSchema) Embedded() bool { return o.Kind == KindEmbedded }

// Asymmetric reports whether the class is asymmetric (write-only).
func (o ObjectSchema) Asymmetric() bool { return o.Kind == KindAsymmetric }

// Clone returns a deep copy.
func (o ObjectSchema) Clone() ObjectSchema {
	o.Properties = slices.Clone(o.Properties)
	return o
}

// Schema is an ordered set of canonical object schemas.
type Schema []ObjectSchema

// Find returns the class with the given name.
func (s Schema) Find(name string) (ObjectSchema, bool) {
	for _, o := range s {
		if o.Name == name {
			return o, true
		}
	}
	return ObjectSchema{}, false
}

// Names returns class names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, o := range s {
		names[i] = o.Name
	}
	return names
}

// Clone returns a deep copy.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for i, o := range s {
		out[i] = o.Clone()
	}
	return out
}

// Equal reports whether two canonical schemas are identical.
func (s Schema) Equal(other Schema) bool {
	return slices.EqualFunc(s, other, func(a, b ObjectSchema) bool {
		return a.Name == b.Name && a.PrimaryKey == b.PrimaryKey && a.Kind == b.Kind &&
			slices.Equal(a.Properties, b.Properties)
	})
}
