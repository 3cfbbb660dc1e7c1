package native

import (
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Value is a sealed interface over the engine's typed column values.
type Value interface {
	nativeValue() // Sealed
}

// TableKey identifies a table within an open database.
type TableKey int64

// ObjKey identifies a row within its table. Keys are never reused, so a
// stale ObjKey can never address a different row.
type ObjKey int64

// ColKey identifies a column within its table.
type ColKey int

// Null is the absence of a value in a nullable column.
type Null struct{}

// Bool is a boolean column value.
type Bool bool

// Int is a 64-bit integer column value.
type Int int64

// Float is a 32-bit floating point column value.
type Float float32

// Double is a 64-bit floating point column value.
type Double float64

// String is a text column value.
type String string

// Binary is a blob column value.
type Binary []byte

// Timestamp is seconds and nanoseconds since the Unix epoch. Nanos has the
// same sign as Seconds, or Seconds is zero.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// Decimal128 is an IEEE 754-2008 128-bit decimal.
type Decimal128 primitive.Decimal128

// ObjectID is a 12-byte object identifier.
type ObjectID primitive.ObjectID

// UUID is a 16-byte UUID.
type UUID uuid.UUID

// ObjLink is a link descriptor: a table and a row within it.
type ObjLink struct {
	Table TableKey
	Key   ObjKey
}

func (Null) nativeValue()       {}
func (Bool) nativeValue()       {}
func (Int) nativeValue()        {}
func (Float) nativeValue()      {}
func (Double) nativeValue()     {}
func (String) nativeValue()     {}
func (Binary) nativeValue()     {}
func (Timestamp) nativeValue()  {}
func (Decimal128) nativeValue() {}
func (ObjectID) nativeValue()   {}
func (UUID) nativeValue()       {}
func (ObjKey) nativeValue()     {}
func (ObjLink) nativeValue()    {}

// IsNull reports whether v is Null or a nil interface.
func IsNull(v Value) bool {
	switch v.(type) {
	case nil, Null:
		return true
	}
	return false
}

// TypeName names the variant of v for diagnostics.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Double:
		return "double"
	case String:
		return "string"
	case Binary:
		return "binary"
	case Timestamp:
		return "timestamp"
	case Decimal128:
		return "decimal128"
	case ObjectID:
		return "objectId"
	case UUID:
		return "uuid"
	case ObjKey:
		return "objKey"
	case ObjLink:
		return "objLink"
	default:
		return fmt.Sprintf("%T", v)
	}
}
