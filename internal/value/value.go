package value

import (
	"bytes"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Value is a sealed interface representing managed values.
type Value interface {
	value() // Sealed
}

// Extension lets types outside this package implement Value by embedding it.
type Extension struct{}

func (Extension) value() {}

// Undefined marks an absent value.
type Undefined struct{}

func (Undefined) value() {}

// Null is an explicit null.
type Null struct{}

func (Null) value() {}

// Bool is a boolean.
type Bool bool

func (Bool) value() {}

// Int is an integral number.
type Int int64

func (Int) value() {}

// Double is a floating point number.
type Double float64

func (Double) value() {}

// BigInt is a large integer of arbitrary width.
type BigInt struct {
	*big.Int
}

func (BigInt) value() {}

// String is a UTF-8 string.
type String string

func (String) value() {}

// Binary is an opaque byte blob.
type Binary []byte

func (Binary) value() {}

// Date is a point in time.
type Date time.Time

func (Date) value() {}

// Decimal is a 128-bit IEEE 754 decimal.
type Decimal primitive.Decimal128

func (Decimal) value() {}

// ObjectID is a 12-byte object identifier.
type ObjectID primitive.ObjectID

func (ObjectID) value() {}

// UUID is an RFC 4122 UUID.
type UUID uuid.UUID

func (UUID) value() {}

// Dict is a plain keyed value bag. It is accepted where an embedded object is
// created from literal values.
type Dict map[string]Value

func (Dict) value() {}

// Object is implemented by wrappers over stored rows.
type Object interface {
	Value
	ClassName() string
	IsValid() bool
}

// NewBigInt returns a BigInt holding n.
func NewBigInt(n int64) BigInt {
	return BigInt{big.NewInt(n)}
}

// ParseDecimal parses a decimal string.
func ParseDecimal(s string) (Decimal, error) {
	d, err := primitive.ParseDecimal128(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return Decimal(d), nil
}

// NewObjectID returns a freshly generated ObjectID.
func NewObjectID() ObjectID {
	return ObjectID(primitive.NewObjectID())
}

// NewUUID returns a random UUID.
func NewUUID() UUID {
	return UUID(uuid.New())
}

// IsNullish reports whether v is nil, Null or Undefined.
func IsNullish(v Value) bool {
	switch v.(type) {
	case nil, Null, Undefined:
		return true
	}
	return false
}

// TypeName returns a short name for the variant of v, used in diagnostics.
func TypeName(v Value) string {
	switch val := v.(type) {
	case nil, Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Double:
		return "double"
	case BigInt:
		return "bigint"
	case String:
		return "string"
	case Binary:
		return "binary"
	case Date:
		return "date"
	case Decimal:
		return "decimal"
	case ObjectID:
		return "objectId"
	case UUID:
		return "uuid"
	case Dict:
		return "dict"
	case Object:
		return "object<" + val.ClassName() + ">"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Format renders v for display and for error messages naming a key.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Undefined:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return fmt.Sprintf("%t", bool(val))
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Double:
		return fmt.Sprintf("%g", float64(val))
	case BigInt:
		if val.Int == nil {
			return "0n"
		}
		return val.String() + "n"
	case String:
		return fmt.Sprintf("%q", string(val))
	case Binary:
		return fmt.Sprintf("binary(%d)", len(val))
	case Date:
		return time.Time(val).UTC().Format(time.RFC3339Nano)
	case Decimal:
		return primitive.Decimal128(val).String()
	case ObjectID:
		return "ObjectId(" + primitive.ObjectID(val).Hex() + ")"
	case UUID:
		return uuid.UUID(val).String()
	case Dict:
		return fmt.Sprintf("dict(%d)", len(val))
	case Object:
		return "[" + val.ClassName() + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Equal reports whether a and b hold the same managed value. Objects compare
// by identity of the Go value; callers that need row identity compare native
// handles instead.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Undefined:
		switch b.(type) {
		case nil, Undefined:
			return true
		}
		return false
	case Binary:
		bv, ok := b.(Binary)
		return ok && bytes.Equal(av, bv)
	case BigInt:
		bv, ok := b.(BigInt)
		if !ok {
			return false
		}
		if av.Int == nil || bv.Int == nil {
			return av.Int == bv.Int
		}
		return av.Cmp(bv.Int) == 0
	case Date:
		bv, ok := b.(Date)
		return ok && time.Time(av).Equal(time.Time(bv))
	case Dict:
		bv, ok := b.(Dict)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !Equal(v, bv[k]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
