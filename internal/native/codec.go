package native

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/strata/internal/schema"
)

// Column storage classes. Declared types avoid the names go-sqlite3 gives
// special scan behavior to (BOOLEAN, DATE, DATETIME, TIMESTAMP).
const (
	sqlInteger = "INTEGER"
	sqlReal    = "REAL"
	sqlText    = "TEXT"
	sqlBlob    = "BLOB"
)

const timestampSize = 12

// zeroDecimal is the canonical encoding of decimal 0.
var zeroDecimal = primitive.NewDecimal128(0x3040000000000000, 0)

// sqlType returns the declared SQLite type for a scalar property.
func sqlType(t schema.PropertyType) string {
	switch t {
	case schema.TypeBool, schema.TypeInt, schema.TypeObject:
		return sqlInteger
	case schema.TypeFloat, schema.TypeDouble:
		return sqlReal
	case schema.TypeString:
		return sqlText
	default:
		return sqlBlob
	}
}

// sqlDefault returns the literal default for a required column of type t:
// the engine's zero value for that type.
func sqlDefault(t schema.PropertyType) string {
	switch t {
	case schema.TypeBool, schema.TypeInt:
		return "0"
	case schema.TypeFloat, schema.TypeDouble:
		return "0.0"
	case schema.TypeString:
		return "''"
	case schema.TypeData:
		return "X''"
	case schema.TypeDate:
		return fmt.Sprintf("X'%X'", encodeTimestamp(Timestamp{}))
	case schema.TypeDecimal:
		return fmt.Sprintf("X'%X'", encodeDecimal(Decimal128(zeroDecimal)))
	case schema.TypeObjectID:
		return fmt.Sprintf("X'%X'", make([]byte, 12))
	case schema.TypeUUID:
		return fmt.Sprintf("X'%X'", make([]byte, 16))
	default:
		return "NULL"
	}
}

// encodeTimestamp writes seconds (sign bit flipped) then nanos (offset to
// unsigned) big-endian, so stored blobs sort chronologically.
func encodeTimestamp(ts Timestamp) []byte {
	buf := make([]byte, timestampSize)
	binary.BigEndian.PutUint64(buf[:8], uint64(ts.Seconds)^(1<<63))
	binary.BigEndian.PutUint32(buf[8:], uint32(int64(ts.Nanos)+math.MaxInt32+1))
	return buf
}

func decodeTimestamp(b []byte) (Timestamp, error) {
	if len(b) != timestampSize {
		return Timestamp{}, fmt.Errorf("timestamp: want %d bytes, got %d", timestampSize, len(b))
	}
	secs := int64(binary.BigEndian.Uint64(b[:8]) ^ (1 << 63))
	nanos := int32(int64(binary.BigEndian.Uint32(b[8:])) - math.MaxInt32 - 1)
	return Timestamp{Seconds: secs, Nanos: nanos}, nil
}

func encodeDecimal(d Decimal128) []byte {
	h, l := primitive.Decimal128(d).GetBytes()
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], h)
	binary.BigEndian.PutUint64(buf[8:], l)
	return buf
}

func decodeDecimal(b []byte) (Decimal128, error) {
	if len(b) != 16 {
		return Decimal128{}, fmt.Errorf("decimal128: want 16 bytes, got %d", len(b))
	}
	return Decimal128(primitive.NewDecimal128(binary.BigEndian.Uint64(b[:8]), binary.BigEndian.Uint64(b[8:]))), nil
}

// encodeColumn converts v to the driver value stored in a column of
// property p. The engine checks the variant against the column type; it does
// not coerce.
func encodeColumn(p schema.Property, target TableKey, v Value) (any, error) {
	if IsNull(v) {
		if !p.Optional {
			return nil, newError(ErrCodeIllegalOperation, "column %q is not nullable", p.Name)
		}
		return nil, nil
	}
	mismatch := func() error {
		return newError(ErrCodeIllegalOperation, "column %q of type %s cannot hold %s", p.Name, p.Type, TypeName(v))
	}

	switch p.Type {
	case schema.TypeBool:
		if b, ok := v.(Bool); ok {
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case schema.TypeInt:
		if n, ok := v.(Int); ok {
			return int64(n), nil
		}
	case schema.TypeFloat:
		if f, ok := v.(Float); ok {
			return float64(f), nil
		}
	case schema.TypeDouble:
		if f, ok := v.(Double); ok {
			return float64(f), nil
		}
	case schema.TypeString:
		if s, ok := v.(String); ok {
			return string(s), nil
		}
	case schema.TypeData:
		if b, ok := v.(Binary); ok {
			if b == nil {
				return []byte{}, nil
			}
			return []byte(b), nil
		}
	case schema.TypeDate:
		if ts, ok := v.(Timestamp); ok {
			return encodeTimestamp(ts), nil
		}
	case schema.TypeDecimal:
		if d, ok := v.(Decimal128); ok {
			return encodeDecimal(d), nil
		}
	case schema.TypeObjectID:
		if id, ok := v.(ObjectID); ok {
			return id[:], nil
		}
	case schema.TypeUUID:
		if id, ok := v.(UUID); ok {
			return id[:], nil
		}
	case schema.TypeMixed:
		return encodeMixed(v)
	case schema.TypeObject:
		switch link := v.(type) {
		case ObjKey:
			return int64(link), nil
		case ObjLink:
			if link.Table != target {
				return nil, newError(ErrCodeIllegalOperation, "column %q links to table %d, not %d", p.Name, target, link.Table)
			}
			return int64(link.Key), nil
		}
	}
	return nil, mismatch()
}

// decodeColumn converts a scanned driver value back to a typed Value.
func decodeColumn(p schema.Property, raw any) (Value, error) {
	if raw == nil {
		return Null{}, nil
	}
	switch p.Type {
	case schema.TypeBool:
		n, err := asInt64(raw)
		return Bool(n != 0), err
	case schema.TypeInt:
		n, err := asInt64(raw)
		return Int(n), err
	case schema.TypeObject:
		n, err := asInt64(raw)
		return ObjKey(n), err
	case schema.TypeFloat:
		f, err := asFloat64(raw)
		return Float(float32(f)), err
	case schema.TypeDouble:
		f, err := asFloat64(raw)
		return Double(f), err
	case schema.TypeString:
		switch s := raw.(type) {
		case string:
			return String(s), nil
		case []byte:
			return String(s), nil
		}
	case schema.TypeData:
		if b, ok := raw.([]byte); ok {
			return Binary(append([]byte{}, b...)), nil
		}
		if s, ok := raw.(string); ok {
			return Binary(s), nil
		}
	case schema.TypeDate:
		if b, ok := raw.([]byte); ok {
			return decodeTimestamp(b)
		}
	case schema.TypeDecimal:
		if b, ok := raw.([]byte); ok {
			return decodeDecimal(b)
		}
	case schema.TypeObjectID:
		if b, ok := raw.([]byte); ok && len(b) == 12 {
			var id primitive.ObjectID
			copy(id[:], b)
			return ObjectID(id), nil
		}
	case schema.TypeUUID:
		if b, ok := raw.([]byte); ok {
			id, err := uuid.FromBytes(b)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", p.Name, err)
			}
			return UUID(id), nil
		}
	case schema.TypeMixed:
		if b, ok := raw.([]byte); ok {
			return decodeMixed(b)
		}
	}
	return nil, fmt.Errorf("column %q of type %s: unexpected stored value %T", p.Name, p.Type, raw)
}

func asInt64(raw any) (int64, error) {
	switch n := raw.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", raw)
}

func asFloat64(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected real, got %T", raw)
}
