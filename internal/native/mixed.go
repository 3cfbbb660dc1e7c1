package native

import (
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mixed columns store a BSON envelope {t: tag, v: payload}. The tag keeps
// variants apart that share a BSON representation (float and double,
// binary and uuid).
const (
	mixedBool      = "bool"
	mixedInt       = "int"
	mixedFloat     = "float"
	mixedDouble    = "double"
	mixedString    = "string"
	mixedBinary    = "binary"
	mixedTimestamp = "timestamp"
	mixedDecimal   = "decimal"
	mixedObjectID  = "objectId"
	mixedUUID      = "uuid"
	mixedLink      = "link"
)

func encodeMixed(v Value) ([]byte, error) {
	var tag string
	var payload any
	switch val := v.(type) {
	case Bool:
		tag, payload = mixedBool, bool(val)
	case Int:
		tag, payload = mixedInt, int64(val)
	case Float:
		tag, payload = mixedFloat, float64(val)
	case Double:
		tag, payload = mixedDouble, float64(val)
	case String:
		tag, payload = mixedString, string(val)
	case Binary:
		tag, payload = mixedBinary, primitive.Binary{Data: []byte(val)}
	case Timestamp:
		tag, payload = mixedTimestamp, bson.D{{Key: "s", Value: val.Seconds}, {Key: "n", Value: val.Nanos}}
	case Decimal128:
		tag, payload = mixedDecimal, primitive.Decimal128(val)
	case ObjectID:
		tag, payload = mixedObjectID, primitive.ObjectID(val)
	case UUID:
		tag, payload = mixedUUID, primitive.Binary{Subtype: bson.TypeBinaryUUID, Data: val[:]}
	case ObjLink:
		tag, payload = mixedLink, bson.D{{Key: "table", Value: int64(val.Table)}, {Key: "key", Value: int64(val.Key)}}
	default:
		return nil, newError(ErrCodeIllegalOperation, "mixed column cannot hold %s", TypeName(v))
	}
	return bson.Marshal(bson.D{{Key: "t", Value: tag}, {Key: "v", Value: payload}})
}

func decodeMixed(b []byte) (Value, error) {
	doc := bson.Raw(b)
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("mixed: %w", err)
	}
	tag, ok := doc.Lookup("t").StringValueOK()
	if !ok {
		return nil, fmt.Errorf("mixed: missing tag")
	}
	rv := doc.Lookup("v")
	bad := func() (Value, error) {
		return nil, fmt.Errorf("mixed: malformed %s payload", tag)
	}

	switch tag {
	case mixedBool:
		if x, ok := rv.BooleanOK(); ok {
			return Bool(x), nil
		}
	case mixedInt:
		if x, ok := rv.Int64OK(); ok {
			return Int(x), nil
		}
	case mixedFloat:
		if x, ok := rv.DoubleOK(); ok {
			return Float(float32(x)), nil
		}
	case mixedDouble:
		if x, ok := rv.DoubleOK(); ok {
			return Double(x), nil
		}
	case mixedString:
		if x, ok := rv.StringValueOK(); ok {
			return String(x), nil
		}
	case mixedBinary:
		if _, data, ok := rv.BinaryOK(); ok {
			return Binary(append([]byte{}, data...)), nil
		}
	case mixedTimestamp:
		if sub, ok := rv.DocumentOK(); ok {
			secs, ok1 := sub.Lookup("s").Int64OK()
			nanos, ok2 := sub.Lookup("n").Int32OK()
			if ok1 && ok2 {
				return Timestamp{Seconds: secs, Nanos: nanos}, nil
			}
		}
	case mixedDecimal:
		if x, ok := rv.Decimal128OK(); ok {
			return Decimal128(x), nil
		}
	case mixedObjectID:
		if x, ok := rv.ObjectIDOK(); ok {
			return ObjectID(x), nil
		}
	case mixedUUID:
		if _, data, ok := rv.BinaryOK(); ok {
			id, err := uuid.FromBytes(data)
			if err != nil {
				return nil, fmt.Errorf("mixed: %w", err)
			}
			return UUID(id), nil
		}
	case mixedLink:
		if sub, ok := rv.DocumentOK(); ok {
			table, ok1 := sub.Lookup("table").Int64OK()
			key, ok2 := sub.Lookup("key").Int64OK()
			if ok1 && ok2 {
				return ObjLink{Table: TableKey(table), Key: ObjKey(key)}, nil
			}
		}
	default:
		return nil, fmt.Errorf("mixed: unknown tag %q", tag)
	}
	return bad()
}
