package convert

import (
	"time"

	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/value"
)

// MixedTag is the closed set of variants a mixed property holds.
type MixedTag string

const (
	MixedNone     MixedTag = "none"
	MixedBool     MixedTag = "bool"
	MixedNumber   MixedTag = "number"
	MixedBigInt   MixedTag = "bigint"
	MixedString   MixedTag = "string"
	MixedBinary   MixedTag = "binary"
	MixedDate     MixedTag = "date"
	MixedDecimal  MixedTag = "decimal"
	MixedObjectID MixedTag = "objectId"
	MixedUUID     MixedTag = "uuid"
	MixedLink     MixedTag = "link"
)

// TagOf classifies a managed value for storage in a mixed property. Int is
// stored as a native integer, so it shares the bigint tag.
func TagOf(v value.Value) (MixedTag, bool) {
	switch v.(type) {
	case nil, value.Null, value.Undefined:
		return MixedNone, true
	case value.Bool:
		return MixedBool, true
	case value.Double:
		return MixedNumber, true
	case value.Int, value.BigInt:
		return MixedBigInt, true
	case value.String:
		return MixedString, true
	case value.Binary:
		return MixedBinary, true
	case value.Date:
		return MixedDate, true
	case value.Decimal:
		return MixedDecimal, true
	case value.ObjectID:
		return MixedObjectID, true
	case value.UUID:
		return MixedUUID, true
	case Row, Link:
		return MixedLink, true
	}
	return "", false
}

func (c Converter) mixedTo(v value.Value) (native.Value, error) {
	tag, ok := TagOf(v)
	if !ok {
		return nil, c.typeError(v)
	}
	switch tag {
	case MixedNone:
		return native.Null{}, nil
	case MixedBool:
		return native.Bool(v.(value.Bool)), nil
	case MixedNumber:
		return native.Double(v.(value.Double)), nil
	case MixedBigInt:
		n, _ := toInt64(v)
		return native.Int(n), nil
	case MixedString:
		return native.String(v.(value.String)), nil
	case MixedBinary:
		return native.Binary(append([]byte{}, v.(value.Binary)...)), nil
	case MixedDate:
		return timestamp(time.Time(v.(value.Date))), nil
	case MixedDecimal:
		return native.Decimal128(v.(value.Decimal)), nil
	case MixedObjectID:
		return native.ObjectID(v.(value.ObjectID)), nil
	case MixedUUID:
		return native.UUID(v.(value.UUID)), nil
	case MixedLink:
		obj, _, err := c.rowOf(v)
		if err != nil {
			return nil, err
		}
		return obj.Link(), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) mixedFrom(v native.Value) (value.Value, error) {
	switch val := v.(type) {
	case native.Bool:
		return value.Bool(val), nil
	case native.Int:
		return value.Int(val), nil
	case native.Float:
		return value.Double(float64(val)), nil
	case native.Double:
		return value.Double(val), nil
	case native.String:
		return value.String(val), nil
	case native.Binary:
		return value.Binary(val), nil
	case native.Timestamp:
		return value.Date(time.Unix(val.Seconds, int64(val.Nanos)).UTC()), nil
	case native.Decimal128:
		return value.Decimal(val), nil
	case native.ObjectID:
		return value.ObjectID(val), nil
	case native.UUID:
		return value.UUID(val), nil
	case native.ObjLink:
		return c.linkFrom(val)
	}
	return nil, c.nativeError(v)
}
