package convert

import (
	"math"
	"math/big"
	"time"

	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/value"
)

var (
	minInt64Float = -math.Pow(2, 63)
	maxInt64Float = math.Pow(2, 63)
	lowMask64     = new(big.Int).SetUint64(math.MaxUint64)
)

func (c Converter) boolTo(v value.Value) (native.Value, error) {
	if b, ok := v.(value.Bool); ok {
		return native.Bool(b), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) boolFrom(v native.Value) (value.Value, error) {
	if b, ok := v.(native.Bool); ok {
		return value.Bool(b), nil
	}
	return nil, c.nativeError(v)
}

// narrowBigInt keeps the low 64 bits of n in two's complement.
func narrowBigInt(n *big.Int) int64 {
	if n == nil {
		return 0
	}
	return int64(new(big.Int).And(n, lowMask64).Uint64())
}

// toInt64 accepts integral managed numbers. Large integers are narrowed;
// doubles must be integral and in range.
func toInt64(v value.Value) (int64, bool) {
	switch n := v.(type) {
	case value.Int:
		return int64(n), true
	case value.BigInt:
		return narrowBigInt(n.Int), true
	case value.Double:
		f := float64(n)
		if math.Trunc(f) != f || f < minInt64Float || f >= maxInt64Float {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

// toFloat64 accepts any managed number.
func toFloat64(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Double:
		return float64(n), true
	case value.BigInt:
		if n.Int == nil {
			return 0, true
		}
		f, _ := new(big.Float).SetInt(n.Int).Float64()
		return f, true
	}
	return 0, false
}

func (c Converter) intTo(v value.Value) (native.Value, error) {
	if n, ok := toInt64(v); ok {
		return native.Int(n), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) intFrom(v native.Value) (value.Value, error) {
	if n, ok := v.(native.Int); ok {
		return value.Int(n), nil
	}
	return nil, c.nativeError(v)
}

func (c Converter) floatTo(v value.Value) (native.Value, error) {
	if f, ok := toFloat64(v); ok {
		return native.Float(float32(f)), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) floatFrom(v native.Value) (value.Value, error) {
	if f, ok := v.(native.Float); ok {
		return value.Double(float64(f)), nil
	}
	return nil, c.nativeError(v)
}

func (c Converter) doubleTo(v value.Value) (native.Value, error) {
	if f, ok := toFloat64(v); ok {
		return native.Double(f), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) doubleFrom(v native.Value) (value.Value, error) {
	if f, ok := v.(native.Double); ok {
		return value.Double(f), nil
	}
	return nil, c.nativeError(v)
}

func (c Converter) stringTo(v value.Value) (native.Value, error) {
	if s, ok := v.(value.String); ok {
		return native.String(s), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) stringFrom(v native.Value) (value.Value, error) {
	if s, ok := v.(native.String); ok {
		return value.String(s), nil
	}
	return nil, c.nativeError(v)
}

func (c Converter) dataTo(v value.Value) (native.Value, error) {
	if b, ok := v.(value.Binary); ok {
		return native.Binary(append([]byte{}, b...)), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) dataFrom(v native.Value) (value.Value, error) {
	if b, ok := v.(native.Binary); ok {
		return value.Binary(b), nil
	}
	return nil, c.nativeError(v)
}

// timestamp splits t so that Nanos carries the sign of Seconds.
func timestamp(t time.Time) native.Timestamp {
	secs, nanos := t.Unix(), int32(t.Nanosecond())
	if secs < 0 && nanos > 0 {
		secs++
		nanos -= 1e9
	}
	return native.Timestamp{Seconds: secs, Nanos: nanos}
}

func (c Converter) dateTo(v value.Value) (native.Value, error) {
	if d, ok := v.(value.Date); ok {
		return timestamp(time.Time(d)), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) dateFrom(v native.Value) (value.Value, error) {
	if ts, ok := v.(native.Timestamp); ok {
		return value.Date(time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()), nil
	}
	return nil, c.nativeError(v)
}

func (c Converter) objectIDTo(v value.Value) (native.Value, error) {
	if id, ok := v.(value.ObjectID); ok {
		return native.ObjectID(id), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) objectIDFrom(v native.Value) (value.Value, error) {
	if id, ok := v.(native.ObjectID); ok {
		return value.ObjectID(id), nil
	}
	return nil, c.nativeError(v)
}

func (c Converter) decimalTo(v value.Value) (native.Value, error) {
	if d, ok := v.(value.Decimal); ok {
		return native.Decimal128(d), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) decimalFrom(v native.Value) (value.Value, error) {
	if d, ok := v.(native.Decimal128); ok {
		return value.Decimal(d), nil
	}
	return nil, c.nativeError(v)
}

func (c Converter) uuidTo(v value.Value) (native.Value, error) {
	if id, ok := v.(value.UUID); ok {
		return native.UUID(id), nil
	}
	return nil, c.typeError(v)
}

func (c Converter) uuidFrom(v native.Value) (value.Value, error) {
	if id, ok := v.(native.UUID); ok {
		return value.UUID(id), nil
	}
	return nil, c.nativeError(v)
}
