package convert

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/value"
)

func roundTrip(t *testing.T, c Converter, v value.Value) value.Value {
	t.Helper()
	n, err := c.ToNative(v)
	require.NoError(t, err, value.Format(v))
	back, err := c.FromNative(n)
	require.NoError(t, err, value.Format(v))
	return back
}

func TestRoundTrip_Scalars(t *testing.T) {
	dec, err := value.ParseDecimal("-1234.5678E-3")
	require.NoError(t, err)

	tests := []struct {
		typ schema.PropertyType
		v   value.Value
	}{
		{schema.TypeBool, value.Bool(true)},
		{schema.TypeBool, value.Bool(false)},
		{schema.TypeInt, value.Int(0)},
		{schema.TypeInt, value.Int(math.MinInt64)},
		{schema.TypeInt, value.Int(math.MaxInt64)},
		{schema.TypeFloat, value.Double(0.5)},
		{schema.TypeDouble, value.Double(math.Pi)},
		{schema.TypeDouble, value.Double(math.Inf(-1))},
		{schema.TypeString, value.String("")},
		{schema.TypeString, value.String("héllo")},
		{schema.TypeData, value.Binary{0, 1, 255}},
		{schema.TypeDate, value.Date(time.Date(2024, 2, 29, 13, 4, 5, 123456789, time.UTC))},
		{schema.TypeDate, value.Date(time.Unix(-1, 250).UTC())},
		{schema.TypeObjectID, value.NewObjectID()},
		{schema.TypeDecimal, dec},
		{schema.TypeUUID, value.NewUUID()},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ)+"/"+value.Format(tt.v), func(t *testing.T) {
			c := Get(tt.typ, Options{})
			got := roundTrip(t, c, tt.v)
			assert.True(t, value.Equal(tt.v, got), "got %s", value.Format(got))
		})
	}
}

func TestNullability(t *testing.T) {
	for _, typ := range []schema.PropertyType{
		schema.TypeBool, schema.TypeInt, schema.TypeFloat, schema.TypeDouble, schema.TypeString,
		schema.TypeData, schema.TypeDate, schema.TypeObjectID, schema.TypeDecimal, schema.TypeUUID,
	} {
		t.Run(string(typ), func(t *testing.T) {
			required := Get(typ, Options{Class: "C", Property: "p"})
			for _, v := range []value.Value{value.Null{}, value.Undefined{}, nil} {
				_, err := required.ToNative(v)
				var te *dberr.TypeError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, string(typ), te.Expected)
				assert.Equal(t, "p", te.Property)
			}

			optional := Get(typ, Options{Optional: true})
			n, err := optional.ToNative(value.Null{})
			require.NoError(t, err)
			assert.Equal(t, native.Null{}, n)
			n, err = optional.ToNative(value.Undefined{})
			require.NoError(t, err)
			assert.Equal(t, native.Null{}, n)
			back, err := optional.FromNative(native.Null{})
			require.NoError(t, err)
			assert.Equal(t, value.Null{}, back)
		})
	}
}

func TestInt_LossyAndRejected(t *testing.T) {
	c := Get(schema.TypeInt, Options{})

	huge := new(big.Int).Lsh(big.NewInt(1), 64)
	huge.Add(huge, big.NewInt(5))
	tests := []struct {
		name string
		in   value.Value
		want native.Value
	}{
		{"bigint in range", value.NewBigInt(-9), native.Int(-9)},
		{"bigint narrowed to low 64 bits", value.BigInt{Int: huge}, native.Int(5)},
		{"bigint max uint64 wraps", value.BigInt{Int: new(big.Int).SetUint64(math.MaxUint64)}, native.Int(-1)},
		{"integral double", value.Double(42), native.Int(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ToNative(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []value.Value{
		value.Double(1.5), value.Double(math.Inf(1)), value.Double(math.NaN()), value.Double(1e19),
		value.String("1"), value.Bool(true),
	} {
		_, err := c.ToNative(bad)
		assert.True(t, dberr.IsTypeError(err), "%s should be rejected", value.Format(bad))
	}
}

func TestFloat_NarrowsPrecision(t *testing.T) {
	c := Get(schema.TypeFloat, Options{})
	got := roundTrip(t, c, value.Double(0.1))
	assert.Equal(t, value.Double(float64(float32(0.1))), got)
	assert.NotEqual(t, value.Double(0.1), got)

	got = roundTrip(t, c, value.Int(3))
	assert.Equal(t, value.Double(3), got)
}

func TestDouble_AcceptsIntegralNumbers(t *testing.T) {
	c := Get(schema.TypeDouble, Options{})
	assert.Equal(t, value.Double(7), roundTrip(t, c, value.Int(7)))
	assert.Equal(t, value.Double(12), roundTrip(t, c, value.NewBigInt(12)))

	_, err := c.ToNative(value.String("7"))
	assert.True(t, dberr.IsTypeError(err))
}

func TestWrongShapes(t *testing.T) {
	tests := []struct {
		typ schema.PropertyType
		v   value.Value
	}{
		{schema.TypeBool, value.Int(1)},
		{schema.TypeString, value.Binary("x")},
		{schema.TypeData, value.String("x")},
		{schema.TypeDate, value.Int(0)},
		{schema.TypeObjectID, value.NewUUID()},
		{schema.TypeUUID, value.NewObjectID()},
		{schema.TypeDecimal, value.Double(1)},
		{schema.TypeObject, value.String("Task")},
		{schema.TypeMixed, value.Dict{}},
	}
	for _, tt := range tests {
		_, err := Get(tt.typ, Options{ObjectType: "Task"}).ToNative(tt.v)
		assert.True(t, dberr.IsTypeError(err), "%s <- %s: %v", tt.typ, value.TypeName(tt.v), err)
	}
}

func TestCollections_NotSupported(t *testing.T) {
	for _, typ := range []schema.PropertyType{schema.TypeList, schema.TypeSet, schema.TypeDictionary} {
		c := Get(typ, Options{Class: "Person", Property: "tags", Optional: true})
		_, err := c.ToNative(value.Null{})
		assert.ErrorIs(t, err, dberr.ErrNotSupported)
		assert.Contains(t, err.Error(), "not yet supported")
		_, err = c.FromNative(native.Null{})
		assert.ErrorIs(t, err, dberr.ErrNotSupported)
	}
}

func TestMixed_TagDispatch(t *testing.T) {
	c := Get(schema.TypeMixed, Options{})
	assert.True(t, c.Optional(), "mixed is always optional")

	dec, _ := value.ParseDecimal("3.50")
	tests := []struct {
		in      value.Value
		tag     MixedTag
		native  native.Value
		managed value.Value
	}{
		{value.Null{}, MixedNone, native.Null{}, value.Null{}},
		{value.Bool(true), MixedBool, native.Bool(true), value.Bool(true)},
		{value.Double(2.5), MixedNumber, native.Double(2.5), value.Double(2.5)},
		{value.Int(9), MixedBigInt, native.Int(9), value.Int(9)},
		{value.NewBigInt(-3), MixedBigInt, native.Int(-3), value.Int(-3)},
		{value.String("s"), MixedString, native.String("s"), value.String("s")},
		{dec, MixedDecimal, native.Decimal128(dec), dec},
	}
	for _, tt := range tests {
		t.Run(value.Format(tt.in), func(t *testing.T) {
			tag, ok := TagOf(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.tag, tag)

			n, err := c.ToNative(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.native, n)
			back, err := c.FromNative(n)
			require.NoError(t, err)
			assert.True(t, value.Equal(tt.managed, back), "got %s", value.Format(back))
		})
	}

	when := value.Date(time.Date(1969, 12, 31, 23, 59, 59, 5, time.UTC))
	n, err := c.ToNative(when)
	require.NoError(t, err)
	assert.Equal(t, native.Timestamp{Seconds: 0, Nanos: -999999995}, n)
	back, err := c.FromNative(n)
	require.NoError(t, err)
	assert.True(t, value.Equal(when, back))

	back, err = c.FromNative(native.Float(0.5))
	require.NoError(t, err)
	assert.Equal(t, value.Double(0.5), back)
}
