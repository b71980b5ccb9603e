package avro

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, schema Schema, value interface{}) interface{} {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(NewBinaryEncoder(&buf), schema, value))
	got, err := Decode(NewBinaryDecoder(buf.Bytes()), schema, schema)
	require.NoError(t, err)
	return got
}

func TestRoundTripPrimitives(t *testing.T) {
	require.Nil(t, roundTrip(t, MustParse("null"), nil))
	require.Equal(t, true, roundTrip(t, MustParse("boolean"), true))
	require.Equal(t, int32(-12345), roundTrip(t, MustParse("int"), int32(-12345)))
	require.Equal(t, int64(math.MaxInt64), roundTrip(t, MustParse("long"), int64(math.MaxInt64)))
	require.Equal(t, float32(1.5), roundTrip(t, MustParse("float"), float32(1.5)))
	require.Equal(t, 2.718281828, roundTrip(t, MustParse("double"), 2.718281828))
	require.Equal(t, []byte{1, 2, 3}, roundTrip(t, MustParse("bytes"), []byte{1, 2, 3}))
	require.Equal(t, "hello", roundTrip(t, MustParse("string"), "hello"))
}

func TestZigZagLongRoundTripsFullRange(t *testing.T) {
	schema := MustParse("long")
	for _, v := range []int64{0, 1, -1, math.MinInt64, math.MaxInt64, 63, -64, 1 << 40, -(1 << 40)} {
		require.Equal(t, v, roundTrip(t, schema, v))
	}
}

func TestRoundTripEmptyAndPopulatedArray(t *testing.T) {
	schema := MustParse(`{"type":"array","items":"int"}`)
	require.Equal(t, []interface{}{}, roundTrip(t, schema, []interface{}{}))

	want := []interface{}{int32(1), int32(2), int32(3)}
	require.Equal(t, want, roundTrip(t, schema, want))
}

func TestRoundTripEmptyAndPopulatedMap(t *testing.T) {
	schema := MustParse(`{"type":"map","values":"string"}`)
	require.Equal(t, map[string]interface{}{}, roundTrip(t, schema, map[string]interface{}{}))

	want := map[string]interface{}{"a": "1", "b": "2"}
	require.Equal(t, want, roundTrip(t, schema, want))
}

func TestRoundTripRecordWithDefaults(t *testing.T) {
	schema := MustParse(`{
		"type": "record",
		"name": "Person",
		"fields": [
			{"name": "name", "type": "string"},
			{"name": "age", "type": "int", "default": 0}
		]
	}`)
	got := roundTrip(t, schema, map[string]interface{}{"name": "Ada"})
	require.Equal(t, map[string]interface{}{"name": "Ada", "age": int32(0)}, got)
}

func TestRoundTripUnionNilAndTagged(t *testing.T) {
	schema := MustParse(`["null", "string"]`)
	require.Nil(t, roundTrip(t, schema, nil))
	require.Equal(t, "hi", roundTrip(t, schema, "hi"))

	tagged := Union{Discriminant: "string", Value: "tagged"}
	require.Equal(t, "tagged", roundTrip(t, schema, tagged))
}

func TestRoundTripNestedRecordInUnion(t *testing.T) {
	schema := MustParse(`["null", {
		"type": "record",
		"name": "Point",
		"fields": [{"name": "x", "type": "int"}, {"name": "y", "type": "int"}]
	}]`)
	want := map[string]interface{}{"x": int32(1), "y": int32(2)}
	require.Equal(t, want, roundTrip(t, schema, want))
}

func TestRoundTripFixed(t *testing.T) {
	schema := MustParse(`{"type":"fixed","name":"md5","size":4}`)
	require.Equal(t, []byte{1, 2, 3, 4}, roundTrip(t, schema, []byte{1, 2, 3, 4}))
}

func TestRoundTripDateLogicalType(t *testing.T) {
	schema := MustParse(`{"type":"int","logicalType":"date"}`)
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	got := roundTrip(t, schema, want)
	require.True(t, want.Equal(got.(time.Time)))
}

func TestRoundTripTimestampMicrosLogicalType(t *testing.T) {
	schema := MustParse(`{"type":"long","logicalType":"timestamp-micros"}`)
	want := time.Date(2026, 8, 1, 12, 30, 0, 123000, time.UTC)
	got := roundTrip(t, schema, want)
	require.True(t, want.Equal(got.(time.Time)))
}

func TestRoundTripBytesDecimalLogicalType(t *testing.T) {
	schema := MustParse(`{"type":"bytes","logicalType":"decimal","precision":9,"scale":2}`)
	want := decimal.RequireFromString("-1234.56")
	got := roundTrip(t, schema, want)
	require.True(t, want.Equal(got.(decimal.Decimal)))
}

func TestRoundTripFixedDecimalLogicalType(t *testing.T) {
	schema := MustParse(`{"type":"fixed","name":"money","size":8,"logicalType":"decimal","precision":9,"scale":2}`)
	want := decimal.RequireFromString("12345.67")
	got := roundTrip(t, schema, want)
	require.True(t, want.Equal(got.(decimal.Decimal)))
}

func TestRoundTripDurationLogicalType(t *testing.T) {
	schema := MustParse(`{"type":"fixed","name":"d","size":12,"logicalType":"duration"}`)
	want := Duration{Months: 1, Days: 2, Milliseconds: 3000}
	got := roundTrip(t, schema, want)
	require.Equal(t, want, got)
}
