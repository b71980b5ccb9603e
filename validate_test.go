package avro

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePrimitivesAcceptAndReject(t *testing.T) {
	ok, err := Validate(int32(5), MustParse("int"))
	require.True(t, ok)
	require.NoError(t, err)

	ok, err = Validate("not an int", MustParse("int"))
	require.False(t, ok)
	require.Error(t, err)
}

func TestValidateIntOutOfRange(t *testing.T) {
	ok, err := Validate(int64(math.MaxInt32)+1, MustParse("int"))
	require.False(t, ok)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Failures, 1)
	require.Equal(t, "out of range", ve.Failures[0].Reason)
}

func TestValidateRecordAggregatesMultipleFailures(t *testing.T) {
	schema := MustParse(`{
		"type": "record",
		"name": "R",
		"fields": [
			{"name": "a", "type": "int"},
			{"name": "b", "type": "string"}
		]
	}`)
	ok, err := Validate(map[string]interface{}{"a": "oops", "b": 5}, schema)
	require.False(t, ok)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Failures, 2)
}

func TestValidateRecordMissingRequiredField(t *testing.T) {
	schema := MustParse(`{
		"type": "record",
		"name": "R",
		"fields": [{"name": "a", "type": "int"}]
	}`)
	ok, err := Validate(map[string]interface{}{}, schema)
	require.False(t, ok)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Contains(t, ve.Failures[0].Reason, "missing required field")
}

func TestValidateRecordFillsDefaultForMissingOptionalField(t *testing.T) {
	schema := MustParse(`{
		"type": "record",
		"name": "R",
		"fields": [{"name": "a", "type": "int", "default": 1}]
	}`)
	ok, err := Validate(map[string]interface{}{}, schema)
	require.True(t, ok)
	require.NoError(t, err)
}

func TestWithRaiseErrorsStopsAtFirstFailure(t *testing.T) {
	schema := MustParse(`{
		"type": "record",
		"name": "R",
		"fields": [
			{"name": "a", "type": "int"},
			{"name": "b", "type": "string"}
		]
	}`)
	ok, err := Validate(map[string]interface{}{"a": "oops", "b": 5}, schema, WithRaiseErrors(true))
	require.False(t, ok)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Failures, 1)
}

func TestValidateUnionTaggedValue(t *testing.T) {
	schema := MustParse(`["null", "string", "int"]`)
	ok, err := Validate(Union{Discriminant: "string", Value: "hi"}, schema)
	require.True(t, ok)
	require.NoError(t, err)

	ok, _ = Validate(Union{Discriminant: "string", Value: int32(5)}, schema)
	require.False(t, ok)
}

func TestValidateUnionUntaggedPicksMatchingMember(t *testing.T) {
	schema := MustParse(`["null", "string"]`)
	ok, err := Validate(nil, schema)
	require.True(t, ok)
	require.NoError(t, err)

	ok, err = Validate("hello", schema)
	require.True(t, ok)
	require.NoError(t, err)

	ok, _ = Validate(int32(5), schema)
	require.False(t, ok)
}

func TestValidateFixedRejectsWrongLength(t *testing.T) {
	schema := MustParse(`{"type":"fixed","name":"md5","size":16}`)
	ok, _ := Validate([]byte{1, 2, 3}, schema)
	require.False(t, ok)

	ok, err := Validate(make([]byte, 16), schema)
	require.True(t, ok)
	require.NoError(t, err)
}

func TestValidateManyAggregatesAcrossRecordsWithIndexedPaths(t *testing.T) {
	schema := MustParse(`{"type":"record","name":"R","fields":[{"name":"a","type":"int"}]}`)
	data := []interface{}{
		map[string]interface{}{"a": int32(1)},
		map[string]interface{}{"a": "bad"},
	}
	ok, err := ValidateMany(data, schema)
	require.False(t, ok)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Failures, 1)
	require.Contains(t, ve.Failures[0].Path, "[1]")
}
