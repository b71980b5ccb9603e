package avro

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeIntWriterToDoubleReaderPromotes(t *testing.T) {
	w := MustParse("int")
	r := MustParse("double")
	var buf bytes.Buffer
	require.NoError(t, Encode(NewBinaryEncoder(&buf), w, int32(42)))

	v, err := Decode(NewBinaryDecoder(buf.Bytes()), w, r)
	require.NoError(t, err)
	require.Equal(t, float64(42), v)
}

func TestDecodeMissingWriterFieldFillsReaderDefault(t *testing.T) {
	w := MustParse(`{"type":"record","name":"R","fields":[{"name":"a","type":"int"}]}`)
	r := MustParse(`{"type":"record","name":"R","fields":[
		{"name":"a","type":"int"},
		{"name":"b","type":"string","default":"fallback"}
	]}`)
	var buf bytes.Buffer
	require.NoError(t, Encode(NewBinaryEncoder(&buf), w, map[string]interface{}{"a": int32(7)}))

	v, err := Decode(NewBinaryDecoder(buf.Bytes()), w, r)
	require.NoError(t, err)
	rec := v.(map[string]interface{})
	require.Equal(t, int32(7), rec["a"])
	require.Equal(t, "fallback", rec["b"])
}

func TestDecodeExtraWriterFieldIsSkipped(t *testing.T) {
	w := MustParse(`{"type":"record","name":"R","fields":[
		{"name":"a","type":"int"},
		{"name":"obsolete","type":"string"}
	]}`)
	r := MustParse(`{"type":"record","name":"R","fields":[{"name":"a","type":"int"}]}`)
	var buf bytes.Buffer
	enc := NewBinaryEncoder(&buf)
	require.NoError(t, Encode(enc, w, map[string]interface{}{"a": int32(3), "obsolete": "drop me"}))

	v, err := Decode(NewBinaryDecoder(buf.Bytes()), w, r)
	require.NoError(t, err)
	rec := v.(map[string]interface{})
	require.Equal(t, map[string]interface{}{"a": int32(3)}, rec)
}

func TestDecodeEnumSymbolMigratesToReaderDefault(t *testing.T) {
	w := MustParse(`{"type":"enum","name":"Suit","symbols":["CLUBS","HEARTS","JOKER"]}`)
	r := MustParse(`{"type":"enum","name":"Suit","symbols":["CLUBS","HEARTS"],"default":"CLUBS"}`)
	var buf bytes.Buffer
	require.NoError(t, Encode(NewBinaryEncoder(&buf), w, "JOKER"))

	v, err := Decode(NewBinaryDecoder(buf.Bytes()), w, r)
	require.NoError(t, err)
	require.Equal(t, "CLUBS", v)
}

func TestDecodeIncompatibleSchemasError(t *testing.T) {
	w := MustParse("string")
	r := MustParse("long")
	var buf bytes.Buffer
	require.NoError(t, Encode(NewBinaryEncoder(&buf), w, "hi"))

	_, err := Decode(NewBinaryDecoder(buf.Bytes()), w, r)
	require.Error(t, err)
}

func TestDecodeFieldRenameResolvesByReaderAlias(t *testing.T) {
	w := MustParse(`{"type":"record","name":"R","fields":[{"name":"oldName","type":"int"}]}`)
	r := MustParse(`{"type":"record","name":"R","fields":[{"name":"newName","type":"int","aliases":["oldName"]}]}`)

	var buf bytes.Buffer
	require.NoError(t, Encode(NewBinaryEncoder(&buf), w, map[string]interface{}{"oldName": int32(9)}))

	v, err := Decode(NewBinaryDecoder(buf.Bytes()), w, r)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"newName": int32(9)}, v)
}

func TestNamedTypeResolutionByAliasInsideUnion(t *testing.T) {
	w := MustParse(`["null", {"type":"record","name":"OldName","fields":[{"name":"x","type":"int"}]}]`)
	r := MustParse(`["null", {"type":"record","name":"NewName","aliases":["OldName"],"fields":[{"name":"x","type":"int"}]}]`)

	var buf bytes.Buffer
	require.NoError(t, Encode(NewBinaryEncoder(&buf), w, map[string]interface{}{"x": int32(1)}))

	v, err := Decode(NewBinaryDecoder(buf.Bytes()), w, r)
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"x": int32(1)}, v)
}
