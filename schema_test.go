package avro

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrimitiveSchemas(t *testing.T) {
	cases := []struct {
		raw  string
		kind Kind
	}{
		{"null", KindNull},
		{"boolean", KindBoolean},
		{"int", KindInt},
		{"long", KindLong},
		{"float", KindFloat},
		{"double", KindDouble},
		{"bytes", KindBytes},
		{"string", KindString},
	}
	for _, c := range cases {
		s, err := Parse(c.raw)
		require.NoError(t, err)
		require.Equal(t, c.kind, s.Kind())
		require.Equal(t, c.raw, s.TypeName())
	}
}

func TestParseArraySchema(t *testing.T) {
	s, err := Parse(`{"type":"array","items":"string"}`)
	require.NoError(t, err)
	require.Equal(t, KindArray, s.Kind())
	require.Equal(t, KindString, s.(*ArraySchema).Items().Kind())

	nested, err := Parse(`{"type":"array","items":{"type":"array","items":"long"}}`)
	require.NoError(t, err)
	inner := nested.(*ArraySchema).Items().(*ArraySchema)
	require.Equal(t, KindLong, inner.Items().Kind())
}

func TestParseRecordSchema(t *testing.T) {
	raw := `{
		"type": "record",
		"name": "TestRecord",
		"namespace": "example.avro",
		"fields": [
			{"name": "longField", "type": "long"},
			{"name": "stringField", "type": "string", "default": "unset"}
		]
	}`
	s, err := Parse(raw)
	require.NoError(t, err)
	rec, ok := s.(*RecordSchema)
	require.True(t, ok)
	require.Equal(t, "example.avro.TestRecord", rec.Fullname())
	require.Len(t, rec.Fields(), 2)

	f, idx := rec.FieldByName("stringField")
	require.NotNil(t, f)
	require.Equal(t, 1, idx)
	require.True(t, f.HasDefault())
	require.Equal(t, "unset", f.Default())
}

func TestParseRecursiveRecord(t *testing.T) {
	raw := `{
		"type": "record",
		"name": "LinkedNode",
		"fields": [
			{"name": "value", "type": "long"},
			{"name": "next", "type": ["null", "LinkedNode"]}
		]
	}`
	s, err := Parse(raw)
	require.NoError(t, err)
	rec := s.(*RecordSchema)
	nextField, _ := rec.FieldByName("next")
	union := nextField.Type().(*UnionSchema)
	require.Equal(t, KindRecord, union.Types()[1].Kind())
	require.Same(t, rec, union.Types()[1])
}

func TestParseEnumSchema(t *testing.T) {
	raw := `{"type":"enum","name":"Suit","symbols":["CLUBS","DIAMONDS","HEARTS","SPADES"]}`
	s, err := Parse(raw)
	require.NoError(t, err)
	enum := s.(*EnumSchema)
	require.Equal(t, 2, enum.IndexOf("HEARTS"))
	require.Equal(t, -1, enum.IndexOf("JOKER"))
}

func TestParseFixedSchema(t *testing.T) {
	s, err := Parse(`{"type":"fixed","name":"md5","size":16}`)
	require.NoError(t, err)
	require.Equal(t, 16, s.(*FixedSchema).Size())
}

func TestParseUnionRejectsNestedUnion(t *testing.T) {
	_, err := Parse(`["null", ["string", "int"]]`)
	require.Error(t, err)
}

func TestParseUnionRejectsDuplicateUnnamedMember(t *testing.T) {
	_, err := Parse(`["string", "string"]`)
	require.Error(t, err)
}

func TestParseIdempotentOnAlreadyParsedSchema(t *testing.T) {
	s, err := Parse("long")
	require.NoError(t, err)
	again, err := Parse(s)
	require.NoError(t, err)
	require.Same(t, s, again)
}

func TestParseDecimalLogicalType(t *testing.T) {
	s, err := Parse(`{"type":"bytes","logicalType":"decimal","precision":9,"scale":2}`)
	require.NoError(t, err)
	require.Equal(t, logicalTypeDecimal, s.LogicalType())
}

func TestParseDecimalRejectsExcessivePrecisionForFixedSize(t *testing.T) {
	_, err := Parse(`{"type":"fixed","name":"money","size":2,"logicalType":"decimal","precision":10,"scale":2}`)
	require.Error(t, err)
}

func TestWithForceAllowsRedefinition(t *testing.T) {
	reg := NewSchemaRegistry()
	_, err := Parse(`{"type":"record","name":"Foo","fields":[{"name":"a","type":"int"}]}`, WithRegistry(reg))
	require.NoError(t, err)
	_, err = Parse(`{"type":"record","name":"Foo","fields":[{"name":"a","type":"long"}]}`, WithRegistry(reg))
	require.Error(t, err)
	_, err = Parse(`{"type":"record","name":"Foo","fields":[{"name":"a","type":"long"}]}`, WithRegistry(reg), WithForce())
	require.NoError(t, err)
}
