package avro

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC64AvroFingerprintMatchesPublishedVectors(t *testing.T) {
	intSchema, err := Parse("int")
	require.NoError(t, err)
	fp, err := intSchema.Fingerprint("CRC-64-AVRO")
	require.NoError(t, err)
	require.Equal(t, "8f5c393f1ad57572", fp)

	stringSchema, err := Parse("string")
	require.NoError(t, err)
	fp, err = stringSchema.Fingerprint("CRC-64-AVRO")
	require.NoError(t, err)
	require.Equal(t, "c70345637248018f", fp)
}

func TestFingerprintAlgorithmAliasesNormalize(t *testing.T) {
	s, err := Parse("boolean")
	require.NoError(t, err)
	a, err := s.Fingerprint("crc64-avro")
	require.NoError(t, err)
	b, err := s.Fingerprint("CRC_64_AVRO")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestFingerprintMD5AndSHA256Differ(t *testing.T) {
	s, err := Parse(`{"type":"record","name":"A","fields":[{"name":"x","type":"int"}]}`)
	require.NoError(t, err)
	md5fp, err := s.Fingerprint("md5")
	require.NoError(t, err)
	sha, err := s.Fingerprint("sha-256")
	require.NoError(t, err)
	require.NotEqual(t, md5fp, sha)
	require.Len(t, md5fp, 32)
	require.Len(t, sha, 64)
}

func TestCanonicalFormStripsNonCanonicalAttributes(t *testing.T) {
	raw := `{
		"type": "record",
		"name": "Foo",
		"namespace": "ns",
		"doc": "a doc comment",
		"fields": [
			{"name": "a", "type": "int", "doc": "field doc", "default": 0, "aliases": ["old_a"]}
		]
	}`
	s, err := Parse(raw)
	require.NoError(t, err)
	canon, err := s.Canonical()
	require.NoError(t, err)
	require.Equal(t, `{"name":"ns.Foo","type":"record","fields":[{"name":"a","type":"int"}]}`, canon)
}

func TestFingerprintStableAcrossEquivalentSchemas(t *testing.T) {
	a, err := Parse(`{"type":"record","name":"Foo","namespace":"ns","doc":"x","fields":[{"name":"a","type":"int"}]}`)
	require.NoError(t, err)
	b, err := Parse(`{"type":"record","name":"ns.Foo","fields":[{"name":"a","type":"int","default":5}]}`)
	require.NoError(t, err)
	fa, err := a.Fingerprint("crc-64-avro")
	require.NoError(t, err)
	fb, err := b.Fingerprint("crc-64-avro")
	require.NoError(t, err)
	require.Equal(t, fa, fb)
}
