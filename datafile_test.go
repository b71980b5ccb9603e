package avro

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func personSchema() Schema {
	return MustParse(`{
		"type": "record",
		"name": "Person",
		"fields": [
			{"name": "name", "type": "string"},
			{"name": "age", "type": "int"}
		]
	}`)
}

func TestDataFileRoundTripDeflateMultiRecord(t *testing.T) {
	schema := personSchema()
	var buf bytes.Buffer

	w, err := NewDataFileWriter(&buf, schema, CodecDeflate)
	require.NoError(t, err)
	records := []map[string]interface{}{
		{"name": "Ada", "age": int32(30)},
		{"name": "Alan", "age": int32(40)},
		{"name": "Grace", "age": int32(50)},
	}
	for _, rec := range records {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())

	require.True(t, IsContainerFile(bytes.NewReader(buf.Bytes())))

	r, err := NewDataFileReader(&buf)
	require.NoError(t, err)
	require.Equal(t, CodecDeflate, r.Codec())

	var got []interface{}
	for {
		v, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Len(t, got, 3)
	require.Equal(t, map[string]interface{}{"name": "Ada", "age": int32(30)}, got[0])
	require.Equal(t, map[string]interface{}{"name": "Grace", "age": int32(50)}, got[2])
	require.Greater(t, r.Offset(), int64(0))
}

func TestDataFileRoundTripNullCodec(t *testing.T) {
	schema := personSchema()
	var buf bytes.Buffer

	w, err := NewDataFileWriter(&buf, schema, CodecNull)
	require.NoError(t, err)
	require.NoError(t, w.Append(map[string]interface{}{"name": "Ada", "age": int32(30)}))
	require.NoError(t, w.Close())

	r, err := NewDataFileReader(&buf)
	require.NoError(t, err)
	require.Equal(t, CodecNull, r.Codec())
	v, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"name": "Ada", "age": int32(30)}, v)
}

func TestDataFileUnknownCodecIsRejectedUpFront(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewDataFileWriter(&buf, personSchema(), "xz")
	require.Error(t, err)
	var cu *CodecUnavailableError
	require.ErrorAs(t, err, &cu)
}

func TestDataFileReaderSchemaResolutionDropsField(t *testing.T) {
	writerSchema := personSchema()
	readerSchema := MustParse(`{
		"type": "record",
		"name": "Person",
		"fields": [{"name": "name", "type": "string"}]
	}`)

	var buf bytes.Buffer
	w, err := NewDataFileWriter(&buf, writerSchema, CodecNull)
	require.NoError(t, err)
	require.NoError(t, w.Append(map[string]interface{}{"name": "Ada", "age": int32(30)}))
	require.NoError(t, w.Close())

	r, err := NewDataFileReader(&buf)
	require.NoError(t, err)
	r.SetReaderSchema(readerSchema)
	v, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"name": "Ada"}, v)
}

// memReadWriteSeeker adapts a byte slice into an io.ReadWriteSeeker for
// exercising OpenDataFileWriterAppend, which needs to seek to EOF after
// reading the existing header back out.
type memReadWriteSeeker struct {
	data []byte
	pos  int64
}

func (m *memReadWriteSeeker) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memReadWriteSeeker) Write(p []byte) (int, error) {
	if m.pos < int64(len(m.data)) {
		m.data = m.data[:m.pos]
	}
	m.data = append(m.data, p...)
	m.pos = int64(len(m.data))
	return len(p), nil
}

func (m *memReadWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.data)) + offset
	}
	return m.pos, nil
}

func TestOpenDataFileWriterAppendAddsBlockToExistingFile(t *testing.T) {
	schema := personSchema()
	var buf bytes.Buffer
	w, err := NewDataFileWriter(&buf, schema, CodecNull)
	require.NoError(t, err)
	require.NoError(t, w.Append(map[string]interface{}{"name": "Ada", "age": int32(30)}))
	require.NoError(t, w.Close())

	rws := &memReadWriteSeeker{data: append([]byte(nil), buf.Bytes()...)}
	appender, err := OpenDataFileWriterAppend(rws, schema)
	require.NoError(t, err)
	require.NoError(t, appender.Append(map[string]interface{}{"name": "Alan", "age": int32(40)}))
	require.NoError(t, appender.Close())

	r, err := NewDataFileReader(bytes.NewReader(rws.data))
	require.NoError(t, err)
	var names []string
	for {
		v, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, v.(map[string]interface{})["name"].(string))
	}
	require.Equal(t, []string{"Ada", "Alan"}, names)
}

func TestOpenDataFileWriterAppendRejectsMismatchedSchema(t *testing.T) {
	schema := personSchema()
	var buf bytes.Buffer
	w, err := NewDataFileWriter(&buf, schema, CodecNull)
	require.NoError(t, err)
	require.NoError(t, w.Append(map[string]interface{}{"name": "Ada", "age": int32(30)}))
	require.NoError(t, w.Close())

	rws := &memReadWriteSeeker{data: append([]byte(nil), buf.Bytes()...)}
	other := MustParse(`{"type":"record","name":"Other","fields":[{"name":"x","type":"int"}]}`)
	_, err = OpenDataFileWriterAppend(rws, other)
	require.Error(t, err)
}

func TestAppendBlockConcatenatesWithoutReencoding(t *testing.T) {
	schema := personSchema()
	var src bytes.Buffer
	srcWriter, err := NewDataFileWriter(&src, schema, CodecNull)
	require.NoError(t, err)
	require.NoError(t, srcWriter.Append(map[string]interface{}{"name": "Bob", "age": int32(22)}))
	require.NoError(t, srcWriter.Close())

	srcReader, err := NewDataFileReader(bytes.NewReader(src.Bytes()))
	require.NoError(t, err)

	// Build the raw compressed block bytes with the writer's own block
	// steps: encode then compress the same datum, independently of the
	// source file's container.
	var payload bytes.Buffer
	enc := NewBinaryEncoder(&payload)
	require.NoError(t, Encode(enc, schema, map[string]interface{}{"name": "Bob", "age": int32(22)}))
	compressed, err := compressBlock(CodecNull, payload.Bytes())
	require.NoError(t, err)

	var dst bytes.Buffer
	dstWriter, err := NewDataFileWriter(&dst, schema, CodecNull)
	require.NoError(t, err)
	require.NoError(t, dstWriter.AppendBlock(compressed, 1))
	require.NoError(t, dstWriter.Close())

	dstReader, err := NewDataFileReader(&dst)
	require.NoError(t, err)
	v, err := dstReader.Next()
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"name": "Bob", "age": int32(22)}, v)

	_, err = srcReader.Next()
	require.NoError(t, err)
}
