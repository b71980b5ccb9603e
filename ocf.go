package avro

import (
	"bytes"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
)

// ocfMagic is the 4-byte marker every object container file begins with
// (spec §4.H): "Obj" followed by the format version byte.
var ocfMagic = [4]byte{'O', 'b', 'j', 0x01}

const (
	metaKeySchema = "avro.schema"
	metaKeyCodec  = "avro.codec"

	// defaultSyncInterval is the block size, in approximate uncompressed
	// bytes, a DataFileWriter buffers before flushing a block (fastavro's
	// default; spec.md leaves the exact threshold unspecified).
	defaultSyncInterval = 16000
)

// IsContainerFile reports whether r begins with the object container
// file magic bytes, without consuming more than those 4 bytes from a
// io.ReadSeeker-capable reader; for a plain io.Reader the 4 bytes read
// during the sniff are unrecoverable, so callers needing to continue
// reading should wrap r in a bufio.Reader and pass that instead.
func IsContainerFile(r io.Reader) bool {
	var buf [4]byte
	n, err := io.ReadFull(r, buf[:])
	return err == nil && n == 4 && buf == ocfMagic
}

// DataFileWriter appends datums to an object container file, flushing a
// block whenever the buffered uncompressed payload crosses the sync
// interval, and on Close (spec §4.H writer state machine: uninitialized
// -> header written -> buffering -> block flushed -> ... -> closed).
type DataFileWriter struct {
	w            io.Writer
	schema       Schema
	codec        string
	syncMarker   [16]byte
	syncInterval int

	buf   bytes.Buffer
	count int64
	enc   *BinaryEncoder
}

// DataFileWriterOption configures NewDataFileWriter.
type DataFileWriterOption func(*DataFileWriter)

// WithSyncInterval overrides the default 16000-byte block threshold.
func WithSyncInterval(n int) DataFileWriterOption {
	return func(w *DataFileWriter) { w.syncInterval = n }
}

// NewDataFileWriter creates a fresh container file on w, writing the
// header (magic, schema/codec metadata, a random sync marker) up front.
func NewDataFileWriter(w io.Writer, schema Schema, codec string, opts ...DataFileWriterOption) (*DataFileWriter, error) {
	if _, err := lookupCodec(codec); err != nil {
		return nil, err
	}
	dfw := &DataFileWriter{w: w, schema: schema, codec: codec, syncInterval: defaultSyncInterval}
	for _, o := range opts {
		o(dfw)
	}
	if _, err := rand.Read(dfw.syncMarker[:]); err != nil {
		return nil, errors.Wrap(err, "avro: generating sync marker")
	}
	if err := writeHeader(w, schema, codec, dfw.syncMarker); err != nil {
		return nil, err
	}
	dfw.enc = NewBinaryEncoder(&dfw.buf)
	return dfw, nil
}

// OpenDataFileWriterAppend reopens an existing container file for
// appending: it reads the header back out to recover the original
// schema, codec, and sync marker, checks the schema it's given matches
// the one already on disk, and seeks rw to EOF so new blocks are written
// after the existing ones (spec §4.H append mode).
func OpenDataFileWriterAppend(rw io.ReadWriteSeeker, schema Schema, opts ...DataFileWriterOption) (*DataFileWriter, error) {
	existing, err := NewDataFileReader(rw)
	if err != nil {
		return nil, errors.Wrap(err, "avro: opening container file for append")
	}
	existingCanon, err := existing.writerSchema.Canonical()
	if err != nil {
		return nil, err
	}
	newCanon, err := schema.Canonical()
	if err != nil {
		return nil, err
	}
	if existingCanon != newCanon {
		return nil, errors.New("avro: cannot append, schema does not match the file's existing writer schema")
	}
	if _, err := rw.Seek(0, io.SeekEnd); err != nil {
		return nil, errors.Wrap(err, "avro: seeking to end of container file")
	}
	dfw := &DataFileWriter{
		w:            rw,
		schema:       existing.writerSchema,
		codec:        existing.codec,
		syncMarker:   existing.syncMarker,
		syncInterval: defaultSyncInterval,
	}
	for _, o := range opts {
		o(dfw)
	}
	dfw.enc = NewBinaryEncoder(&dfw.buf)
	return dfw, nil
}

func writeHeader(w io.Writer, schema Schema, codec string, sync [16]byte) error {
	if _, err := w.Write(ocfMagic[:]); err != nil {
		return err
	}
	schemaJSON, err := schema.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "avro: marshaling schema for container header")
	}
	meta := map[string][]byte{
		metaKeySchema: schemaJSON,
		metaKeyCodec:  []byte(codec),
	}
	enc := NewBinaryEncoder(w)
	if err := encodeMetaMap(enc, meta); err != nil {
		return err
	}
	_, err = w.Write(sync[:])
	return err
}

func encodeMetaMap(enc *BinaryEncoder, meta map[string][]byte) error {
	if len(meta) > 0 {
		if err := enc.WriteLong(int64(len(meta))); err != nil {
			return err
		}
		for k, v := range meta {
			if err := enc.WriteString(k); err != nil {
				return err
			}
			if err := enc.WriteBytes(v); err != nil {
				return err
			}
		}
	}
	return enc.WriteLong(0)
}

// Append encodes datum under the writer's schema and buffers it into the
// current block, flushing automatically once the buffer crosses the
// configured sync interval.
func (w *DataFileWriter) Append(datum interface{}) error {
	if err := Encode(w.enc, w.schema, datum); err != nil {
		return err
	}
	w.count++
	if w.buf.Len() >= w.syncInterval {
		return w.Sync()
	}
	return nil
}

// Sync flushes the current block (if non-empty) to the underlying
// writer, compressing it with the writer's codec and terminating it with
// the file's sync marker.
func (w *DataFileWriter) Sync() error {
	if w.count == 0 {
		return nil
	}
	compressed, err := compressBlock(w.codec, w.buf.Bytes())
	if err != nil {
		return err
	}
	headerEnc := NewBinaryEncoder(w.w)
	if err := headerEnc.WriteLong(w.count); err != nil {
		return err
	}
	if err := headerEnc.WriteLong(int64(len(compressed))); err != nil {
		return err
	}
	if _, err := w.w.Write(compressed); err != nil {
		return err
	}
	if _, err := w.w.Write(w.syncMarker[:]); err != nil {
		return err
	}
	w.buf.Reset()
	w.count = 0
	return nil
}

// AppendBlock appends a pre-encoded, pre-compressed block of numRecords
// datums verbatim, without decoding or re-encoding it — used to
// concatenate container files sharing the same schema and codec (spec
// §4.H, supplemented per SPEC_FULL.md §4). Any currently buffered datums
// are flushed first so block boundaries stay well-formed.
func (w *DataFileWriter) AppendBlock(compressed []byte, numRecords int64) error {
	if err := w.Sync(); err != nil {
		return err
	}
	headerEnc := NewBinaryEncoder(w.w)
	if err := headerEnc.WriteLong(numRecords); err != nil {
		return err
	}
	if err := headerEnc.WriteLong(int64(len(compressed))); err != nil {
		return err
	}
	if _, err := w.w.Write(compressed); err != nil {
		return err
	}
	_, err := w.w.Write(w.syncMarker[:])
	return err
}

// Close flushes any buffered datums. It does not close the underlying
// io.Writer.
func (w *DataFileWriter) Close() error {
	return w.Sync()
}

// DataFileReader reads datums back out of an object container file,
// lazily decoding one block at a time (spec §4.H: "a reader must not
// require the whole file in memory").
type DataFileReader struct {
	r            io.Reader
	writerSchema Schema
	readerSchema Schema
	codec        string
	syncMarker   [16]byte

	dec       *BinaryDecoder
	blockLeft int64
	offset    int64
}

// NewDataFileReader opens an existing container file, parsing its header
// (writer schema, codec, sync marker) and positioning at the first
// block.
func NewDataFileReader(r io.Reader) (*DataFileReader, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.Wrap(err, "avro: reading container file magic")
	}
	if magic != ocfMagic {
		return nil, errors.New("avro: not an object container file")
	}
	meta, err := readMetaMap(r)
	if err != nil {
		return nil, err
	}
	var sync [16]byte
	if _, err := io.ReadFull(r, sync[:]); err != nil {
		return nil, errors.Wrap(err, "avro: reading container file sync marker")
	}
	schemaJSON, ok := meta[metaKeySchema]
	if !ok {
		return nil, errors.New("avro: container file header missing avro.schema")
	}
	schema, err := Parse(schemaJSON)
	if err != nil {
		return nil, errors.Wrap(err, "avro: parsing container file writer schema")
	}
	codec := CodecNull
	if c, ok := meta[metaKeyCodec]; ok && len(c) > 0 {
		codec = string(c)
	}
	return &DataFileReader{
		r:            r,
		writerSchema: schema,
		readerSchema: schema,
		codec:        codec,
		syncMarker:   sync,
	}, nil
}

// readMetaMap reads a map[string][]byte using raw io reads (not a
// BinaryDecoder over a buffer, since the stream position after the meta
// map must land exactly at the sync marker that follows).
func readMetaMap(r io.Reader) (map[string][]byte, error) {
	meta := map[string][]byte{}
	dec := &streamDecoder{r: r}
	for {
		count, err := dec.readLong()
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return meta, nil
		}
		if count < 0 {
			count = -count
			if _, err := dec.readLong(); err != nil { // byte-size, unused
				return nil, err
			}
		}
		for i := int64(0); i < count; i++ {
			key, err := dec.readString()
			if err != nil {
				return nil, err
			}
			val, err := dec.readBytes()
			if err != nil {
				return nil, err
			}
			meta[key] = val
		}
	}
}

// streamDecoder is a minimal varint/bytes reader over a plain io.Reader,
// used only for the container header, whose length is not known up
// front (unlike blocks, which are read into a full []byte before
// decoding begins).
type streamDecoder struct{ r io.Reader }

func (s *streamDecoder) readByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(s.r, b[:])
	return b[0], err
}

func (s *streamDecoder) readLong() (int64, error) {
	var z uint64
	shift := uint(0)
	for {
		b, err := s.readByte()
		if err != nil {
			return 0, err
		}
		z |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return int64(z>>1) ^ -int64(z&1), nil
}

func (s *streamDecoder) readBytes() ([]byte, error) {
	n, err := s.readLong()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	_, err = io.ReadFull(s.r, buf)
	return buf, err
}

func (s *streamDecoder) readString() (string, error) {
	b, err := s.readBytes()
	return string(b), err
}

// SetReaderSchema enables schema resolution on read: subsequent Next
// calls decode each writer-schema datum into the shape of s.
func (r *DataFileReader) SetReaderSchema(s Schema) { r.readerSchema = s }

// WriterSchema returns the schema the file was written with.
func (r *DataFileReader) WriterSchema() Schema { return r.writerSchema }

// Codec returns the block compression codec named in the file header.
func (r *DataFileReader) Codec() string { return r.codec }

// Offset returns the total compressed byte size of every block consumed
// so far, for callers implementing their own resume/seek logic.
func (r *DataFileReader) Offset() int64 { return r.offset }

// Next decodes and returns the next datum, or io.EOF once every block
// has been consumed.
func (r *DataFileReader) Next() (interface{}, error) {
	for r.blockLeft == 0 {
		if err := r.advanceBlock(); err != nil {
			return nil, err
		}
	}
	v, err := decodeValue(r.dec, r.writerSchema, r.readerSchema, "", &decodeOptions{})
	if err != nil {
		return nil, err
	}
	r.blockLeft--
	return v, nil
}

func (r *DataFileReader) advanceBlock() error {
	sdec := &streamDecoder{r: r.r}
	count, err := sdec.readLong()
	if err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return err
	}
	size, err := sdec.readLong()
	if err != nil {
		return err
	}
	compressed := make([]byte, size)
	if _, err := io.ReadFull(r.r, compressed); err != nil {
		return errors.Wrap(err, "avro: reading block payload")
	}
	var sync [16]byte
	if _, err := io.ReadFull(r.r, sync[:]); err != nil {
		return errors.Wrap(err, "avro: reading block sync marker")
	}
	if sync != r.syncMarker {
		return errors.New("avro: block sync marker mismatch, file is corrupt or truncated")
	}
	raw, err := decompressBlock(r.codec, compressed)
	if err != nil {
		return err
	}
	r.dec = NewBinaryDecoder(raw)
	r.blockLeft = count
	r.offset += size
	return nil
}
