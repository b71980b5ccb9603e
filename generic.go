package avro

// GenericRecord is the generic, schema-driven representation of an Avro
// record datum: field name to decoded/encodable value. The encoder and
// decoder operate on plain Go values (map[string]interface{},
// []interface{}, []byte, string, int32, int64, float32, float64, bool,
// nil, and Union for explicit union tagging); GenericRecord is just a
// named alias for the record case; used by GenericDatumReader/Writer.
type GenericRecord = map[string]interface{}

// Union is a tagged pair (name, value) selecting a union alternative
// explicitly, used both as encoder input (to disambiguate which
// alternative to write) and as optional decoder output (when
// return_record_name semantics are requested — see decoder.go).
// Discriminant is either a named type's fullname/name, or an unnamed
// type's type word ("array", "map", "int", ...).
type Union struct {
	Discriminant string
	Value        interface{}
}

// GenericDatumWriter encodes GenericRecord-shaped values (or any bare
// value for non-record top-level schemas) against a fixed schema,
// mirroring go-avro-avro's NewGenericDatumWriter/SetSchema/Write API.
type GenericDatumWriter struct {
	schema Schema
}

// NewGenericDatumWriter returns a writer with no schema set; call
// SetSchema before Write.
func NewGenericDatumWriter() *GenericDatumWriter { return &GenericDatumWriter{} }

// SetSchema assigns the schema subsequent Write calls encode against,
// returning the receiver for chaining.
func (w *GenericDatumWriter) SetSchema(s Schema) *GenericDatumWriter {
	w.schema = s
	return w
}

// Write encodes datum against the writer's schema into enc.
func (w *GenericDatumWriter) Write(datum interface{}, enc Encoder) error {
	return encodeValue(enc, w.schema, datum, "")
}

// GenericDatumReader decodes into generic Go values, optionally
// resolving a writer schema against a different reader schema.
type GenericDatumReader struct {
	writerSchema Schema
	readerSchema Schema
}

// NewGenericDatumReader returns a reader with no schema set.
func NewGenericDatumReader() *GenericDatumReader { return &GenericDatumReader{} }

// SetSchema sets the writer schema to s, and the reader schema too when
// no reader schema is set yet (by SetReaderSchema or an earlier
// SetSchema call).
func (r *GenericDatumReader) SetSchema(s Schema) *GenericDatumReader {
	r.writerSchema = s
	if r.readerSchema == nil {
		r.readerSchema = s
	}
	return r
}

// SetReaderSchema enables schema resolution: dec will decode records
// encoded under the writer schema into values shaped by s.
func (r *GenericDatumReader) SetReaderSchema(s Schema) *GenericDatumReader {
	r.readerSchema = s
	return r
}

// Read decodes one datum from dec.
func (r *GenericDatumReader) Read(dec Decoder) (interface{}, error) {
	return decodeValue(dec, r.writerSchema, r.readerSchema, "", &decodeOptions{})
}
