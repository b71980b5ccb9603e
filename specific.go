package avro

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// SpecificDatumWriter encodes Go structs against a schema, mapping each
// Avro field to an exported struct field by `avro:"name"` tag or, absent
// a tag, by case-insensitive name match — the same convention
// go-avro-avro's examples/data_file demonstrates ("fields to map should
// be exported ... matched by similarity").
type SpecificDatumWriter struct {
	schema Schema
}

// NewSpecificDatumWriter returns a writer with no schema set.
func NewSpecificDatumWriter() *SpecificDatumWriter { return &SpecificDatumWriter{} }

// SetSchema assigns the schema Write encodes against.
func (w *SpecificDatumWriter) SetSchema(s Schema) *SpecificDatumWriter {
	w.schema = s
	return w
}

// Write reflects datum (a struct or pointer to struct for a top-level
// record schema) into the generic value model and encodes it.
func (w *SpecificDatumWriter) Write(datum interface{}, enc Encoder) error {
	generic, err := structToGeneric(reflect.ValueOf(datum), w.schema)
	if err != nil {
		return err
	}
	return encodeValue(enc, w.schema, generic, "")
}

// SpecificDatumReader decodes into caller-provided Go structs using the
// same field-mapping convention as SpecificDatumWriter.
type SpecificDatumReader struct {
	writerSchema Schema
	readerSchema Schema
}

// NewSpecificDatumReader returns a reader with no schema set.
func NewSpecificDatumReader() *SpecificDatumReader { return &SpecificDatumReader{} }

// SetSchema sets both writer and reader schema to s.
func (r *SpecificDatumReader) SetSchema(s Schema) *SpecificDatumReader {
	r.writerSchema = s
	r.readerSchema = s
	return r
}

// SetReaderSchema enables schema resolution against a different reader
// schema than the file was written with.
func (r *SpecificDatumReader) SetReaderSchema(s Schema) *SpecificDatumReader {
	r.readerSchema = s
	return r
}

// Read decodes one datum from dec into obj, which must be a non-nil
// pointer to a struct (for a record schema) or to a value of the
// appropriate Go type for a primitive/array/map schema.
func (r *SpecificDatumReader) Read(obj interface{}, dec Decoder) error {
	generic, err := decodeValue(dec, r.writerSchema, r.readerSchema, "", &decodeOptions{})
	if err != nil {
		return err
	}
	return genericToGo(generic, reflect.ValueOf(obj))
}

func fieldNameFor(f *Field, structType reflect.Type) (string, bool) {
	for i := 0; i < structType.NumField(); i++ {
		sf := structType.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}
		if tag := sf.Tag.Get("avro"); tag != "" {
			if tag == f.name {
				return sf.Name, true
			}
			continue
		}
		if strings.EqualFold(sf.Name, f.name) {
			return sf.Name, true
		}
	}
	return "", false
}

// structToGeneric converts a reflected Go value into the generic value
// model shaped by schema, so it can pass through the same encodeValue
// path GenericDatumWriter uses.
func structToGeneric(v reflect.Value, schema Schema) (interface{}, error) {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	switch schema.Kind() {
	case KindRecord:
		rec := schema.(*RecordSchema)
		if v.Kind() != reflect.Struct {
			return nil, errors.Errorf("avro: record schema %s needs a struct, got %s", rec.Fullname(), v.Kind())
		}
		out := map[string]interface{}{}
		for _, f := range rec.fields {
			goName, ok := fieldNameFor(f, v.Type())
			if !ok {
				continue
			}
			sub, err := structToGeneric(v.FieldByName(goName), f.typ)
			if err != nil {
				return nil, errors.Wrapf(err, "field %q", f.name)
			}
			out[f.name] = sub
		}
		return out, nil
	case KindArray:
		arr := schema.(*ArraySchema)
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			return nil, errors.Errorf("avro: array schema needs a slice, got %s", v.Kind())
		}
		out := make([]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			sub, err := structToGeneric(v.Index(i), arr.items)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	case KindMap:
		m := schema.(*MapSchema)
		if v.Kind() != reflect.Map {
			return nil, errors.Errorf("avro: map schema needs a map, got %s", v.Kind())
		}
		out := map[string]interface{}{}
		for _, key := range v.MapKeys() {
			sub, err := structToGeneric(v.MapIndex(key), m.values)
			if err != nil {
				return nil, err
			}
			out[key.String()] = sub
		}
		return out, nil
	case KindUnion:
		return structToGeneric(v, (schema.(*UnionSchema)).pickConcrete(v))
	default:
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	}
}

// pickConcrete resolves a union schema down to one alternative, for the
// common case of a Go struct field holding a concrete type rather than an
// avro.Union pair: the null alternative when v is invalid or a zero
// value, otherwise the first non-null alternative. v's reflected kind is
// not compared against the alternatives.
func (s *UnionSchema) pickConcrete(v reflect.Value) Schema {
	for _, t := range s.types {
		if t.Kind() == KindNull && (!v.IsValid() || v.IsZero()) {
			return t
		}
	}
	for _, t := range s.types {
		if t.Kind() != KindNull {
			return t
		}
	}
	return s
}

// genericToGo writes a decoded generic value into dst, a reflect.Value
// obtained from a pointer the caller passed to Read.
func genericToGo(generic interface{}, dst reflect.Value) error {
	if dst.Kind() != reflect.Ptr || dst.IsNil() {
		return errors.New("avro: Read requires a non-nil pointer")
	}
	elem := dst.Elem()
	switch v := generic.(type) {
	case map[string]interface{}:
		if elem.Kind() == reflect.Map && elem.Type().Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(elem.Type(), len(v))
			for k, val := range v {
				item := reflect.New(elem.Type().Elem())
				if err := genericToGo(val, item); err != nil {
					return errors.Wrapf(err, "map key %q", k)
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(elem.Type().Key()), item.Elem())
			}
			elem.Set(out)
			return nil
		}
		if elem.Kind() != reflect.Struct {
			return errors.Errorf("avro: cannot decode a record into %s", elem.Kind())
		}
		t := elem.Type()
		for name, val := range v {
			goName, ok := matchGoField(t, name)
			if !ok {
				continue
			}
			if err := genericToGo(val, elem.FieldByName(goName).Addr()); err != nil {
				return errors.Wrapf(err, "field %q", name)
			}
		}
		return nil
	case []interface{}:
		slice := reflect.MakeSlice(elem.Type(), len(v), len(v))
		for i, item := range v {
			if err := genericToGo(item, slice.Index(i).Addr()); err != nil {
				return err
			}
		}
		elem.Set(slice)
		return nil
	case nil:
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	default:
		rv := reflect.ValueOf(v)
		if !rv.Type().AssignableTo(elem.Type()) {
			if rv.Type().ConvertibleTo(elem.Type()) {
				elem.Set(rv.Convert(elem.Type()))
				return nil
			}
			return errors.Errorf("avro: cannot assign %s into %s", rv.Type(), elem.Type())
		}
		elem.Set(rv)
		return nil
	}
}

func matchGoField(t reflect.Type, avroName string) (string, bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		if tag := sf.Tag.Get("avro"); tag != "" {
			if tag == avroName {
				return sf.Name, true
			}
			continue
		}
		if strings.EqualFold(sf.Name, avroName) {
			return sf.Name, true
		}
	}
	return "", false
}
