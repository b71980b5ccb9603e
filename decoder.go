package avro

// decodeOptions configures a Decode/decodeValue walk. ReturnRecordName
// makes union decoding return a Union{Discriminant, Value} instead of
// the bare value whenever the selected union member is a named type,
// mirroring fastavro's return_record_name / return_record_name_override
// switches (supplemented per SPEC_FULL.md §4).
type decodeOptions struct {
	ReturnRecordName         bool
	ReturnRecordNameOverride bool
}

// DecodeOption configures Decode.
type DecodeOption func(*decodeOptions)

// WithReturnRecordName makes union alternatives that resolve to a named
// type come back as a Union{Discriminant, Value} pair instead of a bare
// value, so callers can tell which alternative was written.
func WithReturnRecordName(enable bool) DecodeOption {
	return func(o *decodeOptions) { o.ReturnRecordName = enable }
}

// WithReturnRecordNameOverride behaves like WithReturnRecordName but also
// tags non-named union alternatives (so every union decode result is a
// Union pair, not just the named-type ones).
func WithReturnRecordNameOverride(enable bool) DecodeOption {
	return func(o *decodeOptions) {
		o.ReturnRecordName = enable
		o.ReturnRecordNameOverride = enable
	}
}

// Decode reads one datum from dec, written under writerSchema, into the
// generic value model shaped by readerSchema. Pass the same schema for
// both parameters when no schema evolution is involved.
func Decode(dec Decoder, writerSchema, readerSchema Schema, opts ...DecodeOption) (interface{}, error) {
	cfg := &decodeOptions{}
	for _, o := range opts {
		o(cfg)
	}
	return decodeValue(dec, writerSchema, readerSchema, "", cfg)
}

func decodeValue(dec Decoder, w, r Schema, path string, cfg *decodeOptions) (interface{}, error) {
	if w.Kind() == KindUnion {
		return decodeUnion(dec, w.(*UnionSchema), r, path, cfg)
	}

	resolved, err := matchSchemas(path, w, r)
	if err != nil {
		return nil, err
	}

	var value interface{}
	switch w.Kind() {
	case KindRecord:
		value, err = decodeRecord(dec, w.(*RecordSchema), resolved.(*RecordSchema), path, cfg)
	case KindEnum:
		value, err = decodeEnum(dec, w.(*EnumSchema), resolved.(*EnumSchema), path)
	case KindArray:
		value, err = decodeArray(dec, w.(*ArraySchema), resolved.(*ArraySchema), path, cfg)
	case KindMap:
		value, err = decodeMap(dec, w.(*MapSchema), resolved.(*MapSchema), path, cfg)
	case KindFixed:
		value, err = decodeFixed(dec, w.(*FixedSchema), path)
	default:
		value, err = decodePrimitive(dec, w, path)
	}
	if err != nil {
		return nil, err
	}

	value, err = promote(w, resolved, value)
	if err != nil {
		return nil, wrapParseError(err, "decoding %s at %s", resolved.TypeName(), path)
	}

	if resolved.LogicalType() != "" {
		if plugin, ok := lookupLogicalType(resolved.Kind(), resolved.LogicalType()); ok {
			interpreted, err := plugin.interpret(resolved, value)
			if err != nil {
				return nil, wrapParseError(err, "decoding %s at %s", resolved.TypeName(), path)
			}
			return interpreted, nil
		}
	}
	return value, nil
}

func decodePrimitive(dec Decoder, w Schema, path string) (interface{}, error) {
	switch w.Kind() {
	case KindNull:
		return nil, nil
	case KindBoolean:
		return dec.ReadBoolean()
	case KindInt:
		return dec.ReadInt()
	case KindLong:
		return dec.ReadLong()
	case KindFloat:
		return dec.ReadFloat()
	case KindDouble:
		return dec.ReadDouble()
	case KindBytes:
		return dec.ReadBytes()
	case KindString:
		return dec.ReadString()
	default:
		return nil, newResolutionError(path, "unexpected primitive kind %s", w.TypeName())
	}
}

func decodeFixed(dec Decoder, w *FixedSchema, path string) (interface{}, error) {
	return dec.ReadFixed(w.size)
}

// promote applies the spec §4.F numeric/string-bytes promotion rules
// between a writer value and the resolved reader type, once matchTypes
// has already established the pair is compatible.
func promote(w, r Schema, value interface{}) (interface{}, error) {
	if w.Kind() == r.Kind() {
		return value, nil
	}
	switch w.Kind() {
	case KindInt:
		i := value.(int32)
		switch r.Kind() {
		case KindLong:
			return int64(i), nil
		case KindFloat:
			return float32(i), nil
		case KindDouble:
			return float64(i), nil
		}
	case KindLong:
		l := value.(int64)
		switch r.Kind() {
		case KindFloat:
			return float32(l), nil
		case KindDouble:
			return float64(l), nil
		}
	case KindFloat:
		f := value.(float32)
		if r.Kind() == KindDouble {
			return float64(f), nil
		}
	case KindString:
		if r.Kind() == KindBytes {
			return []byte(value.(string)), nil
		}
	case KindBytes:
		if r.Kind() == KindString {
			return string(value.([]byte)), nil
		}
	}
	return nil, newResolutionError("", "no promotion from %s to %s", w.TypeName(), r.TypeName())
}

func decodeEnum(dec Decoder, w, r *EnumSchema, path string) (interface{}, error) {
	idx, err := dec.ReadLong()
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(w.symbols) {
		return nil, newResolutionError(path, "enum index %d out of range for writer schema", idx)
	}
	sym := w.symbols[idx]
	if r.IndexOf(sym) >= 0 {
		return sym, nil
	}
	if def, ok := r.Default(); ok {
		return def, nil
	}
	return nil, newResolutionError(path, "writer symbol %q absent from reader schema and reader has no default", sym)
}

func decodeArray(dec Decoder, w, r *ArraySchema, path string, cfg *decodeOptions) (interface{}, error) {
	items := []interface{}{}
	idx := 0
	for {
		count, _, err := dec.ReadBlockHeader()
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return items, nil
		}
		for i := int64(0); i < count; i++ {
			v, err := decodeValue(dec, w.items, r.items, pathAppendIndex(path, idx), cfg)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
			idx++
		}
	}
}

func decodeMap(dec Decoder, w, r *MapSchema, path string, cfg *decodeOptions) (interface{}, error) {
	m := map[string]interface{}{}
	for {
		count, _, err := dec.ReadBlockHeader()
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return m, nil
		}
		for i := int64(0); i < count; i++ {
			k, err := dec.ReadString()
			if err != nil {
				return nil, err
			}
			v, err := decodeValue(dec, w.values, r.values, pathAppendKey(path, k), cfg)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
	}
}

func decodeRecord(dec Decoder, w, r *RecordSchema, path string, cfg *decodeOptions) (interface{}, error) {
	out := map[string]interface{}{}
	seen := map[string]bool{}
	byName := readerFieldLookup(r)
	for _, wf := range w.fields {
		fieldPath := pathAppendField(path, wf.name)
		if rf := byName[wf.name]; rf != nil {
			v, err := decodeValue(dec, wf.typ, rf.typ, fieldPath, cfg)
			if err != nil {
				return nil, err
			}
			out[rf.name] = v
			seen[rf.name] = true
			continue
		}
		// writer field not present in reader schema, by name or alias:
		// advance the stream without materializing a value.
		if err := skipValue(dec, wf.typ); err != nil {
			return nil, err
		}
	}
	for _, rf := range r.fields {
		if seen[rf.name] {
			continue
		}
		if !rf.hasDefault {
			return nil, newResolutionError(pathAppendField(path, rf.name), "reader field %q missing from writer schema and has no default", rf.name)
		}
		out[rf.name] = rf.def
	}
	return out, nil
}

// readerFieldLookup maps every writer field name that could resolve to a
// reader field in r, keyed by name first and then by each reader field's
// aliases (fastavro's _read_py.py builds the same aliases_field_dict
// fallback: an exact field-name match is tried first, then a field whose
// aliases list contains the writer's field name). A name that matches a
// reader field's real name always wins over an aliased match, even if
// some other field also happens to alias it.
func readerFieldLookup(r *RecordSchema) map[string]*Field {
	lookup := make(map[string]*Field, len(r.fields))
	for _, rf := range r.fields {
		for _, alias := range rf.aliases {
			if _, exists := lookup[alias]; !exists {
				lookup[alias] = rf
			}
		}
	}
	for _, rf := range r.fields {
		lookup[rf.name] = rf
	}
	return lookup
}

// decodeUnion reads the writer's tag byte, resolves the selected writer
// member against the reader schema (which may itself be a union), and
// decodes the value.
func decodeUnion(dec Decoder, w *UnionSchema, r Schema, path string, cfg *decodeOptions) (interface{}, error) {
	idx, err := dec.ReadLong()
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(w.types) {
		return nil, newResolutionError(path, "union index %d out of range", idx)
	}
	wMember := w.types[idx]

	value, err := decodeValue(dec, wMember, r, path, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ReturnRecordName {
		if named, ok := wMember.(NamedSchema); ok {
			return Union{Discriminant: named.Fullname(), Value: value}, nil
		}
		if cfg.ReturnRecordNameOverride {
			return Union{Discriminant: wMember.TypeName(), Value: value}, nil
		}
	}
	return value, nil
}
