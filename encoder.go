package avro

import "github.com/pkg/errors"

// Encode writes value to enc following schema, applying any registered
// logical-type prepare step before writing the backing primitive (spec
// §4.E). value uses the generic value model: nil, bool, int32, int64,
// float32, float64, []byte, string, map[string]interface{} (record/map),
// []interface{} (array), and Union for an explicitly tagged union member.
func Encode(enc Encoder, schema Schema, value interface{}) error {
	return encodeValue(enc, schema, value, "")
}

func encodeValue(enc Encoder, schema Schema, value interface{}, path string) error {
	if schema.LogicalType() != "" {
		if plugin, ok := lookupLogicalType(schema.Kind(), schema.LogicalType()); ok {
			prepared, err := plugin.prepare(schema, value)
			if err != nil {
				return wrapParseError(err, "encoding %s at %s", schema.TypeName(), path)
			}
			if fixed, ok := schema.(*FixedSchema); ok {
				return encodeFixed(enc, fixed, prepared, path)
			}
			return encodePrimitive(enc, schema, prepared, path)
		}
	}

	switch schema.Kind() {
	case KindRecord:
		return encodeRecord(enc, schema.(*RecordSchema), value, path)
	case KindEnum:
		return encodeEnum(enc, schema.(*EnumSchema), value, path)
	case KindArray:
		return encodeArray(enc, schema.(*ArraySchema), value, path)
	case KindMap:
		return encodeMap(enc, schema.(*MapSchema), value, path)
	case KindUnion:
		return encodeUnion(enc, schema.(*UnionSchema), value, path)
	case KindFixed:
		return encodeFixed(enc, schema.(*FixedSchema), value, path)
	default:
		return encodePrimitive(enc, schema, value, path)
	}
}

func encodePrimitive(enc Encoder, schema Schema, value interface{}, path string) error {
	switch schema.Kind() {
	case KindNull:
		enc.WriteNull()
		return nil
	case KindBoolean:
		b, ok := value.(bool)
		if !ok {
			return typeMismatch(schema, value, path)
		}
		return enc.WriteBoolean(b)
	case KindInt:
		v, ok := asInt32(value)
		if !ok {
			return typeMismatch(schema, value, path)
		}
		return enc.WriteInt(v)
	case KindLong:
		v, ok := asInt64(value)
		if !ok {
			return typeMismatch(schema, value, path)
		}
		return enc.WriteLong(v)
	case KindFloat:
		v, ok := asFloat32(value)
		if !ok {
			return typeMismatch(schema, value, path)
		}
		return enc.WriteFloat(v)
	case KindDouble:
		v, ok := asFloat64(value)
		if !ok {
			return typeMismatch(schema, value, path)
		}
		return enc.WriteDouble(v)
	case KindBytes:
		b, ok := value.([]byte)
		if !ok {
			return typeMismatch(schema, value, path)
		}
		return enc.WriteBytes(b)
	case KindString:
		s, ok := value.(string)
		if !ok {
			return typeMismatch(schema, value, path)
		}
		return enc.WriteString(s)
	default:
		return errors.Errorf("avro: %s is not a primitive kind", schema.TypeName())
	}
}

func encodeFixed(enc Encoder, schema *FixedSchema, value interface{}, path string) error {
	b, ok := value.([]byte)
	if !ok {
		return typeMismatch(schema, value, path)
	}
	if len(b) != schema.size {
		return newParseError("encoding %s at %s: want %d bytes, got %d", schema.TypeName(), path, schema.size, len(b))
	}
	return enc.WriteFixed(b)
}

func encodeRecord(enc Encoder, schema *RecordSchema, value interface{}, path string) error {
	m, ok := value.(map[string]interface{})
	if !ok {
		return typeMismatch(schema, value, path)
	}
	for _, f := range schema.fields {
		v, present := m[f.name]
		if !present {
			if !f.hasDefault {
				return newParseError("encoding record at %s: missing field %q with no default", path, f.name)
			}
			v = f.def
		}
		if err := encodeValue(enc, f.typ, v, pathAppendField(path, f.name)); err != nil {
			return err
		}
	}
	return nil
}

func encodeEnum(enc Encoder, schema *EnumSchema, value interface{}, path string) error {
	sym, ok := value.(string)
	if !ok {
		return typeMismatch(schema, value, path)
	}
	idx := schema.IndexOf(sym)
	if idx < 0 {
		return newParseError("encoding enum at %s: %q is not a declared symbol", path, sym)
	}
	return enc.WriteInt(int32(idx))
}

// encodeArray writes items as a single block followed by the terminating
// zero-length block (spec §4.E design note: multi-block splitting is also
// conforming but is not required of a writer).
func encodeArray(enc Encoder, schema *ArraySchema, value interface{}, path string) error {
	items, ok := value.([]interface{})
	if !ok {
		return typeMismatch(schema, value, path)
	}
	if len(items) > 0 {
		if err := enc.WriteLong(int64(len(items))); err != nil {
			return err
		}
		for i, item := range items {
			if err := encodeValue(enc, schema.items, item, pathAppendIndex(path, i)); err != nil {
				return err
			}
		}
	}
	return enc.WriteLong(0)
}

func encodeMap(enc Encoder, schema *MapSchema, value interface{}, path string) error {
	m, ok := value.(map[string]interface{})
	if !ok {
		return typeMismatch(schema, value, path)
	}
	if len(m) > 0 {
		if err := enc.WriteLong(int64(len(m))); err != nil {
			return err
		}
		for k, v := range m {
			if err := enc.WriteString(k); err != nil {
				return err
			}
			if err := encodeValue(enc, schema.values, v, pathAppendKey(path, k)); err != nil {
				return err
			}
		}
	}
	return enc.WriteLong(0)
}

// encodeUnion picks the union member to write, then writes its zero-based
// index followed by the value. A tagged Union{Discriminant, Value}
// disambiguates exactly; otherwise the first alternative the value
// validates against is used, breaking ties among multiple matching
// records in favor of the one with the largest field overlap with a
// map[string]interface{} value (spec §4.E).
func encodeUnion(enc Encoder, schema *UnionSchema, value interface{}, path string) error {
	if tagged, ok := value.(Union); ok {
		for i, member := range schema.types {
			if unionMemberMatchesName(member, tagged.Discriminant) {
				if err := enc.WriteLong(int64(i)); err != nil {
					return err
				}
				return encodeValue(enc, member, tagged.Value, path)
			}
		}
		return newParseError("encoding union at %s: no member named %q", path, tagged.Discriminant)
	}

	if value == nil {
		if idx := schema.IndexOfNull(); idx >= 0 {
			return enc.WriteLong(int64(idx))
		}
		return newParseError("encoding union at %s: nil value but union has no null member", path)
	}

	bestIdx := -1
	bestOverlap := -1
	for i, member := range schema.types {
		if ok, _ := Validate(value, member); !ok {
			continue
		}
		overlap := fieldOverlap(member, value)
		if bestIdx < 0 || (overlap > bestOverlap && member.Kind() == KindRecord && schema.types[bestIdx].Kind() == KindRecord) {
			bestIdx, bestOverlap = i, overlap
		}
	}
	if bestIdx < 0 {
		return newParseError("encoding union at %s: value matches no union member", path)
	}
	if err := enc.WriteLong(int64(bestIdx)); err != nil {
		return err
	}
	return encodeValue(enc, schema.types[bestIdx], value, path)
}

func fieldOverlap(member Schema, value interface{}) int {
	rec, ok := member.(*RecordSchema)
	if !ok {
		return 0
	}
	m, ok := value.(map[string]interface{})
	if !ok {
		return 0
	}
	n := 0
	for _, f := range rec.fields {
		if _, present := m[f.name]; present {
			n++
		}
	}
	return n
}

func typeMismatch(schema Schema, value interface{}, path string) error {
	return newParseError("encoding %s at %s: unexpected Go type %T", schema.TypeName(), path, value)
}

func asInt32(v interface{}) (int32, bool) {
	switch x := v.(type) {
	case int32:
		return x, true
	case int:
		return int32(x), true
	case int64:
		return int32(x), true
	}
	return 0, false
}

func asInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	}
	return 0, false
}

func asFloat32(v interface{}) (float32, bool) {
	switch x := v.(type) {
	case float32:
		return x, true
	case float64:
		return float32(x), true
	case int32:
		return float32(x), true
	case int64:
		return float32(x), true
	case int:
		return float32(x), true
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}
