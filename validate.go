package avro

import "math"

// ValidateOption configures a Validate/ValidateMany call.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	raiseErrors bool
}

// WithRaiseErrors makes Validate return as soon as the first failure is
// found instead of aggregating every offending field (fastavro's
// validate.py raise_errors flag, carried per SPEC_FULL.md §4).
func WithRaiseErrors(raise bool) ValidateOption {
	return func(c *validateConfig) { c.raiseErrors = raise }
}

// Validate determines whether datum conforms to schema (spec §4.G). On
// success it returns (true, nil). On failure it returns (false, err)
// where err is a *ValidationError aggregating every failing path found,
// unless WithRaiseErrors(true) was given, in which case it stops at (and
// returns) the first failure.
func Validate(datum interface{}, schema Schema, opts ...ValidateOption) (bool, error) {
	cfg := &validateConfig{}
	for _, o := range opts {
		o(cfg)
	}
	var failures []*ValidationFailure
	collect := func(f *ValidationFailure) bool {
		failures = append(failures, f)
		return !cfg.raiseErrors
	}
	validateNode(datum, schema, "", collect)
	if len(failures) == 0 {
		return true, nil
	}
	return false, newValidationError(failures)
}

// ValidateMany runs Validate across every element of data, aggregating
// every failure across every record into a single error. Each failure's
// path is prefixed with the record's index in data.
func ValidateMany(data []interface{}, schema Schema) (bool, error) {
	var all []*ValidationFailure
	for i, datum := range data {
		_, err := Validate(datum, schema)
		ve, isVE := err.(*ValidationError)
		if !isVE {
			continue
		}
		for _, f := range ve.Failures {
			prefixed := *f
			prefixed.Path = pathAppendIndex("", i) + subPath(f.Path)
			all = append(all, &prefixed)
		}
	}
	if len(all) == 0 {
		return true, nil
	}
	return false, newValidationError(all)
}

func subPath(p string) string {
	if p == "" {
		return ""
	}
	return "." + p
}

// validateNode walks datum against schema, calling collect for every
// failure found. collect returns false to request an early stop (the
// WithRaiseErrors case).
func validateNode(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool) bool {
	switch schema.Kind() {
	case KindNull:
		if datum != nil {
			return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "expected null"})
		}
		return true
	case KindBoolean:
		if _, ok := datum.(bool); !ok {
			return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "expected bool"})
		}
		return true
	case KindInt:
		return validateIntLike(datum, schema, path, collect, math.MinInt32, math.MaxInt32)
	case KindLong:
		return validateIntLike(datum, schema, path, collect, math.MinInt64, math.MaxInt64)
	case KindFloat, KindDouble:
		return validateFloatLike(datum, schema, path, collect)
	case KindString:
		return validateString(datum, schema, path, collect)
	case KindBytes:
		return validateBytesLike(datum, schema, path, collect, -1)
	case KindFixed:
		return validateBytesLike(datum, schema, path, collect, schema.(*FixedSchema).Size())
	case KindEnum:
		return validateEnum(datum, schema, path, collect)
	case KindArray:
		return validateArray(datum, schema, path, collect)
	case KindMap:
		return validateMap(datum, schema, path, collect)
	case KindRecord:
		return validateRecord(datum, schema, path, collect)
	case KindUnion:
		return validateUnion(datum, schema, path, collect)
	default:
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "unknown schema kind"})
	}
}

func validateIntLike(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool, min, max int64) bool {
	if _, isBool := datum.(bool); isBool && schema.Kind() == KindLong {
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "bool is not a valid long"})
	}
	var n int64
	switch v := datum.(type) {
	case int32:
		n = int64(v)
	case int64:
		n = v
	case int:
		n = int64(v)
	default:
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "expected an integer"})
	}
	if n < min || n > max {
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "out of range"})
	}
	return true
}

func validateFloatLike(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool) bool {
	switch datum.(type) {
	case float32, float64, int32, int64, int:
		return true
	default:
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "expected a real number"})
	}
}

func validateString(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool) bool {
	switch datum.(type) {
	case string:
		return true
	default:
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "expected a string"})
	}
}

func validateBytesLike(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool, exactSize int) bool {
	b, ok := datum.([]byte)
	if !ok {
		// decimal logical-type datums validate as conforming too (spec:
		// "bytes: byte sequence or a decimal number").
		if schema.LogicalType() == logicalTypeDecimal {
			return true
		}
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "expected []byte"})
	}
	if exactSize >= 0 && len(b) != exactSize {
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "wrong fixed length"})
	}
	return true
}

func validateEnum(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool) bool {
	s := schema.(*EnumSchema)
	sym, ok := datum.(string)
	if !ok || s.IndexOf(sym) < 0 {
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "not a declared symbol"})
	}
	return true
}

func validateArray(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool) bool {
	s := schema.(*ArraySchema)
	items, ok := datum.([]interface{})
	if !ok {
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "expected an array"})
	}
	for i, item := range items {
		if !validateNode(item, s.items, pathAppendIndex(path, i), collect) {
			return false
		}
	}
	return true
}

func validateMap(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool) bool {
	s := schema.(*MapSchema)
	m, ok := datum.(map[string]interface{})
	if !ok {
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "expected a map[string]interface{}"})
	}
	for k, v := range m {
		if !validateNode(v, s.values, pathAppendKey(path, k), collect) {
			return false
		}
	}
	return true
}

func validateRecord(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool) bool {
	s := schema.(*RecordSchema)
	m, ok := datum.(map[string]interface{})
	if !ok {
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "expected a map[string]interface{}"})
	}
	for _, f := range s.fields {
		v, present := m[f.name]
		if !present {
			if f.hasDefault {
				v = f.def
			} else {
				if !collect(&ValidationFailure{Datum: datum, Schema: schema, Path: pathAppendField(path, f.name), Reason: "missing required field"}) {
					return false
				}
				continue
			}
		}
		if !validateNode(v, f.typ, pathAppendField(path, f.name), collect) {
			return false
		}
	}
	return true
}

func validateUnion(datum interface{}, schema Schema, path string, collect func(*ValidationFailure) bool) bool {
	s := schema.(*UnionSchema)
	if tagged, ok := datum.(Union); ok {
		for _, member := range s.types {
			if unionMemberMatchesName(member, tagged.Discriminant) {
				return validateNode(tagged.Value, member, path, collect)
			}
		}
		return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "no union member named " + tagged.Discriminant})
	}
	for _, member := range s.types {
		if ok, _ := Validate(datum, member); ok {
			return true
		}
	}
	return collect(&ValidationFailure{Datum: datum, Schema: schema, Path: path, Reason: "matches no union member"})
}

func unionMemberMatchesName(member Schema, name string) bool {
	if named, ok := member.(NamedSchema); ok {
		return named.Fullname() == name || named.Name() == name
	}
	return member.TypeName() == name
}
