package avro

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the tagged variant a Schema node belongs to (spec §3
// Data Model). It plays the role go-avro-avro's integer Type() constants
// played, but as a named type instead of untyped ints.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBytes
	KindString
	KindRecord
	KindEnum
	KindFixed
	KindArray
	KindMap
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindRecord:
		return "record"
	case KindEnum:
		return "enum"
	case KindFixed:
		return "fixed"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindUnion:
		return "union"
	default:
		return "unknown"
	}
}

// Schema is the interface every Avro type node satisfies, primitive and
// complex alike (spec §3, component B).
type Schema interface {
	json.Marshaler
	fmt.Stringer

	// Kind returns the tagged-variant discriminator.
	Kind() Kind

	// TypeName returns the primitive type word for primitives, or the
	// fullname for named complex types, or "array"/"map"/"union" for
	// unnamed complex types.
	TypeName() string

	// LogicalType returns the schema's logicalType attribute, or "" if
	// none is declared or the declared one is unrecognized.
	LogicalType() string

	// Canonical returns this node's contribution to the parsing
	// canonical form (spec §4.B).
	Canonical() (string, error)

	// Fingerprint hashes the canonical form of this node, including
	// everything nested under it, using the named algorithm. See
	// fingerprint.go.
	Fingerprint(algorithm string) (string, error)
}

// NamedSchema is implemented by the three named complex types: record,
// enum, fixed.
type NamedSchema interface {
	Schema
	Name() string
	Namespace() string
	Fullname() string
	Aliases() []string
	Doc() string
}

// primitive holds the bits shared by every primitive schema node: a
// parsed logical type and, for decimal, its scale/precision.
type primitive struct {
	kind        Kind
	word        string
	logicalType string
	scale       int
	precision   int
}

func (p *primitive) Kind() Kind             { return p.kind }
func (p *primitive) TypeName() string       { return p.word }
func (p *primitive) LogicalType() string    { return p.logicalType }
func (p *primitive) String() string         { b, _ := p.MarshalJSON(); return string(b) }
func (p *primitive) Fingerprint(alg string) (string, error) {
	return fingerprintSchema(wrapPrimitive(p), alg)
}

// wrapPrimitive lets fingerprintSchema take a Schema interface even
// though primitive itself is only embedded, never used bare.
func wrapPrimitive(p *primitive) Schema {
	switch p.kind {
	case KindNull:
		return &NullSchema{primitive: *p}
	case KindBoolean:
		return &BooleanSchema{primitive: *p}
	case KindInt:
		return &IntSchema{primitive: *p}
	case KindLong:
		return &LongSchema{primitive: *p}
	case KindFloat:
		return &FloatSchema{primitive: *p}
	case KindDouble:
		return &DoubleSchema{primitive: *p}
	case KindBytes:
		return &BytesSchema{primitive: *p}
	case KindString:
		return &StringSchema{primitive: *p}
	}
	panic("avro: not a primitive kind")
}

func (p *primitive) Canonical() (string, error) {
	return `"` + p.word + `"`, nil
}

func (p *primitive) MarshalJSON() ([]byte, error) {
	if p.logicalType == "" {
		return []byte(`"` + p.word + `"`), nil
	}
	m := map[string]interface{}{"type": p.word, "logicalType": p.logicalType}
	if p.logicalType == logicalTypeDecimal {
		m["scale"] = p.scale
		m["precision"] = p.precision
	}
	return json.Marshal(m)
}

// NullSchema represents the Avro null type.
type NullSchema struct{ primitive }

// BooleanSchema represents the Avro boolean type.
type BooleanSchema struct{ primitive }

// IntSchema represents the Avro int type (signed 32-bit), optionally
// carrying a date/time-millis logical type.
type IntSchema struct{ primitive }

// LongSchema represents the Avro long type (signed 64-bit), optionally
// carrying a time-micros/timestamp-*/local-timestamp-* logical type.
type LongSchema struct{ primitive }

// FloatSchema represents the Avro float type (IEEE-754 32-bit).
type FloatSchema struct{ primitive }

// DoubleSchema represents the Avro double type (IEEE-754 64-bit).
type DoubleSchema struct{ primitive }

// StringSchema represents the Avro string type, optionally carrying a
// uuid logical type.
type StringSchema struct{ primitive }

// BytesSchema represents the Avro bytes type, optionally carrying a
// decimal logical type.
type BytesSchema struct{ primitive }

func newPrimitive(kind Kind, word string) *primitive {
	return &primitive{kind: kind, word: word}
}

// Field is one named, typed, ordered slot in a RecordSchema (spec §3).
type Field struct {
	name       string
	doc        string
	typ        Schema
	hasDefault bool
	def        interface{}
	aliases    []string
	order      string
	properties map[string]interface{}
}

func (f *Field) Name() string               { return f.name }
func (f *Field) Doc() string                { return f.doc }
func (f *Field) Type() Schema               { return f.typ }
func (f *Field) HasDefault() bool           { return f.hasDefault }
func (f *Field) Default() interface{}       { return f.def }
func (f *Field) Aliases() []string          { return f.aliases }
func (f *Field) Order() string              { return f.order }
func (f *Field) Prop(key string) (interface{}, bool) {
	v, ok := f.properties[key]
	return v, ok
}

func (f *Field) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"name": f.name, "type": f.typ}
	if f.doc != "" {
		m["doc"] = f.doc
	}
	if len(f.aliases) > 0 {
		m["aliases"] = f.aliases
	}
	if f.order != "" {
		m["order"] = f.order
	}
	if f.hasDefault {
		m["default"] = f.def
	}
	return json.Marshal(m)
}

func (f *Field) canonical() (string, error) {
	typeCanon, err := f.typ.Canonical()
	if err != nil {
		return "", wrapParseError(err, "field %q", f.name)
	}
	return fmt.Sprintf(`{"name":%s,"type":%s}`, jsonString(f.name), typeCanon), nil
}

// RecordSchema represents the Avro record type: an ordered list of
// fields under a fullname.
type RecordSchema struct {
	name       string
	namespace  string
	doc        string
	aliases    []string
	fields     []*Field
	properties map[string]interface{}
}

func (s *RecordSchema) Kind() Kind          { return KindRecord }
func (s *RecordSchema) Name() string        { return s.name }
func (s *RecordSchema) Namespace() string   { return s.namespace }
func (s *RecordSchema) Fullname() string    { return fullname(s.name, s.namespace) }
func (s *RecordSchema) Aliases() []string   { return s.aliases }
func (s *RecordSchema) Doc() string         { return s.doc }
func (s *RecordSchema) TypeName() string    { return s.Fullname() }
func (s *RecordSchema) LogicalType() string { return "" }
func (s *RecordSchema) Fields() []*Field    { return s.fields }

func (s *RecordSchema) FieldByName(name string) (*Field, int) {
	for i, f := range s.fields {
		if f.name == name {
			return f, i
		}
	}
	return nil, -1
}

func (s *RecordSchema) String() string { b, _ := json.MarshalIndent(s, "", "  "); return string(b) }

func (s *RecordSchema) Fingerprint(alg string) (string, error) { return fingerprintSchema(s, alg) }

func (s *RecordSchema) Canonical() (string, error) {
	var parts []string
	for _, f := range s.fields {
		c, err := f.canonical()
		if err != nil {
			return "", err
		}
		parts = append(parts, c)
	}
	return fmt.Sprintf(`{"name":%s,"type":"record","fields":[%s]}`, jsonString(s.Fullname()), joinStrings(parts, ",")), nil
}

func (s *RecordSchema) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"type": "record", "name": s.name, "fields": s.fields}
	if s.namespace != "" {
		m["namespace"] = s.namespace
	}
	if s.doc != "" {
		m["doc"] = s.doc
	}
	if len(s.aliases) > 0 {
		m["aliases"] = s.aliases
	}
	return json.Marshal(m)
}

// EnumSchema represents the Avro enum type: an ordered list of symbols,
// with an optional default used during reader-side migration (spec
// scenario 4).
type EnumSchema struct {
	name       string
	namespace  string
	doc        string
	aliases    []string
	symbols    []string
	def        string
	hasDefault bool
	properties map[string]interface{}
}

func (s *EnumSchema) Kind() Kind                  { return KindEnum }
func (s *EnumSchema) Name() string                { return s.name }
func (s *EnumSchema) Namespace() string           { return s.namespace }
func (s *EnumSchema) Fullname() string            { return fullname(s.name, s.namespace) }
func (s *EnumSchema) Aliases() []string           { return s.aliases }
func (s *EnumSchema) Doc() string                 { return s.doc }
func (s *EnumSchema) TypeName() string            { return s.Fullname() }
func (s *EnumSchema) LogicalType() string         { return "" }
func (s *EnumSchema) Symbols() []string           { return s.symbols }
func (s *EnumSchema) Default() (string, bool)     { return s.def, s.hasDefault }
func (s *EnumSchema) String() string              { b, _ := json.MarshalIndent(s, "", "  "); return string(b) }
func (s *EnumSchema) Fingerprint(a string) (string, error) { return fingerprintSchema(s, a) }

func (s *EnumSchema) IndexOf(symbol string) int {
	for i, sym := range s.symbols {
		if sym == symbol {
			return i
		}
	}
	return -1
}

func (s *EnumSchema) Canonical() (string, error) {
	var parts []string
	for _, sym := range s.symbols {
		parts = append(parts, jsonString(sym))
	}
	return fmt.Sprintf(`{"name":%s,"type":"enum","symbols":[%s]}`, jsonString(s.Fullname()), joinStrings(parts, ",")), nil
}

func (s *EnumSchema) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"type": "enum", "name": s.name, "symbols": s.symbols}
	if s.namespace != "" {
		m["namespace"] = s.namespace
	}
	if s.doc != "" {
		m["doc"] = s.doc
	}
	if len(s.aliases) > 0 {
		m["aliases"] = s.aliases
	}
	if s.hasDefault {
		m["default"] = s.def
	}
	return json.Marshal(m)
}

// FixedSchema represents the Avro fixed type: a fixed number of bytes
// under a fullname, optionally carrying a decimal or duration logical
// type.
type FixedSchema struct {
	name        string
	namespace   string
	aliases     []string
	doc         string
	size        int
	logicalType string
	scale       int
	precision   int
	properties  map[string]interface{}
}

func (s *FixedSchema) Kind() Kind          { return KindFixed }
func (s *FixedSchema) Name() string        { return s.name }
func (s *FixedSchema) Namespace() string   { return s.namespace }
func (s *FixedSchema) Fullname() string    { return fullname(s.name, s.namespace) }
func (s *FixedSchema) Aliases() []string   { return s.aliases }
func (s *FixedSchema) Doc() string         { return s.doc }
func (s *FixedSchema) TypeName() string    { return s.Fullname() }
func (s *FixedSchema) LogicalType() string { return s.logicalType }
func (s *FixedSchema) Size() int           { return s.size }
func (s *FixedSchema) String() string      { b, _ := json.MarshalIndent(s, "", "  "); return string(b) }
func (s *FixedSchema) Fingerprint(a string) (string, error) { return fingerprintSchema(s, a) }

func (s *FixedSchema) Canonical() (string, error) {
	return fmt.Sprintf(`{"name":%s,"type":"fixed","size":%d}`, jsonString(s.Fullname()), s.size), nil
}

func (s *FixedSchema) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"type": "fixed", "name": s.name, "size": s.size}
	if s.namespace != "" {
		m["namespace"] = s.namespace
	}
	if len(s.aliases) > 0 {
		m["aliases"] = s.aliases
	}
	if s.logicalType != "" {
		m["logicalType"] = s.logicalType
		if s.logicalType == logicalTypeDecimal {
			m["scale"] = s.scale
			m["precision"] = s.precision
		}
	}
	return json.Marshal(m)
}

// ArraySchema represents the Avro array type.
type ArraySchema struct {
	items Schema
}

func (s *ArraySchema) Kind() Kind          { return KindArray }
func (s *ArraySchema) TypeName() string    { return "array" }
func (s *ArraySchema) LogicalType() string { return "" }
func (s *ArraySchema) Items() Schema       { return s.items }
func (s *ArraySchema) String() string      { b, _ := json.MarshalIndent(s, "", "  "); return string(b) }
func (s *ArraySchema) Fingerprint(a string) (string, error) { return fingerprintSchema(s, a) }

func (s *ArraySchema) Canonical() (string, error) {
	itemsCanon, err := s.items.Canonical()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"type":"array","items":%s}`, itemsCanon), nil
}

func (s *ArraySchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"type": "array", "items": s.items})
}

// MapSchema represents the Avro map type. Keys are always strings.
type MapSchema struct {
	values Schema
}

func (s *MapSchema) Kind() Kind          { return KindMap }
func (s *MapSchema) TypeName() string    { return "map" }
func (s *MapSchema) LogicalType() string { return "" }
func (s *MapSchema) Values() Schema      { return s.values }
func (s *MapSchema) String() string      { b, _ := json.MarshalIndent(s, "", "  "); return string(b) }
func (s *MapSchema) Fingerprint(a string) (string, error) { return fingerprintSchema(s, a) }

func (s *MapSchema) Canonical() (string, error) {
	valuesCanon, err := s.values.Canonical()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"type":"map","values":%s}`, valuesCanon), nil
}

func (s *MapSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"type": "map", "values": s.values})
}

// UnionSchema represents the Avro union type: an ordered list of
// alternatives, none of which may themselves be a union, and no two of
// which may share an index-tag-breaking type (spec §3 invariants).
type UnionSchema struct {
	types []Schema
}

func (s *UnionSchema) Kind() Kind          { return KindUnion }
func (s *UnionSchema) TypeName() string    { return "union" }
func (s *UnionSchema) LogicalType() string { return "" }
func (s *UnionSchema) Types() []Schema     { return s.types }
func (s *UnionSchema) String() string {
	b, err := json.MarshalIndent(s.types, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}
func (s *UnionSchema) Fingerprint(a string) (string, error) { return fingerprintSchema(s, a) }

// IndexOfNull returns the index of the "null" alternative, or -1.
func (s *UnionSchema) IndexOfNull() int {
	for i, t := range s.types {
		if t.Kind() == KindNull {
			return i
		}
	}
	return -1
}

func (s *UnionSchema) Canonical() (string, error) {
	var parts []string
	for _, t := range s.types {
		c, err := t.Canonical()
		if err != nil {
			return "", err
		}
		parts = append(parts, c)
	}
	return "[" + joinStrings(parts, ",") + "]", nil
}

func (s *UnionSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.types)
}

// fullname joins a bare name and namespace the way the Avro spec defines
// it: if name already contains a dot it is a fullname and is returned
// unchanged.
func fullname(name, namespace string) string {
	if namespace == "" || containsDot(name) {
		return name
	}
	return namespace + "." + name
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func splitNamespace(full string) (namespace, name string) {
	last := -1
	for i := 0; i < len(full); i++ {
		if full[i] == '.' {
			last = i
		}
	}
	if last < 0 {
		return "", full
	}
	return full[:last], full[last+1:]
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func joinStrings(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
