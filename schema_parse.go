package avro

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var parseLog = newPackageLogger()

func newPackageLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return l
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// SetLogger redirects the package's internal structured logging (a debug
// entry for each record registered during schema parsing) to l. Tests and
// diagnostics call this; library code otherwise stays silent.
func SetLogger(l *logrus.Logger) { parseLog = l }

// ParseOption configures a single Parse call (spec §4.B: expand, force,
// ignore_default_errors, plus the SPEC_FULL.md-supplemented ability to
// share a registry across calls).
type ParseOption func(*parseConfig)

type parseConfig struct {
	registry            *SchemaRegistry
	expand              bool
	force               bool
	ignoreDefaultErrors bool
	baseDir             string
}

// WithExpand makes Parse inline every named reference to its full
// definition. The result is not round-trippable back through Canonical
// and exists purely for inspection.
func WithExpand() ParseOption { return func(c *parseConfig) { c.expand = true } }

// WithForce allows re-parsing a schema even if its fullnames are already
// present in the supplied registry, overwriting the previous entries
// instead of failing with a redefinition error.
func WithForce() ParseOption { return func(c *parseConfig) { c.force = true } }

// WithIgnoreDefaultErrors is accepted for callers that expect malformed
// field defaults to be tolerated. Parse never fails on a malformed
// default, with or without this option: defaults are coerced where
// possible and otherwise kept as decoded (see coerceDefault), so the
// option has no effect.
func WithIgnoreDefaultErrors() ParseOption { return func(c *parseConfig) { c.ignoreDefaultErrors = true } }

// WithRegistry shares a named-schemas table across multiple Parse calls,
// so later schemas may reference types defined in earlier ones.
func WithRegistry(reg *SchemaRegistry) ParseOption {
	return func(c *parseConfig) { c.registry = reg }
}

func withBaseDir(dir string) ParseOption { return func(c *parseConfig) { c.baseDir = dir } }

// Parse validates and parses raw, which may be JSON schema text, a bare
// primitive type name ("int"), a []byte of JSON text, a pre-decoded
// map[string]interface{}/[]interface{} tree, or an already-parsed Schema
// (returned unchanged, satisfying the idempotent-reparse property).
func Parse(raw interface{}, opts ...ParseOption) (Schema, error) {
	cfg := &parseConfig{registry: NewSchemaRegistry()}
	for _, o := range opts {
		o(cfg)
	}

	var tree interface{}
	switch v := raw.(type) {
	case Schema:
		if !cfg.force {
			return v, nil
		}
		tree = decodeJSONOrBareWord(v.String())
	case string:
		tree = decodeJSONOrBareWord(v)
	case []byte:
		tree = decodeJSONOrBareWord(string(v))
	case json.RawMessage:
		tree = decodeJSONOrBareWord(string(v))
	default:
		tree = v
	}

	s, err := schemaFromValue(tree, cfg, "")
	if err != nil {
		return nil, err
	}
	if cfg.expand {
		return expandSchema(s, NewSchemaRegistry())
	}
	return s, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw interface{}, opts ...ParseOption) Schema {
	s, err := Parse(raw, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseFile reads path and parses it, recursively resolving any named
// type references with no local definition by reading sibling files
// named "<name>.avsc" in the same directory (spec §4.B load_schema).
func ParseFile(path string, opts ...ParseOption) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapParseError(err, "reading schema file %s", path)
	}
	opts = append([]ParseOption{withBaseDir(filepath.Dir(path))}, opts...)
	return parseFileContent(string(data), opts...)
}

func parseFileContent(raw string, opts ...ParseOption) (Schema, error) {
	cfg := &parseConfig{registry: NewSchemaRegistry()}
	for _, o := range opts {
		o(cfg)
	}
	for {
		s, err := Parse(raw, withOptionsFromConfig(cfg)...)
		if err == nil {
			return s, nil
		}
		ute, ok := err.(*UnknownTypeError)
		if !ok || cfg.baseDir == "" {
			return nil, err
		}
		siblingPath := filepath.Join(cfg.baseDir, ute.Name+".avsc")
		siblingData, readErr := os.ReadFile(siblingPath)
		if readErr != nil {
			return nil, err
		}
		if _, parseErr := Parse(string(siblingData), withOptionsFromConfig(cfg)...); parseErr != nil {
			return nil, parseErr
		}
		// the sibling definition is now in cfg.registry; retry the
		// original document.
	}
}

func withOptionsFromConfig(cfg *parseConfig) []ParseOption {
	return []ParseOption{
		WithRegistry(cfg.registry),
		func(c *parseConfig) {
			c.expand, c.force, c.ignoreDefaultErrors, c.baseDir = cfg.expand, cfg.force, cfg.ignoreDefaultErrors, cfg.baseDir
		},
	}
}

func decodeJSONOrBareWord(s string) interface{} {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return s
	}
	return v
}

// Fullname returns the fullname (namespace.name) of a named schema, or
// its primitive/unnamed type word otherwise (spec §4.B fullname op).
func Fullname(s Schema) string {
	if n, ok := s.(NamedSchema); ok {
		return n.Fullname()
	}
	return s.TypeName()
}

func schemaFromValue(v interface{}, cfg *parseConfig, namespace string) (Schema, error) {
	switch val := v.(type) {
	case nil:
		return newPrimitive(KindNull, typeNull), nil
	case string:
		return primitiveOrReference(val, cfg, namespace)
	case []interface{}:
		return parseUnion(val, cfg, namespace)
	case map[string]interface{}:
		return parseComplex(val, cfg, namespace)
	case Schema:
		return val, nil
	default:
		return nil, newParseError("unsupported schema node of type %T", v)
	}
}

const (
	typeRecord  = "record"
	typeEnum    = "enum"
	typeArray   = "array"
	typeMap     = "map"
	typeFixed   = "fixed"
	typeUnion   = "union"
	typeString  = "string"
	typeBytes   = "bytes"
	typeInt     = "int"
	typeLong    = "long"
	typeFloat   = "float"
	typeDouble  = "double"
	typeBoolean = "boolean"
	typeNull    = "null"
)

func primitiveOrReference(word string, cfg *parseConfig, namespace string) (Schema, error) {
	switch word {
	case typeNull:
		return newPrimitive(KindNull, typeNull), nil
	case typeBoolean:
		return newPrimitive(KindBoolean, typeBoolean), nil
	case typeInt:
		return newPrimitive(KindInt, typeInt), nil
	case typeLong:
		return newPrimitive(KindLong, typeLong), nil
	case typeFloat:
		return newPrimitive(KindFloat, typeFloat), nil
	case typeDouble:
		return newPrimitive(KindDouble, typeDouble), nil
	case typeBytes:
		return newPrimitive(KindBytes, typeBytes), nil
	case typeString:
		return newPrimitive(KindString, typeString), nil
	default:
		full := word
		if !containsDot(word) {
			full = fullname(word, namespace)
		}
		if s, ok := cfg.registry.Get(full); ok {
			return s, nil
		}
		if s, ok := cfg.registry.Get(word); ok {
			return s, nil
		}
		return nil, &UnknownTypeError{Name: word}
	}
}

func parseUnion(items []interface{}, cfg *parseConfig, namespace string) (Schema, error) {
	types := make([]Schema, len(items))
	for i, item := range items {
		t, err := schemaFromValue(item, cfg, namespace)
		if err != nil {
			return nil, err
		}
		if t.Kind() == KindUnion {
			return nil, newParseError("union may not directly contain another union")
		}
		types[i] = t
	}
	if err := checkUnionDistinctness(types); err != nil {
		return nil, err
	}
	return &UnionSchema{types: types}, nil
}

func checkUnionDistinctness(types []Schema) error {
	seenUnnamed := map[Kind]bool{}
	seenNamed := map[string]bool{}
	for _, t := range types {
		if named, ok := t.(NamedSchema); ok {
			full := named.Fullname()
			if seenNamed[full] {
				return newParseError("union contains more than one member named %q", full)
			}
			seenNamed[full] = true
			continue
		}
		if seenUnnamed[t.Kind()] {
			return newParseError("union contains more than one %q member", t.Kind())
		}
		seenUnnamed[t.Kind()] = true
	}
	return nil
}

func parseComplex(v map[string]interface{}, cfg *parseConfig, namespace string) (Schema, error) {
	typeField, _ := v["type"].(string)
	switch typeField {
	case typeNull, typeBoolean, typeFloat, typeDouble:
		return primitiveOrReference(typeField, cfg, namespace)
	case typeString:
		return parseLogicalPrimitive(KindString, typeString, v)
	case typeInt:
		return parseLogicalPrimitive(KindInt, typeInt, v)
	case typeLong:
		return parseLogicalPrimitive(KindLong, typeLong, v)
	case typeBytes:
		return parseBytesSchema(v)
	case typeArray:
		items, err := schemaFromValue(v["items"], cfg, namespace)
		if err != nil {
			return nil, wrapParseError(err, "array items")
		}
		return &ArraySchema{items: items}, nil
	case typeMap:
		values, err := schemaFromValue(v["values"], cfg, namespace)
		if err != nil {
			return nil, wrapParseError(err, "map values")
		}
		return &MapSchema{values: values}, nil
	case typeEnum:
		return parseEnumSchema(v, cfg, namespace)
	case typeFixed:
		return parseFixedSchema(v, cfg, namespace)
	case typeRecord:
		return parseRecordSchema(v, cfg, namespace)
	case "":
		// {"type": {...}} or {"type": ["a","b"]} nesting.
		return schemaFromValue(v["type"], cfg, namespace)
	default:
		return schemaFromValue(v["type"], cfg, namespace)
	}
}

func parseLogicalPrimitive(kind Kind, word string, v map[string]interface{}) (Schema, error) {
	p := newPrimitive(kind, word)
	if lt, ok := v["logicalType"].(string); ok {
		if isKnownLogicalType(kind, lt) {
			p.logicalType = lt
		}
	}
	return p, nil
}

func isKnownLogicalType(kind Kind, lt string) bool {
	_, ok := lookupLogicalType(kind, lt)
	return ok
}

func parseBytesSchema(v map[string]interface{}) (Schema, error) {
	s := &BytesSchema{primitive: *newPrimitive(KindBytes, typeBytes)}
	lt, _ := v["logicalType"].(string)
	if lt == logicalTypeDecimal {
		scale, precision, err := parseDecimalParams(v, -1)
		if err != nil {
			return nil, err
		}
		s.logicalType = lt
		s.scale = scale
		s.precision = precision
	} else if isKnownLogicalType(KindBytes, lt) {
		s.logicalType = lt
	}
	return s, nil
}

// parseDecimalParams validates scale >= 0, precision > 0, precision >=
// scale, and, when backingSize >= 0 (a fixed backing), precision <=
// floor(log10(2) * (8*size - 1)) (spec §3 invariants).
func parseDecimalParams(v map[string]interface{}, backingSize int) (scale, precision int, err error) {
	precision, ok := numField(v, "precision")
	if !ok {
		return 0, 0, newParseError("decimal logical type requires precision")
	}
	scale, _ = numField(v, "scale")
	if scale < 0 {
		return 0, 0, newParseError("decimal scale must be >= 0, got %d", scale)
	}
	if precision <= 0 {
		return 0, 0, newParseError("decimal precision must be > 0, got %d", precision)
	}
	if precision < scale {
		return 0, 0, newParseError("decimal precision (%d) must be >= scale (%d)", precision, scale)
	}
	if backingSize >= 0 {
		maxPrecision := int(math.Floor(math.Log10(2) * float64(8*backingSize-1)))
		if precision > maxPrecision {
			return 0, 0, newParseError("decimal precision %d exceeds max %d for fixed size %d", precision, maxPrecision, backingSize)
		}
	}
	return scale, precision, nil
}

func numField(v map[string]interface{}, key string) (int, bool) {
	switch n := v[key].(type) {
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err == nil {
			return int(f), true
		}
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func parseEnumSchema(v map[string]interface{}, cfg *parseConfig, namespace string) (Schema, error) {
	name, ok := v["name"].(string)
	if !ok {
		return nil, newParseError("enum missing required name")
	}
	ns := namespace
	if declared, ok := v["namespace"].(string); ok {
		ns = declared
	}
	symbolsRaw, ok := v["symbols"].([]interface{})
	if !ok {
		return nil, newParseError("enum %q missing symbols", name)
	}
	symbols := make([]string, len(symbolsRaw))
	for i, sym := range symbolsRaw {
		s, ok := sym.(string)
		if !ok {
			return nil, newParseError("enum %q symbol #%d is not a string", name, i)
		}
		symbols[i] = s
	}
	aliases, err := parseAliases(v)
	if err != nil {
		return nil, err
	}
	schema := &EnumSchema{
		name:      name,
		namespace: ns,
		doc:       stringField(v, "doc"),
		aliases:   aliases,
		symbols:   symbols,
	}
	if def, ok := v["default"].(string); ok {
		schema.def = def
		schema.hasDefault = true
	}
	return registerNamed(schema.Fullname(), schema, aliases, cfg)
}

func parseFixedSchema(v map[string]interface{}, cfg *parseConfig, namespace string) (Schema, error) {
	name, ok := v["name"].(string)
	if !ok {
		return nil, newParseError("fixed missing required name")
	}
	ns := namespace
	if declared, ok := v["namespace"].(string); ok {
		ns = declared
	}
	size, ok := numField(v, "size")
	if !ok {
		return nil, newParseError("fixed %q missing size", name)
	}
	aliases, err := parseAliases(v)
	if err != nil {
		return nil, err
	}
	schema := &FixedSchema{
		name:      name,
		namespace: ns,
		doc:       stringField(v, "doc"),
		aliases:   aliases,
		size:      size,
	}
	if lt, _ := v["logicalType"].(string); lt == logicalTypeDecimal {
		scale, precision, err := parseDecimalParams(v, size)
		if err != nil {
			return nil, err
		}
		schema.logicalType = lt
		schema.scale = scale
		schema.precision = precision
	} else if isKnownLogicalType(KindFixed, lt) {
		schema.logicalType = lt
	}
	return registerNamed(schema.Fullname(), schema, aliases, cfg)
}

func parseRecordSchema(v map[string]interface{}, cfg *parseConfig, namespace string) (Schema, error) {
	name, ok := v["name"].(string)
	if !ok {
		return nil, newParseError("record missing required name")
	}
	ns := namespace
	if declared, ok := v["namespace"].(string); ok {
		ns = declared
	}
	aliases, err := parseAliases(v)
	if err != nil {
		return nil, err
	}
	schema := &RecordSchema{
		name:      name,
		namespace: ns,
		doc:       stringField(v, "doc"),
		aliases:   aliases,
	}
	full := schema.Fullname()
	if cfg.registry.Has(full) && !cfg.force {
		return nil, newParseError("redefinition of %q", full)
	}
	// register the record before its fields are parsed so that a field
	// may recursively reference this very record (spec §3: named-type
	// references resolve via depth-first, left-to-right traversal; this
	// record is the "earlier-defined" entry for its own fields).
	cfg.registry.Add(full, schema, aliases)
	parseLog.WithField("fullname", full).Debug("avro: registered record")

	fieldsRaw, ok := v["fields"].([]interface{})
	if !ok {
		return nil, newParseError("record %q missing fields", full)
	}
	fields := make([]*Field, len(fieldsRaw))
	for i, raw := range fieldsRaw {
		f, err := parseField(raw, cfg, ns)
		if err != nil {
			return nil, wrapParseError(err, "record %q field #%d", full, i)
		}
		fields[i] = f
	}
	schema.fields = fields
	return schema, nil
}

func parseField(raw interface{}, cfg *parseConfig, namespace string) (*Field, error) {
	v, ok := raw.(map[string]interface{})
	if !ok {
		return nil, newParseError("field is not an object")
	}
	name, ok := v["name"].(string)
	if !ok {
		return nil, newParseError("field missing name")
	}
	typ, err := schemaFromValue(v["type"], cfg, namespace)
	if err != nil {
		return nil, err
	}
	aliases, err := parseAliases(v)
	if err != nil {
		return nil, err
	}
	f := &Field{
		name:    name,
		doc:     stringField(v, "doc"),
		typ:     typ,
		aliases: aliases,
		order:   stringField(v, "order"),
	}
	if def, exists := v["default"]; exists {
		f.hasDefault = true
		f.def = coerceDefault(def, typ, cfg.ignoreDefaultErrors)
	}
	return f, nil
}

// coerceDefault converts JSON-decoded default literals (json.Number,
// etc.) to the Go representation matching typ, mirroring go-avro-avro's
// parseSchemaField numeric coercion. Defaults are not otherwise verified
// against typ at parse time (spec §4.B: "evaluated lazily at read time").
func coerceDefault(def interface{}, typ Schema, ignoreErrors bool) interface{} {
	switch n := def.(type) {
	case json.Number:
		switch typ.Kind() {
		case KindInt:
			i, err := n.Int64()
			if err == nil {
				return int32(i)
			}
		case KindLong:
			i, err := n.Int64()
			if err == nil {
				return i
			}
		case KindFloat:
			f, err := n.Float64()
			if err == nil {
				return float32(f)
			}
		case KindDouble:
			f, err := n.Float64()
			if err == nil {
				return f
			}
		}
		f, _ := n.Float64()
		return f
	default:
		return def
	}
}

func parseAliases(v map[string]interface{}) ([]string, error) {
	raw, exists := v["aliases"]
	if !exists {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, newParseError("aliases must be a list")
	}
	out := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, newParseError("alias #%d is not a string", i)
		}
		out[i] = s
	}
	return out, nil
}

func stringField(v map[string]interface{}, key string) string {
	s, _ := v[key].(string)
	return s
}

func registerNamed(full string, schema Schema, aliases []string, cfg *parseConfig) (Schema, error) {
	if cfg.registry.Has(full) && !cfg.force {
		return nil, newParseError("redefinition of %q", full)
	}
	cfg.registry.Add(full, schema, aliases)
	return schema, nil
}

// expandSchema recursively inlines every named-type reference into its
// full definition (WithExpand). Output is for inspection only; it is not
// a valid input to Parse since repeated definitions would look like
// redefinitions.
func expandSchema(s Schema, seen *SchemaRegistry) (Schema, error) {
	switch t := s.(type) {
	case *RecordSchema:
		if _, ok := seen.Get(t.Fullname()); ok {
			return s, nil
		}
		seen.Add(t.Fullname(), t, nil)
		for _, f := range t.fields {
			expanded, err := expandSchema(f.typ, seen)
			if err != nil {
				return nil, err
			}
			f.typ = expanded
		}
		return t, nil
	case *ArraySchema:
		items, err := expandSchema(t.items, seen)
		if err != nil {
			return nil, err
		}
		return &ArraySchema{items: items}, nil
	case *MapSchema:
		values, err := expandSchema(t.values, seen)
		if err != nil {
			return nil, err
		}
		return &MapSchema{values: values}, nil
	case *UnionSchema:
		types := make([]Schema, len(t.types))
		for i, inner := range t.types {
			expanded, err := expandSchema(inner, seen)
			if err != nil {
				return nil, err
			}
			types[i] = expanded
		}
		return &UnionSchema{types: types}, nil
	default:
		return s, nil
	}
}
