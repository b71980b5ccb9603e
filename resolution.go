package avro

// matchSchemas implements the spec §4.F match_schemas rule: given a
// writer schema and a reader schema, return the effective reader-side
// schema to use for decoding this datum, or a SchemaResolutionError.
//
// Unions are handled by the caller (decoder.go), since the writer-union
// case must read the tag byte before it can resolve anything — this
// function only ever receives non-union writer schemas from the normal
// decode path, and is also used directly by match_types callers that
// already peeled off the writer union tag.
func matchSchemas(path string, w, r Schema) (Schema, error) {
	if ru, ok := r.(*UnionSchema); ok {
		for _, member := range ru.types {
			if matchTypes(w, member) {
				return member, nil
			}
		}
		return nil, newResolutionError(path, "no reader union member compatible with writer type %s", w.TypeName())
	}
	if !matchTypes(w, r) {
		return nil, newResolutionError(path, "writer type %s is not compatible with reader type %s", w.TypeName(), r.TypeName())
	}
	return r, nil
}

// matchTypes reports whether a writer-schema value of type w can be
// resolved into a value of reader-schema type r (spec §4.F match_types).
func matchTypes(w, r Schema) bool {
	if w.Kind() == r.Kind() {
		switch w.Kind() {
		case KindRecord, KindEnum, KindFixed:
			return namedTypesMatch(w.(NamedSchema), r.(NamedSchema))
		case KindArray:
			return matchTypes(w.(*ArraySchema).items, r.(*ArraySchema).items)
		case KindMap:
			return matchTypes(w.(*MapSchema).values, r.(*MapSchema).values)
		case KindUnion:
			// A union cannot itself appear as a union member (spec §3),
			// so this only happens when resolving a reader union member
			// against a writer union member recursively; treat as
			// incompatible since callers should already have peeled the
			// tag off both sides.
			return false
		default:
			return true
		}
	}

	switch w.Kind() {
	case KindInt:
		return r.Kind() == KindLong || r.Kind() == KindFloat || r.Kind() == KindDouble
	case KindLong:
		return r.Kind() == KindFloat || r.Kind() == KindDouble
	case KindFloat:
		return r.Kind() == KindDouble
	case KindString:
		return r.Kind() == KindBytes
	case KindBytes:
		return r.Kind() == KindString
	}
	return false
}

// namedTypesMatch implements the named-type leg of match_types: same
// kind, same unqualified name, or the writer fullname appears in the
// reader's aliases; fixed additionally requires equal declared size.
// Per the open question recorded in spec §9 and DESIGN.md, alias matches
// are accepted — including when encountered inside a union, which is
// the behavior implementations in the wild are observed to rely on.
func namedTypesMatch(w, r NamedSchema) bool {
	if w.Kind() != r.Kind() {
		return false
	}
	nameMatches := w.Name() == r.Name() || aliasContains(r.Aliases(), w.Fullname()) || aliasContains(r.Aliases(), w.Name())
	if !nameMatches {
		return false
	}
	if wf, ok := w.(*FixedSchema); ok {
		rf := r.(*FixedSchema)
		return wf.Size() == rf.Size()
	}
	return true
}

func aliasContains(aliases []string, name string) bool {
	for _, a := range aliases {
		if a == name {
			return true
		}
	}
	return false
}
