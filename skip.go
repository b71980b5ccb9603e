package avro

// skipValue advances dec over one datum of writer schema w without
// materializing it. It must not be implemented as read-then-discard: a
// writer-only named type reachable only through skipValue still needs its
// own per-kind skip logic, since a generic decode would require a reader
// schema that doesn't exist for this branch (spec §4.F design note).
func skipValue(dec Decoder, w Schema) error {
	switch w.Kind() {
	case KindNull:
		return nil
	case KindBoolean:
		_, err := dec.ReadBoolean()
		return err
	case KindInt, KindLong:
		_, err := dec.ReadLong()
		return err
	case KindFloat:
		_, err := dec.ReadFloat()
		return err
	case KindDouble:
		_, err := dec.ReadDouble()
		return err
	case KindBytes:
		return dec.SkipBytes()
	case KindString:
		return dec.SkipString()
	case KindFixed:
		return dec.SkipFixed(w.(*FixedSchema).Size())
	case KindEnum:
		_, err := dec.ReadLong()
		return err
	case KindArray:
		return skipArray(dec, w.(*ArraySchema))
	case KindMap:
		return skipMap(dec, w.(*MapSchema))
	case KindRecord:
		return skipRecord(dec, w.(*RecordSchema))
	case KindUnion:
		return skipUnion(dec, w.(*UnionSchema))
	default:
		return newResolutionError("", "cannot skip unknown schema kind %s", w.TypeName())
	}
}

func skipArray(dec Decoder, w *ArraySchema) error {
	for {
		count, byteSize, err := dec.ReadBlockHeader()
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if byteSize > 0 {
			if err := dec.SkipFixed(int(byteSize)); err != nil {
				return err
			}
			continue
		}
		for i := int64(0); i < count; i++ {
			if err := skipValue(dec, w.items); err != nil {
				return err
			}
		}
	}
}

func skipMap(dec Decoder, w *MapSchema) error {
	for {
		count, byteSize, err := dec.ReadBlockHeader()
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if byteSize > 0 {
			if err := dec.SkipFixed(int(byteSize)); err != nil {
				return err
			}
			continue
		}
		for i := int64(0); i < count; i++ {
			if err := dec.SkipString(); err != nil {
				return err
			}
			if err := skipValue(dec, w.values); err != nil {
				return err
			}
		}
	}
}

func skipRecord(dec Decoder, w *RecordSchema) error {
	for _, f := range w.fields {
		if err := skipValue(dec, f.typ); err != nil {
			return err
		}
	}
	return nil
}

func skipUnion(dec Decoder, w *UnionSchema) error {
	idx, err := dec.ReadLong()
	if err != nil {
		return err
	}
	if idx < 0 || int(idx) >= len(w.types) {
		return newResolutionError("", "union index %d out of range", idx)
	}
	return skipValue(dec, w.types[idx])
}
