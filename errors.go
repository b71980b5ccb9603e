package avro

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// SchemaParseError reports a structural or semantic problem found while
// parsing or validating a schema definition.
type SchemaParseError struct {
	Message string
	Cause   error
}

func (e *SchemaParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("avro: schema parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("avro: schema parse error: %s", e.Message)
}

func (e *SchemaParseError) Unwrap() error { return e.Cause }

func newParseError(format string, args ...interface{}) error {
	return &SchemaParseError{Message: fmt.Sprintf(format, args...)}
}

func wrapParseError(cause error, format string, args ...interface{}) error {
	return &SchemaParseError{Message: fmt.Sprintf(format, args...), Cause: errors.WithStack(cause)}
}

// UnknownTypeError is returned when a name reference does not resolve to
// anything in the writer or reader named-schemas table.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("avro: unknown type name: %s", e.Name)
}

// SchemaResolutionError reports a writer/reader schema mismatch discovered
// while matching schemas for decode.
type SchemaResolutionError struct {
	Message string
	Path    string
}

func (e *SchemaResolutionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("avro: schema resolution error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("avro: schema resolution error: %s", e.Message)
}

func newResolutionError(path, format string, args ...interface{}) error {
	return &SchemaResolutionError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// ValidationFailure is a single conformance failure, carrying the datum,
// the schema it was checked against, and a dotted/bracketed path to the
// offending field.
type ValidationFailure struct {
	Datum  interface{}
	Schema Schema
	Path   string
	Reason string
}

func (f *ValidationFailure) Error() string {
	name := "<schema>"
	if f.Schema != nil {
		name = f.Schema.TypeName()
	}
	if f.Path == "" {
		return fmt.Sprintf("avro: validation error: %v does not conform to %s (%s)", f.Datum, name, f.Reason)
	}
	return fmt.Sprintf("avro: validation error at %s: %v does not conform to %s (%s)", f.Path, f.Datum, name, f.Reason)
}

// ValidationError aggregates one or more ValidationFailure values produced
// by a single Validate/ValidateMany call.
type ValidationError struct {
	Failures []*ValidationFailure
}

func (e *ValidationError) Error() string {
	merr := &multierror.Error{}
	for _, f := range e.Failures {
		merr = multierror.Append(merr, f)
	}
	return merr.Error()
}

func newValidationError(failures []*ValidationFailure) error {
	if len(failures) == 0 {
		return nil
	}
	return &ValidationError{Failures: failures}
}

// CodecUnavailableError is returned when a container file references a
// block compressor that has not been registered with RegisterCodec.
type CodecUnavailableError struct {
	Codec string
}

func (e *CodecUnavailableError) Error() string {
	return fmt.Sprintf("avro: codec unavailable: %q is not registered (register it with avro.RegisterCodec)", e.Codec)
}

// ShortReadError indicates the underlying stream ended before a complete
// item could be read. At a record boundary this is a normal terminator;
// mid-record it is fatal and is surfaced by the caller as such.
type ShortReadError struct {
	Wanted int
	Got    int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("avro: short read: wanted %d bytes, got %d", e.Wanted, e.Got)
}

func (e *ShortReadError) Unwrap() error { return errShortRead }

var errShortRead = errors.New("avro: short read")

func pathAppendField(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func pathAppendIndex(path string, idx int) string {
	return fmt.Sprintf("%s[%d]", path, idx)
}

func pathAppendKey(path, key string) string {
	return fmt.Sprintf("%s[%s]", path, key)
}
