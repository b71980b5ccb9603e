package avro

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Encoder writes Avro primitive values to an underlying byte sink. It is
// the lowest layer of the codec (component A): every higher-level writer
// (record/array/map/union walkers, the datum encoder, the container file
// writer) is built entirely out of these calls.
type Encoder interface {
	WriteNull()
	WriteBoolean(b bool) error
	WriteInt(v int32) error
	WriteLong(v int64) error
	WriteFloat(v float32) error
	WriteDouble(v float64) error
	WriteBytes(v []byte) error
	WriteString(v string) error
	WriteFixed(v []byte) error
	Flush() error
}

// Decoder reads Avro primitive values from an underlying byte source.
type Decoder interface {
	ReadBoolean() (bool, error)
	ReadInt() (int32, error)
	ReadLong() (int64, error)
	ReadFloat() (float32, error)
	ReadDouble() (float64, error)
	ReadBytes() ([]byte, error)
	ReadString() (string, error)
	ReadFixed(size int) ([]byte, error)
	// ReadBlockHeader reads an array/map block's count and, when the count
	// is negative (signaling a byte-size follows), its absolute value and
	// the block's byte size.
	ReadBlockHeader() (count int64, byteSize int64, err error)
	// Skip* mirror the Read* calls but never materialize a value; they are
	// used by the schema-resolution skipper table (skip.go) to advance the
	// stream over fields the reader schema does not want.
	SkipBytes() error
	SkipString() error
	SkipFixed(size int) error
}

// BinaryEncoder implements Encoder over an io.Writer using the Avro binary
// encoding: zig-zag varints for int/long, little-endian IEEE-754 for
// float/double, and length-prefixed byte sequences for bytes/string.
type BinaryEncoder struct {
	w   io.Writer
	buf [binary.MaxVarintLen64]byte
}

// NewBinaryEncoder wraps w as an Encoder.
func NewBinaryEncoder(w io.Writer) *BinaryEncoder {
	return &BinaryEncoder{w: w}
}

func (e *BinaryEncoder) WriteNull() {}

func (e *BinaryEncoder) WriteBoolean(b bool) error {
	if b {
		return e.writeByte(0x01)
	}
	return e.writeByte(0x00)
}

func (e *BinaryEncoder) writeByte(b byte) error {
	e.buf[0] = b
	_, err := e.w.Write(e.buf[:1])
	return err
}

// WriteInt zig-zag encodes a signed 32-bit int. int and long share the
// same wire coding (spec §4.A); range-checking is a validator concern.
func (e *BinaryEncoder) WriteInt(v int32) error {
	return e.WriteLong(int64(v))
}

// WriteLong zig-zag encodes a signed 64-bit long as a variable-length
// sequence of 7-bit groups, little-endian, with the high bit set on every
// byte but the last.
func (e *BinaryEncoder) WriteLong(v int64) error {
	z := uint64((v << 1) ^ (v >> 63))
	n := 0
	for z >= 0x80 {
		e.buf[n] = byte(z) | 0x80
		z >>= 7
		n++
	}
	e.buf[n] = byte(z)
	n++
	_, err := e.w.Write(e.buf[:n])
	return err
}

func (e *BinaryEncoder) WriteFloat(v float32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	_, err := e.w.Write(b[:])
	return err
}

func (e *BinaryEncoder) WriteDouble(v float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	_, err := e.w.Write(b[:])
	return err
}

func (e *BinaryEncoder) WriteBytes(v []byte) error {
	if err := e.WriteLong(int64(len(v))); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	_, err := e.w.Write(v)
	return err
}

func (e *BinaryEncoder) WriteString(v string) error {
	if err := e.WriteLong(int64(len(v))); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	_, err := io.WriteString(e.w, v)
	return err
}

// WriteFixed writes exactly len(v) bytes, no length prefix.
func (e *BinaryEncoder) WriteFixed(v []byte) error {
	_, err := e.w.Write(v)
	return err
}

// Flush flushes any underlying buffered writer (e.g. *bufio.Writer).
func (e *BinaryEncoder) Flush() error {
	type flusher interface{ Flush() error }
	if f, ok := e.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// WriteBlockHeader writes an array/map block header: a long count, and
// when negative (used to permit skipping) the byte-size of the block that
// follows. A count of zero terminates the sequence and is written by the
// caller directly via WriteLong(0).
func (e *BinaryEncoder) WriteBlockHeader(count int64, byteSize int64) error {
	if err := e.WriteLong(count); err != nil {
		return err
	}
	if count < 0 {
		return e.WriteLong(byteSize)
	}
	return nil
}

// BinaryDecoder implements Decoder over an in-memory byte slice. Avro
// decoding is inherently backtracking-free, so a slice (rather than a
// generic io.Reader) lets the varint and float reads run without
// allocating; ReadBytes, ReadFixed and ReadString return copies.
type BinaryDecoder struct {
	buf []byte
	pos int
}

// NewBinaryDecoder wraps buf as a Decoder.
func NewBinaryDecoder(buf []byte) *BinaryDecoder {
	return &BinaryDecoder{buf: buf}
}

// Len reports the number of unread bytes remaining.
func (d *BinaryDecoder) Len() int { return len(d.buf) - d.pos }

// Offset reports the current read position, for callers that need to
// resynchronize.
func (d *BinaryDecoder) Offset() int { return d.pos }

func (d *BinaryDecoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, &ShortReadError{Wanted: 1, Got: 0}
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *BinaryDecoder) readN(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf("avro: negative length %d", n)
	}
	if d.pos+n > len(d.buf) {
		got := len(d.buf) - d.pos
		if got < 0 {
			got = 0
		}
		return nil, &ShortReadError{Wanted: n, Got: got}
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *BinaryDecoder) ReadBoolean() (bool, error) {
	b, err := d.readByte()
	if err != nil {
		return false, err
	}
	return b != 0x00, nil
}

func (d *BinaryDecoder) ReadInt() (int32, error) {
	v, err := d.ReadLong()
	return int32(v), err
}

// ReadLong reverses the zig-zag/varint encoding written by WriteLong.
func (d *BinaryDecoder) ReadLong() (int64, error) {
	var z uint64
	shift := uint(0)
	for {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		z |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 70 {
			return 0, errors.New("avro: varint too long")
		}
	}
	return int64(z>>1) ^ -int64(z&1), nil
}

func (d *BinaryDecoder) ReadFloat() (float32, error) {
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (d *BinaryDecoder) ReadDouble() (float64, error) {
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (d *BinaryDecoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadLong()
	if err != nil {
		return nil, err
	}
	b, err := d.readN(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (d *BinaryDecoder) ReadString() (string, error) {
	n, err := d.ReadLong()
	if err != nil {
		return "", err
	}
	b, err := d.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *BinaryDecoder) ReadFixed(size int) ([]byte, error) {
	b, err := d.readN(size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (d *BinaryDecoder) SkipBytes() error {
	n, err := d.ReadLong()
	if err != nil {
		return err
	}
	_, err = d.readN(int(n))
	return err
}

func (d *BinaryDecoder) SkipString() error { return d.SkipBytes() }

func (d *BinaryDecoder) SkipFixed(size int) error {
	_, err := d.readN(size)
	return err
}

// ReadBlockHeader reads an array/map block header. A negative count means
// its absolute value is the real count and a byte-size long follows,
// which the caller may use to skip the block wholesale without decoding
// individual items.
func (d *BinaryDecoder) ReadBlockHeader() (count int64, byteSize int64, err error) {
	count, err = d.ReadLong()
	if err != nil {
		return 0, 0, err
	}
	if count < 0 {
		byteSize, err = d.ReadLong()
		if err != nil {
			return 0, 0, err
		}
		count = -count
	}
	return count, byteSize, nil
}
