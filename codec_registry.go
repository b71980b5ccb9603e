package avro

import (
	"bytes"
	"compress/bzip2"
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// Codec names recognized by the container file format (spec §4.H).
const (
	CodecNull    = "null"
	CodecDeflate = "deflate"
	CodecSnappy  = "snappy"
	CodecLZ4     = "lz4"
	CodecZstd    = "zstandard"
	CodecBzip2   = "bzip2"
	CodecXZ      = "xz"
)

// blockCodec compresses and decompresses one container-file block payload.
// Compress may be nil for decode-only codecs (bzip2: the standard library
// only ships a reader); flushing a DataFileWriter block with such a codec
// (Sync, reached from Append and Close) fails loudly rather than silently
// falling back to another codec.
type blockCodec struct {
	compress   func(dst io.Writer, data []byte) error
	decompress func(data []byte) ([]byte, error)
}

var (
	codecMu       sync.RWMutex
	codecRegistry = map[string]*blockCodec{}
)

func init() {
	codecRegistry[CodecNull] = &blockCodec{
		compress:   func(dst io.Writer, data []byte) error { _, err := dst.Write(data); return err },
		decompress: func(data []byte) ([]byte, error) { return data, nil },
	}

	codecRegistry[CodecDeflate] = &blockCodec{
		compress: func(dst io.Writer, data []byte) error {
			fw, err := flate.NewWriter(dst, flate.DefaultCompression)
			if err != nil {
				return err
			}
			if _, err := fw.Write(data); err != nil {
				return err
			}
			return fw.Close()
		},
		decompress: func(data []byte) ([]byte, error) {
			fr := flate.NewReader(bytes.NewReader(data))
			defer fr.Close()
			return io.ReadAll(fr)
		},
	}

	// snappy block framing per the object container spec: the compressed
	// payload is followed by a 4-byte big-endian CRC32 (not CRC32C) of the
	// uncompressed data.
	codecRegistry[CodecSnappy] = &blockCodec{
		compress: func(dst io.Writer, data []byte) error {
			compressed := snappy.Encode(nil, data)
			if _, err := dst.Write(compressed); err != nil {
				return err
			}
			var crc [4]byte
			binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(data))
			_, err := dst.Write(crc[:])
			return err
		},
		decompress: func(data []byte) ([]byte, error) {
			if len(data) < 4 {
				return nil, errors.New("avro: snappy block too short for trailing crc32")
			}
			body, wantCRC := data[:len(data)-4], binary.BigEndian.Uint32(data[len(data)-4:])
			out, err := snappy.Decode(nil, body)
			if err != nil {
				return nil, errors.Wrap(err, "avro: snappy decompress")
			}
			if crc32.ChecksumIEEE(out) != wantCRC {
				return nil, errors.New("avro: snappy block crc32 mismatch")
			}
			return out, nil
		},
	}

	codecRegistry[CodecLZ4] = &blockCodec{
		compress: func(dst io.Writer, data []byte) error {
			zw := lz4.NewWriter(dst)
			if _, err := zw.Write(data); err != nil {
				return err
			}
			return zw.Close()
		},
		decompress: func(data []byte) ([]byte, error) {
			zr := lz4.NewReader(bytes.NewReader(data))
			return io.ReadAll(zr)
		},
	}

	codecRegistry[CodecZstd] = &blockCodec{
		compress: func(dst io.Writer, data []byte) error {
			zw, err := zstd.NewWriter(dst)
			if err != nil {
				return err
			}
			if _, err := zw.Write(data); err != nil {
				return err
			}
			return zw.Close()
		},
		decompress: func(data []byte) ([]byte, error) {
			zr, err := zstd.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			defer zr.Close()
			return io.ReadAll(zr)
		},
	}

	// bzip2: decode-only, matching Go's standard library, which does not
	// ship a bzip2 writer. A writer that selects this codec gets a
	// CodecUnavailableError rather than silently writing uncompressed or
	// deflate-compressed blocks under a bzip2 label.
	codecRegistry[CodecBzip2] = &blockCodec{
		decompress: func(data []byte) ([]byte, error) {
			return io.ReadAll(bzip2.NewReader(bytes.NewReader(data)))
		},
	}

	// xz has no library anywhere in the retrieval pack; register a nil
	// sentinel entry so the name is known to the registry. lookupCodec
	// reports a CodecUnavailableError for it, the same error it reports
	// for a name that was never registered.
	codecRegistry[CodecXZ] = nil
}

// RegisterCodec installs or overrides a block codec under name, letting
// callers add xz support (or any other codec) without modifying this
// package.
func RegisterCodec(name string, compress func(io.Writer, []byte) error, decompress func([]byte) ([]byte, error)) {
	codecMu.Lock()
	defer codecMu.Unlock()
	codecRegistry[name] = &blockCodec{compress: compress, decompress: decompress}
}

func lookupCodec(name string) (*blockCodec, error) {
	codecMu.RLock()
	c, known := codecRegistry[name]
	codecMu.RUnlock()
	if !known || c == nil {
		return nil, &CodecUnavailableError{Codec: name}
	}
	return c, nil
}

func compressBlock(name string, data []byte) ([]byte, error) {
	c, err := lookupCodec(name)
	if err != nil {
		return nil, err
	}
	if c.compress == nil {
		return nil, errors.Wrapf(&CodecUnavailableError{Codec: name}, "codec %q supports decompression only", name)
	}
	var buf bytes.Buffer
	if err := c.compress(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "avro: compressing block with codec %q", name)
	}
	return buf.Bytes(), nil
}

func decompressBlock(name string, data []byte) ([]byte, error) {
	c, err := lookupCodec(name)
	if err != nil {
		return nil, err
	}
	out, err := c.decompress(data)
	if err != nil {
		return nil, errors.Wrapf(err, "avro: decompressing block with codec %q", name)
	}
	return out, nil
}
