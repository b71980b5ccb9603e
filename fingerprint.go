package avro

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash/crc64"
	"strings"

	"github.com/pkg/errors"
)

// rabinPoly is the constant the Avro spec mandates for the CRC-64-AVRO
// fingerprint: a reflected CRC-64 with polynomial FP and an *initial*
// state of FP itself (not zero), no final XOR. go-avro-avro reused
// hash/crc64's zero-initialized Sum64, which silently computes a
// different (wrong) fingerprint. crc64.Update inverts the register on
// entry and on exit, so this implementation passes it the inverted
// initial state and inverts its result, matching the published
// "int" -> 8f5c393f1ad57572 / "string" -> c70345637248018f vectors.
const rabinPoly = 0xc15d213aa4d7a795

var rabinTable = crc64.MakeTable(rabinPoly)

func rabinFingerprint(data []byte) uint64 {
	return ^crc64.Update(^uint64(rabinPoly), rabinTable, data)
}

// ToParsingCanonicalForm renders schema per the Avro "Parsing Canonical
// Form" transformation (spec §4.B): strip doc/aliases/default and other
// non-canonical attributes, inline namespaces into fullnames, fix
// attribute order, drop unicode escapes, coerce fixed.size to an
// integer, and simplify {"type": X} to X for primitives.
func ToParsingCanonicalForm(schema Schema) (string, error) {
	return schema.Canonical()
}

// normalizeAlgorithm accepts the common spellings used across the Avro
// ecosystem ("CRC-64-AVRO", "crc64-avro", "MD5", "SHA-256", "sha256", ...).
func normalizeAlgorithm(algorithm string) (string, error) {
	switch strings.ToLower(strings.ReplaceAll(algorithm, "_", "-")) {
	case "crc-64-avro", "crc64-avro", "crc64avro", "rabin":
		return "crc-64-avro", nil
	case "md5":
		return "md5", nil
	case "sha-256", "sha256":
		return "sha-256", nil
	default:
		return "", errors.Errorf("avro: unsupported fingerprint algorithm %q", algorithm)
	}
}

// fingerprintSchema computes the fingerprint of schema's canonical form
// under the given algorithm, returned as lowercase hex (spec §6).
func fingerprintSchema(schema Schema, algorithm string) (string, error) {
	canon, err := schema.Canonical()
	if err != nil {
		return "", err
	}
	return FingerprintCanonical(canon, algorithm)
}

// FingerprintCanonical hashes an already-computed canonical form string,
// for callers that cached the canonical text (e.g. a schema registry
// keyed by fingerprint).
func FingerprintCanonical(canonical string, algorithm string) (string, error) {
	alg, err := normalizeAlgorithm(algorithm)
	if err != nil {
		return "", err
	}
	data := []byte(canonical)
	switch alg {
	case "crc-64-avro":
		fp := rabinFingerprint(data)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], fp)
		return hex.EncodeToString(b[:]), nil
	case "md5":
		sum := md5.Sum(data)
		return hex.EncodeToString(sum[:]), nil
	case "sha-256":
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", errors.Errorf("avro: unsupported fingerprint algorithm %q", algorithm)
	}
}
