package avro

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// bigIntToTwosComplement renders v as the minimal signed two's-complement
// big-endian byte sequence the Avro spec requires for decimal unscaled
// values: at least one byte, with the sign bit of the leading byte
// matching the sign of v.
func bigIntToTwosComplement(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{0x00}
	}
	if v.Sign() > 0 {
		b := v.Bytes()
		if len(b) == 0 || b[0]&0x80 != 0 {
			b = append([]byte{0x00}, b...)
		}
		return b
	}
	// negative: two's complement of (abs(v) - 1) inverted, classic trick
	// using big.Int's bit operations.
	bitLen := new(big.Int).Sub(new(big.Int).Neg(v), big.NewInt(1)).BitLen()
	nBytes := bitLen/8 + 1
	mod := new(big.Int).Lsh(big.NewInt(1), uint(nBytes*8))
	twos := new(big.Int).Add(mod, v) // mod + v, v negative
	b := twos.Bytes()
	for len(b) < nBytes {
		b = append([]byte{0x00}, b...)
	}
	if b[0]&0x80 == 0 {
		b = append([]byte{0xff}, b...)
	}
	return b
}

// rescaleCoefficient returns d's coefficient as if d had been rescaled to
// exponent targetExp, i.e. the unscaled integer value the Avro decimal
// logical type encodes. decimal.Decimal's own rescale(exp int32) method
// does exactly this but is unexported, so this reimplements its
// multiply-or-truncate-by-10^diff logic against the package's public
// Coefficient/Exponent accessors.
func rescaleCoefficient(d decimal.Decimal, targetExp int32) *big.Int {
	coeff := d.Coefficient()
	exp := d.Exponent()
	if exp == targetExp {
		return coeff
	}
	diff := int64(exp) - int64(targetExp)
	if diff < 0 {
		diff = -diff
	}
	shift := new(big.Int).Exp(big.NewInt(10), big.NewInt(diff), nil)
	if targetExp > exp {
		return new(big.Int).Quo(coeff, shift)
	}
	return new(big.Int).Mul(coeff, shift)
}

// twosComplementToBigInt reverses bigIntToTwosComplement.
func twosComplementToBigInt(raw []byte) *big.Int {
	if len(raw) == 0 {
		return big.NewInt(0)
	}
	negative := raw[0]&0x80 != 0
	if !negative {
		return new(big.Int).SetBytes(raw)
	}
	// invert and add one, then negate
	inv := make([]byte, len(raw))
	for i, b := range raw {
		inv[i] = ^b
	}
	magnitude := new(big.Int).SetBytes(inv)
	magnitude.Add(magnitude, big.NewInt(1))
	return magnitude.Neg(magnitude)
}
