package host

import (
	"math"
	"math/big"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	maxBigintWords = math.MaxInt32
	maxArrayLength = math.MaxUint32
	maxTimeValue   = 8.64e15
)

var (
	two32  = math.Exp2(32)
	two63  = math.Exp2(63)
	mask64 = new(big.Int).SetUint64(math.MaxUint64)
)

// toUint32 applies the ECMAScript ToUint32 wrap-around. Non-finite values
// map to 0.
func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	t := math.Mod(math.Trunc(f), two32)
	if t < 0 {
		t += two32
	}
	return uint32(t)
}

func toInt32(f float64) int32 {
	return int32(toUint32(f))
}

// toInt64 truncates toward zero and saturates outside the int64 range.
// Non-finite values map to 0.
func toInt64(f float64) int64 {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0):
		return 0
	case f >= two63:
		return math.MaxInt64
	case f < -two63:
		return math.MinInt64
	default:
		return int64(f)
	}
}

func timeClip(ms float64) float64 {
	if math.IsNaN(ms) || math.Abs(ms) > maxTimeValue {
		return math.NaN()
	}
	return math.Trunc(ms) + 0
}

// bigintFromWords builds a value from little-endian 64-bit words. The sign
// of zero is dropped.
func bigintFromWords(sign bool, words []uint64) *big.Int {
	x := new(big.Int)
	w := new(big.Int)
	for i := len(words) - 1; i >= 0; i-- {
		x.Lsh(x, 64)
		x.Or(x, w.SetUint64(words[i]))
	}
	if sign {
		x.Neg(x)
	}
	return x
}

// bigintToWords returns the sign and little-endian magnitude words.
// Zero yields no words.
func bigintToWords(x *big.Int) (bool, []uint64) {
	mag := new(big.Int).Abs(x)
	var words []uint64
	w := new(big.Int)
	for mag.Sign() > 0 {
		words = append(words, w.And(mag, mask64).Uint64())
		mag.Rsh(mag, 64)
	}
	return x.Sign() < 0, words
}

// low64 returns the low 64 bits in two's complement.
func low64(x *big.Int) uint64 {
	return new(big.Int).And(x, mask64).Uint64()
}

// utf8ToUnits decodes UTF-8, replacing invalid sequences with U+FFFD.
func utf8ToUnits(b []byte) []uint16 {
	units := make([]uint16, 0, len(b))
	for len(b) > 0 {
		r, n := utf8.DecodeRune(b)
		b = b[n:]
		units = utf16.AppendRune(units, r)
	}
	return units
}

func latin1ToUnits(b []byte) []uint16 {
	units := make([]uint16, len(b))
	for i, c := range b {
		units[i] = uint16(c)
	}
	return units
}

// unitsToUTF8 encodes code units as UTF-8. Lone surrogates become U+FFFD.
func unitsToUTF8(units []uint16) []byte {
	out := make([]byte, 0, len(units))
	for _, r := range utf16.Decode(units) {
		out = utf8.AppendRune(out, r)
	}
	return out
}

// unitsToLatin1 keeps the low byte of every code unit.
func unitsToLatin1(units []uint16) []byte {
	out := make([]byte, len(units))
	for i, u := range units {
		out[i] = byte(u)
	}
	return out
}
