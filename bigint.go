package napi

import (
	"math/big"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// JsBigInt is a host arbitrary-precision integer, exchanged as a sign bit
// and little-endian 64-bit magnitude words.
type JsBigInt struct{ base }

func (JsBigInt) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueBigint, sys.StatusBigintExpected, "JsBigInt")
}
func (JsBigInt) withBase(b base) NapiValue { return JsBigInt{b} }

// Int64 returns the value truncated to 64 bits and whether it fit.
func (b JsBigInt) Int64() (int64, bool, error) {
	v, lossless, st := b.env.api.GetValueBigintInt64(b.env.raw, b.raw)
	return v, lossless, b.env.check(errors.PhaseGet, st, "get_value_bigint_int64")
}

// Uint64 returns the value truncated to 64 bits and whether it fit.
func (b JsBigInt) Uint64() (uint64, bool, error) {
	v, lossless, st := b.env.api.GetValueBigintUint64(b.env.raw, b.raw)
	return v, lossless, b.env.check(errors.PhaseGet, st, "get_value_bigint_uint64")
}

// Words returns the sign bit and magnitude words. Zero has no words and a
// clear sign.
func (b JsBigInt) Words() (bool, []uint64, error) {
	sign, words, st := b.env.api.GetValueBigintWords(b.env.raw, b.raw)
	return sign, words, b.env.check(errors.PhaseGet, st, "get_value_bigint_words")
}

// Int128 returns the value truncated to 128 bits as a signed high word and
// an unsigned low word, and whether it fit.
func (b JsBigInt) Int128() (hi int64, lo uint64, lossless bool, err error) {
	x, err := b.BigInt()
	if err != nil {
		return 0, 0, false, err
	}
	lossless = x.BitLen() < 128 || (x.Sign() < 0 && x.BitLen() == 128 && x.TrailingZeroBits() == 127)
	t := new(big.Int).And(x, mask128)
	lo = new(big.Int).And(t, mask64).Uint64()
	hi = int64(new(big.Int).Rsh(t, 64).Uint64())
	return hi, lo, lossless, nil
}

// BigInt returns the value as a *big.Int.
func (b JsBigInt) BigInt() (*big.Int, error) {
	sign, words, err := b.Words()
	if err != nil {
		return nil, err
	}
	return wordsToBig(sign, words), nil
}

var (
	mask64  = new(big.Int).SetUint64(^uint64(0))
	mask128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

func wordsToBig(sign bool, words []uint64) *big.Int {
	x := new(big.Int)
	for i := len(words) - 1; i >= 0; i-- {
		x.Lsh(x, 64)
		x.Or(x, new(big.Int).SetUint64(words[i]))
	}
	if sign {
		x.Neg(x)
	}
	return x
}

func bigToWords(x *big.Int) (bool, []uint64) {
	if x.Sign() == 0 {
		return false, nil
	}
	m := new(big.Int).Abs(x)
	words := make([]uint64, 0, (m.BitLen()+63)/64)
	for m.Sign() > 0 {
		words = append(words, new(big.Int).And(m, mask64).Uint64())
		m.Rsh(m, 64)
	}
	return x.Sign() < 0, words
}

func (e Env) CreateBigintFromInt64(v int64) (JsBigInt, error) {
	raw, st := e.api.CreateBigintInt64(e.raw, v)
	if err := e.check(errors.PhaseCreate, st, "create_bigint_int64"); err != nil {
		return JsBigInt{}, err
	}
	return JsBigInt{base{env: e, raw: raw}}, nil
}

func (e Env) CreateBigintFromUint64(v uint64) (JsBigInt, error) {
	raw, st := e.api.CreateBigintUint64(e.raw, v)
	if err := e.check(errors.PhaseCreate, st, "create_bigint_uint64"); err != nil {
		return JsBigInt{}, err
	}
	return JsBigInt{base{env: e, raw: raw}}, nil
}

// CreateBigintFromWords creates a bigint from a sign bit and little-endian
// words. All-zero words are zero regardless of sign.
func (e Env) CreateBigintFromWords(sign bool, words []uint64) (JsBigInt, error) {
	raw, st := e.api.CreateBigintWords(e.raw, sign, words)
	if err := e.check(errors.PhaseCreate, st, "create_bigint_words"); err != nil {
		return JsBigInt{}, err
	}
	return JsBigInt{base{env: e, raw: raw}}, nil
}

// CreateBigintFromInt128 creates hi*2^64 + lo, with hi signed.
func (e Env) CreateBigintFromInt128(hi int64, lo uint64) (JsBigInt, error) {
	x := new(big.Int).Lsh(big.NewInt(hi), 64)
	x.Add(x, new(big.Int).SetUint64(lo))
	return e.CreateBigint(x)
}

// CreateBigintFromUint128 creates hi*2^64 + lo.
func (e Env) CreateBigintFromUint128(hi, lo uint64) (JsBigInt, error) {
	return e.CreateBigintFromWords(false, []uint64{lo, hi})
}

func (e Env) CreateBigint(x *big.Int) (JsBigInt, error) {
	if x == nil {
		return JsBigInt{}, errors.InvalidArg(errors.PhaseCreate, "nil big.Int")
	}
	sign, words := bigToWords(x)
	return e.CreateBigintFromWords(sign, words)
}
