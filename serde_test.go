package napi_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	napi "github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/errors"
)

type point struct {
	X int `cbor:"x"`
	Y int `cbor:"y"`
}

type record struct {
	Name    string         `cbor:"name"`
	Score   float64        `cbor:"score"`
	Count   int            `cbor:"count"`
	Big     int64          `cbor:"big"`
	Tags    []string       `cbor:"tags"`
	Payload []byte         `cbor:"payload"`
	At      time.Time      `cbor:"at"`
	Origin  point          `cbor:"origin"`
	Limits  map[string]int `cbor:"limits"`
	Enabled bool           `cbor:"enabled"`
	Note    *string        `cbor:"note"`
}

func TestSerde_RoundTrip(t *testing.T) {
	h := newHost(t)

	in := record{
		Name:    "sensor",
		Score:   1.5,
		Count:   7,
		Big:     1 << 60,
		Tags:    []string{"a", "b"},
		Payload: []byte{1, 2, 3},
		At:      time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC),
		Origin:  point{X: -3, Y: 4},
		Limits:  map[string]int{"lo": 1, "hi": 9},
		Enabled: true,
	}

	run(t, h, func(env napi.Env) {
		v, err := napi.ToValue(env, in)
		if !assert.NoError(t, err) {
			return
		}

		assert.Equal(t, "sensor", jsString(t, property(t, v, "name")))
		_, err = napi.Cast[napi.JsBigInt](property(t, v, "big"))
		assert.NoError(t, err, "integers beyond 2^53 become bigints")
		_, err = napi.Cast[napi.JsBuffer](property(t, v, "payload"))
		assert.NoError(t, err)
		_, err = napi.Cast[napi.JsArray](property(t, v, "tags"))
		assert.NoError(t, err)
		assert.Equal(t, "2024-03-01T12:00:00.0000005Z", jsString(t, property(t, v, "at")))

		out, err := napi.FromValue[record](env, v)
		assert.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func TestSerde_FromHostValues(t *testing.T) {
	h := newHost(t)

	run(t, h, func(env napi.Env) {
		obj, _ := env.CreateObject()
		n, _ := env.CreateDouble(42)
		s, _ := env.CreateString("x")
		d, _ := env.CreateDate(1_700_000_000_000)
		null, _ := env.GetNull()
		assert.NoError(t, obj.SetNamedProperty("n", n))
		assert.NoError(t, obj.SetNamedProperty("s", s))
		assert.NoError(t, obj.SetNamedProperty("missing", null))

		m, err := napi.FromValue[map[string]any](env, obj)
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"n": uint64(42), "s": "x", "missing": nil}, m)

		at, err := napi.FromValue[time.Time](env, d)
		assert.NoError(t, err)
		assert.True(t, at.Equal(time.UnixMilli(1_700_000_000_000)))

		huge, _ := env.CreateBigint(new(big.Int).Lsh(big.NewInt(1), 100))
		x, err := napi.FromValue[*big.Int](env, huge)
		if assert.NoError(t, err) && assert.NotNil(t, x) {
			assert.Equal(t, 101, x.BitLen())
		}

		f, err := napi.FromValue[float64](env, n)
		assert.NoError(t, err)
		assert.Equal(t, 42.0, f)

		_, err = napi.FromValue[int](env, s)
		assertKind(t, err, errors.KindInvalidArg)
	})
}

func TestSerde_Unsupported(t *testing.T) {
	h := newHost(t)

	run(t, h, func(env napi.Env) {
		_, err := napi.ToValue(env, make(chan int))
		assertKind(t, err, errors.KindInvalidArg)

		fn, _ := env.CreateFunction("f", func(*napi.CallContext) (napi.NapiValue, error) { return nil, nil })
		_, err = napi.FromValue[map[string]any](env, fn)
		assertKind(t, err, errors.KindInvalidArg)

		sym, _ := env.CreateSymbol(nil)
		_, err = napi.FromValue[any](env, sym)
		assertKind(t, err, errors.KindInvalidArg)

		_, err = napi.FromValue[any](env, nil)
		assertKind(t, err, errors.KindInvalidArg)
	})
}

func TestSerde_NilAndScalars(t *testing.T) {
	h := newHost(t)

	run(t, h, func(env napi.Env) {
		v, err := napi.ToValue(env, nil)
		assert.NoError(t, err)
		typ, _ := v.TypeOf()
		assert.Equal(t, "null", typ.String())

		v, err = napi.ToValue(env, []any{true, "two", 3.25})
		assert.NoError(t, err)
		out, err := napi.FromValue[[]any](env, v)
		assert.NoError(t, err)
		assert.Equal(t, []any{true, "two", 3.25}, out)
	})
}
