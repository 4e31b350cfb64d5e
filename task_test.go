package napi_test

import (
	stderrors "errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	napi "github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/host"
)

// square computes x*x on a worker and resolves to x*x+1 on the host thread.
type square struct {
	x         int
	finalized *atomic.Int32
}

func (s square) Compute() (int, error) { return s.x * s.x, nil }

func (s square) Resolve(env napi.Env, out int) (napi.JsNumber, error) {
	return env.CreateInt32(int32(out + 1))
}

func (s square) Finalize(napi.Env) {
	if s.finalized != nil {
		s.finalized.Add(1)
	}
}

type failing struct{ msg string }

func (f failing) Compute() (int, error) { return 0, stderrors.New(f.msg) }

func (f failing) Resolve(napi.Env, int) (napi.JsUndefined, error) {
	panic("resolve must not run after a failed compute")
}

type customReject struct{ failing }

func (customReject) Reject(env napi.Env, err error) (napi.NapiValue, error) {
	return env.CreateString("custom: " + err.Error())
}

// resolvePanics computes fine and panics while resolving on the host thread.
type resolvePanics struct{ finalized *atomic.Int32 }

func (resolvePanics) Compute() (int, error) { return 1, nil }

func (resolvePanics) Resolve(napi.Env, int) (napi.JsNumber, error) {
	panic("resolve exploded")
}

func (r resolvePanics) Finalize(napi.Env) { r.finalized.Add(1) }

type panicking struct{}

func (panicking) Compute() (int, error) { panic("boom") }

func (panicking) Resolve(napi.Env, int) (napi.JsUndefined, error) {
	return napi.JsUndefined{}, nil
}

func TestSpawn_ResolvesComposition(t *testing.T) {
	h := newHost(t)

	var finalized atomic.Int32
	awaitPromise(t, h, func(env napi.Env) (napi.JsPromise, error) {
		p, err := napi.Spawn[int, napi.JsNumber](env, square{x: 6, finalized: &finalized})
		return p.Promise(), err
	}, func(env napi.Env, state host.PromiseState, result napi.JsUnknown) {
		assert.Equal(t, host.PromiseFulfilled, state)
		n, err := napi.Cast[napi.JsNumber](result)
		assert.NoError(t, err)
		v, _ := n.Int32()
		assert.Equal(t, int32(37), v)
	})
	assert.Equal(t, int32(1), finalized.Load())
}

func TestSpawn_RejectsWithMessage(t *testing.T) {
	h := newHost(t)

	awaitPromise(t, h, func(env napi.Env) (napi.JsPromise, error) {
		p, err := napi.Spawn[int, napi.JsUndefined](env, failing{msg: "compute failed"})
		return p.Promise(), err
	}, func(env napi.Env, state host.PromiseState, result napi.JsUnknown) {
		assert.Equal(t, host.PromiseRejected, state)
		_, err := napi.Cast[napi.JsError](result)
		assert.NoError(t, err)
		assert.Equal(t, "compute failed", jsString(t, property(t, result, "message")))
	})
}

func TestSpawn_Rejecter(t *testing.T) {
	h := newHost(t)

	awaitPromise(t, h, func(env napi.Env) (napi.JsPromise, error) {
		p, err := napi.Spawn[int, napi.JsUndefined](env, customReject{failing{msg: "nope"}})
		return p.Promise(), err
	}, func(env napi.Env, state host.PromiseState, result napi.JsUnknown) {
		assert.Equal(t, host.PromiseRejected, state)
		assert.Equal(t, "custom: nope", jsString(t, result))
	})
}

func TestSpawn_PanicRejects(t *testing.T) {
	h := newHost(t)

	awaitPromise(t, h, func(env napi.Env) (napi.JsPromise, error) {
		p, err := napi.Spawn[int, napi.JsUndefined](env, panicking{})
		return p.Promise(), err
	}, func(env napi.Env, state host.PromiseState, result napi.JsUnknown) {
		assert.Equal(t, host.PromiseRejected, state)
		assert.Equal(t, "GenericFailure", jsString(t, property(t, result, "code")))
		assert.Contains(t, jsString(t, property(t, result, "message")), "boom")
	})
}

func TestSpawn_ResolvePanicRejects(t *testing.T) {
	h := newHost(t)

	var finalized atomic.Int32
	awaitPromise(t, h, func(env napi.Env) (napi.JsPromise, error) {
		p, err := napi.Spawn[int, napi.JsNumber](env, resolvePanics{finalized: &finalized})
		return p.Promise(), err
	}, func(env napi.Env, state host.PromiseState, result napi.JsUnknown) {
		assert.Equal(t, host.PromiseRejected, state)
		assert.Equal(t, "GenericFailure", jsString(t, property(t, result, "code")))
		assert.Contains(t, jsString(t, property(t, result, "message")), "resolve exploded")
	})
	assert.Equal(t, int32(1), finalized.Load())
	assert.Zero(t, h.LiveAsyncWork())
}

func TestSpawn_Many(t *testing.T) {
	h := newHost(t)

	for i := 0; i < 8; i++ {
		awaitPromise(t, h, func(env napi.Env) (napi.JsPromise, error) {
			p, err := napi.Spawn[int, napi.JsNumber](env, square{x: i})
			return p.Promise(), err
		}, func(env napi.Env, state host.PromiseState, result napi.JsUnknown) {
			n, _ := napi.Cast[napi.JsNumber](result)
			v, _ := n.Int32()
			assert.Equal(t, int32(i*i+1), v)
		})
	}
}
