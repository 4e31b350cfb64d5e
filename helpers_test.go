package napi_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	napi "github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/host"
	"github.com/wippyai/napi-go/sys"
)

func newHost(t *testing.T, mutate ...func(*host.Config)) *host.Host {
	t.Helper()
	cfg := host.DefaultConfig()
	cfg.HeapPages = 16
	cfg.WorkerPoolSize = 2
	for _, m := range mutate {
		m(&cfg)
	}
	h, err := host.New(context.Background(), host.WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return h
}

// run executes fn on the host thread. Inside fn use assert only: require
// would stop the loop goroutine instead of the test.
func run(t *testing.T, h *host.Host, fn func(env napi.Env)) {
	t.Helper()
	require.NoError(t, h.Run(context.Background(), func(raw sys.Env) error {
		fn(napi.FromRaw(h, raw))
		return nil
	}))
}

// awaitPromise waits for the promise start returns and hands its state and
// result to check on the host thread.
func awaitPromise(t *testing.T, h *host.Host, start func(env napi.Env) (napi.JsPromise, error),
	check func(env napi.Env, state host.PromiseState, result napi.JsUnknown),
) {
	t.Helper()
	var p sys.Value
	var ref *napi.Ref
	run(t, h, func(env napi.Env) {
		promise, err := start(env)
		if !assert.NoError(t, err) {
			return
		}
		p = promise.Raw()
		ref, err = env.CreateReference(promise)
		assert.NoError(t, err)
	})
	require.NotNil(t, ref)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, result, err := h.Await(ctx, p)
	require.NoError(t, err)

	run(t, h, func(env napi.Env) {
		check(env, state, env.ValueFromRaw(result))
		assert.NoError(t, ref.Delete(env))
	})
}

func assertKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	var ee *errors.Error
	if assert.ErrorAs(t, err, &ee) {
		assert.Equal(t, kind, ee.Kind, ee.Error())
	}
}

func assertStatus(t *testing.T, err error, st sys.Status) {
	t.Helper()
	var ee *errors.Error
	if assert.ErrorAs(t, err, &ee) {
		assert.Equal(t, st, ee.Status, ee.Error())
	}
}

func jsString(t *testing.T, v napi.NapiValue) string {
	t.Helper()
	s, err := napi.Cast[napi.JsString](v)
	if !assert.NoError(t, err) {
		return ""
	}
	out, err := s.UTF8()
	assert.NoError(t, err)
	return out
}

func property(t *testing.T, o napi.NapiValue, name string) napi.JsUnknown {
	t.Helper()
	obj, err := napi.Cast[napi.JsObject](o)
	if !assert.NoError(t, err) {
		return napi.JsUnknown{}
	}
	v, err := obj.GetNamedProperty(name)
	assert.NoError(t, err)
	return v
}
