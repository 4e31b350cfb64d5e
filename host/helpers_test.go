package host

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/napi-go/sys"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HeapPages = 16
	cfg.WorkerPoolSize = 2
	return cfg
}

func newTestHost(t *testing.T, opts ...Option) *Host {
	t.Helper()
	h, err := New(context.Background(), append([]Option{WithConfig(testConfig())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return h
}

// run executes fn on the loop. fn must use assert, not require: FailNow
// on the loop goroutine would stop the loop.
func run(t *testing.T, h *Host, fn func(env sys.Env)) {
	t.Helper()
	require.NoError(t, h.Run(context.Background(), func(env sys.Env) error {
		fn(env)
		return nil
	}))
}

func str(h *Host, env sys.Env, s string) sys.Value {
	v, _ := h.CreateStringUTF8(env, []byte(s))
	return v
}

func goString(h *Host, env sys.Env, v sys.Value) string {
	b, _ := h.GetValueStringUTF8(env, v)
	return string(b)
}
