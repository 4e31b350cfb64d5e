package napi_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	napi "github.com/wippyai/napi-go"
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

type session struct {
	drops *atomic.Int32
	id    int
}

func (s session) Drop() { s.drops.Add(1) }

type other struct{ id int }

func TestWrap_TagDiscipline(t *testing.T) {
	h := newHost(t)

	var drops atomic.Int32
	run(t, h, func(env napi.Env) {
		obj, _ := env.CreateObject()
		assert.NoError(t, napi.Wrap(env, obj, session{drops: &drops, id: 7}))

		s, err := napi.Unwrap[session](env, obj)
		assert.NoError(t, err)
		assert.Equal(t, 7, s.id)
		s.id = 8
		again, _ := napi.Unwrap[session](env, obj)
		assert.Equal(t, 8, again.id, "unwrap returns a view of the payload")

		_, err = napi.Unwrap[other](env, obj)
		assertKind(t, err, errors.KindInvalidArg)

		err = napi.Wrap(env, obj, other{})
		assertStatus(t, err, sys.StatusInvalidArg)

		plain, _ := env.CreateObject()
		_, err = napi.Unwrap[session](env, plain)
		assertKind(t, err, errors.KindInvalidArg)

		str, _ := env.CreateString("x")
		err = napi.Wrap(env, str, other{})
		assertStatus(t, err, sys.StatusObjectExpected)
	})

	require.NoError(t, h.Collect(context.Background()))
	assert.Equal(t, int32(1), drops.Load(), "payload dropped once at finalize")
}

func TestWrap_DropThenFinalize(t *testing.T) {
	h := newHost(t)

	var drops atomic.Int32
	run(t, h, func(env napi.Env) {
		obj, _ := env.CreateObject()
		assert.NoError(t, napi.Wrap(env, obj, session{drops: &drops}))

		assert.NoError(t, napi.DropWrapped[session](env, obj))
		assert.Equal(t, int32(1), drops.Load())

		_, err := napi.Unwrap[session](env, obj)
		assertKind(t, err, errors.KindInvalidArg)

		err = napi.DropWrapped[session](env, obj)
		assertKind(t, err, errors.KindInvalidArg)
	})

	require.NoError(t, h.Collect(context.Background()))
	assert.Equal(t, int32(1), drops.Load(), "finalize does not drop twice")
}

func TestWrap_RemoveWrap(t *testing.T) {
	h := newHost(t)

	var drops atomic.Int32
	run(t, h, func(env napi.Env) {
		obj, _ := env.CreateObject()
		assert.NoError(t, napi.Wrap(env, obj, session{drops: &drops, id: 3}))

		s, err := napi.RemoveWrap[session](env, obj)
		assert.NoError(t, err)
		assert.Equal(t, 3, s.id)

		_, err = napi.Unwrap[session](env, obj)
		assertKind(t, err, errors.KindInvalidArg)
		assert.NoError(t, napi.Wrap(env, obj, other{id: 1}), "object can be wrapped again")
	})

	require.NoError(t, h.Collect(context.Background()))
	assert.Zero(t, drops.Load(), "removed payload belongs to the caller")
}

func TestWrap_CustomFinalizer(t *testing.T) {
	h := newHost(t)

	var drops atomic.Int32
	var got []napi.FinalizeContext[session, string]
	run(t, h, func(env napi.Env) {
		obj, _ := env.CreateObject()
		err := napi.WrapWithFinalizer(env, obj, session{drops: &drops, id: 5}, "hint",
			func(c napi.FinalizeContext[session, string]) { got = append(got, c) })
		assert.NoError(t, err)
	})

	require.NoError(t, h.Collect(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Value.id)
	assert.Equal(t, "hint", got[0].Hint)
	assert.Zero(t, drops.Load())
}

func TestWrap_DropWithCustomFinalizer(t *testing.T) {
	h := newHost(t)

	var drops atomic.Int32
	var got []int
	run(t, h, func(env napi.Env) {
		obj, _ := env.CreateObject()
		assert.NoError(t, napi.WrapWithFinalizer(env, obj, session{drops: &drops, id: 11}, struct{}{},
			func(c napi.FinalizeContext[session, struct{}]) { got = append(got, c.Value.id) }))

		assert.NoError(t, napi.DropWrapped[session](env, obj))
		assert.Zero(t, drops.Load(), "the custom finalizer owns the payload")
		_, err := napi.Unwrap[session](env, obj)
		assertKind(t, err, errors.KindInvalidArg)
	})

	require.NoError(t, h.Collect(context.Background()))
	assert.Equal(t, []int{11}, got)
	assert.Zero(t, drops.Load())
}

func TestWrap_FinalizerModeRejectsAllocation(t *testing.T) {
	h := newHost(t)

	var allocErr, adjustErr error
	var called bool
	run(t, h, func(env napi.Env) {
		obj, _ := env.CreateObject()
		napi.WrapWithFinalizer(env, obj, 1, struct{}{}, func(c napi.FinalizeContext[int, struct{}]) {
			called = true
			_, allocErr = c.Env.CreateObject()
			_, adjustErr = c.Env.AdjustExternalMemory(0)
		})
	})

	require.NoError(t, h.Collect(context.Background()))
	require.True(t, called)
	assertStatus(t, allocErr, sys.StatusGenericFailure)
	assert.NoError(t, adjustErr)
}

func TestExternal_SizeAccounting(t *testing.T) {
	h := newHost(t)
	base := h.ExternalMemory()

	var drops atomic.Int32
	run(t, h, func(env napi.Env) {
		ext, err := napi.CreateExternal(env, session{drops: &drops, id: 1}, 4096)
		assert.NoError(t, err)
		assert.Equal(t, base+4096, h.ExternalMemory())

		s, err := napi.GetValueExternal[session](env, ext)
		assert.NoError(t, err)
		assert.Equal(t, 1, s.id)

		_, err = napi.GetValueExternal[other](env, ext)
		assertKind(t, err, errors.KindInvalidArg)

		_, err = napi.Cast[napi.JsExternal](ext)
		assert.NoError(t, err)
	})

	require.NoError(t, h.Collect(context.Background()))
	assert.Equal(t, base, h.ExternalMemory(), "size hint reversed exactly once")
	assert.Equal(t, int32(1), drops.Load())
}

func TestExternal_Take(t *testing.T) {
	h := newHost(t)

	var drops atomic.Int32
	run(t, h, func(env napi.Env) {
		ext, _ := napi.CreateExternal(env, session{drops: &drops, id: 9}, 0)

		s, err := napi.TakeExternal[session](env, ext)
		assert.NoError(t, err)
		assert.Equal(t, 9, s.id)

		_, err = napi.TakeExternal[session](env, ext)
		assertKind(t, err, errors.KindInvalidArg)
		_, err = napi.GetValueExternal[session](env, ext)
		assertKind(t, err, errors.KindInvalidArg)
	})

	require.NoError(t, h.Collect(context.Background()))
	assert.Zero(t, drops.Load(), "taken payload is not dropped")
}

func TestMutex(t *testing.T) {
	m := napi.NewMutex(0)
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				m.With(func(v *int) { *v++ })
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	assert.Equal(t, 400, m.Load())
	m.Store(1)
	assert.Equal(t, 1, m.Load())
}
