package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/napi-go/sys"
)

func TestCollect_ScopeRoots(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()
	base := h.LiveValues()

	run(t, h, func(env sys.Env) {
		obj, _ := h.CreateObject(env)
		child, _ := h.CreateObject(env)
		h.SetNamedProperty(env, obj, "child", child)

		h.collect()
		_, ok := h.get(obj)
		assert.True(t, ok, "values in an open scope survive")
		_, ok = h.get(child)
		assert.True(t, ok)
	})

	require.NoError(t, h.Collect(ctx))
	assert.Equal(t, base, h.LiveValues())
}

func TestCollect_NestedScopeReleases(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		keep, _ := h.CreateObject(env)
		hs, _ := h.OpenHandleScope(env)
		tmp, _ := h.CreateObject(env)
		h.CloseHandleScope(env, hs)

		h.collect()
		_, ok := h.get(tmp)
		assert.False(t, ok, "closed scope no longer roots its values")
		_, ok = h.get(keep)
		assert.True(t, ok)
	})
}

func TestCollect_WrapFinalizerRunsOnce(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	var calls int
	var gotData, gotHint any
	run(t, h, func(env sys.Env) {
		obj, _ := h.CreateObject(env)
		st := h.Wrap(env, obj, "payload", func(_ sys.Env, data, hint any) {
			calls++
			gotData, gotHint = data, hint
		}, "hint")
		assert.Equal(t, sys.StatusOK, st)
		assert.Equal(t, sys.StatusInvalidArg, h.Wrap(env, obj, "again", nil, nil), "one wrap per object")

		data, _ := h.Unwrap(env, obj)
		assert.Equal(t, "payload", data)

		num, _ := h.CreateInt32(env, 1)
		assert.Equal(t, sys.StatusObjectExpected, h.Wrap(env, num, 1, nil, nil))
	})

	require.NoError(t, h.Collect(ctx))
	require.NoError(t, h.Collect(ctx))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "payload", gotData)
	assert.Equal(t, "hint", gotHint)
}

func TestCollect_RemoveWrapSkipsFinalizer(t *testing.T) {
	h := newTestHost(t)

	var calls int
	run(t, h, func(env sys.Env) {
		obj, _ := h.CreateObject(env)
		h.Wrap(env, obj, 7, func(sys.Env, any, any) { calls++ }, nil)
		data, st := h.RemoveWrap(env, obj)
		assert.Equal(t, sys.StatusOK, st)
		assert.Equal(t, 7, data)

		_, st = h.Unwrap(env, obj)
		assert.Equal(t, sys.StatusInvalidArg, st)
	})

	require.NoError(t, h.Collect(context.Background()))
	require.NoError(t, h.Close(context.Background()))
	assert.Zero(t, calls)
}

func TestCollect_WeakAndStrongReferences(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	var weak, strong sys.Ref
	run(t, h, func(env sys.Env) {
		a, _ := h.CreateObject(env)
		b, _ := h.CreateObject(env)
		weak, _ = h.CreateReference(env, a, 0)
		strong, _ = h.CreateReference(env, b, 1)
	})

	require.NoError(t, h.Collect(ctx))

	run(t, h, func(env sys.Env) {
		v, st := h.GetReferenceValue(env, weak)
		assert.Equal(t, sys.StatusOK, st)
		assert.Zero(t, v, "weak target was collected")

		_, st = h.ReferenceRef(env, weak)
		assert.Equal(t, sys.StatusGenericFailure, st)

		v, _ = h.GetReferenceValue(env, strong)
		typ, _ := h.TypeOf(env, v)
		assert.Equal(t, sys.ValueObject, typ)

		n, _ := h.ReferenceRef(env, strong)
		assert.Equal(t, uint32(2), n)
		n, _ = h.ReferenceUnref(env, strong)
		assert.Equal(t, uint32(1), n)
		n, _ = h.ReferenceUnref(env, strong)
		assert.Equal(t, uint32(0), n)
		_, st = h.ReferenceUnref(env, strong)
		assert.Equal(t, sys.StatusGenericFailure, st)

		assert.Equal(t, sys.StatusOK, h.DeleteReference(env, weak))
		assert.Equal(t, sys.StatusOK, h.DeleteReference(env, strong))
		assert.Equal(t, sys.StatusInvalidArg, h.DeleteReference(env, strong))
	})
	assert.Zero(t, h.LiveReferences())
}

func TestCollect_ExternalFinalizer(t *testing.T) {
	h := newTestHost(t)

	type payload struct{ n int }
	var finalized *payload
	run(t, h, func(env sys.Env) {
		v, _ := h.CreateExternal(env, &payload{n: 3}, func(_ sys.Env, data, _ any) {
			finalized = data.(*payload)
		}, nil)
		got, st := h.GetValueExternal(env, v)
		assert.Equal(t, sys.StatusOK, st)
		assert.Equal(t, 3, got.(*payload).n)

		typ, _ := h.TypeOf(env, v)
		assert.Equal(t, sys.ValueExternal, typ)

		obj, _ := h.CreateObject(env)
		_, st = h.GetValueExternal(env, obj)
		assert.Equal(t, sys.StatusInvalidArg, st)
	})

	require.NoError(t, h.Collect(context.Background()))
	require.NotNil(t, finalized)
	assert.Equal(t, 3, finalized.n)
}

func TestCollect_FinalizerModeRejectsAllocation(t *testing.T) {
	h := newTestHost(t)

	var allocStatus, adjustStatus, deleteStatus sys.Status
	var instance any
	run(t, h, func(env sys.Env) {
		assert.Equal(t, sys.StatusOK, h.SetInstanceData(env, "inst", nil, nil))
		obj, _ := h.CreateObject(env)
		ref, _ := h.CreateReference(env, obj, 0)
		_, _ = h.CreateExternal(env, nil, func(fenv sys.Env, _, _ any) {
			_, allocStatus = h.CreateObject(fenv)
			_, adjustStatus = h.AdjustExternalMemory(fenv, 0)
			deleteStatus = h.DeleteReference(fenv, ref)
			instance, _ = h.GetInstanceData(fenv)
		}, nil)
	})

	require.NoError(t, h.Collect(context.Background()))
	assert.Equal(t, sys.StatusGenericFailure, allocStatus)
	assert.Equal(t, sys.StatusOK, adjustStatus)
	assert.Equal(t, sys.StatusOK, deleteStatus)
	assert.Equal(t, "inst", instance)
}

func TestCollect_FinalizerPreservesPendingException(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		ran := false
		hs, _ := h.OpenHandleScope(env)
		_, _ = h.CreateExternal(env, nil, func(sys.Env, any, any) { ran = true }, nil)
		h.CloseHandleScope(env, hs)

		h.ThrowError(env, "", "kept")
		h.collect()
		assert.True(t, ran)
		pending, _ := h.IsExceptionPending(env)
		assert.True(t, pending)
		h.GetAndClearLastException(env)
	})
}

func TestBuffers_Policies(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	run(t, h, func(env sys.Env) {
		v, view, st := h.CreateBuffer(env, 4)
		assert.Equal(t, sys.StatusOK, st)
		assert.Equal(t, []byte{0, 0, 0, 0}, view, "new buffers are zeroed")
		copy(view, []byte{9, 8, 7, 6})
		info, _ := h.GetBufferInfo(env, v)
		assert.Equal(t, []byte{9, 8, 7, 6}, info, "views alias host memory")

		src := []byte{1, 2, 3}
		c, cview, _ := h.CreateBufferCopy(env, src)
		cview[0] = 42
		assert.Equal(t, []byte{1, 2, 3}, src, "copy policy detaches from the source")
		isBuf, _ := h.IsBuffer(env, c)
		assert.True(t, isBuf)

		ab, abView, _ := h.CreateArrayBuffer(env, 2)
		assert.Len(t, abView, 2)
		isAB, _ := h.IsArrayBuffer(env, ab)
		assert.True(t, isAB)
		_, st = h.GetBufferInfo(env, ab)
		assert.NotEqual(t, sys.StatusOK, st)

		empty, emptyView, st := h.CreateBuffer(env, 0)
		assert.Equal(t, sys.StatusOK, st)
		assert.Empty(t, emptyView)
		isBuf, _ = h.IsBuffer(env, empty)
		assert.True(t, isBuf)

		_, _, st = h.CreateBuffer(env, -1)
		assert.Equal(t, sys.StatusInvalidArg, st)
	})

	assert.NotZero(t, h.HeapInUse())
	require.NoError(t, h.Collect(ctx))
	assert.Zero(t, h.HeapInUse(), "collected buffers return their heap space")
}

func TestBuffers_ExternalBorrow(t *testing.T) {
	h := newTestHost(t)

	native := []byte("borrowed")
	var released []byte
	var hint any
	run(t, h, func(env sys.Env) {
		v, st := h.CreateExternalBuffer(env, native, func(_ sys.Env, data, hn any) {
			released = data.([]byte)
			hint = hn
		}, 8)
		assert.Equal(t, sys.StatusOK, st)
		info, _ := h.GetBufferInfo(env, v)
		info[0] = 'B'
	})
	assert.Equal(t, "Borrowed", string(native), "external buffers share native memory")

	require.NoError(t, h.Collect(context.Background()))
	assert.Equal(t, "Borrowed", string(released))
	assert.Equal(t, 8, hint)
}

func TestBuffers_HeapExhaustion(t *testing.T) {
	cfg := testConfig()
	cfg.HeapPages = 1
	h, err := New(context.Background(), WithConfig(cfg))
	require.NoError(t, err)
	defer h.Close(context.Background())

	run(t, h, func(env sys.Env) {
		_, _, st := h.CreateBuffer(env, pageSize)
		assert.Equal(t, sys.StatusGenericFailure, st)
	})

	// unrooted buffers are collected to make room
	for i := 0; i < 4; i++ {
		run(t, h, func(env sys.Env) {
			_, _, st := h.CreateBuffer(env, pageSize/2)
			assert.Equal(t, sys.StatusOK, st)
		})
	}
}

func TestCollect_ExternalMemoryPressure(t *testing.T) {
	cfg := testConfig()
	cfg.GCThresholdBytes = 1024
	h, err := New(context.Background(), WithConfig(cfg))
	require.NoError(t, err)
	defer h.Close(context.Background())

	run(t, h, func(env sys.Env) {
		_, _ = h.CreateExternal(env, nil, func(fenv sys.Env, _, _ any) {
			h.AdjustExternalMemory(fenv, -4096)
		}, nil)
		total, st := h.AdjustExternalMemory(env, 4096)
		assert.Equal(t, sys.StatusOK, st)
		assert.Equal(t, int64(4096), total)
	})

	assert.Eventually(t, func() bool { return h.ExternalMemory() == 0 },
		time.Second, 5*time.Millisecond, "crossing the threshold triggers a collection")
}

func TestClose_FinalizesRemaining(t *testing.T) {
	h := newTestHost(t)

	var calls int
	run(t, h, func(env sys.Env) {
		obj, _ := h.CreateObject(env)
		h.Wrap(env, obj, nil, func(sys.Env, any, any) { calls++ }, nil)
		_, _ = h.CreateReference(env, obj, 1)
	})

	require.NoError(t, h.Collect(context.Background()))
	assert.Zero(t, calls, "strongly referenced")

	require.NoError(t, h.Close(context.Background()))
	assert.Equal(t, 1, calls)
}
