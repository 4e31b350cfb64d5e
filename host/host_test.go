package host

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.WorkerPoolSize = 0
	_, err := New(context.Background(), WithConfig(cfg))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArg))
}

func TestHost_Numbers(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		v, st := h.CreateInt32(env, math.MinInt32)
		assert.Equal(t, sys.StatusOK, st)
		i, _ := h.GetValueInt32(env, v)
		assert.Equal(t, int32(math.MinInt32), i)

		v, _ = h.CreateUint32(env, math.MaxUint32)
		u, _ := h.GetValueUint32(env, v)
		assert.Equal(t, uint32(math.MaxUint32), u)
		i, _ = h.GetValueInt32(env, v)
		assert.Equal(t, int32(-1), i)

		v, _ = h.CreateInt64(env, 1<<53)
		i64, _ := h.GetValueInt64(env, v)
		assert.Equal(t, int64(1<<53), i64)

		v, _ = h.CreateDouble(env, math.NaN())
		i, _ = h.GetValueInt32(env, v)
		assert.Zero(t, i)

		typ, _ := h.TypeOf(env, v)
		assert.Equal(t, sys.ValueNumber, typ)

		s := str(h, env, "1")
		_, st = h.GetValueDouble(env, s)
		assert.Equal(t, sys.StatusNumberExpected, st)
		info, _ := h.GetLastErrorInfo(env)
		assert.Equal(t, sys.StatusNumberExpected, info.Status)
	})
}

func TestHost_Singletons(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		u1, _ := h.GetUndefined(env)
		u2, _ := h.GetUndefined(env)
		eq, _ := h.StrictEquals(env, u1, u2)
		assert.True(t, eq)

		n, _ := h.GetNull(env)
		typ, _ := h.TypeOf(env, n)
		assert.Equal(t, sys.ValueNull, typ)

		tv, _ := h.GetBoolean(env, true)
		b, _ := h.GetValueBool(env, tv)
		assert.True(t, b)

		g, _ := h.GetGlobal(env)
		typ, _ = h.TypeOf(env, g)
		assert.Equal(t, sys.ValueObject, typ)
	})
}

func TestHost_StrictEquals(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		a := str(h, env, "same")
		b := str(h, env, "same")
		eq, _ := h.StrictEquals(env, a, b)
		assert.True(t, eq, "strings compare by content")

		o1, _ := h.CreateObject(env)
		o2, _ := h.CreateObject(env)
		eq, _ = h.StrictEquals(env, o1, o2)
		assert.False(t, eq, "objects compare by identity")

		nan, _ := h.CreateDouble(env, math.NaN())
		eq, _ = h.StrictEquals(env, nan, nan)
		assert.False(t, eq)

		one, _ := h.CreateInt32(env, 1)
		oneF, _ := h.CreateDouble(env, 1.0)
		eq, _ = h.StrictEquals(env, one, oneF)
		assert.True(t, eq)
	})
}

func TestHost_Strings(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		v := str(h, env, "héllo 😀")
		assert.Equal(t, "héllo 😀", goString(h, env, v))

		lone, _ := h.CreateStringUTF16(env, []uint16{'a', 0xD800})
		units, _ := h.GetValueStringUTF16(env, lone)
		assert.Equal(t, []uint16{'a', 0xD800}, units, "utf-16 round trips lone surrogates")
		assert.Equal(t, "a�", goString(h, env, lone))

		l1, _ := h.CreateStringLatin1(env, []byte{'c', 0xE9})
		assert.Equal(t, "cé", goString(h, env, l1))
		raw, _ := h.GetValueStringLatin1(env, l1)
		assert.Equal(t, []byte{'c', 0xE9}, raw)

		num, _ := h.CreateInt32(env, 3)
		_, st := h.GetValueStringUTF8(env, num)
		assert.Equal(t, sys.StatusStringExpected, st)

		sym, st := h.CreateSymbol(env, v)
		assert.Equal(t, sys.StatusOK, st)
		typ, _ := h.TypeOf(env, sym)
		assert.Equal(t, sys.ValueSymbol, typ)
	})
}

func TestHost_ObjectsAndArrays(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		obj, _ := h.CreateObject(env)
		one, _ := h.CreateInt32(env, 1)
		two, _ := h.CreateInt32(env, 2)
		assert.Equal(t, sys.StatusOK, h.SetNamedProperty(env, obj, "b", one))
		assert.Equal(t, sys.StatusOK, h.SetNamedProperty(env, obj, "a", two))

		has, _ := h.HasNamedProperty(env, obj, "a")
		assert.True(t, has)

		got, _ := h.GetNamedProperty(env, obj, "missing")
		typ, _ := h.TypeOf(env, got)
		assert.Equal(t, sys.ValueUndefined, typ)

		names, _ := h.GetPropertyNames(env, obj)
		n, _ := h.GetArrayLength(env, names)
		assert.Equal(t, uint32(2), n)
		first, _ := h.GetElement(env, names, 0)
		assert.Equal(t, "b", goString(h, env, first), "keys keep insertion order")

		deleted, _ := h.DeleteNamedProperty(env, obj, "b")
		assert.True(t, deleted)
		has, _ = h.HasNamedProperty(env, obj, "b")
		assert.False(t, has)

		arr, _ := h.CreateArrayWithLength(env, 2)
		isArr, _ := h.IsArray(env, arr)
		assert.True(t, isArr)
		assert.Equal(t, sys.StatusOK, h.SetElement(env, arr, 4, one))
		n, _ = h.GetArrayLength(env, arr)
		assert.Equal(t, uint32(5), n)
		hole, _ := h.GetElement(env, arr, 1)
		typ, _ = h.TypeOf(env, hole)
		assert.Equal(t, sys.ValueUndefined, typ)

		_, st := h.GetArrayLength(env, obj)
		assert.Equal(t, sys.StatusArrayExpected, st)
		st = h.SetNamedProperty(env, one, "x", two)
		assert.Equal(t, sys.StatusObjectExpected, st)
	})
}

func TestHost_Bigint(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		v, st := h.CreateBigintWords(env, false, []uint64{1, 0})
		assert.Equal(t, sys.StatusOK, st)
		i, lossless, _ := h.GetValueBigintInt64(env, v)
		assert.Equal(t, int64(1), i)
		assert.True(t, lossless)

		zero, _ := h.CreateBigintWords(env, true, []uint64{0, 0})
		sign, words, _ := h.GetValueBigintWords(env, zero)
		assert.False(t, sign)
		assert.Empty(t, words)

		neg, _ := h.CreateBigintInt64(env, -5)
		sign, words, _ = h.GetValueBigintWords(env, neg)
		assert.True(t, sign)
		assert.Equal(t, []uint64{5}, words)
		u, lossless, _ := h.GetValueBigintUint64(env, neg)
		assert.Equal(t, uint64(math.MaxUint64-4), u)
		assert.False(t, lossless)

		big, _ := h.CreateBigintUint64(env, math.MaxUint64)
		i, lossless, _ = h.GetValueBigintInt64(env, big)
		assert.Equal(t, int64(-1), i)
		assert.False(t, lossless)

		typ, _ := h.TypeOf(env, big)
		assert.Equal(t, sys.ValueBigint, typ)

		num, _ := h.CreateInt32(env, 1)
		_, _, st = h.GetValueBigintInt64(env, num)
		assert.Equal(t, sys.StatusBigintExpected, st)
	})
}

func TestHost_Dates(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		d, st := h.CreateDate(env, 1700000000123.9)
		assert.Equal(t, sys.StatusOK, st)
		isDate, _ := h.IsDate(env, d)
		assert.True(t, isDate)
		ms, _ := h.GetDateValue(env, d)
		assert.Equal(t, 1700000000123.0, ms)

		obj, _ := h.CreateObject(env)
		_, st = h.GetDateValue(env, obj)
		assert.Equal(t, sys.StatusDateExpected, st)
	})
}

func TestHost_CapabilityGating(t *testing.T) {
	cfg := testConfig()
	cfg.NapiVersion = 3
	h, err := New(context.Background(), WithConfig(cfg))
	require.NoError(t, err)
	defer h.Close(context.Background())

	run(t, h, func(env sys.Env) {
		ver, _ := h.GetVersion(env)
		assert.Equal(t, uint32(3), ver)

		_, st := h.CreateBigintInt64(env, 1)
		assert.Equal(t, sys.StatusGenericFailure, st)
		info, _ := h.GetLastErrorInfo(env)
		assert.Contains(t, info.Message, "requires napi version 6")

		_, st = h.CreateDate(env, 0)
		assert.Equal(t, sys.StatusGenericFailure, st)

		_, st = h.CreateThreadsafeFunction(env, 0, "", 0, 1, nil, nil, nil,
			func(sys.Env, sys.Value, any, any) {})
		assert.Equal(t, sys.StatusGenericFailure, st)

		assert.Equal(t, sys.StatusGenericFailure, h.SetInstanceData(env, 1, nil, nil))

		_, st = h.AddEnvCleanupHook(env, func(any) {}, nil)
		assert.Equal(t, sys.StatusOK, st)
	})
}

func TestHost_Versions(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		ver, st := h.GetVersion(env)
		assert.Equal(t, sys.StatusOK, st)
		assert.Equal(t, uint32(8), ver)

		hv, _ := h.GetHostVersion(env)
		assert.Equal(t, uint32(1), hv.Major)
	})
}

func TestHost_HandleScopes(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		outer, st := h.OpenHandleScope(env)
		assert.Equal(t, sys.StatusOK, st)
		inner, _ := h.OpenHandleScope(env)

		assert.Equal(t, sys.StatusHandleScopeMismatch, h.CloseHandleScope(env, outer))
		assert.Equal(t, sys.StatusOK, h.CloseHandleScope(env, inner))
		assert.Equal(t, sys.StatusOK, h.CloseHandleScope(env, outer))
		assert.Equal(t, sys.StatusHandleScopeMismatch, h.CloseHandleScope(env, outer), "already closed")
	})
}

func TestHost_FunctionsAndExceptions(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		add, _ := h.CreateFunction(env, "add", func(env sys.Env, info sys.CallbackInfo) sys.Value {
			_, args, data, _ := h.GetCallbackInfo(env, info)
			sum := data.(float64)
			for _, a := range args {
				f, _ := h.GetValueDouble(env, a)
				sum += f
			}
			v, _ := h.CreateDouble(env, sum)
			return v
		}, 0.5)

		two, _ := h.CreateInt32(env, 2)
		three, _ := h.CreateInt32(env, 3)
		res, st := h.CallFunction(env, 0, add, []sys.Value{two, three})
		assert.Equal(t, sys.StatusOK, st)
		f, _ := h.GetValueDouble(env, res)
		assert.Equal(t, 5.5, f)

		boom, _ := h.CreateFunction(env, "boom", func(env sys.Env, _ sys.CallbackInfo) sys.Value {
			h.ThrowError(env, "E_BOOM", "boom")
			return 0
		}, nil)
		_, st = h.CallFunction(env, 0, boom, nil)
		assert.Equal(t, sys.StatusPendingException, st)

		pending, _ := h.IsExceptionPending(env)
		assert.True(t, pending)
		assert.Equal(t, sys.StatusPendingException, h.ThrowError(env, "", "again"))
		_, st = h.CallFunction(env, 0, add, nil)
		assert.Equal(t, sys.StatusPendingException, st)

		exc, _ := h.GetAndClearLastException(env)
		isErr, _ := h.IsError(env, exc)
		assert.True(t, isErr)
		msg, _ := h.GetNamedProperty(env, exc, "message")
		assert.Equal(t, "boom", goString(h, env, msg))
		code, _ := h.GetNamedProperty(env, exc, "code")
		assert.Equal(t, "E_BOOM", goString(h, env, code))

		pending, _ = h.IsExceptionPending(env)
		assert.False(t, pending)
		none, _ := h.GetAndClearLastException(env)
		typ, _ := h.TypeOf(env, none)
		assert.Equal(t, sys.ValueUndefined, typ)
	})
}

func TestHost_PanicBecomesException(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		fn, _ := h.CreateFunction(env, "panics", func(sys.Env, sys.CallbackInfo) sys.Value {
			panic("native bug")
		}, nil)
		_, st := h.CallFunction(env, 0, fn, nil)
		assert.Equal(t, sys.StatusPendingException, st)
		exc, _ := h.GetAndClearLastException(env)
		msg, _ := h.GetNamedProperty(env, exc, "message")
		assert.Contains(t, goString(h, env, msg), "native bug")
	})
}

func TestHost_ErrorConstructors(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		msg := str(h, env, "out of range")
		code := str(h, env, "E_RANGE")
		e, st := h.CreateRangeError(env, code, msg)
		assert.Equal(t, sys.StatusOK, st)
		name, _ := h.GetNamedProperty(env, e, "name")
		assert.Equal(t, "RangeError", goString(h, env, name))

		num, _ := h.CreateInt32(env, 1)
		_, st = h.CreateError(env, 0, num)
		assert.Equal(t, sys.StatusStringExpected, st)

		assert.Equal(t, sys.StatusOK, h.Throw(env, num))
		exc, _ := h.GetAndClearLastException(env)
		eq, _ := h.StrictEquals(env, exc, num)
		assert.True(t, eq, "any value can be thrown")
	})
}

func TestHost_DefineClass(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(env sys.Env) {
		cls, st := h.DefineClass(env, "Counter", func(env sys.Env, info sys.CallbackInfo) sys.Value {
			this, _, _, _ := h.GetCallbackInfo(env, info)
			seven, _ := h.CreateInt32(env, 7)
			h.SetNamedProperty(env, this, "count", seven)
			return 0
		}, nil, []sys.PropertyDescriptor{
			{Name: "get", Method: func(env sys.Env, info sys.CallbackInfo) sys.Value {
				this, _, _, _ := h.GetCallbackInfo(env, info)
				v, _ := h.GetNamedProperty(env, this, "count")
				return v
			}},
		})
		assert.Equal(t, sys.StatusOK, st)

		inst, st := h.NewInstance(env, cls, nil)
		assert.Equal(t, sys.StatusOK, st)

		has, _ := h.HasNamedProperty(env, inst, "get")
		assert.True(t, has, "methods resolve through the prototype")

		m, _ := h.GetNamedProperty(env, inst, "get")
		typ, _ := h.TypeOf(env, m)
		assert.Equal(t, sys.ValueFunction, typ)

		res, st := h.CallFunction(env, inst, m, nil)
		assert.Equal(t, sys.StatusOK, st)
		n, _ := h.GetValueInt32(env, res)
		assert.Equal(t, int32(7), n)

		names, _ := h.GetPropertyNames(env, inst)
		count, _ := h.GetArrayLength(env, names)
		assert.Equal(t, uint32(1), count, "own keys only")
	})
}

func TestHost_Promise(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	var d sys.Deferred
	var p sys.Value
	var ref sys.Ref
	run(t, h, func(env sys.Env) {
		d, p, _ = h.CreatePromise(env)
		ref, _ = h.CreateReference(env, p, 1)
		isP, _ := h.IsPromise(env, p)
		assert.True(t, isP)
	})

	go func() {
		_ = h.Run(ctx, func(env sys.Env) error {
			v, _ := h.CreateDouble(env, 42)
			h.ResolveDeferred(env, d, v)
			return nil
		})
	}()

	state, result, err := h.Await(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, PromiseFulfilled, state)

	run(t, h, func(env sys.Env) {
		f, _ := h.GetValueDouble(env, result)
		assert.Equal(t, 42.0, f)

		v, _ := h.CreateDouble(env, 1)
		assert.Equal(t, sys.StatusInvalidArg, h.RejectDeferred(env, d, v), "deferred settles once")
		assert.Equal(t, sys.StatusOK, h.DeleteReference(env, ref))
	})
}

func TestHost_AwaitContext(t *testing.T) {
	h := newTestHost(t)

	var p sys.Value
	run(t, h, func(env sys.Env) {
		_, p, _ = h.CreatePromise(env)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	state, _, err := h.Await(ctx, p)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, PromisePending, state)
}

func TestHost_RunReportsPendingException(t *testing.T) {
	h := newTestHost(t)

	err := h.Run(context.Background(), func(env sys.Env) error {
		h.ThrowTypeError(env, "", "bad input")
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPendingException))
	assert.Contains(t, err.Error(), "bad input")

	run(t, h, func(env sys.Env) {
		pending, _ := h.IsExceptionPending(env)
		assert.False(t, pending, "Run clears what it reports")
	})
}

func TestHost_PostRoutesUncaught(t *testing.T) {
	got := make(chan UncaughtError, 1)
	h := newTestHost(t, WithUncaughtExceptionHandler(func(e UncaughtError) { got <- e }))

	require.True(t, h.Post(func(env sys.Env) {
		h.ThrowError(env, "E_LATE", "late failure")
	}))

	select {
	case e := <-got:
		assert.Equal(t, "late failure", e.Message)
		assert.Equal(t, "E_LATE", e.Code)
	case <-time.After(time.Second):
		t.Fatal("uncaught handler not called")
	}
}

func TestHost_FatalException(t *testing.T) {
	got := make(chan UncaughtError, 1)
	h := newTestHost(t, WithUncaughtExceptionHandler(func(e UncaughtError) { got <- e }))

	run(t, h, func(env sys.Env) {
		e, _ := h.CreateError(env, 0, str(h, env, "fatal"))
		assert.Equal(t, sys.StatusOK, h.FatalException(env, e))
	})
	assert.Equal(t, "fatal", (<-got).Message)
}

func TestHost_FatalError(t *testing.T) {
	var location, message string
	h := newTestHost(t, WithFatalHandler(func(l, m string) { location, message = l, m }))

	h.FatalError("module.go:1", "unrecoverable")
	assert.Equal(t, "module.go:1", location)
	assert.Equal(t, "unrecoverable", message)
}

func TestHost_ClosedHost(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, h.Close(context.Background()))
	require.NoError(t, h.Close(context.Background()))

	err := h.Run(context.Background(), func(sys.Env) error { return nil })
	assert.True(t, errors.Is(err, errors.ErrClosing))
	assert.False(t, h.Post(func(sys.Env) {}))
}

func TestHost_InvalidEnv(t *testing.T) {
	h := newTestHost(t)

	run(t, h, func(sys.Env) {
		_, st := h.CreateObject(sys.Env(9999))
		assert.Equal(t, sys.StatusInvalidArg, st)
	})
}
