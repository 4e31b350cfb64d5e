package napi

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// CallMode selects what Call does when the queue is full.
type CallMode = sys.CallMode

const (
	NonBlocking = sys.CallNonBlocking
	Blocking    = sys.CallBlocking
)

// ThreadsafeCallContext carries one queued value to the host thread.
type ThreadsafeCallContext[T any] struct {
	Env   Env
	Value T
}

// ThreadsafeFunction lets any goroutine queue calls to a host function. The
// queue is FIFO and bounded; values are turned into call arguments on the
// host thread by the function's callback.
type ThreadsafeFunction[T any] struct {
	api    sys.API
	raw    sys.ThreadsafeFunction
	closed atomic.Bool
}

type tsfnItem[T any] struct {
	value      T
	err        error
	errorFirst bool
	onReturn   func(Env, JsUnknown, error)
}

// CreateThreadsafeFunction wraps fn. maxQueueSize 0 means unbounded and a
// negative size picks the host default. cb converts each queued value into
// the arguments fn is called with; a nil cb calls fn without arguments.
func CreateThreadsafeFunction[T any](env Env, fn JsFunction, maxQueueSize int,
	cb func(ThreadsafeCallContext[T]) ([]NapiValue, error),
) (*ThreadsafeFunction[T], error) {
	if fn.raw == 0 {
		return nil, errors.InvalidArg(errors.PhaseQueue, "nil function")
	}
	return newThreadsafe(env, fn.raw, maxQueueSize, func(env Env, fnv sys.Value, item *tsfnItem[T]) {
		callThreadsafe(env, JsFunction{base{env: env, raw: fnv}}, item, cb)
	})
}

// CreateThreadsafeCallback is a threadsafe queue without a host function:
// fn itself runs on the host thread for every queued value.
func CreateThreadsafeCallback[T any](env Env, maxQueueSize int, fn func(ThreadsafeCallContext[T]) error) (*ThreadsafeFunction[T], error) {
	if fn == nil {
		return nil, errors.InvalidArg(errors.PhaseQueue, "nil callback")
	}
	return newThreadsafe(env, 0, maxQueueSize, func(env Env, _ sys.Value, item *tsfnItem[T]) {
		if err := fn(ThreadsafeCallContext[T]{Env: env, Value: item.value}); err != nil {
			env.throwGo(err)
		}
	})
}

func newThreadsafe[T any](env Env, fn sys.Value, maxQueueSize int, dispatch func(Env, sys.Value, *tsfnItem[T])) (*ThreadsafeFunction[T], error) {
	t := &ThreadsafeFunction[T]{api: env.api}
	callJS := func(raw sys.Env, fnv sys.Value, _ any, data any) {
		item, ok := data.(*tsfnItem[T])
		if !ok {
			Logger().Error("threadsafe function received foreign data")
			return
		}
		dispatch(FromRaw(t.api, raw), fnv, item)
	}
	finalize := func(sys.Env, any, any) {
		t.closed.Store(true)
	}
	raw, st := env.api.CreateThreadsafeFunction(env.raw, fn, "", maxQueueSize, 1, nil, finalize, nil, callJS)
	if err := env.check(errors.PhaseQueue, st, "create_threadsafe_function"); err != nil {
		return nil, err
	}
	t.raw = raw
	return t, nil
}

func callThreadsafe[T any](env Env, fn JsFunction, item *tsfnItem[T], cb func(ThreadsafeCallContext[T]) ([]NapiValue, error)) {
	var args []NapiValue
	err := item.err
	if err == nil && cb != nil {
		args, err = cb(ThreadsafeCallContext[T]{Env: env, Value: item.value})
	}

	switch {
	case item.errorFirst:
		first, ferr := errorFirstArg(env, err)
		if ferr != nil {
			env.throwGo(ferr)
			return
		}
		if err != nil {
			args = nil
		}
		args = append([]NapiValue{first}, args...)
	case err != nil:
		if item.onReturn != nil {
			item.onReturn(env, JsUnknown{}, err)
			return
		}
		env.throwGo(err)
		return
	}

	ret, cerr := fn.Call(nil, args...)
	if item.onReturn != nil {
		item.onReturn(env, ret, cerr)
		return
	}
	if cerr != nil && !errors.Is(cerr, errors.ErrPendingException) {
		Logger().Warn("threadsafe function call failed", zap.Error(cerr))
	}
}

// errorFirstArg is null on success and an Error on failure.
func errorFirstArg(env Env, err error) (NapiValue, error) {
	if err == nil {
		return env.GetNull()
	}
	return env.errorValue(err)
}

func (t *ThreadsafeFunction[T]) status(st sys.Status, op string) error {
	if st == sys.StatusOK {
		return nil
	}
	if st == sys.StatusClosing {
		t.closed.Store(true)
	}
	return errors.FromStatus(errors.PhaseQueue, st, op)
}

func (t *ThreadsafeFunction[T]) enqueue(item *tsfnItem[T], mode CallMode) error {
	return t.status(t.api.CallThreadsafeFunction(t.raw, item, mode), "call_threadsafe_function")
}

// Call queues v. In NonBlocking mode a full queue fails with QueueFull;
// Blocking waits for room. Once the function is released or aborted every
// call fails with Closing.
func (t *ThreadsafeFunction[T]) Call(v T, mode CallMode) error {
	return t.enqueue(&tsfnItem[T]{value: v}, mode)
}

// CallWithError queues a call in error-first convention: the host function
// receives null followed by the converted value, or only an Error when err
// is set.
func (t *ThreadsafeFunction[T]) CallWithError(v T, err error, mode CallMode) error {
	return t.enqueue(&tsfnItem[T]{value: v, err: err, errorFirst: true}, mode)
}

// CallWithReturnValue queues v and hands the host function's return value,
// or the error of the call, to fn on the host thread.
func (t *ThreadsafeFunction[T]) CallWithReturnValue(v T, mode CallMode, fn func(env Env, ret JsUnknown, err error)) error {
	if fn == nil {
		return errors.InvalidArg(errors.PhaseQueue, "nil return handler")
	}
	return t.enqueue(&tsfnItem[T]{value: v, onReturn: fn}, mode)
}

// Acquire registers one more goroutine using the function.
func (t *ThreadsafeFunction[T]) Acquire() error {
	return t.status(t.api.AcquireThreadsafeFunction(t.raw), "acquire_threadsafe_function")
}

// Release gives up one use. When the last use is released, queued calls
// drain and the function closes.
func (t *ThreadsafeFunction[T]) Release() error {
	return t.status(t.api.ReleaseThreadsafeFunction(t.raw, sys.ReleaseNormal), "release_threadsafe_function")
}

// Abort closes the function at once and discards queued calls.
func (t *ThreadsafeFunction[T]) Abort() error {
	err := t.status(t.api.ReleaseThreadsafeFunction(t.raw, sys.ReleaseAbort), "release_threadsafe_function")
	if err == nil {
		t.closed.Store(true)
	}
	return err
}

// Closed reports whether the function is known to be closed.
func (t *ThreadsafeFunction[T]) Closed() bool {
	return t.closed.Load()
}
