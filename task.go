package napi

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Task is work split between a pool worker and the host thread. Compute runs
// on a worker and must not touch the Env. Resolve runs on the host thread
// with Compute's output and produces the promise's fulfilment value.
type Task[O any, V NapiValue] interface {
	Compute() (O, error)
	Resolve(env Env, out O) (V, error)
}

// Rejecter lets a Task choose the rejection value. Without it the promise
// rejects with an Error built from the Go error.
type Rejecter interface {
	Reject(env Env, err error) (NapiValue, error)
}

// TaskFinalizer is called on the host thread after the promise settles,
// whichever way it settled.
type TaskFinalizer interface {
	Finalize(env Env)
}

// AsyncWorkPromise is the handle of a spawned Task.
type AsyncWorkPromise struct {
	promise JsPromise
	work    sys.AsyncWork
}

// Promise returns the promise the task settles.
func (p AsyncWorkPromise) Promise() JsPromise {
	return p.promise
}

type taskState[O any] struct {
	out O
	err error
}

// Spawn queues task on the worker pool and returns its promise. The promise
// fulfils with Resolve's value, or rejects when Compute or Resolve fails or
// panics. A panic rejects with code GenericFailure and the panic value as
// the message.
func Spawn[O any, V NapiValue](env Env, task Task[O, V]) (AsyncWorkPromise, error) {
	if task == nil {
		return AsyncWorkPromise{}, errors.InvalidArg(errors.PhaseAsync, "nil task")
	}
	deferred, p, st := env.api.CreatePromise(env.raw)
	if err := env.check(errors.PhaseAsync, st, "create_promise"); err != nil {
		return AsyncWorkPromise{}, err
	}

	state := &taskState[O]{}
	var work sys.AsyncWork
	execute := func(sys.Env, any) {
		defer func() {
			if r := recover(); r != nil {
				Logger().Error("task compute panicked", zap.Any("panic", r))
				state.err = errors.GenericFailure(errors.PhaseAsync, fmt.Sprint(r), nil)
			}
		}()
		state.out, state.err = task.Compute()
	}
	complete := func(raw sys.Env, status sys.Status, _ any) {
		env := FromRaw(env.api, raw)
		defer func() {
			if st := env.api.DeleteAsyncWork(raw, work); st != sys.StatusOK {
				Logger().Warn("failed to delete async work", zap.Stringer("status", st))
			}
		}()
		if f, ok := task.(TaskFinalizer); ok {
			defer f.Finalize(env)
		}
		guardSettle(env, deferred, func() {
			settleTask(env, task, deferred, status, state)
		})
	}

	work, st = env.api.CreateAsyncWork(env.raw, "", execute, complete, nil)
	if err := env.check(errors.PhaseAsync, st, "create_async_work"); err != nil {
		rejectWith(env, deferred, err, nil)
		return AsyncWorkPromise{}, err
	}
	if err := env.check(errors.PhaseAsync, env.api.QueueAsyncWork(env.raw, work), "queue_async_work"); err != nil {
		_ = env.api.DeleteAsyncWork(env.raw, work)
		rejectWith(env, deferred, err, nil)
		return AsyncWorkPromise{}, err
	}
	return AsyncWorkPromise{promise: JsPromise{JsObject{base{env: env, raw: p}}}, work: work}, nil
}

func settleTask[O any, V NapiValue](env Env, task Task[O, V], d sys.Deferred, status sys.Status, state *taskState[O]) {
	rejecter, _ := task.(Rejecter)
	switch {
	case status != sys.StatusOK:
		rejectWith(env, d, env.check(errors.PhaseAsync, status, "task did not complete"), rejecter)
		return
	case state.err != nil:
		rejectWith(env, d, state.err, rejecter)
		return
	}

	v, err := task.Resolve(env, state.out)
	if err != nil {
		rejectWith(env, d, err, rejecter)
		return
	}
	resolveWith(env, d, rawOf(v))
}

// guardSettle runs settle and rejects d with GenericFailure when settle
// panics, so a promise never stays pending.
func guardSettle(env Env, d sys.Deferred, settle func()) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("promise settlement panicked", zap.Any("panic", r))
			rejectWith(env, d, errors.GenericFailure(errors.PhaseAsync, fmt.Sprint(r), nil), nil)
		}
	}()
	settle()
}

func rawOf[V NapiValue](v V) sys.Value {
	if any(v) == nil {
		return 0
	}
	return v.Raw()
}

// resolveWith fulfils d with raw, or with undefined when raw is 0.
func resolveWith(env Env, d sys.Deferred, raw sys.Value) {
	if raw == 0 {
		raw, _ = env.api.GetUndefined(env.raw)
	}
	if st := env.api.ResolveDeferred(env.raw, d, raw); st != sys.StatusOK {
		Logger().Warn("failed to resolve promise", zap.Stringer("status", st))
	}
}

// rejectWith rejects d. A pending host exception is preferred over err so
// that a value thrown from Resolve reaches the promise unchanged.
func rejectWith(env Env, d sys.Deferred, err error, rejecter Rejecter) {
	var reason sys.Value
	if pending, _ := env.api.IsExceptionPending(env.raw); pending {
		reason, _ = env.api.GetAndClearLastException(env.raw)
	} else if rejecter != nil {
		v, rerr := rejecter.Reject(env, err)
		if rerr == nil && v != nil {
			reason = v.Raw()
		} else if rerr != nil {
			Logger().Warn("task rejecter failed", zap.Error(rerr))
		}
	}
	if reason == 0 {
		ev, eerr := env.errorValue(err)
		if eerr != nil {
			Logger().Error("failed to build rejection value", zap.Error(err), zap.NamedError("cause", eerr))
			return
		}
		reason = ev.raw
	}
	if st := env.api.RejectDeferred(env.raw, d, reason); st != sys.StatusOK {
		Logger().Warn("failed to reject promise", zap.Error(err), zap.Stringer("status", st))
	}
}
