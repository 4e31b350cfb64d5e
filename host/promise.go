package host

import (
	"context"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

// PromiseState is the settlement state of a promise.
type PromiseState int

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

func (s PromiseState) String() string {
	switch s {
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseRejected:
		return "rejected"
	default:
		return "pending"
	}
}

type promise struct {
	done   chan struct{}
	result sys.Value
	state  PromiseState
}

// deferred is the settle-once capability of a pending promise. It roots the
// promise until used.
type deferred struct {
	promise sys.Value
}

func (h *Host) CreatePromise(env sys.Env) (sys.Deferred, sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, 0, st
	}
	p, st := h.alloc(e, &object{kind: kindPromise, promise: &promise{done: make(chan struct{})}})
	if st != sys.StatusOK {
		return 0, 0, e.status(st)
	}
	d := h.deferreds.Insert(0, &deferred{promise: p})
	if d == 0 {
		return 0, 0, e.status(sys.StatusGenericFailure)
	}
	return sys.Deferred(d), p, sys.StatusOK
}

func (h *Host) settle(env sys.Env, d sys.Deferred, v sys.Value, state PromiseState) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if e.finalizing {
		return e.status(sys.StatusGenericFailure)
	}
	if _, ok := h.get(v); !ok {
		return e.status(sys.StatusInvalidArg)
	}
	df, ok := h.deferreds.Remove(resource.Handle(d))
	if !ok {
		return e.status(sys.StatusInvalidArg)
	}
	o, ok := h.get(df.promise)
	if !ok {
		return e.status(sys.StatusGenericFailure)
	}
	o.promise.result = v
	o.promise.state = state
	close(o.promise.done)
	return sys.StatusOK
}

func (h *Host) ResolveDeferred(env sys.Env, d sys.Deferred, v sys.Value) sys.Status {
	return h.settle(env, d, v, PromiseFulfilled)
}

func (h *Host) RejectDeferred(env sys.Env, d sys.Deferred, v sys.Value) sys.Status {
	return h.settle(env, d, v, PromiseRejected)
}

func (h *Host) IsPromise(env sys.Env, v sys.Value) (bool, sys.Status) {
	return h.isKind(env, v, kindPromise)
}

// Await blocks until promise p settles or ctx ends. It must not be called
// from the loop goroutine. The caller keeps p reachable, for example with a
// strong reference, until Await returns; the result stays reachable through
// the promise.
func (h *Host) Await(ctx context.Context, p sys.Value) (PromiseState, sys.Value, error) {
	var pr *promise
	err := h.loop.call(ctx, func() error {
		o, ok := h.get(p)
		if !ok || o.kind != kindPromise {
			return errors.InvalidArg(errors.PhaseAsync, "not a promise")
		}
		pr = o.promise
		return nil
	})
	if err != nil {
		return PromisePending, 0, err
	}

	select {
	case <-pr.done:
		return pr.state, pr.result, nil
	case <-ctx.Done():
		return PromisePending, 0, ctx.Err()
	}
}
