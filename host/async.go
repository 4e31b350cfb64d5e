package host

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

type workState uint8

const (
	workCreated workState = iota
	workQueued
	workDone
)

type asyncWork struct {
	execute  sys.AsyncExecute
	complete sys.AsyncComplete
	data     any
	name     string
	state    workState
}

func (h *Host) CreateAsyncWork(env sys.Env, resourceName string, execute sys.AsyncExecute, complete sys.AsyncComplete, data any) (sys.AsyncWork, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if execute == nil {
		return 0, e.status(sys.StatusInvalidArg)
	}
	if resourceName == "" {
		resourceName = "async-work-" + uuid.NewString()
	}
	hd := h.asyncs.Insert(0, &asyncWork{
		execute:  execute,
		complete: complete,
		data:     data,
		name:     resourceName,
	})
	if hd == 0 {
		return 0, e.status(sys.StatusGenericFailure)
	}
	return sys.AsyncWork(hd), sys.StatusOK
}

// QueueAsyncWork runs execute on a pool worker, then complete on the loop.
// A work item can be queued again once it has completed.
func (h *Host) QueueAsyncWork(env sys.Env, work sys.AsyncWork) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if h.closed.Load() {
		return e.status(sys.StatusClosing)
	}
	w, ok := h.asyncs.Get(resource.Handle(work))
	if !ok {
		return e.status(sys.StatusInvalidArg)
	}
	if w.state == workQueued {
		return e.status(sys.StatusInvalidArg)
	}
	w.state = workQueued

	h.works.Add(1)
	go h.runWork(w)
	return sys.StatusOK
}

func (h *Host) runWork(w *asyncWork) {
	defer h.works.Done()

	status := sys.StatusOK
	var failure string
	if err := h.pool.Acquire(h.ctx, 1); err != nil {
		status = sys.StatusCancelled
	} else {
		func() {
			defer h.pool.Release(1)
			defer func() {
				if r := recover(); r != nil {
					h.log.Error("async work panicked", zap.String("work", w.name), zap.Any("panic", r))
					status = sys.StatusGenericFailure
					failure = fmt.Sprintf("async work %s panicked: %v", w.name, r)
				}
			}()
			w.execute(h.mainEnv, w.data)
		}()
	}

	posted := h.loop.post(func() {
		w.state = workDone
		if w.complete == nil {
			return
		}
		if e, ok := h.envs.Get(resource.Handle(h.mainEnv)); ok && failure != "" {
			e.last = sys.ExtendedErrorInfo{Message: failure, Status: status}
		}
		h.topLevel(h.mainEnv, func(env sys.Env) {
			w.complete(env, status, w.data)
		})
	})
	if !posted {
		h.log.Warn("async work completed after host shutdown", zap.String("work", w.name))
	}
}

func (h *Host) DeleteAsyncWork(env sys.Env, work sys.AsyncWork) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if _, ok := h.asyncs.Remove(resource.Handle(work)); !ok {
		return e.status(sys.StatusInvalidArg)
	}
	return sys.StatusOK
}
