package host

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

type tsfnState uint8

const (
	tsfnOpen tsfnState = iota
	tsfnClosing
	tsfnAborted
)

// tsfn is a bounded FIFO from arbitrary goroutines to the loop. Each
// accepted item posts one dispatch task, and each dispatch pops the queue
// head, so items reach the loop in queue order.
type tsfn struct {
	finalize     sys.Finalize
	callJS       sys.ThreadsafeCallJS
	finalizeData any
	context      any
	cond         *sync.Cond
	name         string
	queue        []any
	handle       resource.Handle
	fn           sys.Value
	maxQueue     int
	threads      int
	mu           sync.Mutex
	state        tsfnState
	finalized    bool
}

func (h *Host) CreateThreadsafeFunction(env sys.Env, fn sys.Value, resourceName string, maxQueueSize, initialThreadCount int,
	finalizeData any, finalize sys.Finalize, context any, callJS sys.ThreadsafeCallJS,
) (sys.ThreadsafeFunction, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.require(e, VersionThreadsafe); st != sys.StatusOK {
		return 0, st
	}
	if initialThreadCount < 1 {
		return 0, e.status(sys.StatusInvalidArg)
	}
	if fn == 0 {
		if callJS == nil {
			return 0, e.status(sys.StatusInvalidArg)
		}
	} else {
		f, ok := h.get(fn)
		if !ok {
			return 0, e.status(sys.StatusInvalidArg)
		}
		if f.kind != kindFunction {
			return 0, e.status(sys.StatusFunctionExpected)
		}
	}
	if maxQueueSize < 0 {
		maxQueueSize = h.cfg.DefaultQueueSize
	}
	if resourceName == "" {
		resourceName = "tsfn-" + uuid.NewString()
	}

	t := &tsfn{
		finalize:     finalize,
		callJS:       callJS,
		finalizeData: finalizeData,
		context:      context,
		name:         resourceName,
		fn:           fn,
		maxQueue:     maxQueueSize,
		threads:      initialThreadCount,
	}
	t.cond = sync.NewCond(&t.mu)
	t.handle = h.tsfns.Insert(0, t)
	if t.handle == 0 {
		return 0, e.status(sys.StatusGenericFailure)
	}
	return sys.ThreadsafeFunction(t.handle), sys.StatusOK
}

// CallThreadsafeFunction may be called from any goroutine. In non-blocking
// mode a full queue fails with QueueFull; in blocking mode the caller waits
// for room. Blocking on a full queue from the loop goroutine deadlocks.
func (h *Host) CallThreadsafeFunction(handle sys.ThreadsafeFunction, data any, mode sys.CallMode) sys.Status {
	t, st := h.lookupTsfn(handle)
	if st != sys.StatusOK {
		return st
	}

	t.mu.Lock()
	for {
		if t.state != tsfnOpen {
			t.mu.Unlock()
			return sys.StatusClosing
		}
		if t.maxQueue == 0 || len(t.queue) < t.maxQueue {
			break
		}
		if mode == sys.CallNonBlocking {
			t.mu.Unlock()
			return sys.StatusQueueFull
		}
		t.cond.Wait()
	}
	t.queue = append(t.queue, data)
	t.mu.Unlock()

	if !h.loop.post(func() { h.dispatch(t) }) {
		t.mu.Lock()
		if n := len(t.queue); n > 0 {
			t.queue = t.queue[:n-1]
		}
		t.mu.Unlock()
		return sys.StatusClosing
	}
	return sys.StatusOK
}

// lookupTsfn reports Closing for any handle once the host has shut down.
func (h *Host) lookupTsfn(handle sys.ThreadsafeFunction) (*tsfn, sys.Status) {
	t, ok := h.tsfns.Get(resource.Handle(handle))
	if !ok {
		if h.closed.Load() {
			return nil, sys.StatusClosing
		}
		return nil, sys.StatusInvalidArg
	}
	return t, sys.StatusOK
}

func (h *Host) dispatch(t *tsfn) {
	t.mu.Lock()
	if len(t.queue) == 0 {
		t.mu.Unlock()
		return
	}
	data := t.queue[0]
	t.queue[0] = nil
	t.queue = t.queue[1:]
	drained := len(t.queue) == 0 && t.state == tsfnClosing
	t.cond.Broadcast()
	t.mu.Unlock()

	h.topLevel(h.mainEnv, func(env sys.Env) {
		if t.callJS != nil {
			t.callJS(env, t.fn, t.context, data)
			return
		}
		if _, st := h.CallFunction(env, h.undefined, t.fn, nil); st != sys.StatusOK && st != sys.StatusPendingException {
			h.log.Warn("threadsafe function call failed", zap.String("tsfn", t.name), zap.Stringer("status", st))
		}
	})

	if drained {
		h.finalizeTsfn(t)
	}
}

func (h *Host) AcquireThreadsafeFunction(handle sys.ThreadsafeFunction) sys.Status {
	t, st := h.lookupTsfn(handle)
	if st != sys.StatusOK {
		return st
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != tsfnOpen {
		return sys.StatusClosing
	}
	t.threads++
	return sys.StatusOK
}

// ReleaseThreadsafeFunction drops one thread. When the last thread releases
// normally, queued items drain and the finalizer runs. Abort discards queued
// items and closes the queue immediately.
func (h *Host) ReleaseThreadsafeFunction(handle sys.ThreadsafeFunction, mode sys.ReleaseMode) sys.Status {
	t, st := h.lookupTsfn(handle)
	if st != sys.StatusOK {
		return st
	}

	t.mu.Lock()
	if t.state == tsfnAborted {
		t.mu.Unlock()
		return sys.StatusClosing
	}
	if t.threads == 0 {
		t.mu.Unlock()
		return sys.StatusInvalidArg
	}
	t.threads--

	finalizeNow := false
	switch {
	case mode == sys.ReleaseAbort:
		t.state = tsfnAborted
		t.queue = nil
		finalizeNow = true
	case t.threads == 0:
		t.state = tsfnClosing
		finalizeNow = len(t.queue) == 0
	}
	t.cond.Broadcast()
	t.mu.Unlock()

	if finalizeNow {
		h.loop.post(func() { h.finalizeTsfn(t) })
	}
	return sys.StatusOK
}

// finalizeTsfn runs on the loop, at most once per function.
func (h *Host) finalizeTsfn(t *tsfn) {
	t.mu.Lock()
	if t.finalized {
		t.mu.Unlock()
		return
	}
	t.finalized = true
	t.state = tsfnAborted
	t.queue = nil
	t.fn = 0
	t.mu.Unlock()

	// the handle stays as a tombstone so late callers see Closing
	if t.finalize != nil {
		h.topLevel(h.mainEnv, func(env sys.Env) {
			t.finalize(env, t.finalizeData, t.context)
		})
	}
	h.log.Debug("threadsafe function finalized", zap.String("tsfn", t.name))
}

func (h *Host) abortThreadsafeFunctions() {
	var open []*tsfn
	h.tsfns.Each(func(_ resource.Handle, _ uint32, t *tsfn) bool {
		open = append(open, t)
		return true
	})
	// finalizeTsfn skips the ones already finalized
	for _, t := range open {
		t.mu.Lock()
		t.state = tsfnAborted
		t.queue = nil
		t.cond.Broadcast()
		t.mu.Unlock()
		h.finalizeTsfn(t)
	}
}
