package host

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

var errLoopStopped = errors.Closing(errors.PhaseHost, "host loop stopped")

// Host is an in-process scripting host implementing sys.API.
//
// A Host owns a value space with a mark-sweep collector, a fixed linear heap
// for host-allocated buffers and a single loop goroutine that plays the role
// of the host's logical thread. Every sys.API method that takes an Env must be
// called on that goroutine, which in practice means from within Run or from a
// callback the host invoked.
type Host struct {
	opts options
	cfg  Config
	log  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	loop   *loop
	heap   *Heap
	pool   *semaphore.Weighted
	works  sync.WaitGroup

	envs      *resource.Table[*envState]
	values    *resource.Table[*object]
	refs      *resource.Table[*reference]
	deferreds *resource.Table[*deferred]
	infos     *resource.Table[*callbackInfo]
	scopeTab  *resource.Table[*scope]
	asyncs    *resource.Table[*asyncWork]
	tsfns     *resource.Table[*tsfn]
	hooks     *resource.Table[*cleanupHook]

	mainEnv sys.Env
	finEnv  sys.Env

	undefined sys.Value
	null      sys.Value
	trueVal   sys.Value
	falseVal  sys.Value
	global    sys.Value

	// loop-owned state
	scopes     []*scope
	exception  sys.Value
	instance   *instanceData
	epoch      uint32
	collecting bool
	nextGC     int64
	hookSeq    uint64

	external atomic.Int64
	closed   atomic.Bool
}

var _ sys.API = (*Host)(nil)

type envState struct {
	last       sys.ExtendedErrorInfo
	finalizing bool
}

// status records a failed call as the last error of the env.
func (e *envState) status(st sys.Status) sys.Status {
	if st != sys.StatusOK {
		e.last = sys.ExtendedErrorInfo{Message: statusMessage(st), Status: st}
	}
	return st
}

func statusMessage(st sys.Status) string {
	switch st {
	case sys.StatusInvalidArg:
		return "Invalid argument"
	case sys.StatusObjectExpected:
		return "An object was expected"
	case sys.StatusStringExpected:
		return "A string was expected"
	case sys.StatusNameExpected:
		return "A string or symbol was expected"
	case sys.StatusFunctionExpected:
		return "A function was expected"
	case sys.StatusNumberExpected:
		return "A number was expected"
	case sys.StatusBooleanExpected:
		return "A boolean was expected"
	case sys.StatusArrayExpected:
		return "An array was expected"
	case sys.StatusGenericFailure:
		return "Unknown failure"
	case sys.StatusPendingException:
		return "An exception is pending"
	case sys.StatusHandleScopeMismatch:
		return "Invalid handle scope usage"
	case sys.StatusQueueFull:
		return "Thread-safe function queue is full"
	case sys.StatusClosing:
		return "Thread-safe function handle is closing"
	case sys.StatusBigintExpected:
		return "A bigint was expected"
	case sys.StatusDateExpected:
		return "A date was expected"
	case sys.StatusArrayBufferExpected:
		return "An arraybuffer was expected"
	default:
		return st.String()
	}
}

// New creates a host and starts its loop goroutine.
func New(ctx context.Context, opts ...Option) (*Host, error) {
	o := newOptions(opts)
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	heap, err := NewHeap(ctx, o.cfg.HeapPages)
	if err != nil {
		return nil, errors.GenericFailure(errors.PhaseHost, "create heap", err)
	}

	hctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &Host{
		opts:      o,
		cfg:       o.cfg,
		log:       o.logger,
		ctx:       hctx,
		cancel:    cancel,
		heap:      heap,
		pool:      semaphore.NewWeighted(int64(o.cfg.WorkerPoolSize)),
		envs:      resource.NewTable[*envState](),
		values:    resource.NewTable[*object](),
		refs:      resource.NewTable[*reference](),
		deferreds: resource.NewTable[*deferred](),
		infos:     resource.NewTable[*callbackInfo](),
		scopeTab:  resource.NewTable[*scope](),
		asyncs:    resource.NewTable[*asyncWork](),
		tsfns:     resource.NewTable[*tsfn](),
		hooks:     resource.NewTable[*cleanupHook](),
		nextGC:    o.cfg.GCThresholdBytes,
	}

	if h.log.Core().Enabled(zap.DebugLevel) {
		h.refs.Subscribe(&tableLogger{log: h.log, table: "reference"})
		h.asyncs.Subscribe(&tableLogger{log: h.log, table: "async_work"})
		h.tsfns.Subscribe(&tableLogger{log: h.log, table: "threadsafe_function"})
		h.hooks.Subscribe(&tableLogger{log: h.log, table: "cleanup_hook"})
	}

	h.mainEnv = sys.Env(h.envs.Insert(0, &envState{}))
	h.finEnv = sys.Env(h.envs.Insert(0, &envState{finalizing: true}))

	h.undefined = h.permanent(&object{kind: kindUndefined})
	h.null = h.permanent(&object{kind: kindNull})
	h.trueVal = h.permanent(&object{kind: kindBoolean, flag: true})
	h.falseVal = h.permanent(&object{kind: kindBoolean})
	h.global = h.permanent(&object{kind: kindObject})

	h.loop = newLoop(h.afterTask)
	go h.loop.run()

	h.log.Debug("host started",
		zap.Uint32("heap_pages", o.cfg.HeapPages),
		zap.Int("worker_pool_size", o.cfg.WorkerPoolSize),
		zap.Uint32("napi_version", o.cfg.NapiVersion))

	return h, nil
}

func (h *Host) permanent(o *object) sys.Value {
	o.permanent = true
	return sys.Value(h.values.Insert(uint32(o.kind), o))
}

// Run executes fn on the loop goroutine inside a handle scope and waits for
// it. An exception still pending when fn returns is cleared and reported as
// a PendingException error.
func (h *Host) Run(ctx context.Context, fn func(env sys.Env) error) error {
	if h.closed.Load() {
		return errLoopStopped
	}
	return h.loop.call(ctx, func() error {
		var err error
		h.scoped(func() {
			err = h.protect(func() error { return fn(h.mainEnv) })
		})
		if exc, ok := h.takeException(); ok {
			if err == nil {
				err = &errors.Error{
					Phase:  errors.PhaseCall,
					Kind:   errors.KindPendingException,
					Status: sys.StatusPendingException,
					Detail: exc.Message,
				}
			}
		}
		return err
	})
}

// Post schedules fn on the loop without waiting. Exceptions left pending by
// fn go to the uncaught exception handler. Returns false after Close.
func (h *Host) Post(fn func(env sys.Env)) bool {
	if h.closed.Load() {
		return false
	}
	return h.loop.post(func() {
		h.topLevel(h.mainEnv, func(env sys.Env) { fn(env) })
	})
}

// protect converts a panic in native code into an error.
func (h *Host) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("native code panicked", zap.Any("panic", r))
			err = errors.GenericFailure(errors.PhaseCall, fmt.Sprint(r), nil)
		}
	}()
	return fn()
}

// topLevel runs a host-initiated callback: scoped, panic-safe, with any
// exception left pending routed to the uncaught handler.
func (h *Host) topLevel(env sys.Env, fn func(env sys.Env)) {
	h.scoped(func() {
		if err := h.protect(func() error { fn(env); return nil }); err != nil {
			h.throwGoError(err)
		}
	})
	if exc, ok := h.takeException(); ok {
		h.opts.onUncaught(exc)
	}
}

func (h *Host) scoped(fn func()) {
	s := h.openScope()
	defer h.unwindScope(s)
	fn()
}

func (h *Host) enter(env sys.Env) (*envState, sys.Status) {
	e, ok := h.envs.Get(resource.Handle(env))
	if !ok {
		return nil, sys.StatusInvalidArg
	}
	e.last = sys.ExtendedErrorInfo{}
	return e, sys.StatusOK
}

// require gates a capability module on the configured version.
func (h *Host) require(e *envState, version uint32) sys.Status {
	if h.cfg.NapiVersion < version {
		e.last = sys.ExtendedErrorInfo{
			Message: fmt.Sprintf("requires napi version %d, host provides %d", version, h.cfg.NapiVersion),
			Status:  sys.StatusGenericFailure,
		}
		return sys.StatusGenericFailure
	}
	return sys.StatusOK
}

// preamble rejects calls that may run script while an exception is pending
// or while the env is in finalizer mode.
func (h *Host) preamble(e *envState) sys.Status {
	if e.finalizing {
		return sys.StatusGenericFailure
	}
	if h.exception != 0 {
		return sys.StatusPendingException
	}
	return sys.StatusOK
}

// alloc registers a new value in the current scope.
func (h *Host) alloc(e *envState, o *object) (sys.Value, sys.Status) {
	if e.finalizing {
		return 0, sys.StatusGenericFailure
	}
	hd := h.values.Insert(uint32(o.kind), o)
	if hd == 0 {
		return 0, sys.StatusGenericFailure
	}
	v := sys.Value(hd)
	h.track(v)
	return v, sys.StatusOK
}

func (h *Host) get(v sys.Value) (*object, bool) {
	return h.values.Get(resource.Handle(v))
}

func (h *Host) boolValue(b bool) sys.Value {
	if b {
		return h.trueVal
	}
	return h.falseVal
}

func (h *Host) afterTask() {
	if h.cfg.GCThresholdBytes <= 0 || h.collecting {
		return
	}
	if h.external.Load() >= h.nextGC {
		h.collect()
		next := h.external.Load() * 2
		if next < h.cfg.GCThresholdBytes {
			next = h.cfg.GCThresholdBytes
		}
		h.nextGC = next
	}
}

// Close tears the host down: waits for in-flight async work, runs cleanup
// hooks in reverse registration order, runs the instance data finalizer,
// aborts threadsafe functions, finalizes every remaining value and releases
// the heap. Close must not be called from the loop goroutine.
func (h *Host) Close(ctx context.Context) error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	// barrier: work queued on the loop before this point is counted in h.works
	errs := h.loop.call(ctx, func() error { return nil })

	done := make(chan struct{})
	go func() {
		h.works.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = multierr.Append(errs, fmt.Errorf("wait for async work: %w", ctx.Err()))
	}

	errs = multierr.Append(errs, h.loop.call(ctx, func() error {
		h.teardown()
		return nil
	}))
	h.loop.stop()
	h.cancel()

	errs = multierr.Append(errs, h.heap.Close(ctx))
	errs = multierr.Combine(errs,
		h.tsfns.Close(),
		h.asyncs.Close(),
		h.deferreds.Close(),
		h.refs.Close(),
		h.infos.Close(),
		h.scopeTab.Close(),
		h.hooks.Close(),
		h.values.Close(),
		h.envs.Close(),
	)

	h.log.Debug("host closed", zap.Error(errs))
	return errs
}

func (h *Host) teardown() {
	h.runCleanupHooks()
	h.finalizeInstanceData()
	h.abortThreadsafeFunctions()
	h.finalizeAll()
}

type tableLogger struct {
	log   *zap.Logger
	table string
}

func (t *tableLogger) OnResourceEvent(e resource.Event) {
	t.log.Debug("resource event",
		zap.String("table", t.table),
		zap.Stringer("event", e.Type),
		zap.Uint32("handle", uint32(e.Handle)),
		zap.Uint32("count", e.Count))
}
