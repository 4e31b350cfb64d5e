// Package napi is a binding layer between native Go code and a
// garbage-collected, single-threaded scripting host.
//
// Native code exposes functions, classes, wrapped objects and asynchronous
// work to the host through a status-code boundary (package sys). This
// package wraps every boundary call, turns statuses into typed errors and
// adds the machinery that keeps both sides memory-safe: type-tagged wrapped
// objects, externals, references, one-shot finalizers, external-memory
// accounting, thread-pool tasks and threadsafe queues.
//
// # Architecture Overview
//
//	napi-go/             Env, typed values, conversion, tagged store, async bridge
//	├── sys/             Boundary contract: opaque handles, Status, API interface
//	├── errors/          Structured error taxonomy
//	├── resource/        Generic handle tables
//	└── host/            In-process reference host implementing sys.API
//
// # Quick Start
//
// Expose a function and call it:
//
//	h, err := host.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close(ctx)
//
//	err = h.Run(ctx, func(raw sys.Env) error {
//	    env := napi.FromRaw(h, raw)
//	    add, err := env.CreateFunction("add", func(c *napi.CallContext) (napi.NapiValue, error) {
//	        a, err := napi.Get[napi.JsNumber](c, 0)
//	        if err != nil {
//	            return nil, err
//	        }
//	        b, err := napi.Get[napi.JsNumber](c, 1)
//	        if err != nil {
//	            return nil, err
//	        }
//	        x, _ := a.Double()
//	        y, _ := b.Double()
//	        return c.Env.CreateDouble(x + y)
//	    })
//	    ...
//	})
//
// # Wrapped Objects
//
// Wrap attaches a Go value to a host object under a type tag derived from
// its Go type. Unwrap checks the tag before touching the payload, so a
// payload of another type is reported as InvalidArg rather than
// reinterpreted:
//
//	napi.Wrap(env, obj, Counter{})
//	c, err := napi.Unwrap[Counter](env, obj) // c is *Counter
//
// The host runs the finalizer once when the object is collected. Payloads
// implementing Dropper are dropped exactly once, whether by DropWrapped or
// by the finalizer.
//
// # Threading
//
// An Env is only valid on the host's logical thread during the invocation
// it was handed to. Work that must leave that thread goes through Spawn
// (pool worker, then resolve on the host thread), a ThreadsafeFunction
// (any goroutine to the host thread, FIFO, bounded) or ExecuteFuture
// (a FutureRuntime goroutine, results marshalled back through a
// threadsafe queue).
//
// # Errors
//
// Every fallible operation returns *errors.Error. Match on kind with the
// package sentinels:
//
//	if errors.Is(err, errors.ErrQueueFull) { ... }
package napi
