// Package host is an in-process scripting host implementing sys.API.
//
// It provides what native code expects from a garbage-collected,
// single-threaded host: a value space with handle scopes and a mark-sweep
// collector, one-shot finalizers, external-memory accounting, a linear heap
// for host-allocated buffers, promises, a worker pool for async work,
// threadsafe function queues, instance data and cleanup hooks.
//
// # Threading
//
// A Host runs one loop goroutine. It is the only goroutine allowed to use
// an Env. Native code reaches it through Run, through callbacks the host
// invokes, or from other goroutines through threadsafe functions:
//
//	h, err := host.New(ctx, host.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer h.Close(ctx)
//
//	err = h.Run(ctx, func(env sys.Env) error {
//		obj, _ := h.CreateObject(env)
//		...
//	})
//
// # Memory
//
// Buffers created by CreateBuffer and CreateBufferCopy live in a wazero
// linear memory sized by Config.HeapPages. The memory never grows, so the
// returned slices stay valid until the buffer is collected. External buffers
// alias native memory and are released through their finalizer.
//
// Collection runs on the loop between tasks: explicitly through Collect, when
// external memory crosses Config.GCThresholdBytes, or when the heap cannot
// satisfy an allocation. Finalizers run with a finalizer-mode Env in which
// calls that allocate values fail with GenericFailure.
//
// # Capabilities
//
// Config.NapiVersion enables capability modules: cleanup hooks (3),
// threadsafe functions (4), dates (5), bigints and instance data (6). Calls
// into a disabled module fail with GenericFailure.
package host
