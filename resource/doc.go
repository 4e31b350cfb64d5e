// Package resource provides generic handle tables.
//
// A Table maps small integer handles to Go values. Handles are what crosses
// an opaque boundary; the values never do. Each entry carries a caller
// defined tag and a reference count:
//
//	table := resource.NewTable[*object]()
//
//	// Insert a value, get a handle
//	h := table.Insert(tagObject, obj)
//
//	// Retrieve value by handle
//	obj, ok := table.Get(h)
//
//	// Tag-checked retrieval
//	obj, ok := table.GetTagged(h, tagObject) // ok
//	obj, ok := table.GetTagged(h, tagArray)  // !ok
//
//	// Reference counting
//	n, _ := table.Ref(h)
//	n, _ = table.Unref(h)
//
//	// Remove and get value
//	obj, ok := table.Remove(h)
//
// Handle 0 is never issued. Slots of removed entries are reused, so a
// handle kept after Remove may later resolve to an unrelated entry. Callers
// that need stale-handle detection must track liveness themselves.
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(logger)
//
// Observers run on the goroutine that performed the operation, after the
// table lock has been released.
//
// # Cleanup
//
// Values implementing Dropper have Drop called exactly once when their
// entry is removed, including by Clear and Close.
package resource
