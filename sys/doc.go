// Package sys defines the boundary between native Go code and a scripting host.
//
// It mirrors a C-style ABI: every host operation is a method on API that takes
// an opaque Env token, exchanges opaque Value/Ref/... tokens and reports a
// Status. Nothing in this package interprets token bit patterns.
//
// Native code should not use API directly. Package napi wraps every call,
// turns non-OK statuses into typed errors and adds the tagged-object,
// reference and async machinery on top.
//
// # Threading
//
// A host executes callbacks on a single logical thread. All API methods except
// CallThreadsafeFunction, AcquireThreadsafeFunction, ReleaseThreadsafeFunction
// and FatalError must be called from that thread with the Env of the current
// invocation. This is a documented contract; tokens carry no provenance that
// a host could check.
package sys
