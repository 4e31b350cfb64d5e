// Package errors provides structured error types for the binding layer.
//
// Errors are categorized by Phase (which part of the layer failed) and Kind
// (InvalidArg, QueueFull, Closing, GenericFailure, PendingException). Errors
// translated from a boundary call also carry the originating sys.Status so a
// caller can tell ObjectExpected from StringExpected while matching on a
// single InvalidArg kind.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWrap, errors.KindInvalidArg).
//		GoType("*app.Counter").
//		HostType("*app.Session").
//		Detail("unwrap of foreign payload").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FromStatus(errors.PhaseCreate, status, "create_string_utf8")
//	err := errors.QueueFull(errors.PhaseQueue, "threadsafe function at capacity")
//
// All errors implement the standard error interface and support errors.Is/As.
// The package-level sentinels match on kind alone:
//
//	if errors.Is(err, napierrors.ErrQueueFull) { ... }
package errors
