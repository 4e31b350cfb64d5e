package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wippyai/napi-go/sys"
)

// Phase indicates which part of the binding layer produced the error
type Phase string

const (
	PhaseCreate    Phase = "create"    // native value to host value
	PhaseGet       Phase = "get"       // host value to native value
	PhaseWrap      Phase = "wrap"      // tagged object store
	PhaseReference Phase = "reference" // references and externals
	PhaseFinalize  Phase = "finalize"  // finalizers and cleanup hooks
	PhaseAsync     Phase = "async"     // thread-pool tasks and futures
	PhaseQueue     Phase = "queue"     // threadsafe functions
	PhaseInstance  Phase = "instance"  // instance data
	PhaseCall      Phase = "call"      // function calls and exceptions
	PhaseConvert   Phase = "convert"   // struct conversion
	PhaseConfig    Phase = "config"    // configuration loading
	PhaseHost      Phase = "host"      // host lifecycle
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidArg       Kind = "invalid_arg"
	KindQueueFull        Kind = "queue_full"
	KindClosing          Kind = "closing"
	KindGenericFailure   Kind = "generic_failure"
	KindPendingException Kind = "pending_exception"
)

// Sentinels for errors.Is. They match any phase.
var (
	ErrInvalidArg       = &Error{Kind: KindInvalidArg}
	ErrQueueFull        = &Error{Kind: KindQueueFull}
	ErrClosing          = &Error{Kind: KindClosing}
	ErrGenericFailure   = &Error{Kind: KindGenericFailure}
	ErrPendingException = &Error{Kind: KindPendingException}
)

// Error is the structured error type returned by every fallible operation
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	HostType string
	Detail   string
	Status   sys.Status
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Status != sys.StatusOK {
		b.WriteString(" (")
		b.WriteString(e.Status.String())
		b.WriteByte(')')
	}

	if e.GoType != "" || e.HostType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.HostType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", host type ")
			b.WriteString(e.HostType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("host type ")
			b.WriteString(e.HostType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.HostType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Kinds must be equal; the
// phase is compared only when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return t.Phase == "" || t.Phase == e.Phase
}

// Code returns a short identifier suitable as the host-side error code.
func (e *Error) Code() string {
	if e.Status != sys.StatusOK {
		return e.Status.String()
	}
	return string(e.Kind)
}

// KindOf maps a boundary status to its error kind.
func KindOf(status sys.Status) Kind {
	switch {
	case status == sys.StatusInvalidArg, status.Expected():
		return KindInvalidArg
	case status == sys.StatusQueueFull:
		return KindQueueFull
	case status == sys.StatusClosing:
		return KindClosing
	case status == sys.StatusPendingException:
		return KindPendingException
	default:
		return KindGenericFailure
	}
}

// StatusOf maps an error kind back to the boundary status a host reports for it.
func StatusOf(kind Kind) sys.Status {
	switch kind {
	case KindInvalidArg:
		return sys.StatusInvalidArg
	case KindQueueFull:
		return sys.StatusQueueFull
	case KindClosing:
		return sys.StatusClosing
	case KindPendingException:
		return sys.StatusPendingException
	default:
		return sys.StatusGenericFailure
	}
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Status sets the originating boundary status
func (b *Builder) Status(s sys.Status) *Builder {
	b.err.Status = s
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// HostType sets the host value type name
func (b *Builder) HostType(t string) *Builder {
	b.err.HostType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// FromStatus translates a non-OK boundary status into a typed error
func FromStatus(phase Phase, status sys.Status, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOf(status),
		Status: status,
		Detail: detail,
	}
}

// InvalidArg creates an invalid argument error
func InvalidArg(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArg,
		Status: sys.StatusInvalidArg,
		Detail: detail,
	}
}

// TypeMismatch creates an invalid argument error for a failed downcast
func TypeMismatch(phase Phase, goType, hostType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidArg,
		Status:   sys.StatusInvalidArg,
		GoType:   goType,
		HostType: hostType,
		Detail:   "type mismatch",
	}
}

// QueueFull creates a queue-at-capacity error
func QueueFull(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindQueueFull,
		Status: sys.StatusQueueFull,
		Detail: detail,
	}
}

// Closing creates an error for a queue whose receiving end is gone
func Closing(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosing,
		Status: sys.StatusClosing,
		Detail: detail,
	}
}

// GenericFailure creates a generic failure error
func GenericFailure(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGenericFailure,
		Status: sys.StatusGenericFailure,
		Detail: detail,
		Cause:  cause,
	}
}

// Unsupported creates an error for a capability the host does not provide
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGenericFailure,
		Status: sys.StatusGenericFailure,
		Detail: what + " is not supported by this host",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidConfig creates a configuration error
func InvalidConfig(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidArg,
		Detail: detail,
		Cause:  cause,
	}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
