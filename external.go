package napi

import (
	"sync"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// CreateExternal hands value to the host as an opaque external. A positive
// sizeHint is reported as external memory now and reversed once when the
// external is finalized; sizeHint <= 0 means no accounting.
//
// Views returned by GetValueExternal are plain pointers into the payload.
// Payloads mutated from more than one goroutine should be wrapped in Mutex.
func CreateExternal[T any](env Env, value T, sizeHint int64) (JsExternal, error) {
	t := newTagged(value)
	raw, st := env.api.CreateExternal(env.raw, t, finalizeTagged(env.api), nil)
	if err := env.check(errors.PhaseReference, st, "create_external"); err != nil {
		return JsExternal{}, err
	}
	if sizeHint > 0 {
		if _, err := env.AdjustExternalMemory(sizeHint); err != nil {
			return JsExternal{}, err
		}
		t.size = sizeHint
	}
	return JsExternal{base{env: env, raw: raw}}, nil
}

func externalTagged[T any](env Env, v NapiValue) (*TaggedObject[T], error) {
	data, st := env.api.GetValueExternal(env.raw, v.Raw())
	if err := env.check(errors.PhaseReference, st, "get_value_external"); err != nil {
		return nil, err
	}
	return asTagged[T](errors.PhaseReference, data)
}

// GetValueExternal returns a mutable view of the payload of an external.
// It fails with InvalidArg on a tag mismatch or a payload already taken.
func GetValueExternal[T any](env Env, v NapiValue) (*T, error) {
	t, err := externalTagged[T](env, v)
	if err != nil {
		return nil, err
	}
	return payload(errors.PhaseReference, t)
}

// TakeExternal moves the payload out of the external. Later views fail with
// InvalidArg and the finalizer only reverses the size hint.
func TakeExternal[T any](env Env, v NapiValue) (T, error) {
	var zero T
	t, err := externalTagged[T](env, v)
	if err != nil {
		return zero, err
	}
	out, ok := t.take()
	if !ok {
		return zero, errors.New(errors.PhaseReference, errors.KindInvalidArg).
			Status(sys.StatusInvalidArg).
			GoType(t.tag.String()).
			Detail("payload was already taken").
			Build()
	}
	return out, nil
}

// Mutex guards a payload shared between the host thread and other
// goroutines.
type Mutex[T any] struct {
	mu sync.Mutex
	v  T
}

func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{v: v}
}

// With runs fn with exclusive access to the value.
func (m *Mutex[T]) With(fn func(v *T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.v)
}

// Load returns a copy of the value.
func (m *Mutex[T]) Load() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v
}

// Store replaces the value.
func (m *Mutex[T]) Store(v T) {
	m.mu.Lock()
	m.v = v
	m.mu.Unlock()
}
