package napi

import (
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Dropper is implemented by payloads that release resources when their
// host object goes away. Drop runs at most once per payload.
type Dropper interface {
	Drop()
}

// FinalizeContext is handed to a finalizer exactly once.
type FinalizeContext[T, Hint any] struct {
	Env   Env
	Value T
	Hint  Hint
}

// tagged is the type-erased view of a TaggedObject.
type tagged interface {
	typeTag() reflect.Type
	finalize(env Env)
}

// TaggedObject pairs a payload with the tag of its Go type. The tag is
// checked before the payload is touched; a nil object means the payload
// was dropped or taken.
type TaggedObject[T any] struct {
	tag       reflect.Type
	object    *T
	parked    *T
	onFinal   func(env Env, v T)
	size      int64
	finalized atomic.Bool
}

func newTagged[T any](v T) *TaggedObject[T] {
	return &TaggedObject[T]{tag: reflect.TypeFor[T](), object: &v}
}

func (t *TaggedObject[T]) typeTag() reflect.Type {
	return t.tag
}

// drop clears the payload, running Dropper on it once. A payload with a
// custom finalizer is parked for that finalizer instead.
func (t *TaggedObject[T]) drop() {
	obj := t.object
	if obj == nil {
		return
	}
	t.object = nil
	if t.onFinal != nil {
		t.parked = obj
		return
	}
	if d, ok := any(*obj).(Dropper); ok {
		d.Drop()
	} else if d, ok := any(obj).(Dropper); ok {
		d.Drop()
	}
}

// take moves the payload out without dropping it.
func (t *TaggedObject[T]) take() (T, bool) {
	var zero T
	if t.object == nil {
		return zero, false
	}
	v := *t.object
	t.object = nil
	return v, true
}

// finalize runs once: the custom finalizer when one was given, Dropper
// otherwise, then reverses any external-memory hint.
func (t *TaggedObject[T]) finalize(env Env) {
	if !t.finalized.CompareAndSwap(false, true) {
		Logger().Warn("tagged object finalized twice", zap.Stringer("type", t.tag))
		return
	}
	if t.onFinal != nil {
		v, ok := t.take()
		if !ok && t.parked != nil {
			v, ok = *t.parked, true
			t.parked = nil
		}
		if ok {
			t.onFinal(env, v)
		}
	} else {
		t.drop()
	}
	if t.size > 0 {
		if _, err := env.AdjustExternalMemory(-t.size); err != nil {
			Logger().Warn("external memory adjustment failed", zap.Int64("size", t.size), zap.Error(err))
		}
	}
}

func finalizeTagged(api sys.API) sys.Finalize {
	return func(raw sys.Env, data, _ any) {
		t, ok := data.(tagged)
		if !ok {
			Logger().Error("finalizer received foreign data")
			return
		}
		t.finalize(FromRaw(api, raw))
	}
}

// asTagged checks the tag of data against T.
func asTagged[T any](phase errors.Phase, data any) (*TaggedObject[T], error) {
	want := reflect.TypeFor[T]()
	t, ok := data.(tagged)
	if !ok {
		return nil, errors.New(phase, errors.KindInvalidArg).
			Status(sys.StatusInvalidArg).
			GoType(want.String()).
			Detail("payload is not a tagged object").
			Build()
	}
	if t.typeTag() != want {
		return nil, errors.TypeMismatch(phase, want.String(), t.typeTag().String())
	}
	return data.(*TaggedObject[T]), nil
}

func payload[T any](phase errors.Phase, t *TaggedObject[T]) (*T, error) {
	if t.object == nil {
		return nil, errors.New(phase, errors.KindInvalidArg).
			Status(sys.StatusInvalidArg).
			GoType(t.tag.String()).
			Detail("payload was dropped").
			Build()
	}
	return t.object, nil
}

// Wrap attaches value to obj under the tag of T. An object carries at most
// one wrap; wrapping it again fails with InvalidArg.
func Wrap[T any](env Env, obj NapiValue, value T) error {
	t := newTagged(value)
	return env.check(errors.PhaseWrap, env.api.Wrap(env.raw, obj.Raw(), t, finalizeTagged(env.api), nil), "wrap")
}

// WrapWithFinalizer is Wrap with a custom finalizer. fn receives the payload
// and hint once when obj is collected, unless RemoveWrap took the payload
// first. Dropper is never called for payloads with a custom finalizer, even
// through DropWrapped.
func WrapWithFinalizer[T, Hint any](env Env, obj NapiValue, value T, hint Hint, fn func(FinalizeContext[T, Hint])) error {
	t := newTagged(value)
	if fn != nil {
		t.onFinal = func(env Env, v T) {
			fn(FinalizeContext[T, Hint]{Env: env, Value: v, Hint: hint})
		}
	}
	return env.check(errors.PhaseWrap, env.api.Wrap(env.raw, obj.Raw(), t, finalizeTagged(env.api), nil), "wrap")
}

func unwrapTagged[T any](env Env, obj NapiValue) (*TaggedObject[T], error) {
	data, st := env.api.Unwrap(env.raw, obj.Raw())
	if err := env.check(errors.PhaseWrap, st, "unwrap"); err != nil {
		return nil, err
	}
	return asTagged[T](errors.PhaseWrap, data)
}

// Unwrap returns a pointer to the payload wrapped in obj. It fails with
// InvalidArg when the payload has another type or was dropped.
func Unwrap[T any](env Env, obj NapiValue) (*T, error) {
	t, err := unwrapTagged[T](env, obj)
	if err != nil {
		return nil, err
	}
	return payload(errors.PhaseWrap, t)
}

// DropWrapped clears the payload in place. The wrap stays attached and later
// Unwrap calls fail. A payload wrapped with a custom finalizer still reaches
// that finalizer at collection; other payloads are dropped now.
func DropWrapped[T any](env Env, obj NapiValue) error {
	t, err := unwrapTagged[T](env, obj)
	if err != nil {
		return err
	}
	if _, err := payload(errors.PhaseWrap, t); err != nil {
		return err
	}
	t.drop()
	return nil
}

// RemoveWrap detaches the wrap and hands the payload back to native code.
// No finalizer runs for it.
func RemoveWrap[T any](env Env, obj NapiValue) (T, error) {
	var zero T
	t, err := unwrapTagged[T](env, obj)
	if err != nil {
		return zero, err
	}
	if _, st := env.api.RemoveWrap(env.raw, obj.Raw()); st != sys.StatusOK {
		return zero, env.check(errors.PhaseWrap, st, "remove_wrap")
	}
	t.finalized.Store(true)
	v, ok := t.take()
	if !ok {
		return zero, errors.InvalidArg(errors.PhaseWrap, "payload was dropped")
	}
	return v, nil
}
