package napi

import (
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Ref keeps a host value reachable across invocations while its count is
// positive. A count of zero makes it weak: the target may be collected and
// resolution then fails with InvalidArg.
type Ref struct {
	raw     sys.Ref
	count   uint32
	deleted bool
}

// CreateReference creates a strong reference with count 1.
func (e Env) CreateReference(v NapiValue) (*Ref, error) {
	return e.createReference(v, 1)
}

// CreateWeakReference creates a reference with count 0. It must be removed
// with Delete.
func (e Env) CreateWeakReference(v NapiValue) (*Ref, error) {
	return e.createReference(v, 0)
}

func (e Env) createReference(v NapiValue, count uint32) (*Ref, error) {
	raw, st := e.api.CreateReference(e.raw, v.Raw(), count)
	if err := e.check(errors.PhaseReference, st, "create_reference"); err != nil {
		return nil, err
	}
	return &Ref{raw: raw, count: count}, nil
}

// Raw returns the raw reference token.
func (r *Ref) Raw() sys.Ref {
	return r.raw
}

// Count returns the strong count last observed.
func (r *Ref) Count() uint32 {
	return r.count
}

func (r *Ref) alive() error {
	if r.deleted {
		return errors.InvalidArg(errors.PhaseReference, "reference was deleted")
	}
	return nil
}

// Ref increments the strong count.
func (r *Ref) Ref(env Env) (uint32, error) {
	if err := r.alive(); err != nil {
		return 0, err
	}
	n, st := env.api.ReferenceRef(env.raw, r.raw)
	if err := env.check(errors.PhaseReference, st, "reference_ref"); err != nil {
		return 0, err
	}
	r.count = n
	return n, nil
}

// Unref decrements the strong count. Reaching zero deletes the host
// reference; the Ref is unusable afterwards.
func (r *Ref) Unref(env Env) (uint32, error) {
	if err := r.alive(); err != nil {
		return 0, err
	}
	n, st := env.api.ReferenceUnref(env.raw, r.raw)
	if err := env.check(errors.PhaseReference, st, "reference_unref"); err != nil {
		return 0, err
	}
	r.count = n
	if n == 0 {
		return 0, r.Delete(env)
	}
	return n, nil
}

// Delete removes the host reference regardless of its count. Allowed in
// finalizers.
func (r *Ref) Delete(env Env) error {
	if err := r.alive(); err != nil {
		return err
	}
	if err := env.check(errors.PhaseReference, env.api.DeleteReference(env.raw, r.raw), "delete_reference"); err != nil {
		return err
	}
	r.deleted = true
	r.count = 0
	return nil
}

func (r *Ref) target(env Env) (sys.Value, error) {
	if err := r.alive(); err != nil {
		return 0, err
	}
	v, st := env.api.GetReferenceValue(env.raw, r.raw)
	if err := env.check(errors.PhaseReference, st, "get_reference_value"); err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, errors.InvalidArg(errors.PhaseReference, "reference target was collected")
	}
	return v, nil
}

// GetReferenceValue resolves r and checks the target against T.
func GetReferenceValue[T NapiValue](env Env, r *Ref) (T, error) {
	v, err := r.target(env)
	if err != nil {
		var zero T
		return zero, err
	}
	return Cast[T](env.unknown(v))
}

// GetReferenceValueUnchecked resolves r without a type check. A mismatch
// is not reported here; it surfaces as InvalidArg on the first typed use.
func GetReferenceValueUnchecked[T NapiValue](env Env, r *Ref) (T, error) {
	v, err := r.target(env)
	if err != nil {
		var zero T
		return zero, err
	}
	return castUnchecked[T](env, v)
}
