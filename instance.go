package napi

import (
	"github.com/wippyai/napi-go/errors"
)

// SetInstanceData stores one value per instance. Setting it again replaces
// the previous value without running the previous finalizer. fn, when set,
// runs once with the value and hint at shutdown.
func SetInstanceData[T, Hint any](env Env, value T, hint Hint, fn func(FinalizeContext[T, Hint])) error {
	t := newTagged(value)
	if fn != nil {
		t.onFinal = func(env Env, v T) {
			fn(FinalizeContext[T, Hint]{Env: env, Value: v, Hint: hint})
		}
	}
	return env.check(errors.PhaseInstance, env.api.SetInstanceData(env.raw, t, finalizeTagged(env.api), nil), "set_instance_data")
}

// GetInstanceData returns the stored value, or nil when nothing is stored.
// Asking for a different type than was stored fails with InvalidArg.
func GetInstanceData[T any](env Env) (*T, error) {
	data, st := env.api.GetInstanceData(env.raw)
	if err := env.check(errors.PhaseInstance, st, "get_instance_data"); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	t, err := asTagged[T](errors.PhaseInstance, data)
	if err != nil {
		return nil, err
	}
	return payload(errors.PhaseInstance, t)
}
