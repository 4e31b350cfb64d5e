package napi

import (
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// CleanupHook identifies a registered env cleanup hook.
type CleanupHook struct {
	raw sys.CleanupHook
}

// AddEnvCleanupHook registers fn to run with data when the instance shuts
// down. Hooks run once, most recently added first.
func AddEnvCleanupHook[T any](env Env, data T, fn func(T)) (CleanupHook, error) {
	if fn == nil {
		return CleanupHook{}, errors.InvalidArg(errors.PhaseFinalize, "nil cleanup hook")
	}
	raw, st := env.api.AddEnvCleanupHook(env.raw, func(arg any) {
		v, _ := arg.(T)
		fn(v)
	}, data)
	if err := env.check(errors.PhaseFinalize, st, "add_env_cleanup_hook"); err != nil {
		return CleanupHook{}, err
	}
	return CleanupHook{raw: raw}, nil
}

// RemoveEnvCleanupHook unregisters a hook so it never runs. Removing a hook
// twice fails with InvalidArg.
func (e Env) RemoveEnvCleanupHook(hook CleanupHook) error {
	return e.check(errors.PhaseFinalize, e.api.RemoveEnvCleanupHook(e.raw, hook.raw), "remove_env_cleanup_hook")
}
