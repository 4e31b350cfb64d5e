package host

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

// napiVersion is the highest module version this host implements.
const napiVersion = 8

type instanceData struct {
	data any
	fin  *finalizer
}

type cleanupHook struct {
	fn  sys.CleanupFunc
	arg any
	seq uint64
}

// SetInstanceData replaces the instance slot. The previous finalizer is
// not run.
func (h *Host) SetInstanceData(env sys.Env, data any, fin sys.Finalize, hint any) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if st := h.require(e, VersionInstanceData); st != sys.StatusOK {
		return st
	}
	if h.instance != nil {
		h.log.Debug("instance data overwritten without finalizing previous value")
	}
	inst := &instanceData{data: data}
	if fin != nil {
		inst.fin = &finalizer{fn: fin, data: data, hint: hint}
	}
	h.instance = inst
	return sys.StatusOK
}

// GetInstanceData returns nil when the slot is empty. Allowed in finalizer
// mode.
func (h *Host) GetInstanceData(env sys.Env) (any, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return nil, st
	}
	if st := h.require(e, VersionInstanceData); st != sys.StatusOK {
		return nil, st
	}
	if h.instance == nil {
		return nil, sys.StatusOK
	}
	return h.instance.data, sys.StatusOK
}

func (h *Host) finalizeInstanceData() {
	inst := h.instance
	if inst == nil || inst.fin == nil {
		return
	}
	h.runFinalizers([]*finalizer{inst.fin})
	h.instance = nil
}

func (h *Host) AddEnvCleanupHook(env sys.Env, fn sys.CleanupFunc, arg any) (sys.CleanupHook, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.require(e, VersionCleanupHooks); st != sys.StatusOK {
		return 0, st
	}
	if fn == nil {
		return 0, e.status(sys.StatusInvalidArg)
	}
	h.hookSeq++
	hd := h.hooks.Insert(0, &cleanupHook{fn: fn, arg: arg, seq: h.hookSeq})
	if hd == 0 {
		return 0, e.status(sys.StatusGenericFailure)
	}
	return sys.CleanupHook(hd), sys.StatusOK
}

func (h *Host) RemoveEnvCleanupHook(env sys.Env, hook sys.CleanupHook) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if st := h.require(e, VersionCleanupHooks); st != sys.StatusOK {
		return st
	}
	if _, ok := h.hooks.Remove(resource.Handle(hook)); !ok {
		return e.status(sys.StatusInvalidArg)
	}
	return sys.StatusOK
}

// runCleanupHooks runs hooks once each, most recently added first.
// Handles are reused, so order is tracked by insertion sequence.
func (h *Host) runCleanupHooks() {
	var hooks []*cleanupHook
	var handles []resource.Handle
	h.hooks.Each(func(hd resource.Handle, _ uint32, c *cleanupHook) bool {
		hooks = append(hooks, c)
		handles = append(handles, hd)
		return true
	})
	for _, hd := range handles {
		h.hooks.Remove(hd)
	}
	slices.SortFunc(hooks, func(a, b *cleanupHook) int {
		return cmp.Compare(a.seq, b.seq)
	})

	for i := len(hooks) - 1; i >= 0; i-- {
		c := hooks[i]
		if err := h.protect(func() error {
			c.fn(c.arg)
			return nil
		}); err != nil {
			h.log.Error("cleanup hook failed", zap.Error(err))
		}
	}
}

func (h *Host) GetVersion(env sys.Env) (uint32, sys.Status) {
	if _, st := h.enter(env); st != sys.StatusOK {
		return 0, st
	}
	return min(h.cfg.NapiVersion, napiVersion), sys.StatusOK
}

func (h *Host) GetHostVersion(env sys.Env) (sys.HostVersion, sys.Status) {
	if _, st := h.enter(env); st != sys.StatusOK {
		return sys.HostVersion{}, st
	}
	return parseVersion(h.cfg.Version), sys.StatusOK
}

// parseVersion reads "v<major>.<minor>.<patch>[-suffix]".
func parseVersion(v string) sys.HostVersion {
	out := sys.HostVersion{Release: "napi-go"}
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.SplitN(v, ".", 3)
	fields := []*uint32{&out.Major, &out.Minor, &out.Patch}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			break
		}
		*fields[i] = uint32(n)
	}
	return out
}
