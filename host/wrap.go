package host

import (
	"github.com/wippyai/napi-go/sys"
)

// Wrap attaches native data to an object. An object carries at most one
// wrap; fin runs once when the object is collected unless the wrap is
// removed first.
func (h *Host) Wrap(env sys.Env, obj sys.Value, data any, fin sys.Finalize, hint any) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return e.status(st)
	}
	o, st := h.wrappable(obj)
	if st != sys.StatusOK {
		return e.status(st)
	}
	if o.wrap != nil {
		return e.status(sys.StatusInvalidArg)
	}
	w := &wrapSlot{data: data}
	if fin != nil {
		w.fin = &finalizer{fn: fin, data: data, hint: hint}
	}
	o.wrap = w
	return sys.StatusOK
}

func (h *Host) wrappable(v sys.Value) (*object, sys.Status) {
	o, ok := h.get(v)
	if !ok {
		return nil, sys.StatusInvalidArg
	}
	if o.kind != kindObject && o.kind != kindFunction {
		return nil, sys.StatusObjectExpected
	}
	return o, sys.StatusOK
}

func (h *Host) Unwrap(env sys.Env, obj sys.Value) (any, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return nil, st
	}
	o, st := h.wrappable(obj)
	if st != sys.StatusOK {
		return nil, e.status(st)
	}
	if o.wrap == nil {
		return nil, e.status(sys.StatusInvalidArg)
	}
	return o.wrap.data, sys.StatusOK
}

// RemoveWrap detaches the wrap without running its finalizer.
func (h *Host) RemoveWrap(env sys.Env, obj sys.Value) (any, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return nil, st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return nil, e.status(st)
	}
	o, st := h.wrappable(obj)
	if st != sys.StatusOK {
		return nil, e.status(st)
	}
	if o.wrap == nil {
		return nil, e.status(sys.StatusInvalidArg)
	}
	data := o.wrap.data
	o.wrap = nil
	return data, sys.StatusOK
}

func (h *Host) CreateExternal(env sys.Env, data any, fin sys.Finalize, hint any) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	o := &object{kind: kindExternal, data: data}
	if fin != nil {
		o.fin = &finalizer{fn: fin, data: data, hint: hint}
	}
	v, st := h.alloc(e, o)
	return v, e.status(st)
}

func (h *Host) GetValueExternal(env sys.Env, v sys.Value) (any, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return nil, st
	}
	o, ok := h.get(v)
	if !ok || o.kind != kindExternal {
		return nil, e.status(sys.StatusInvalidArg)
	}
	return o.data, sys.StatusOK
}
