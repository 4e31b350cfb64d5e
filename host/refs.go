package host

import (
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

// reference holds a value across calls. A positive count roots the value;
// at zero the reference is weak and is cleared when the value is collected.
type reference struct {
	value sys.Value
}

type scope struct {
	handles []sys.Value
	token   resource.Handle
}

func (h *Host) CreateReference(env sys.Env, v sys.Value, initialCount uint32) (sys.Ref, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if _, ok := h.get(v); !ok {
		return 0, e.status(sys.StatusInvalidArg)
	}
	hd := h.refs.Insert(0, &reference{value: v})
	if hd == 0 {
		return 0, e.status(sys.StatusGenericFailure)
	}
	for i := uint32(0); i < initialCount; i++ {
		h.refs.Ref(hd)
	}
	return sys.Ref(hd), sys.StatusOK
}

// DeleteReference is allowed in finalizer mode.
func (h *Host) DeleteReference(env sys.Env, ref sys.Ref) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if _, ok := h.refs.Remove(resource.Handle(ref)); !ok {
		return e.status(sys.StatusInvalidArg)
	}
	return sys.StatusOK
}

func (h *Host) ReferenceRef(env sys.Env, ref sys.Ref) (uint32, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	r, ok := h.refs.Get(resource.Handle(ref))
	if !ok {
		return 0, e.status(sys.StatusInvalidArg)
	}
	if r.value == 0 {
		// a collected target cannot be made strong again
		return 0, e.status(sys.StatusGenericFailure)
	}
	n, _ := h.refs.Ref(resource.Handle(ref))
	return n, sys.StatusOK
}

func (h *Host) ReferenceUnref(env sys.Env, ref sys.Ref) (uint32, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if _, ok := h.refs.Get(resource.Handle(ref)); !ok {
		return 0, e.status(sys.StatusInvalidArg)
	}
	n, ok := h.refs.Unref(resource.Handle(ref))
	if !ok {
		return 0, e.status(sys.StatusGenericFailure)
	}
	return n, sys.StatusOK
}

// GetReferenceValue returns 0 once a weak reference's target was collected.
func (h *Host) GetReferenceValue(env sys.Env, ref sys.Ref) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	r, ok := h.refs.Get(resource.Handle(ref))
	if !ok {
		return 0, e.status(sys.StatusInvalidArg)
	}
	if r.value != 0 {
		h.track(r.value)
	}
	return r.value, sys.StatusOK
}

func (h *Host) openScope() *scope {
	s := &scope{}
	s.token = h.scopeTab.Insert(0, s)
	h.scopes = append(h.scopes, s)
	return s
}

// unwindScope closes s and any scope opened after it and left open.
func (h *Host) unwindScope(s *scope) {
	for i := len(h.scopes) - 1; i >= 0; i-- {
		top := h.scopes[i]
		h.scopes[i] = nil
		h.scopes = h.scopes[:i]
		h.scopeTab.Remove(top.token)
		if top == s {
			return
		}
		h.log.Warn("handle scope left open", zap.Uint32("scope", uint32(top.token)))
	}
}

// track roots v in the innermost open scope.
func (h *Host) track(v sys.Value) {
	if n := len(h.scopes); n > 0 && v != 0 {
		top := h.scopes[n-1]
		top.handles = append(top.handles, v)
	}
}

func (h *Host) OpenHandleScope(env sys.Env) (sys.HandleScope, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if e.finalizing {
		return 0, e.status(sys.StatusGenericFailure)
	}
	s := h.openScope()
	return sys.HandleScope(s.token), sys.StatusOK
}

// CloseHandleScope closes the innermost scope. Closing any other scope is a
// HandleScopeMismatch.
func (h *Host) CloseHandleScope(env sys.Env, hs sys.HandleScope) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	n := len(h.scopes)
	if n == 0 || h.scopes[n-1].token != resource.Handle(hs) {
		return e.status(sys.StatusHandleScopeMismatch)
	}
	h.unwindScope(h.scopes[n-1])
	return sys.StatusOK
}
