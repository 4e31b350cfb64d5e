package host

import (
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

const (
	errorName      = "Error"
	typeErrorName  = "TypeError"
	rangeErrorName = "RangeError"
)

// newError builds an error object. code may be 0.
func (h *Host) newError(e *envState, name string, code, msg sys.Value) (sys.Value, sys.Status) {
	m, ok := h.get(msg)
	if !ok {
		return 0, sys.StatusInvalidArg
	}
	if m.kind != kindString {
		return 0, sys.StatusStringExpected
	}
	if code != 0 {
		c, ok := h.get(code)
		if !ok {
			return 0, sys.StatusInvalidArg
		}
		if c.kind != kindString {
			return 0, sys.StatusStringExpected
		}
	}

	nameVal, st := h.alloc(e, &object{kind: kindString, str: utf8ToUnits([]byte(name))})
	if st != sys.StatusOK {
		return 0, st
	}
	o := &object{kind: kindError}
	o.setProp("name", nameVal)
	o.setProp("message", msg)
	if code != 0 {
		o.setProp("code", code)
	}
	return h.alloc(e, o)
}

func (h *Host) newErrorStrings(e *envState, name, code, msg string) (sys.Value, sys.Status) {
	m, st := h.alloc(e, &object{kind: kindString, str: utf8ToUnits([]byte(msg))})
	if st != sys.StatusOK {
		return 0, st
	}
	var c sys.Value
	if code != "" {
		if c, st = h.alloc(e, &object{kind: kindString, str: utf8ToUnits([]byte(code))}); st != sys.StatusOK {
			return 0, st
		}
	}
	return h.newError(e, name, c, m)
}

func (h *Host) createError(env sys.Env, name string, code, msg sys.Value) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	v, st := h.newError(e, name, code, msg)
	return v, e.status(st)
}

func (h *Host) CreateError(env sys.Env, code, msg sys.Value) (sys.Value, sys.Status) {
	return h.createError(env, errorName, code, msg)
}

func (h *Host) CreateTypeError(env sys.Env, code, msg sys.Value) (sys.Value, sys.Status) {
	return h.createError(env, typeErrorName, code, msg)
}

func (h *Host) CreateRangeError(env sys.Env, code, msg sys.Value) (sys.Value, sys.Status) {
	return h.createError(env, rangeErrorName, code, msg)
}

func (h *Host) IsError(env sys.Env, v sys.Value) (bool, sys.Status) {
	return h.isKind(env, v, kindError)
}

func (h *Host) Throw(env sys.Env, v sys.Value) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return e.status(st)
	}
	if _, ok := h.get(v); !ok {
		return e.status(sys.StatusInvalidArg)
	}
	h.exception = v
	return sys.StatusOK
}

func (h *Host) throwNamed(env sys.Env, name, code, msg string) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return e.status(st)
	}
	v, st := h.newErrorStrings(e, name, code, msg)
	if st != sys.StatusOK {
		return e.status(st)
	}
	h.exception = v
	return sys.StatusOK
}

func (h *Host) ThrowError(env sys.Env, code, msg string) sys.Status {
	return h.throwNamed(env, errorName, code, msg)
}

func (h *Host) ThrowTypeError(env sys.Env, code, msg string) sys.Status {
	return h.throwNamed(env, typeErrorName, code, msg)
}

func (h *Host) ThrowRangeError(env sys.Env, code, msg string) sys.Status {
	return h.throwNamed(env, rangeErrorName, code, msg)
}

func (h *Host) IsExceptionPending(env sys.Env) (bool, sys.Status) {
	if _, st := h.enter(env); st != sys.StatusOK {
		return false, st
	}
	return h.exception != 0, sys.StatusOK
}

func (h *Host) GetAndClearLastException(env sys.Env) (sys.Value, sys.Status) {
	if _, st := h.enter(env); st != sys.StatusOK {
		return 0, st
	}
	if h.exception == 0 {
		return h.undefined, sys.StatusOK
	}
	v := h.exception
	h.exception = 0
	h.track(v)
	return v, sys.StatusOK
}

// GetLastErrorInfo reports the last failed call without resetting it.
func (h *Host) GetLastErrorInfo(env sys.Env) (sys.ExtendedErrorInfo, sys.Status) {
	e, ok := h.envs.Get(resource.Handle(env))
	if !ok {
		return sys.ExtendedErrorInfo{}, sys.StatusInvalidArg
	}
	return e.last, sys.StatusOK
}

// FatalError may be called from any goroutine.
func (h *Host) FatalError(location, message string) {
	h.log.Error("fatal error requested", zap.String("location", location), zap.String("message", message))
	h.opts.onFatal(location, message)
}

func (h *Host) FatalException(env sys.Env, err sys.Value) sys.Status {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return st
	}
	if _, ok := h.get(err); !ok {
		return e.status(sys.StatusInvalidArg)
	}
	h.opts.onUncaught(h.describe(err))
	return sys.StatusOK
}

// takeException clears the pending exception and describes it.
func (h *Host) takeException() (UncaughtError, bool) {
	if h.exception == 0 {
		return UncaughtError{}, false
	}
	v := h.exception
	h.exception = 0
	return h.describe(v), true
}

func (h *Host) describe(v sys.Value) UncaughtError {
	u := UncaughtError{Value: v}
	o, ok := h.get(v)
	if !ok {
		return u
	}
	switch o.kind {
	case kindString:
		u.Message = string(unitsToUTF8(o.str))
	case kindError, kindObject:
		u.Message = h.stringProp(o, "message")
		u.Code = h.stringProp(o, "code")
	}
	return u
}

func (h *Host) stringProp(o *object, name string) string {
	v, ok := h.lookup(o, name)
	if !ok {
		return ""
	}
	s, ok := h.get(v)
	if !ok || s.kind != kindString {
		return ""
	}
	return string(unitsToUTF8(s.str))
}

// throwGoError makes err the pending exception unless one is already set.
func (h *Host) throwGoError(err error) {
	if h.exception != 0 {
		return
	}
	e, _ := h.envs.Get(resource.Handle(h.mainEnv))
	code := ""
	var ee *errors.Error
	if errors.As(err, &ee) {
		code = ee.Code()
	}
	if v, st := h.newErrorStrings(e, errorName, code, err.Error()); st == sys.StatusOK {
		h.exception = v
	}
}
