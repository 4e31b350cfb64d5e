package host

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

type function struct {
	cb   sys.Callback
	data any
	name string
}

type callbackInfo struct {
	data      any
	args      []sys.Value
	this      sys.Value
	newTarget sys.Value
}

func (h *Host) CreateFunction(env sys.Env, name string, cb sys.Callback, data any) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if cb == nil {
		return 0, e.status(sys.StatusInvalidArg)
	}
	v, st := h.alloc(e, &object{kind: kindFunction, fn: &function{cb: cb, data: data, name: name}})
	return v, e.status(st)
}

func (h *Host) GetCallbackInfo(env sys.Env, info sys.CallbackInfo) (sys.Value, []sys.Value, any, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, nil, nil, st
	}
	ci, ok := h.infos.Get(resource.Handle(info))
	if !ok {
		return 0, nil, nil, e.status(sys.StatusInvalidArg)
	}
	args := make([]sys.Value, len(ci.args))
	copy(args, ci.args)
	return ci.this, args, ci.data, sys.StatusOK
}

// invoke calls a native callback in its own scope and returns its result
// tracked in the caller's scope. A panic becomes a pending exception.
func (h *Host) invoke(fn *object, this sys.Value, args []sys.Value, newTarget sys.Value) sys.Value {
	info := h.infos.Insert(0, &callbackInfo{
		data:      fn.fn.data,
		args:      args,
		this:      this,
		newTarget: newTarget,
	})
	defer h.infos.Remove(info)

	var result sys.Value
	h.scoped(func() {
		defer func() {
			if r := recover(); r != nil {
				h.log.Error("native callback panicked",
					zap.String("function", fn.fn.name),
					zap.Any("panic", r))
				h.throwGoError(fmt.Errorf("%v", r))
			}
		}()
		result = fn.fn.cb(h.mainEnv, sys.CallbackInfo(info))
	})

	if _, ok := h.get(result); result == 0 || !ok {
		return h.undefined
	}
	h.track(result)
	return result
}

func (h *Host) valueArgs(args []sys.Value) bool {
	for _, a := range args {
		if _, ok := h.get(a); !ok {
			return false
		}
	}
	return true
}

func (h *Host) CallFunction(env sys.Env, recv, fn sys.Value, args []sys.Value) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return 0, e.status(st)
	}
	f, ok := h.get(fn)
	if !ok {
		return 0, e.status(sys.StatusInvalidArg)
	}
	if f.kind != kindFunction {
		return 0, e.status(sys.StatusFunctionExpected)
	}
	if recv == 0 {
		recv = h.undefined
	}
	if !h.valueArgs(args) || !h.valueArgs([]sys.Value{recv}) {
		return 0, e.status(sys.StatusInvalidArg)
	}

	result := h.invoke(f, recv, append([]sys.Value(nil), args...), 0)
	if h.exception != 0 {
		return 0, e.status(sys.StatusPendingException)
	}
	return result, sys.StatusOK
}

func (h *Host) NewInstance(env sys.Env, ctor sys.Value, args []sys.Value) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return 0, e.status(st)
	}
	f, ok := h.get(ctor)
	if !ok {
		return 0, e.status(sys.StatusInvalidArg)
	}
	if f.kind != kindFunction {
		return 0, e.status(sys.StatusFunctionExpected)
	}
	if !h.valueArgs(args) {
		return 0, e.status(sys.StatusInvalidArg)
	}

	inst := &object{kind: kindObject}
	if proto, ok := f.props["prototype"]; ok {
		if p, ok := h.get(proto); ok && p.kind.isObject() {
			inst.proto = proto
		}
	}
	this, st := h.alloc(e, inst)
	if st != sys.StatusOK {
		return 0, e.status(st)
	}

	result := h.invoke(f, this, append([]sys.Value(nil), args...), ctor)
	if h.exception != 0 {
		return 0, e.status(sys.StatusPendingException)
	}
	if r, ok := h.get(result); ok && r.kind.isObject() {
		return result, sys.StatusOK
	}
	return this, sys.StatusOK
}

func (h *Host) DefineClass(env sys.Env, name string, ctor sys.Callback, data any, props []sys.PropertyDescriptor) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if st := h.preamble(e); st != sys.StatusOK {
		return 0, e.status(st)
	}
	if ctor == nil {
		return 0, e.status(sys.StatusInvalidArg)
	}

	cls := &object{kind: kindFunction, fn: &function{cb: ctor, data: data, name: name}}
	clsVal, st := h.alloc(e, cls)
	if st != sys.StatusOK {
		return 0, e.status(st)
	}
	proto := &object{kind: kindObject}
	protoVal, st := h.alloc(e, proto)
	if st != sys.StatusOK {
		return 0, e.status(st)
	}
	cls.setProp("prototype", protoVal)
	proto.setProp("constructor", clsVal)

	for _, p := range props {
		target := proto
		if p.Static {
			target = cls
		}
		switch {
		case p.Method != nil:
			m, st := h.alloc(e, &object{kind: kindFunction, fn: &function{cb: p.Method, data: p.Data, name: p.Name}})
			if st != sys.StatusOK {
				return 0, e.status(st)
			}
			target.setProp(p.Name, m)
		case p.Value != 0:
			if _, ok := h.get(p.Value); !ok {
				return 0, e.status(sys.StatusInvalidArg)
			}
			target.setProp(p.Name, p.Value)
		default:
			return 0, e.status(sys.StatusInvalidArg)
		}
	}
	return clsVal, sys.StatusOK
}
