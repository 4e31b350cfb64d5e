package napi

import (
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Callback is a native function exposed to the host. A returned error is
// thrown into the host as an Error whose code is the error's status name.
// Returning a nil value yields undefined.
type Callback func(c *CallContext) (NapiValue, error)

// CallContext carries the receiver and arguments of one host call.
type CallContext struct {
	Env  Env
	this sys.Value
	args []sys.Value
}

// Len returns the number of arguments passed.
func (c *CallContext) Len() int {
	return len(c.args)
}

// This returns the receiver.
func (c *CallContext) This() JsUnknown {
	return c.Env.unknown(c.this)
}

// Arg returns argument i, or undefined when fewer were passed.
func (c *CallContext) Arg(i int) JsUnknown {
	if i < 0 || i >= len(c.args) {
		u, _ := c.Env.api.GetUndefined(c.Env.raw)
		return c.Env.unknown(u)
	}
	return c.Env.unknown(c.args[i])
}

// Args returns all arguments.
func (c *CallContext) Args() []JsUnknown {
	out := make([]JsUnknown, len(c.args))
	for i, a := range c.args {
		out[i] = c.Env.unknown(a)
	}
	return out
}

// Get returns argument i cast to T.
func Get[T NapiValue](c *CallContext, i int) (T, error) {
	return Cast[T](c.Arg(i))
}

// GetThis returns the receiver cast to T.
func GetThis[T NapiValue](c *CallContext) (T, error) {
	return Cast[T](c.This())
}

// adapt turns a Callback into the raw boundary form.
func adapt(api sys.API, name string, cb Callback) sys.Callback {
	return func(raw sys.Env, info sys.CallbackInfo) sys.Value {
		env := FromRaw(api, raw)
		this, args, _, st := api.GetCallbackInfo(raw, info)
		if err := env.check(errors.PhaseCall, st, "get_cb_info"); err != nil {
			env.throwGo(err)
			return 0
		}
		v, err := cb(&CallContext{Env: env, this: this, args: args})
		if err != nil {
			Logger().Debug("native callback failed", zap.String("function", name), zap.Error(err))
			env.throwGo(err)
			return 0
		}
		if v == nil {
			return 0
		}
		return v.Raw()
	}
}

// JsFunction is a callable host value.
type JsFunction struct{ base }

func (JsFunction) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueFunction, sys.StatusFunctionExpected, "JsFunction")
}
func (JsFunction) withBase(b base) NapiValue { return JsFunction{b} }

func rawArgs(args []NapiValue) []sys.Value {
	out := make([]sys.Value, len(args))
	for i, a := range args {
		out[i] = a.Raw()
	}
	return out
}

// Call invokes the function with the given receiver. A nil this passes
// undefined. If the function throws, the error is PendingException and the
// exception stays pending for the caller to observe.
func (f JsFunction) Call(this NapiValue, args ...NapiValue) (JsUnknown, error) {
	var recv sys.Value
	if this != nil {
		recv = this.Raw()
	} else {
		u, st := f.env.api.GetUndefined(f.env.raw)
		if err := f.env.check(errors.PhaseCall, st, "get_undefined"); err != nil {
			return JsUnknown{}, err
		}
		recv = u
	}
	v, st := f.env.api.CallFunction(f.env.raw, recv, f.raw, rawArgs(args))
	if err := f.env.check(errors.PhaseCall, st, "call_function"); err != nil {
		return JsUnknown{}, err
	}
	return f.env.unknown(v), nil
}

// New constructs an instance with the function as constructor.
func (f JsFunction) New(args ...NapiValue) (JsObject, error) {
	v, st := f.env.api.NewInstance(f.env.raw, f.raw, rawArgs(args))
	if err := f.env.check(errors.PhaseCall, st, "new_instance"); err != nil {
		return JsObject{}, err
	}
	return JsObject{base{env: f.env, raw: v}}, nil
}

// SetNamedProperty sets a property on the function object itself.
func (f JsFunction) SetNamedProperty(name string, v NapiValue) error {
	return f.env.check(errors.PhaseCreate, f.env.api.SetNamedProperty(f.env.raw, f.raw, name, v.Raw()), "set_named_property")
}

// GetNamedProperty reads a property of the function object itself.
func (f JsFunction) GetNamedProperty(name string) (JsUnknown, error) {
	v, st := f.env.api.GetNamedProperty(f.env.raw, f.raw, name)
	if err := f.env.check(errors.PhaseGet, st, "get_named_property"); err != nil {
		return JsUnknown{}, err
	}
	return f.env.unknown(v), nil
}

func (e Env) CreateFunction(name string, cb Callback) (JsFunction, error) {
	if cb == nil {
		return JsFunction{}, errors.InvalidArg(errors.PhaseCreate, "nil callback")
	}
	raw, st := e.api.CreateFunction(e.raw, name, adapt(e.api, name, cb), nil)
	if err := e.check(errors.PhaseCreate, st, "create_function"); err != nil {
		return JsFunction{}, err
	}
	return JsFunction{base{env: e, raw: raw}}, nil
}

// Property describes one class member. Exactly one of Method and Value is set.
type Property struct {
	Method Callback
	Value  NapiValue
	Name   string
	Static bool
}

// DefineClass creates a constructor function. Instance members go on its
// prototype; static members go on the constructor.
func (e Env) DefineClass(name string, ctor Callback, props []Property) (JsFunction, error) {
	if ctor == nil {
		return JsFunction{}, errors.InvalidArg(errors.PhaseCreate, "nil constructor")
	}
	descs := make([]sys.PropertyDescriptor, 0, len(props))
	for _, p := range props {
		if p.Name == "" || (p.Method == nil) == (p.Value == nil) {
			return JsFunction{}, errors.InvalidArg(errors.PhaseCreate, "property "+p.Name+" needs a name and exactly one of Method or Value")
		}
		d := sys.PropertyDescriptor{Name: p.Name, Static: p.Static}
		if p.Method != nil {
			d.Method = adapt(e.api, name+"."+p.Name, p.Method)
		} else {
			d.Value = p.Value.Raw()
		}
		descs = append(descs, d)
	}
	raw, st := e.api.DefineClass(e.raw, name, adapt(e.api, name, ctor), nil, descs)
	if err := e.check(errors.PhaseCreate, st, "define_class"); err != nil {
		return JsFunction{}, err
	}
	return JsFunction{base{env: e, raw: raw}}, nil
}
