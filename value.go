package napi

import (
	"fmt"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// NapiValue is any host value handed to or received from native code.
type NapiValue interface {
	Env() Env
	Raw() sys.Value
}

// typedValue is implemented by every concrete value type so that Cast can
// validate and construct it generically.
type typedValue interface {
	NapiValue
	validate(env Env, raw sys.Value) error
	withBase(b base) NapiValue
}

type base struct {
	env Env
	raw sys.Value
}

func (b base) Env() Env       { return b.env }
func (b base) Raw() sys.Value { return b.raw }

// Cast converts v to the value type T after checking the host type.
// A mismatch is an InvalidArg error carrying the precise expected status.
func Cast[T NapiValue](v NapiValue) (T, error) {
	var zero T
	if v == nil {
		return zero, errors.InvalidArg(errors.PhaseGet, "nil value")
	}
	tv, ok := any(zero).(typedValue)
	if !ok {
		return zero, errors.InvalidArg(errors.PhaseGet, fmt.Sprintf("unsupported value type %T", zero))
	}
	if err := tv.validate(v.Env(), v.Raw()); err != nil {
		return zero, err
	}
	return tv.withBase(base{env: v.Env(), raw: v.Raw()}).(T), nil
}

// castUnchecked constructs T without consulting the host. A mismatch
// surfaces on the first typed operation.
func castUnchecked[T NapiValue](env Env, raw sys.Value) (T, error) {
	var zero T
	tv, ok := any(zero).(typedValue)
	if !ok {
		return zero, errors.InvalidArg(errors.PhaseGet, fmt.Sprintf("unsupported value type %T", zero))
	}
	return tv.withBase(base{env: env, raw: raw}).(T), nil
}

func expectType(env Env, raw sys.Value, want sys.ValueType, mismatch sys.Status, goType string) error {
	got, st := env.api.TypeOf(env.raw, raw)
	if err := env.check(errors.PhaseGet, st, "typeof"); err != nil {
		return err
	}
	if got != want {
		return errors.New(errors.PhaseGet, errors.KindInvalidArg).
			Status(mismatch).
			GoType(goType).
			HostType(got.String()).
			Detail("expected %s", want).
			Build()
	}
	return nil
}

func expectKind(env Env, raw sys.Value, is func(sys.Env, sys.Value) (bool, sys.Status), mismatch sys.Status, goType string) error {
	ok, st := is(env.raw, raw)
	if err := env.check(errors.PhaseGet, st, "is_"+goType); err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.PhaseGet, errors.KindInvalidArg).
			Status(mismatch).
			GoType(goType).
			Detail("value is not a %s", goType).
			Build()
	}
	return nil
}

// JsUnknown is a value whose type has not been checked.
type JsUnknown struct{ base }

func (JsUnknown) validate(Env, sys.Value) error { return nil }
func (JsUnknown) withBase(b base) NapiValue     { return JsUnknown{b} }

// TypeOf returns the host type of the value.
func (v JsUnknown) TypeOf() (sys.ValueType, error) {
	return v.env.TypeOf(v)
}

type JsUndefined struct{ base }

func (JsUndefined) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueUndefined, sys.StatusInvalidArg, "JsUndefined")
}
func (JsUndefined) withBase(b base) NapiValue { return JsUndefined{b} }

type JsNull struct{ base }

func (JsNull) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueNull, sys.StatusInvalidArg, "JsNull")
}
func (JsNull) withBase(b base) NapiValue { return JsNull{b} }

type JsBoolean struct{ base }

func (JsBoolean) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueBoolean, sys.StatusBooleanExpected, "JsBoolean")
}
func (JsBoolean) withBase(b base) NapiValue { return JsBoolean{b} }

func (v JsBoolean) Value() (bool, error) {
	b, st := v.env.api.GetValueBool(v.env.raw, v.raw)
	return b, v.env.check(errors.PhaseGet, st, "get_value_bool")
}

type JsSymbol struct{ base }

func (JsSymbol) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueSymbol, sys.StatusNameExpected, "JsSymbol")
}
func (JsSymbol) withBase(b base) NapiValue { return JsSymbol{b} }

// JsExternal is an opaque host value carrying native data. Use
// GetValueExternal to reach the payload.
type JsExternal struct{ base }

func (JsExternal) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueExternal, sys.StatusInvalidArg, "JsExternal")
}
func (JsExternal) withBase(b base) NapiValue { return JsExternal{b} }

// JsObject is any value of host type object.
type JsObject struct{ base }

func (JsObject) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueObject, sys.StatusObjectExpected, "JsObject")
}
func (JsObject) withBase(b base) NapiValue { return JsObject{b} }

func (o JsObject) SetNamedProperty(name string, v NapiValue) error {
	return o.env.check(errors.PhaseCreate, o.env.api.SetNamedProperty(o.env.raw, o.raw, name, v.Raw()), "set_named_property")
}

func (o JsObject) GetNamedProperty(name string) (JsUnknown, error) {
	v, st := o.env.api.GetNamedProperty(o.env.raw, o.raw, name)
	if err := o.env.check(errors.PhaseGet, st, "get_named_property"); err != nil {
		return JsUnknown{}, err
	}
	return o.env.unknown(v), nil
}

func (o JsObject) HasNamedProperty(name string) (bool, error) {
	ok, st := o.env.api.HasNamedProperty(o.env.raw, o.raw, name)
	return ok, o.env.check(errors.PhaseGet, st, "has_named_property")
}

func (o JsObject) DeleteNamedProperty(name string) (bool, error) {
	ok, st := o.env.api.DeleteNamedProperty(o.env.raw, o.raw, name)
	return ok, o.env.check(errors.PhaseGet, st, "delete_named_property")
}

// GetPropertyNames returns the object's own enumerable keys as an array of strings.
func (o JsObject) GetPropertyNames() (JsArray, error) {
	v, st := o.env.api.GetPropertyNames(o.env.raw, o.raw)
	if err := o.env.check(errors.PhaseGet, st, "get_property_names"); err != nil {
		return JsArray{}, err
	}
	return JsArray{JsObject{base{env: o.env, raw: v}}}, nil
}

func (o JsObject) SetElement(index uint32, v NapiValue) error {
	return o.env.check(errors.PhaseCreate, o.env.api.SetElement(o.env.raw, o.raw, index, v.Raw()), "set_element")
}

func (o JsObject) GetElement(index uint32) (JsUnknown, error) {
	v, st := o.env.api.GetElement(o.env.raw, o.raw, index)
	if err := o.env.check(errors.PhaseGet, st, "get_element"); err != nil {
		return JsUnknown{}, err
	}
	return o.env.unknown(v), nil
}

// GetProperty reads a named property and casts it to T.
func GetProperty[T NapiValue](o JsObject, name string) (T, error) {
	v, err := o.GetNamedProperty(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return Cast[T](v)
}

type JsArray struct{ JsObject }

func (JsArray) validate(env Env, raw sys.Value) error {
	return expectKind(env, raw, env.api.IsArray, sys.StatusArrayExpected, "JsArray")
}
func (JsArray) withBase(b base) NapiValue { return JsArray{JsObject{b}} }

func (a JsArray) Len() (uint32, error) {
	n, st := a.env.api.GetArrayLength(a.env.raw, a.raw)
	return n, a.env.check(errors.PhaseGet, st, "get_array_length")
}

type JsDate struct{ JsObject }

func (JsDate) validate(env Env, raw sys.Value) error {
	return expectKind(env, raw, env.api.IsDate, sys.StatusDateExpected, "JsDate")
}
func (JsDate) withBase(b base) NapiValue { return JsDate{JsObject{b}} }

// ValueOf returns the time value in milliseconds since the epoch.
func (d JsDate) ValueOf() (float64, error) {
	ms, st := d.env.api.GetDateValue(d.env.raw, d.raw)
	return ms, d.env.check(errors.PhaseGet, st, "get_date_value")
}

type JsError struct{ JsObject }

func (JsError) validate(env Env, raw sys.Value) error {
	return expectKind(env, raw, env.api.IsError, sys.StatusInvalidArg, "JsError")
}
func (JsError) withBase(b base) NapiValue { return JsError{JsObject{b}} }

// JsPromise is a promise created by the native side.
type JsPromise struct{ JsObject }

func (JsPromise) validate(env Env, raw sys.Value) error {
	return expectKind(env, raw, env.api.IsPromise, sys.StatusInvalidArg, "JsPromise")
}
func (JsPromise) withBase(b base) NapiValue { return JsPromise{JsObject{b}} }
