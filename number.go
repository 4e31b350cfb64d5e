package napi

import (
	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// JsNumber is a host double. Integer readers follow the host's conversion
// rules: non-finite values read as 0 and out-of-range values wrap (32-bit)
// or saturate (64-bit).
type JsNumber struct{ base }

func (JsNumber) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueNumber, sys.StatusNumberExpected, "JsNumber")
}
func (JsNumber) withBase(b base) NapiValue { return JsNumber{b} }

func (n JsNumber) Int32() (int32, error) {
	v, st := n.env.api.GetValueInt32(n.env.raw, n.raw)
	return v, n.env.check(errors.PhaseGet, st, "get_value_int32")
}

func (n JsNumber) Uint32() (uint32, error) {
	v, st := n.env.api.GetValueUint32(n.env.raw, n.raw)
	return v, n.env.check(errors.PhaseGet, st, "get_value_uint32")
}

func (n JsNumber) Int64() (int64, error) {
	v, st := n.env.api.GetValueInt64(n.env.raw, n.raw)
	return v, n.env.check(errors.PhaseGet, st, "get_value_int64")
}

func (n JsNumber) Double() (float64, error) {
	v, st := n.env.api.GetValueDouble(n.env.raw, n.raw)
	return v, n.env.check(errors.PhaseGet, st, "get_value_double")
}

func (e Env) CreateInt32(v int32) (JsNumber, error) {
	raw, st := e.api.CreateInt32(e.raw, v)
	if err := e.check(errors.PhaseCreate, st, "create_int32"); err != nil {
		return JsNumber{}, err
	}
	return JsNumber{base{env: e, raw: raw}}, nil
}

func (e Env) CreateUint32(v uint32) (JsNumber, error) {
	raw, st := e.api.CreateUint32(e.raw, v)
	if err := e.check(errors.PhaseCreate, st, "create_uint32"); err != nil {
		return JsNumber{}, err
	}
	return JsNumber{base{env: e, raw: raw}}, nil
}

// CreateInt64 is exact for |v| <= 2^53. Wider values lose precision; use
// CreateBigintFromInt64 to carry them exactly.
func (e Env) CreateInt64(v int64) (JsNumber, error) {
	raw, st := e.api.CreateInt64(e.raw, v)
	if err := e.check(errors.PhaseCreate, st, "create_int64"); err != nil {
		return JsNumber{}, err
	}
	return JsNumber{base{env: e, raw: raw}}, nil
}

func (e Env) CreateDouble(v float64) (JsNumber, error) {
	raw, st := e.api.CreateDouble(e.raw, v)
	if err := e.check(errors.PhaseCreate, st, "create_double"); err != nil {
		return JsNumber{}, err
	}
	return JsNumber{base{env: e, raw: raw}}, nil
}
