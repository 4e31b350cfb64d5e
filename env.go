package napi

import (
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// Env is the context of one host invocation. It is a small copyable value
// and must not be kept past the callback it was handed to or used from
// another goroutine. Nothing checks this; a stale Env is a contract
// violation, not a reported error.
type Env struct {
	api sys.API
	raw sys.Env
}

// FromRaw builds an Env from the raw token a host passed to native code.
func FromRaw(api sys.API, raw sys.Env) Env {
	return Env{api: api, raw: raw}
}

// Raw returns the raw env token.
func (e Env) Raw() sys.Env {
	return e.raw
}

// API returns the boundary this Env talks to.
func (e Env) API() sys.API {
	return e.api
}

// check translates a boundary status into a typed error. The host's last
// error message, when it has one for this status, becomes part of the detail.
func (e Env) check(phase errors.Phase, st sys.Status, op string) error {
	if st == sys.StatusOK {
		return nil
	}
	err := errors.FromStatus(phase, st, op)
	if info, s := e.api.GetLastErrorInfo(e.raw); s == sys.StatusOK && info.Status == st && info.Message != "" {
		err.Detail = op + ": " + info.Message
	}
	return err
}

func (e Env) unknown(raw sys.Value) JsUnknown {
	return JsUnknown{base{env: e, raw: raw}}
}

// ValueFromRaw adopts a raw value token obtained directly from the host.
func (e Env) ValueFromRaw(raw sys.Value) JsUnknown {
	return e.unknown(raw)
}

// RunInScope runs fn inside a fresh handle scope. Values created by fn are
// released when it returns unless they are referenced elsewhere.
func (e Env) RunInScope(fn func() error) error {
	hs, st := e.api.OpenHandleScope(e.raw)
	if err := e.check(errors.PhaseCall, st, "open_handle_scope"); err != nil {
		return err
	}
	ferr := fn()
	if err := e.check(errors.PhaseCall, e.api.CloseHandleScope(e.raw, hs), "close_handle_scope"); err != nil && ferr == nil {
		return err
	}
	return ferr
}

func (e Env) GetUndefined() (JsUndefined, error) {
	v, st := e.api.GetUndefined(e.raw)
	if err := e.check(errors.PhaseCreate, st, "get_undefined"); err != nil {
		return JsUndefined{}, err
	}
	return JsUndefined{base{env: e, raw: v}}, nil
}

func (e Env) GetNull() (JsNull, error) {
	v, st := e.api.GetNull(e.raw)
	if err := e.check(errors.PhaseCreate, st, "get_null"); err != nil {
		return JsNull{}, err
	}
	return JsNull{base{env: e, raw: v}}, nil
}

func (e Env) GetBoolean(b bool) (JsBoolean, error) {
	v, st := e.api.GetBoolean(e.raw, b)
	if err := e.check(errors.PhaseCreate, st, "get_boolean"); err != nil {
		return JsBoolean{}, err
	}
	return JsBoolean{base{env: e, raw: v}}, nil
}

func (e Env) GetGlobal() (JsObject, error) {
	v, st := e.api.GetGlobal(e.raw)
	if err := e.check(errors.PhaseCreate, st, "get_global"); err != nil {
		return JsObject{}, err
	}
	return JsObject{base{env: e, raw: v}}, nil
}

// StrictEquals compares two values with the host's === semantics.
func (e Env) StrictEquals(a, b NapiValue) (bool, error) {
	eq, st := e.api.StrictEquals(e.raw, a.Raw(), b.Raw())
	return eq, e.check(errors.PhaseGet, st, "strict_equals")
}

// TypeOf returns the host type of v.
func (e Env) TypeOf(v NapiValue) (sys.ValueType, error) {
	t, st := e.api.TypeOf(e.raw, v.Raw())
	if err := e.check(errors.PhaseGet, st, "typeof"); err != nil {
		return sys.ValueUnknown, err
	}
	return t, nil
}

// GetNapiVersion returns the module API version the host provides.
func (e Env) GetNapiVersion() (uint32, error) {
	v, st := e.api.GetVersion(e.raw)
	return v, e.check(errors.PhaseGet, st, "get_version")
}

// GetVersion returns the host implementation version.
func (e Env) GetVersion() (sys.HostVersion, error) {
	v, st := e.api.GetHostVersion(e.raw)
	return v, e.check(errors.PhaseGet, st, "get_node_version")
}

// GetLastErrorInfo reports the last failed boundary call on this Env.
func (e Env) GetLastErrorInfo() (sys.ExtendedErrorInfo, error) {
	info, st := e.api.GetLastErrorInfo(e.raw)
	if st != sys.StatusOK {
		return info, errors.FromStatus(errors.PhaseGet, st, "get_last_error_info")
	}
	return info, nil
}

// AdjustExternalMemory reports native memory kept alive by host values and
// returns the new total.
func (e Env) AdjustExternalMemory(delta int64) (int64, error) {
	total, st := e.api.AdjustExternalMemory(e.raw, delta)
	return total, e.check(errors.PhaseReference, st, "adjust_external_memory")
}

func (e Env) CreateObject() (JsObject, error) {
	v, st := e.api.CreateObject(e.raw)
	if err := e.check(errors.PhaseCreate, st, "create_object"); err != nil {
		return JsObject{}, err
	}
	return JsObject{base{env: e, raw: v}}, nil
}

func (e Env) CreateArray() (JsArray, error) {
	v, st := e.api.CreateArray(e.raw)
	if err := e.check(errors.PhaseCreate, st, "create_array"); err != nil {
		return JsArray{}, err
	}
	return JsArray{JsObject{base{env: e, raw: v}}}, nil
}

func (e Env) CreateArrayWithLength(n uint32) (JsArray, error) {
	v, st := e.api.CreateArrayWithLength(e.raw, n)
	if err := e.check(errors.PhaseCreate, st, "create_array_with_length"); err != nil {
		return JsArray{}, err
	}
	return JsArray{JsObject{base{env: e, raw: v}}}, nil
}

func (e Env) CreateDate(ms float64) (JsDate, error) {
	v, st := e.api.CreateDate(e.raw, ms)
	if err := e.check(errors.PhaseCreate, st, "create_date"); err != nil {
		return JsDate{}, err
	}
	return JsDate{JsObject{base{env: e, raw: v}}}, nil
}

// CreateSymbol creates a symbol. A nil description creates an anonymous one.
func (e Env) CreateSymbol(description *string) (JsSymbol, error) {
	var desc sys.Value
	if description != nil {
		s, err := e.CreateString(*description)
		if err != nil {
			return JsSymbol{}, err
		}
		desc = s.raw
	}
	v, st := e.api.CreateSymbol(e.raw, desc)
	if err := e.check(errors.PhaseCreate, st, "create_symbol"); err != nil {
		return JsSymbol{}, err
	}
	return JsSymbol{base{env: e, raw: v}}, nil
}

func (e Env) CreateSymbolFromJsString(description JsString) (JsSymbol, error) {
	v, st := e.api.CreateSymbol(e.raw, description.raw)
	if err := e.check(errors.PhaseCreate, st, "create_symbol"); err != nil {
		return JsSymbol{}, err
	}
	return JsSymbol{base{env: e, raw: v}}, nil
}

// IsExceptionPending reports whether a host exception awaits observation.
func (e Env) IsExceptionPending() (bool, error) {
	p, st := e.api.IsExceptionPending(e.raw)
	return p, e.check(errors.PhaseCall, st, "is_exception_pending")
}

// GetAndClearLastException returns the pending exception, or undefined.
func (e Env) GetAndClearLastException() (JsUnknown, error) {
	v, st := e.api.GetAndClearLastException(e.raw)
	if err := e.check(errors.PhaseCall, st, "get_and_clear_last_exception"); err != nil {
		return JsUnknown{}, err
	}
	return e.unknown(v), nil
}

// Throw makes v the pending exception.
func (e Env) Throw(v NapiValue) error {
	return e.check(errors.PhaseCall, e.api.Throw(e.raw, v.Raw()), "throw")
}

func (e Env) ThrowError(msg, code string) error {
	return e.check(errors.PhaseCall, e.api.ThrowError(e.raw, code, msg), "throw_error")
}

func (e Env) ThrowTypeError(msg, code string) error {
	return e.check(errors.PhaseCall, e.api.ThrowTypeError(e.raw, code, msg), "throw_type_error")
}

func (e Env) ThrowRangeError(msg, code string) error {
	return e.check(errors.PhaseCall, e.api.ThrowRangeError(e.raw, code, msg), "throw_range_error")
}

func (e Env) errorArgs(msg, code string) (sys.Value, sys.Value, error) {
	m, err := e.CreateString(msg)
	if err != nil {
		return 0, 0, err
	}
	if code == "" {
		return m.raw, 0, nil
	}
	c, err := e.CreateString(code)
	if err != nil {
		return 0, 0, err
	}
	return m.raw, c.raw, nil
}

// CreateError creates an Error object. An empty code leaves code unset.
func (e Env) CreateError(msg, code string) (JsError, error) {
	m, c, err := e.errorArgs(msg, code)
	if err != nil {
		return JsError{}, err
	}
	v, st := e.api.CreateError(e.raw, c, m)
	if err := e.check(errors.PhaseCreate, st, "create_error"); err != nil {
		return JsError{}, err
	}
	return JsError{JsObject{base{env: e, raw: v}}}, nil
}

func (e Env) CreateTypeError(msg, code string) (JsError, error) {
	m, c, err := e.errorArgs(msg, code)
	if err != nil {
		return JsError{}, err
	}
	v, st := e.api.CreateTypeError(e.raw, c, m)
	if err := e.check(errors.PhaseCreate, st, "create_type_error"); err != nil {
		return JsError{}, err
	}
	return JsError{JsObject{base{env: e, raw: v}}}, nil
}

func (e Env) CreateRangeError(msg, code string) (JsError, error) {
	m, c, err := e.errorArgs(msg, code)
	if err != nil {
		return JsError{}, err
	}
	v, st := e.api.CreateRangeError(e.raw, c, m)
	if err := e.check(errors.PhaseCreate, st, "create_range_error"); err != nil {
		return JsError{}, err
	}
	return JsError{JsObject{base{env: e, raw: v}}}, nil
}

// FatalError asks the host to terminate. It is the caller's decision that
// recovery is impossible; nothing in this package calls it.
func (e Env) FatalError(location, message string) {
	e.api.FatalError(location, message)
}

// FatalException reports err to the host as an uncaught exception.
func (e Env) FatalException(err NapiValue) error {
	return e.check(errors.PhaseCall, e.api.FatalException(e.raw, err.Raw()), "fatal_exception")
}

// errorValue converts a Go error into a host Error object. The code is the
// error's status name when it carries one.
func (e Env) errorValue(err error) (JsError, error) {
	return e.CreateError(err.Error(), errorCode(err))
}

// throwGo makes err the pending exception. An error that reports an
// already-pending exception leaves that exception in place.
func (e Env) throwGo(err error) {
	if errors.Is(err, errors.ErrPendingException) {
		return
	}
	if pending, _ := e.api.IsExceptionPending(e.raw); pending {
		return
	}
	if st := e.api.ThrowError(e.raw, errorCode(err), err.Error()); st != sys.StatusOK {
		Logger().Warn("failed to throw native error", zap.Error(err), zap.Stringer("status", st))
	}
}

func errorCode(err error) string {
	var ee *errors.Error
	if errors.As(err, &ee) {
		return ee.Code()
	}
	return sys.StatusGenericFailure.String()
}
