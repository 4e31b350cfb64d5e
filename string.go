package napi

import (
	"unsafe"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// JsString is a host string, stored by the host as UTF-16 code units.
type JsString struct{ base }

func (JsString) validate(env Env, raw sys.Value) error {
	return expectType(env, raw, sys.ValueString, sys.StatusStringExpected, "JsString")
}
func (JsString) withBase(b base) NapiValue { return JsString{b} }

// UTF8 returns the string as UTF-8. Lone surrogates become U+FFFD.
func (s JsString) UTF8() (string, error) {
	b, st := s.env.api.GetValueStringUTF8(s.env.raw, s.raw)
	if err := s.env.check(errors.PhaseGet, st, "get_value_string_utf8"); err != nil {
		return "", err
	}
	return string(b), nil
}

// UTF16 returns the code units unchanged.
func (s JsString) UTF16() ([]uint16, error) {
	u, st := s.env.api.GetValueStringUTF16(s.env.raw, s.raw)
	return u, s.env.check(errors.PhaseGet, st, "get_value_string_utf16")
}

// Latin1 returns the low byte of every code unit.
func (s JsString) Latin1() ([]byte, error) {
	b, st := s.env.api.GetValueStringLatin1(s.env.raw, s.raw)
	return b, s.env.check(errors.PhaseGet, st, "get_value_string_latin1")
}

func (e Env) CreateString(s string) (JsString, error) {
	return e.CreateStringFromBytes([]byte(s))
}

// CreateStringFromBytes creates a string from UTF-8 bytes. Invalid
// sequences become U+FFFD.
func (e Env) CreateStringFromBytes(b []byte) (JsString, error) {
	raw, st := e.api.CreateStringUTF8(e.raw, b)
	if err := e.check(errors.PhaseCreate, st, "create_string_utf8"); err != nil {
		return JsString{}, err
	}
	return JsString{base{env: e, raw: raw}}, nil
}

// CreateStringFromInt8 accepts the signed-char buffers C APIs produce.
func (e Env) CreateStringFromInt8(b []int8) (JsString, error) {
	if len(b) == 0 {
		return e.CreateStringFromBytes(nil)
	}
	return e.CreateStringFromBytes(unsafe.Slice((*byte)(unsafe.Pointer(&b[0])), len(b)))
}

func (e Env) CreateStringUTF16(u []uint16) (JsString, error) {
	raw, st := e.api.CreateStringUTF16(e.raw, u)
	if err := e.check(errors.PhaseCreate, st, "create_string_utf16"); err != nil {
		return JsString{}, err
	}
	return JsString{base{env: e, raw: raw}}, nil
}

func (e Env) CreateStringLatin1(b []byte) (JsString, error) {
	raw, st := e.api.CreateStringLatin1(e.raw, b)
	if err := e.check(errors.PhaseCreate, st, "create_string_latin1"); err != nil {
		return JsString{}, err
	}
	return JsString{base{env: e, raw: raw}}, nil
}
