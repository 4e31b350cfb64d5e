package napi

import (
	"go.uber.org/zap"

	"github.com/wippyai/napi-go/errors"
	"github.com/wippyai/napi-go/sys"
)

// JsBuffer is a host Buffer.
type JsBuffer struct{ JsObject }

func (JsBuffer) validate(env Env, raw sys.Value) error {
	return expectKind(env, raw, env.api.IsBuffer, sys.StatusInvalidArg, "JsBuffer")
}
func (JsBuffer) withBase(b base) NapiValue { return JsBuffer{JsObject{b}} }

// Data returns a view of the buffer's bytes. For host-allocated buffers the
// view aliases host memory; for transferred and borrowed buffers it is the
// native slice itself.
func (b JsBuffer) Data() ([]byte, error) {
	data, st := b.env.api.GetBufferInfo(b.env.raw, b.raw)
	return data, b.env.check(errors.PhaseGet, st, "get_buffer_info")
}

// JsArrayBuffer is a host ArrayBuffer.
type JsArrayBuffer struct{ JsObject }

func (JsArrayBuffer) validate(env Env, raw sys.Value) error {
	return expectKind(env, raw, env.api.IsArrayBuffer, sys.StatusArrayBufferExpected, "JsArrayBuffer")
}
func (JsArrayBuffer) withBase(b base) NapiValue { return JsArrayBuffer{JsObject{b}} }

func (b JsArrayBuffer) Data() ([]byte, error) {
	data, st := b.env.api.GetArrayBufferInfo(b.env.raw, b.raw)
	return data, b.env.check(errors.PhaseGet, st, "get_arraybuffer_info")
}

// bufferHint travels with a transferred slice so the finalizer can rebuild
// the original slice header and reverse exactly the accounting it added.
type bufferHint struct {
	release  func([]byte)
	length   int
	capacity int
	account  bool
}

func finalizeBuffer(api sys.API) sys.Finalize {
	return func(raw sys.Env, data, hint any) {
		h, ok := hint.(*bufferHint)
		if !ok {
			Logger().Error("buffer finalizer received foreign hint")
			return
		}
		b, _ := data.([]byte)
		if cap(b) >= h.capacity && h.length <= h.capacity {
			b = b[:h.length:h.capacity]
		}
		if h.account {
			if _, st := api.AdjustExternalMemory(raw, -int64(h.capacity)); st != sys.StatusOK {
				Logger().Warn("external memory adjustment failed", zap.Int("size", h.capacity), zap.Stringer("status", st))
			}
		}
		if h.release != nil {
			h.release(b)
		}
	}
}

// CreateBuffer allocates n zeroed bytes in host memory and returns the
// buffer with a mutable view of it.
func (e Env) CreateBuffer(n int) (JsBuffer, []byte, error) {
	raw, view, st := e.api.CreateBuffer(e.raw, n)
	if err := e.check(errors.PhaseCreate, st, "create_buffer"); err != nil {
		return JsBuffer{}, nil, err
	}
	return JsBuffer{JsObject{base{env: e, raw: raw}}}, view, nil
}

// CreateBufferCopy copies data into host memory. data is not retained.
func (e Env) CreateBufferCopy(data []byte) (JsBuffer, []byte, error) {
	raw, view, st := e.api.CreateBufferCopy(e.raw, data)
	if err := e.check(errors.PhaseCreate, st, "create_buffer_copy"); err != nil {
		return JsBuffer{}, nil, err
	}
	return JsBuffer{JsObject{base{env: e, raw: raw}}}, view, nil
}

// CreateBufferWithData transfers data to the host without copying. Its
// capacity is reported as external memory until the buffer is finalized.
// The caller must not touch data afterwards.
func (e Env) CreateBufferWithData(data []byte) (JsBuffer, error) {
	raw, err := e.transfer(data, nil, true, e.api.CreateExternalBuffer, "create_external_buffer")
	if err != nil {
		return JsBuffer{}, err
	}
	return JsBuffer{JsObject{base{env: e, raw: raw}}}, nil
}

// CreateBufferWithBorrowedData exposes memory native code keeps owning. No
// accounting is done; release, when set, runs once with the original slice
// when the host lets go of it.
func (e Env) CreateBufferWithBorrowedData(data []byte, release func([]byte)) (JsBuffer, error) {
	raw, err := e.transfer(data, release, false, e.api.CreateExternalBuffer, "create_external_buffer")
	if err != nil {
		return JsBuffer{}, err
	}
	return JsBuffer{JsObject{base{env: e, raw: raw}}}, nil
}

func (e Env) CreateArrayBuffer(n int) (JsArrayBuffer, []byte, error) {
	raw, view, st := e.api.CreateArrayBuffer(e.raw, n)
	if err := e.check(errors.PhaseCreate, st, "create_arraybuffer"); err != nil {
		return JsArrayBuffer{}, nil, err
	}
	return JsArrayBuffer{JsObject{base{env: e, raw: raw}}}, view, nil
}

// CreateArrayBufferWithData is CreateBufferWithData for an ArrayBuffer.
func (e Env) CreateArrayBufferWithData(data []byte) (JsArrayBuffer, error) {
	raw, err := e.transfer(data, nil, true, e.api.CreateExternalArrayBuffer, "create_external_arraybuffer")
	if err != nil {
		return JsArrayBuffer{}, err
	}
	return JsArrayBuffer{JsObject{base{env: e, raw: raw}}}, nil
}

type externalCreate func(env sys.Env, data []byte, fin sys.Finalize, hint any) (sys.Value, sys.Status)

func (e Env) transfer(data []byte, release func([]byte), account bool, create externalCreate, op string) (sys.Value, error) {
	h := &bufferHint{release: release, length: len(data), capacity: cap(data), account: account}
	raw, st := create(e.raw, data, finalizeBuffer(e.api), h)
	if err := e.check(errors.PhaseCreate, st, op); err != nil {
		return 0, err
	}
	if account && h.capacity > 0 {
		if _, err := e.AdjustExternalMemory(int64(h.capacity)); err != nil {
			h.account = false
			return 0, err
		}
	}
	return raw, nil
}
