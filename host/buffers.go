package host

import (
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

// heapBuffer allocates n zeroed bytes in the linear heap. An allocation
// failure triggers one collection before giving up.
func (h *Host) heapBuffer(e *envState, k kind, n int) (sys.Value, []byte, sys.Status) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, nil, sys.StatusInvalidArg
	}
	if e.finalizing {
		return 0, nil, sys.StatusGenericFailure
	}
	o := &object{kind: k, buf: []byte{}}
	if n > 0 {
		off, err := h.heap.Alloc(uint32(n))
		if err != nil && !h.collecting {
			h.collect()
			off, err = h.heap.Alloc(uint32(n))
		}
		if err != nil {
			h.log.Warn("buffer allocation failed", zap.Int("size", n), zap.Error(err))
			return 0, nil, sys.StatusGenericFailure
		}
		view, err := h.heap.Read(off, uint32(n))
		if err != nil {
			h.heap.Free(off)
			return 0, nil, sys.StatusGenericFailure
		}
		clear(view)
		o.buf = view
		o.heapOff = off
	}
	v, st := h.alloc(e, o)
	if st != sys.StatusOK {
		if o.heapOff != 0 {
			h.heap.Free(o.heapOff)
		}
		return 0, nil, st
	}
	return v, o.buf, sys.StatusOK
}

func (h *Host) CreateBuffer(env sys.Env, length int) (sys.Value, []byte, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, nil, st
	}
	v, buf, st := h.heapBuffer(e, kindBuffer, length)
	return v, buf, e.status(st)
}

func (h *Host) CreateBufferCopy(env sys.Env, data []byte) (sys.Value, []byte, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, nil, st
	}
	v, buf, st := h.heapBuffer(e, kindBuffer, len(data))
	if st != sys.StatusOK {
		return 0, nil, e.status(st)
	}
	copy(buf, data)
	return v, buf, sys.StatusOK
}

func (h *Host) CreateArrayBuffer(env sys.Env, length int) (sys.Value, []byte, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, nil, st
	}
	v, buf, st := h.heapBuffer(e, kindArrayBuffer, length)
	return v, buf, e.status(st)
}

// externalBuffer exposes native memory without copying. fin runs once with
// the original slice when the value is collected.
func (h *Host) externalBuffer(env sys.Env, k kind, data []byte, fin sys.Finalize, hint any) (sys.Value, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return 0, st
	}
	if data == nil {
		data = []byte{}
	}
	o := &object{kind: k, buf: data}
	if fin != nil {
		o.fin = &finalizer{fn: fin, data: data, hint: hint}
	}
	v, st := h.alloc(e, o)
	return v, e.status(st)
}

func (h *Host) CreateExternalBuffer(env sys.Env, data []byte, fin sys.Finalize, hint any) (sys.Value, sys.Status) {
	return h.externalBuffer(env, kindBuffer, data, fin, hint)
}

func (h *Host) CreateExternalArrayBuffer(env sys.Env, data []byte, fin sys.Finalize, hint any) (sys.Value, sys.Status) {
	return h.externalBuffer(env, kindArrayBuffer, data, fin, hint)
}

func (h *Host) bufferInfo(env sys.Env, v sys.Value, k kind, mismatch sys.Status) ([]byte, sys.Status) {
	e, st := h.enter(env)
	if st != sys.StatusOK {
		return nil, st
	}
	o, ok := h.get(v)
	if !ok {
		return nil, e.status(sys.StatusInvalidArg)
	}
	if o.kind != k {
		return nil, e.status(mismatch)
	}
	return o.buf, sys.StatusOK
}

func (h *Host) GetBufferInfo(env sys.Env, v sys.Value) ([]byte, sys.Status) {
	return h.bufferInfo(env, v, kindBuffer, sys.StatusInvalidArg)
}

func (h *Host) GetArrayBufferInfo(env sys.Env, v sys.Value) ([]byte, sys.Status) {
	return h.bufferInfo(env, v, kindArrayBuffer, sys.StatusArrayBufferExpected)
}

func (h *Host) IsBuffer(env sys.Env, v sys.Value) (bool, sys.Status) {
	return h.isKind(env, v, kindBuffer)
}

func (h *Host) IsArrayBuffer(env sys.Env, v sys.Value) (bool, sys.Status) {
	return h.isKind(env, v, kindArrayBuffer)
}

// AdjustExternalMemory is safe to call from any goroutine and from
// finalizers.
func (h *Host) AdjustExternalMemory(env sys.Env, delta int64) (int64, sys.Status) {
	if _, ok := h.envs.Get(resource.Handle(env)); !ok {
		return 0, sys.StatusInvalidArg
	}
	return h.external.Add(delta), sys.StatusOK
}
