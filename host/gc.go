package host

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/napi-go/resource"
	"github.com/wippyai/napi-go/sys"
)

// Collect runs a full collection on the loop and waits for it, including
// the finalizers of collected values.
func (h *Host) Collect(ctx context.Context) error {
	return h.loop.call(ctx, func() error {
		h.collect()
		return nil
	})
}

// collect is a stop-the-world mark-sweep over the value table. Roots are
// permanent values, open scopes, strong references, unsettled deferreds,
// live threadsafe functions, active callback frames and the pending
// exception.
func (h *Host) collect() {
	if h.collecting {
		return
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	h.epoch++
	if h.epoch == 0 {
		h.epoch = 1
	}
	epoch := h.epoch

	var stack []sys.Value
	push := func(v sys.Value) {
		if v != 0 {
			stack = append(stack, v)
		}
	}

	h.values.Each(func(hd resource.Handle, _ uint32, o *object) bool {
		if o.permanent {
			push(sys.Value(hd))
		}
		return true
	})
	for _, s := range h.scopes {
		for _, v := range s.handles {
			push(v)
		}
	}
	h.refs.Each(func(hd resource.Handle, _ uint32, r *reference) bool {
		if n, _ := h.refs.Count(hd); n > 0 {
			push(r.value)
		}
		return true
	})
	h.deferreds.Each(func(_ resource.Handle, _ uint32, d *deferred) bool {
		push(d.promise)
		return true
	})
	h.tsfns.Each(func(_ resource.Handle, _ uint32, t *tsfn) bool {
		push(t.fn)
		return true
	})
	h.infos.Each(func(_ resource.Handle, _ uint32, ci *callbackInfo) bool {
		push(ci.this)
		push(ci.newTarget)
		for _, a := range ci.args {
			push(a)
		}
		return true
	})
	push(h.exception)

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		o, ok := h.get(v)
		if !ok || o.mark == epoch {
			continue
		}
		o.mark = epoch
		for _, c := range o.props {
			push(c)
		}
		for _, c := range o.elems {
			push(c)
		}
		push(o.proto)
		if o.promise != nil {
			push(o.promise.result)
		}
	}

	dead := make(map[sys.Value]struct{})
	var fins []*finalizer
	h.values.Each(func(hd resource.Handle, _ uint32, o *object) bool {
		if o.mark == epoch || o.permanent {
			return true
		}
		dead[sys.Value(hd)] = struct{}{}
		h.values.Remove(hd)
		if o.heapOff != 0 {
			h.heap.Free(o.heapOff)
		}
		if o.wrap != nil && o.wrap.fin != nil {
			fins = append(fins, o.wrap.fin)
		}
		if o.fin != nil {
			fins = append(fins, o.fin)
		}
		return true
	})

	h.refs.Each(func(_ resource.Handle, _ uint32, r *reference) bool {
		if _, gone := dead[r.value]; gone {
			r.value = 0
		}
		return true
	})

	h.log.Debug("collection finished",
		zap.Int("collected", len(dead)),
		zap.Int("live", h.values.Len()),
		zap.Int("finalizers", len(fins)),
		zap.Int64("external_memory", h.external.Load()))

	h.runFinalizers(fins)
}

// runFinalizers invokes each finalizer once with the finalizer-mode env.
// An exception pending in the interrupted task is preserved.
func (h *Host) runFinalizers(fins []*finalizer) {
	if len(fins) == 0 {
		return
	}
	saved := h.exception
	h.exception = 0
	for _, f := range fins {
		h.scoped(func() {
			if err := h.protect(func() error {
				f.fn(h.finEnv, f.data, f.hint)
				return nil
			}); err != nil {
				h.log.Error("finalizer failed", zap.Error(err))
				h.throwGoError(err)
			}
		})
		if exc, ok := h.takeException(); ok {
			h.opts.onUncaught(exc)
		}
	}
	h.exception = saved
}

// finalizeAll runs every outstanding value finalizer at teardown.
func (h *Host) finalizeAll() {
	var fins []*finalizer
	h.values.Each(func(_ resource.Handle, _ uint32, o *object) bool {
		if o.wrap != nil && o.wrap.fin != nil {
			fins = append(fins, o.wrap.fin)
			o.wrap = nil
		}
		if o.fin != nil {
			fins = append(fins, o.fin)
			o.fin = nil
		}
		return true
	})
	h.log.Debug("finalizing remaining values", zap.Int("finalizers", len(fins)))
	h.runFinalizers(fins)
}
