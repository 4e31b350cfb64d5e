package host

import "github.com/wippyai/napi-go/resource"

// ExternalMemory returns the current external-memory accounting total.
func (h *Host) ExternalMemory() int64 {
	return h.external.Load()
}

// LiveValues returns the number of values in the value space, including
// permanent ones.
func (h *Host) LiveValues() int {
	return h.values.Len()
}

// HeapInUse returns the number of linear heap bytes held by live buffers.
func (h *Host) HeapInUse() uint32 {
	return h.heap.InUse()
}

// LiveReferences returns the number of undeleted references.
func (h *Host) LiveReferences() int {
	return h.refs.Len()
}

// LiveAsyncWork returns the number of async work items not yet deleted.
func (h *Host) LiveAsyncWork() int {
	return h.asyncs.Len()
}

// LiveThreadsafeFunctions returns the number of threadsafe functions not
// yet finalized.
func (h *Host) LiveThreadsafeFunctions() int {
	n := 0
	h.tsfns.Each(func(_ resource.Handle, _ uint32, t *tsfn) bool {
		t.mu.Lock()
		if !t.finalized {
			n++
		}
		t.mu.Unlock()
		return true
	})
	return n
}

// Config returns the host configuration.
func (h *Host) Config() Config {
	return h.cfg
}
