package host

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

const (
	pageSize  = 65536
	heapAlign = 8
)

// Memory is linear memory addressed by 32-bit offsets.
type Memory interface {
	Read(offset, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	Size() uint32
}

// Allocator hands out regions of a Memory. Offset 0 is never returned.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
	Free(offset uint32)
}

// Heap is a fixed-size linear memory owned by a wazero runtime, with a
// first-fit allocator on top. The memory never grows, so slices returned
// by Read alias it for the lifetime of the heap.
type Heap struct {
	runtime wazero.Runtime
	mem     api.Memory
	free    []span
	used    map[uint32]uint32
	mu      sync.Mutex
	inUse   uint32
}

type span struct {
	off  uint32
	size uint32
}

var (
	_ Memory    = (*Heap)(nil)
	_ Allocator = (*Heap)(nil)
)

// NewHeap instantiates a single-memory module with min == max == pages.
func NewHeap(ctx context.Context, pages uint32) (*Heap, error) {
	cfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(pages)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	mod, err := rt.InstantiateWithConfig(ctx, memoryModule(pages), wazero.NewModuleConfig().WithName("heap"))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate heap: %w", err)
	}

	mem := mod.ExportedMemory("memory")
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("heap module has no memory export")
	}

	size := mem.Size()
	return &Heap{
		runtime: rt,
		mem:     mem,
		free:    []span{{off: heapAlign, size: size - heapAlign}},
		used:    make(map[uint32]uint32),
	}, nil
}

// memoryModule encodes a module that declares and exports one memory.
func memoryModule(pages uint32) []byte {
	limits := []byte{0x01}
	limits = appendULEB(limits, pages)
	limits = appendULEB(limits, pages)

	memSec := append([]byte{0x01}, limits...)

	name := "memory"
	expSec := []byte{0x01}
	expSec = appendULEB(expSec, uint32(len(name)))
	expSec = append(expSec, name...)
	expSec = append(expSec, 0x02, 0x00)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, 0x05)
	out = appendULEB(out, uint32(len(memSec)))
	out = append(out, memSec...)
	out = append(out, 0x07)
	out = appendULEB(out, uint32(len(expSec)))
	out = append(out, expSec...)
	return out
}

func appendULEB(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

// Alloc reserves size bytes aligned to 8. Zero-size requests are rejected;
// callers represent empty buffers without touching the heap.
func (hp *Heap) Alloc(size uint32) (uint32, error) {
	if size == 0 {
		return 0, fmt.Errorf("zero-size allocation")
	}
	n := (size + heapAlign - 1) &^ (heapAlign - 1)
	if n < size {
		return 0, fmt.Errorf("allocation of %d bytes overflows", size)
	}

	hp.mu.Lock()
	defer hp.mu.Unlock()

	for i := range hp.free {
		s := &hp.free[i]
		if s.size < n {
			continue
		}
		off := s.off
		if s.size == n {
			hp.free = append(hp.free[:i], hp.free[i+1:]...)
		} else {
			s.off += n
			s.size -= n
		}
		hp.used[off] = n
		hp.inUse += n
		return off, nil
	}
	return 0, fmt.Errorf("heap exhausted: %d bytes requested, %d in use", size, hp.inUse)
}

// Free releases a region returned by Alloc. Unknown offsets are ignored.
func (hp *Heap) Free(offset uint32) {
	hp.mu.Lock()
	defer hp.mu.Unlock()

	n, ok := hp.used[offset]
	if !ok {
		return
	}
	delete(hp.used, offset)
	hp.inUse -= n

	i := sort.Search(len(hp.free), func(i int) bool { return hp.free[i].off > offset })
	hp.free = append(hp.free, span{})
	copy(hp.free[i+1:], hp.free[i:])
	hp.free[i] = span{off: offset, size: n}

	// merge with successor, then predecessor
	if i+1 < len(hp.free) && hp.free[i].off+hp.free[i].size == hp.free[i+1].off {
		hp.free[i].size += hp.free[i+1].size
		hp.free = append(hp.free[:i+1], hp.free[i+2:]...)
	}
	if i > 0 && hp.free[i-1].off+hp.free[i-1].size == hp.free[i].off {
		hp.free[i-1].size += hp.free[i].size
		hp.free = append(hp.free[:i], hp.free[i+1:]...)
	}
}

// Read returns a view of length bytes at offset.
func (hp *Heap) Read(offset, length uint32) ([]byte, error) {
	data, ok := hp.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

// Write copies data to offset.
func (hp *Heap) Write(offset uint32, data []byte) error {
	if !hp.mem.Write(offset, data) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

// Size returns the memory size in bytes.
func (hp *Heap) Size() uint32 {
	return hp.mem.Size()
}

// InUse returns the number of allocated bytes, including alignment padding.
func (hp *Heap) InUse() uint32 {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	return hp.inUse
}

// Close releases the wazero runtime. Views obtained from Read become invalid.
func (hp *Heap) Close(ctx context.Context) error {
	return hp.runtime.Close(ctx)
}
