package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource table closed")

// Table maps handles to values of type T. Each entry carries a caller
// defined tag and a reference count. Freed slots are reused.
type Table[T any] struct {
	entries   []entry[T]
	freeList  []Handle
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	live      int
	closed    bool
}

type entry[T any] struct {
	value T
	tag   uint32
	count uint32
	valid bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		entries:  make([]entry[T], 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Insert stores a value with the given tag and an initial count of zero.
// Returns 0 after Close.
func (t *Table[T]) Insert(tag uint32, value T) Handle {
	h, err := t.insert(tag, value)
	if err != nil {
		return 0
	}
	t.notify(Event{Type: EventCreated, Handle: h, Tag: tag, Value: value})
	return h
}

func (t *Table[T]) insert(tag uint32, value T) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	e := entry[T]{
		value: value,
		tag:   tag,
		valid: true,
	}
	t.live++

	if len(t.freeList) > 0 {
		h := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[h-1] = e
		return h, nil
	}

	t.entries = append(t.entries, e)
	return Handle(len(t.entries)), nil
}

// lookup returns the entry for h. Caller holds t.mu.
func (t *Table[T]) lookup(h Handle) *entry[T] {
	if h == 0 || int(h) > len(t.entries) {
		return nil
	}
	e := &t.entries[h-1]
	if !e.valid {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e := t.lookup(h); e != nil {
		return e.value, true
	}
	var zero T
	return zero, false
}

// GetTagged retrieves a value only if its tag matches.
func (t *Table[T]) GetTagged(h Handle, tag uint32) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e := t.lookup(h); e != nil && e.tag == tag {
		return e.value, true
	}
	var zero T
	return zero, false
}

// Tag returns the tag of an entry.
func (t *Table[T]) Tag(h Handle) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e := t.lookup(h); e != nil {
		return e.tag, true
	}
	return 0, false
}

// Set replaces the value of a live entry, keeping its tag and count.
func (t *Table[T]) Set(h Handle, value T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.lookup(h)
	if e == nil {
		return false
	}
	e.value = value
	return true
}

// Remove frees an entry and returns its value. If the value implements
// Dropper, Drop is called once.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	t.mu.Lock()
	e := t.lookup(h)
	if e == nil {
		t.mu.Unlock()
		var zero T
		return zero, false
	}

	value, tag := e.value, e.tag
	*e = entry[T]{}
	t.freeList = append(t.freeList, h)
	t.live--
	t.mu.Unlock()

	if d, ok := any(value).(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{Type: EventDropped, Handle: h, Tag: tag, Value: value})
	return value, true
}

// Ref increments the count of an entry and returns the new count.
func (t *Table[T]) Ref(h Handle) (uint32, bool) {
	t.mu.Lock()
	e := t.lookup(h)
	if e == nil {
		t.mu.Unlock()
		return 0, false
	}
	e.count++
	ev := Event{Type: EventRef, Handle: h, Tag: e.tag, Count: e.count}
	t.mu.Unlock()

	t.notify(ev)
	return ev.Count, true
}

// Unref decrements the count of an entry and returns the new count.
// It fails when the count is already zero.
func (t *Table[T]) Unref(h Handle) (uint32, bool) {
	t.mu.Lock()
	e := t.lookup(h)
	if e == nil || e.count == 0 {
		t.mu.Unlock()
		return 0, false
	}
	e.count--
	ev := Event{Type: EventUnref, Handle: h, Tag: e.tag, Count: e.count}
	t.mu.Unlock()

	t.notify(ev)
	return ev.Count, true
}

// Count returns the reference count of an entry.
func (t *Table[T]) Count(h Handle) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e := t.lookup(h); e != nil {
		return e.count, true
	}
	return 0, false
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Each iterates over a snapshot of live entries in handle order.
// The table may be modified from fn.
func (t *Table[T]) Each(fn func(Handle, uint32, T) bool) {
	type item struct {
		value T
		h     Handle
		tag   uint32
	}

	t.mu.RLock()
	items := make([]item, 0, t.live)
	for i, e := range t.entries {
		if e.valid {
			items = append(items, item{value: e.value, h: Handle(i + 1), tag: e.tag})
		}
	}
	t.mu.RUnlock()

	for _, it := range items {
		if !fn(it.h, it.tag, it.value) {
			return
		}
	}
}

// Clear removes all entries.
func (t *Table[T]) Clear() {
	var handles []Handle
	t.Each(func(h Handle, _ uint32, _ T) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close removes all entries and stops accepting inserts.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.Clear()
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
