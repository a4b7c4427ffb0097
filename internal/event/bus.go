package event

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ErrBusClosed is returned by Emit after Close.
var ErrBusClosed = errors.New("event bus closed")

// Emitter publishes one payload under a named event.
//
// Implementations must be safe for concurrent use: every process has two
// forwarders emitting independently.
type Emitter interface {
	Emit(name, payload string) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(name, payload string) error

// Emit implements Emitter.
func (f EmitterFunc) Emit(name, payload string) error {
	return f(name, payload)
}

// Discard is an Emitter that drops every event.
var Discard Emitter = EmitterFunc(func(string, string) error { return nil })

// Compile-time verification that Bus implements Emitter.
var _ Emitter = (*Bus)(nil)

// Bus is an in-process Emitter with named and wildcard listeners.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	named  map[string]map[uint64]func(payload string)
	all    map[uint64]func(name, payload string)
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		named: make(map[string]map[uint64]func(string)),
		all:   make(map[uint64]func(string, string)),
	}
}

// Listen registers fn for events named name. The returned function removes the
// listener and is safe to call more than once.
func (b *Bus) Listen(name string, fn func(payload string)) (unlisten func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	if b.named[name] == nil {
		b.named[name] = make(map[uint64]func(string))
	}

	b.named[name][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.named[name], id)

		if len(b.named[name]) == 0 {
			delete(b.named, name)
		}
	}
}

// ListenAll registers fn for every event.
func (b *Bus) ListenAll(fn func(name, payload string)) (unlisten func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.all, id)
	}
}

// Emit delivers payload to the listeners of name, then to wildcard listeners,
// on the caller's goroutine. Events with no listeners are dropped silently.
//
// A panicking listener does not stop delivery to the others; the panic is
// reported as the returned error.
func (b *Bus) Emit(name, payload string) error {
	b.mu.RLock()

	if b.closed {
		b.mu.RUnlock()

		return ErrBusClosed
	}

	named := inOrder(b.named[name])
	all := inOrder(b.all)
	b.mu.RUnlock()

	var errs []error

	for _, fn := range named {
		if err := deliver(func() { fn(payload) }); err != nil {
			errs = append(errs, err)
		}
	}

	for _, fn := range all {
		if err := deliver(func() { fn(name, payload) }); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// inOrder returns the listeners in registration order.
func inOrder[F any](listeners map[uint64]F) []F {
	if len(listeners) == 0 {
		return nil
	}

	fns := make([]F, 0, len(listeners))
	for _, id := range slices.Sorted(maps.Keys(listeners)) {
		fns = append(fns, listeners[id])
	}

	return fns
}

// Close makes subsequent Emit calls fail with ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
}

func deliver(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event listener panicked: %v", r)
		}
	}()

	fn()

	return nil
}
