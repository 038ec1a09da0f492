package event

import (
	"reflect"
	"sync"
)

type envelope struct {
	key   reflect.Type
	value any
}

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers() is called at tick start. Events are kept in one
// emission-ordered buffer and handlers run in subscription order, so dispatch
// order never depends on map iteration.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []envelope
	back     []envelope
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]envelope, 0, 16),
		back:     make([]envelope, 0, 16),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the back buffer (will be readable next tick).
func Emit[T any](b *Bus, event T) {
	b.back = append(b.back, envelope{key: keyOf[T](), value: event})
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := keyOf[T]()
	b.handlers[t] = append(b.handlers[t], func(v any) { fn(v.(T)) })
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	clear(b.back)
	b.back = b.back[:0]
}

// DispatchAll delivers all front-buffer events to their subscribed handlers
// in emission order.
func (b *Bus) DispatchAll() {
	b.mu.Lock()
	handlers := make(map[reflect.Type][]func(any), len(b.handlers))
	for k, v := range b.handlers {
		handlers[k] = v
	}
	b.mu.Unlock()

	for _, ev := range b.front {
		for _, h := range handlers[ev.key] {
			h(ev.value)
		}
	}
}

// Front returns the events made readable by the last SwapBuffers, in
// emission order.
func (b *Bus) Front() []any {
	out := make([]any, len(b.front))
	for i, ev := range b.front {
		out[i] = ev.value
	}
	return out
}

// Pending returns the number of events waiting for the next swap.
func (b *Bus) Pending() int { return len(b.back) }

// Back returns the events waiting for the next swap, in emission order.
func (b *Bus) Back() []any {
	out := make([]any, len(b.back))
	for i, ev := range b.back {
		out[i] = ev.value
	}
	return out
}

// Reset drops every queued event. Handlers stay registered.
func (b *Bus) Reset() {
	clear(b.front)
	clear(b.back)
	b.front = b.front[:0]
	b.back = b.back[:0]
}
