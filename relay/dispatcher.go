package relay

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives every dispatched envelope of the event type it was
// registered under.
type Handler func(Envelope)

type subscription struct {
	id uint64
	fn Handler
}

// Dispatcher fans inbound envelopes out to registered handlers, in
// registration order, synchronously. A handler that panics is logged and
// skipped; delivery to the remaining handlers continues.
type Dispatcher struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscription

	// builtin runs before external fan-out for every envelope, whether or
	// not anyone subscribed to its type. The client hooks presence
	// bookkeeping and the notification side-channel here.
	builtin Handler

	logger zerolog.Logger
}

// NewDispatcher creates an empty dispatcher logging through logger.
func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		subs:   make(map[string][]subscription),
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Subscribe registers fn under eventType and returns an unsubscribe
// capability. Removal is by registration identity, so the same function may
// be registered twice and removed individually. The returned func is safe to
// call more than once and after Clear.
func (d *Dispatcher) Subscribe(eventType string, fn Handler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subs[eventType] = append(d.subs[eventType], subscription{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		list := d.subs[eventType]
		for i, s := range list {
			if s.id == id {
				d.subs[eventType] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(d.subs[eventType]) == 0 {
			delete(d.subs, eventType)
		}
	}
}

// Dispatch delivers env to the built-in handler and then to every handler
// registered for env.Type, in registration order.
func (d *Dispatcher) Dispatch(env Envelope) {
	if d.builtin != nil {
		d.invoke(d.builtin, env)
	}

	d.mu.Lock()
	list := d.subs[env.Type]
	handlers := make([]Handler, len(list))
	for i, s := range list {
		handlers[i] = s.fn
	}
	d.mu.Unlock()

	for _, fn := range handlers {
		d.invoke(fn, env)
	}
}

// Clear drops every registration. Outstanding unsubscribe funcs become no-ops.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.subs = make(map[string][]subscription)
	d.mu.Unlock()
}

func (d *Dispatcher) invoke(fn Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("event_type", env.Type).
				Interface("panic", r).
				Msg("subscriber panicked during dispatch")
		}
	}()
	fn(env)
}
