// Package dispatch implements a minimal named-event dispatcher. It is mostly
// used to decouple CLI concerns from SSH/SFTP handling: the executor emits
// file transfer events and the UI renders them without the two packages
// knowing each other.
package dispatch

// Event carries the named arguments associated with an emitted event.
type Event map[string]interface{}

// Int returns the event field as an int, or 0 when absent or mistyped.
func (e Event) Int(key string) int {
	switch v := e[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// String returns the event field as a string, or "" when absent or mistyped.
func (e Event) String(key string) string {
	if v, ok := e[key].(string); ok {
		return v
	}
	return ""
}

// Listener handles one event occurrence. Returning true lets the event
// propagate to the next listener; returning false stops propagation.
type Listener func(Event) bool

// Dispatcher calls registered listeners in registration order. There is no
// listener priority, no removal and no async dispatch.
type Dispatcher struct {
	listeners map[string][]Listener
}

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string][]Listener),
	}
}

// On registers a listener for a given event name. Registration order matters:
// listeners run in the order they were added.
func (d *Dispatcher) On(eventName string, fn Listener) {
	d.listeners[eventName] = append(d.listeners[eventName], fn)
}

// Emit triggers all the listeners registered for the given event name, in
// registration order, until one of them returns false. Emitting an event
// nobody listens to is a no-op.
func (d *Dispatcher) Emit(eventName string, event Event) {
	for _, fn := range d.listeners[eventName] {
		if !fn(event) {
			return
		}
	}
}
