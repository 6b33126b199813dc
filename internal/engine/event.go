package engine

import "sync"

// ListenerID identifies a registered callback so it can be removed later.
type ListenerID uint64

type listener[T any] struct {
	id ListenerID
	fn func(T)
}

// EventWithArg is a multi-cast event carrying one argument.
// Listeners run synchronously, in registration order, on the invoking goroutine.
type EventWithArg[T any] struct {
	mu        sync.RWMutex
	next      ListenerID
	listeners []listener[T]
}

// AddListener registers callback and returns its ID. A nil callback is ignored and yields 0.
func (e *EventWithArg[T]) AddListener(callback func(T)) ListenerID {
	if callback == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.listeners = append(e.listeners, listener[T]{id: e.next, fn: callback})
	return e.next
}

// RemoveListener unregisters the callback with the given ID.
func (e *EventWithArg[T]) RemoveListener(id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (e *EventWithArg[T]) RemoveAllListeners() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()
}

// Invoke calls every listener with arg. Listeners may add or remove
// listeners; changes take effect on the next Invoke.
func (e *EventWithArg[T]) Invoke(arg T) {
	e.mu.RLock()
	snapshot := make([]listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.RUnlock()

	for _, l := range snapshot {
		l.fn(arg)
	}
}

func (e *EventWithArg[T]) GetListenerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
