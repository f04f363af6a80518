package player

import "sync"

// emitter is a small listener registry keyed by event.
type emitter struct {
	mu        sync.Mutex
	nextID    int
	listeners map[Event]map[int]Handler
}

func (e *emitter) add(ev Event, h Handler) (remove func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[Event]map[int]Handler)
	}
	if e.listeners[ev] == nil {
		e.listeners[ev] = make(map[int]Handler)
	}
	id := e.nextID
	e.nextID++
	e.listeners[ev][id] = h
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners[ev], id)
	}
}

func (e *emitter) emit(ev Event, u Update) {
	e.mu.Lock()
	handlers := make([]Handler, 0, len(e.listeners[ev]))
	for _, h := range e.listeners[ev] {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(u)
	}
}
