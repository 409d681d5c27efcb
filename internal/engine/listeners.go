package engine

// Source says where a change came from.
type Source string

const (
	SourceLocal   Source = "local"
	SourceRemote  Source = "remote"
	SourceLoad    Source = "load"
	SourceDisplay Source = "display"
	SourceUpdate  Source = "update"
	SourceFamily  Source = "family"
)

// Change is delivered to listeners after the engine state moved.
type Change struct {
	Source   Source `json:"source"`
	Revision uint64 `json:"revision"`
}

// Listener observes changes. It runs outside the engine lock and may call
// back into the engine.
type Listener func(Change)

// Subscribe registers l and returns a func that unregisters it.
func (e *Engine) Subscribe(l Listener) func() {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = l
	return func() {
		e.listenersMu.Lock()
		defer e.listenersMu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *Engine) notify(change Change) {
	e.listenersMu.Lock()
	ls := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		ls = append(ls, l)
	}
	e.listenersMu.Unlock()
	for _, l := range ls {
		l(change)
	}
}
