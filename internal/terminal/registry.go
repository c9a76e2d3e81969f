package terminal

import (
	"sync"
)

// Registry tracks the terminals of a process. At most one terminal is
// active; activating a new one disposes the previous.
//
// A Registry is an ordinary value owned by whoever serves sessions and is
// passed to them explicitly.
type Registry struct {
	mu        sync.Mutex
	terminals map[string]*PseudoTerminal
	active    *PseudoTerminal
	closed    bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		terminals: make(map[string]*PseudoTerminal),
	}
}

// Create builds a terminal over surface, tracks it and makes it the active
// terminal. The previously active terminal is disposed first so two
// terminals never compete for keystrokes.
func (r *Registry) Create(surface Surface, opts Options) (*PseudoTerminal, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	previous := r.active
	r.active = nil
	r.mu.Unlock()

	if previous != nil {
		previous.Dispose()
	}

	t := New(surface, opts)
	t.registry = r

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		t.registry = nil
		t.Dispose()
		return nil, ErrRegistryClosed
	}
	r.terminals[t.id] = t
	r.active = t
	return t, nil
}

// Active returns the active terminal, if any.
func (r *Registry) Active() (*PseudoTerminal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != nil
}

// Get returns a terminal by ID.
func (r *Registry) Get(id string) (*PseudoTerminal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.terminals[id]
	return t, ok
}

// List returns all tracked terminals.
func (r *Registry) List() []*PseudoTerminal {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*PseudoTerminal, 0, len(r.terminals))
	for _, t := range r.terminals {
		result = append(result, t)
	}
	return result
}

// Count returns the number of tracked terminals.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.terminals)
}

// Dispose disposes the terminal with the given ID.
func (r *Registry) Dispose(id string) error {
	t, ok := r.Get(id)
	if !ok {
		return ErrTerminalNotFound
	}
	return t.Dispose()
}

// DisposeAll disposes every terminal and refuses new ones.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	for _, t := range r.List() {
		t.Dispose()
	}
}

func (r *Registry) remove(t *PseudoTerminal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.terminals, t.id)
	if r.active == t {
		r.active = nil
	}
}
