package session

import "sync"

// registry enforces the one-active-session-per-channel invariant with a data
// structure instead of a bare shared field: at most one lease exists at a
// time, and the server-assigned session id is bound to it once known.
type registry struct {
	mu        sync.Mutex
	active    bool
	sessionID string
}

// lease represents exclusive ownership of the registry slot for the duration
// of one session.
type lease struct {
	r    *registry
	once sync.Once
}

// acquire claims the slot. If a session is already in flight it returns an
// *InProgressError citing the in-progress session id.
func (r *registry) acquire() (*lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return nil, &InProgressError{SessionID: r.sessionID}
	}
	r.active = true
	r.sessionID = ""
	return &lease{r: r}, nil
}

// bind records the server-assigned session id on the active lease so that
// concurrent session attempts can cite it.
func (l *lease) bind(id string) {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	l.r.sessionID = id
}

// release frees the slot. It always runs on terminal outcomes, success and
// failure alike, so a subsequent session can start cleanly. Releasing more
// than once is a no-op.
func (l *lease) release() {
	l.once.Do(func() {
		l.r.mu.Lock()
		defer l.r.mu.Unlock()
		l.r.active = false
		l.r.sessionID = ""
	})
}

// current returns the bound session id and whether a session is in flight.
func (r *registry) current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID, r.active
}
