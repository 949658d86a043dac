package session

import "sync"

// Locks serializes dialogue turns per participant. Concurrent transport
// dispatches for the same chat (double-taps, webhook retries) would
// otherwise interleave their read-modify-write sequences against the
// store and lose updates.
type Locks struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[int64]*lockEntry)}
}

// Acquire blocks until the participant's lock is held and returns the
// release function.
func (l *Locks) Acquire(customerID int64) func() {
	l.mu.Lock()
	e, ok := l.locks[customerID]
	if !ok {
		e = &lockEntry{}
		l.locks[customerID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, customerID)
		}
		l.mu.Unlock()
	}
}
