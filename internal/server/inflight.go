package server

import "sync"

// MsgBusy rejects a duplicate submission of an action that is still in
// flight for the same user. Distinct actions are not mutually excluded;
// they act on disjoint state.
const MsgBusy = "operation already in progress"

// inflightLatch tracks which per-user actions are currently running so a
// double submit of the same action is refused instead of queued.
type inflightLatch struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newInflightLatch() *inflightLatch {
	return &inflightLatch{held: make(map[string]struct{})}
}

func (l *inflightLatch) tryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false
	}
	l.held[key] = struct{}{}
	return true
}

func (l *inflightLatch) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}
