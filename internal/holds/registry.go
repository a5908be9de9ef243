package holds

import (
	"fmt"
	"sync"
	"time"
)

// Registry is the process-local table of armed hold-expiry timers, keyed
// "<purpose>-<userId>". It is the fast path only: the persisted
// hold_expires_at column plus the periodic sweep reconcile anything the
// registry loses on restart.
type Registry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New() *Registry {
	return &Registry{timers: make(map[string]*time.Timer)}
}

// Key builds the registry key for a purpose and user.
func Key(purpose string, userID int64) string {
	return fmt.Sprintf("%s-%d", purpose, userID)
}

// Acquire claims the key without arming a timer. The entry blocks other
// acquirers until Arm attaches the timer or Cancel releases the key, so
// a caller can hold the key across its validation steps. Reports whether
// the key was free.
func (r *Registry) Acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timers[key]; ok {
		return false
	}
	r.timers[key] = nil
	return true
}

// Arm schedules onExpire to run after delay. An existing timer under the
// same key is cancelled first (last-writer-wins); a bare Acquire entry is
// replaced. The entry is removed before onExpire runs, so the callback
// fires exactly once per arming.
func (r *Registry) Arm(key string, delay time.Duration, onExpire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[key]; ok && t != nil {
		t.Stop()
	}

	r.timers[key] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, key)
		r.mu.Unlock()
		onExpire()
	})
}

// Cancel stops and removes the entry if present, whether an armed timer
// or a bare Acquire. Reports whether an entry was actually removed.
func (r *Registry) Cancel(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[key]
	if !ok {
		return false
	}
	if t != nil {
		t.Stop()
	}
	delete(r.timers, key)
	return true
}

// Active reports whether the key is currently held, armed or acquired.
func (r *Registry) Active(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[key]
	return ok
}

// Len returns the number of armed timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}
