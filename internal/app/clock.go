package app

import (
	"sync"
	"time"
)

// Timer is the stoppable handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the production implementation.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type pendingTurn struct {
	timer Timer
	mover string
	gen   uint64
}

// Clock keeps at most one pending turn timer per session.
type Clock struct {
	mu        sync.Mutex
	pending   map[string]*pendingTurn
	gen       uint64
	afterFunc AfterFunc
}

// NewClock uses time.AfterFunc when afterFunc is nil.
func NewClock(afterFunc AfterFunc) *Clock {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &Clock{
		pending:   make(map[string]*pendingTurn),
		afterFunc: afterFunc,
	}
}

// Schedule starts a countdown for moverID, replacing any pending one for the session.
// onExpire runs on the timer goroutine unless the countdown is cancelled or replaced first.
func (c *Clock) Schedule(sessionID, moverID string, d time.Duration, onExpire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.pending[sessionID]; ok {
		prev.timer.Stop()
	}
	c.gen++
	gen := c.gen
	entry := &pendingTurn{mover: moverID, gen: gen}
	c.pending[sessionID] = entry
	entry.timer = c.afterFunc(d, func() {
		if c.claim(sessionID, gen) {
			onExpire()
		}
	})
}

// claim removes the entry if gen is still the live countdown for the session.
func (c *Clock) claim(sessionID string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.pending[sessionID]
	if !ok || entry.gen != gen {
		return false
	}
	delete(c.pending, sessionID)
	return true
}

// Cancel stops the pending countdown. Cancelling a fired or unknown countdown is a no-op.
func (c *Clock) Cancel(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.pending[sessionID]; ok {
		entry.timer.Stop()
		delete(c.pending, sessionID)
	}
}

// Pending returns the mover whose countdown is running for the session.
func (c *Clock) Pending(sessionID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.pending[sessionID]
	if !ok {
		return "", false
	}
	return entry.mover, true
}

// StopAll cancels every pending countdown.
func (c *Clock) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, entry := range c.pending {
		entry.timer.Stop()
		delete(c.pending, id)
	}
}
