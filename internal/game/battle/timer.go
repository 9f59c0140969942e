package battle

import (
	"sync"
	"time"
)

// TurnTimer fires a callback when a human participant lets their turn run
// out, unless stopped first. Stop and the timer firing are mutually
// exclusive: once Stop returns, onFire will not run; onFire runs at most
// once. Safe for concurrent use.
type TurnTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   bool
}

// NewTurnTimer creates and starts a timer that calls onFire after duration.
// onFire runs on its own goroutine.
//
// Precondition: duration > 0; onFire must not be nil.
// Postcondition: Returns a running TurnTimer; onFire will be called exactly
// once unless Stop wins the race.
func NewTurnTimer(duration time.Duration, onFire func()) *TurnTimer {
	tt := &TurnTimer{}
	tt.timer = time.AfterFunc(duration, func() {
		tt.mu.Lock()
		run := !tt.stopped && !tt.fired
		if run {
			tt.fired = true
		}
		tt.mu.Unlock()
		if run {
			onFire()
		}
	})
	return tt
}

// Stop prevents the callback from firing. Safe to call multiple times.
//
// Postcondition: Returns true if the callback was prevented; false if it
// already ran or was already stopped.
func (tt *TurnTimer) Stop() bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if tt.stopped || tt.fired {
		return false
	}
	tt.stopped = true
	tt.timer.Stop()
	return true
}
