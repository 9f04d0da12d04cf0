package suggest

import (
	"sync"
	"time"
)

// DefaultQuietInterval is how long typing must pause before a fetch fires.
const DefaultQuietInterval = 300 * time.Millisecond

// Debouncer collapses keystroke bursts into a single delayed fire.
// It owns at most one pending timer; arming a new one unconditionally cancels
// the previous. Only a cancelled-and-replaced timer counts as debounced - the
// first timer after startup or after a fire does not.
type Debouncer struct {
	timer    *time.Timer
	interval time.Duration
	mu       sync.Mutex
}

// NewDebouncer creates a debouncer with the given quiet interval.
// A non-positive interval falls back to DefaultQuietInterval.
func NewDebouncer(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultQuietInterval
	}
	return &Debouncer{interval: interval}
}

// Trigger arms the timer for text, cancelling any pending one first.
// The text value is captured now, at arm time, so the eventual fire sees the
// input as it was when the timer was (re)armed. Returns true when a pending
// timer was actually cancelled and replaced.
func (d *Debouncer) Trigger(text string, fire func(text string)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	collapsed := d.stopPending()
	captured := text
	d.timer = time.AfterFunc(d.interval, func() { fire(captured) })
	return collapsed
}

// Cancel drops any pending timer without arming a new one.
// Returns true when a timer was actually pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopPending()
}

// SetInterval changes the quiet interval for subsequently armed timers.
func (d *Debouncer) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	d.mu.Lock()
	d.interval = interval
	d.mu.Unlock()
}

// stopPending stops the current timer if it has not fired yet.
// Caller holds d.mu.
func (d *Debouncer) stopPending() bool {
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}
