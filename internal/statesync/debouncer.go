// Package statesync coalesces rapid bursts of full-state writes into a single
// deferred write. It is purely an optimization: correctness always comes from
// the event log plus reconciliation, never from these cached writes landing.
package statesync

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDelay is how long a burst must go quiet before the sync fires.
const DefaultDelay = 500 * time.Millisecond

// Debouncer defers the latest queued func until the delay elapses without a
// newer trigger. Only the most recent func runs; earlier ones in a burst are
// superseded.
type Debouncer struct {
	clock clockwork.Clock
	delay time.Duration

	mu    sync.Mutex
	timer clockwork.Timer
	fn    func()
}

// NewDebouncer creates a debouncer with the given quiet delay.
func NewDebouncer(clock clockwork.Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger schedules fn to run after the quiet delay, replacing any pending fn
// and restarting the delay.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fn = fn
	if d.timer == nil {
		d.timer = d.clock.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

// Flush runs any pending fn immediately, cancelling the timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.fn
	d.fn = nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.fn
	d.fn = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}
