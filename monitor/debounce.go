package monitor

import (
	"sync"
	"time"
)

// Outcome is the result of offering a tick to the Debouncer.
type Outcome int

const (
	// OutcomeIdle means no alert was pending.
	OutcomeIdle Outcome = iota
	// OutcomeFired means the pending alert was admitted for dispatch.
	OutcomeFired
	// OutcomeSuppressed means a pending alert fell inside the cool-down and
	// was discarded.
	OutcomeSuppressed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeFired:
		return "fired"
	case OutcomeSuppressed:
		return "suppressed"
	}
	return "unknown"
}

// Debouncer enforces a minimum interval between dispatched alerts. Raises
// that arrive during the cool-down are discarded, not deferred.
type Debouncer struct {
	state    *AlertState
	coolDown time.Duration

	mu   sync.Mutex
	last time.Time
}

func NewDebouncer(state *AlertState, coolDown time.Duration) *Debouncer {
	return &Debouncer{state: state, coolDown: coolDown}
}

// Reset starts a cool-down at now, as if an alert had just fired.
func (d *Debouncer) Reset(now time.Time) {
	d.mu.Lock()
	d.last = now
	d.mu.Unlock()
}

// Admit consumes a pending alert. It fires when the cool-down has never
// started or strictly more than the cool-down has elapsed since it did.
func (d *Debouncer) Admit(now time.Time) Outcome {
	if !d.state.take() {
		return OutcomeIdle
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.last.IsZero() && now.Sub(d.last) <= d.coolDown {
		return OutcomeSuppressed
	}
	d.last = now
	return OutcomeFired
}

// LastAlert returns when the cool-down last started, or the zero time.
func (d *Debouncer) LastAlert() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
