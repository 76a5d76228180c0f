package monitor

import (
	"context"
	"fmt"
	"time"

	"audioguard/log"
	"audioguard/observe"
)

// LoopOptions configures a Loop. Zero values are valid.
type LoopOptions struct {
	Threshold     float64
	RadiusMiles   float64
	CalibrationDB float64

	// Now defaults to time.Now.
	Now func() time.Time

	// OnLevel observes every batch's calibrated loudness.
	OnLevel func(db float64)

	// OnDispatch observes every fired alert after all channels finish.
	OnDispatch func(Alert, Report)

	Metrics *observe.Metrics
}

// Loop processes batches strictly in arrival order: estimate, gate,
// debounce, dispatch. Dispatch completes before the next batch is taken.
type Loop struct {
	batches    <-chan Batch
	errs       <-chan error
	state      *AlertState
	gate       *Gate
	debouncer  *Debouncer
	dispatcher *Dispatcher
	opts       LoopOptions
	alerts     int
}

func NewLoop(batches <-chan Batch, errs <-chan error, state *AlertState, gate *Gate, debouncer *Debouncer, dispatcher *Dispatcher, opts LoopOptions) *Loop {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = observe.Default()
	}
	return &Loop{
		batches:    batches,
		errs:       errs,
		state:      state,
		gate:       gate,
		debouncer:  debouncer,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// Alerts returns how many alerts were dispatched.
func (l *Loop) Alerts() int { return l.alerts }

// Run blocks until ctx is cancelled, the source reports an error, or the
// batch channel is closed (ErrSourceClosed).
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-l.errs:
			return fmt.Errorf("capture stream: %w", err)
		case b, ok := <-l.batches:
			if !ok {
				return ErrSourceClosed
			}
			l.Process(ctx, b)
		}
	}
}

// Process runs one batch through the pipeline and reports what the
// debouncer decided.
func (l *Loop) Process(ctx context.Context, b Batch) Outcome {
	m := l.opts.Metrics
	m.Batches.Add(ctx, 1)

	level := Estimate(b.Samples) + l.opts.CalibrationDB
	m.RecordLoudness(ctx, level)
	if l.opts.OnLevel != nil {
		l.opts.OnLevel(level)
	}

	if l.gate.Evaluate(ctx, level, b.Samples) {
		m.AlertsRaised.Add(ctx, 1)
	}

	now := l.opts.Now()
	last := l.debouncer.LastAlert()
	out := l.debouncer.Admit(now)
	switch out {
	case OutcomeSuppressed:
		m.AlertsSuppressed.Add(ctx, 1)
		log.Suppressed(now, now.Sub(last))
	case OutcomeFired:
		l.fire(ctx, now, level)
	}
	return out
}

func (l *Loop) fire(ctx context.Context, now time.Time, level float64) {
	a := Alert{
		At:          now,
		Loudness:    level,
		Threshold:   l.opts.Threshold,
		RadiusMiles: l.opts.RadiusMiles,
	}
	l.alerts++
	l.opts.Metrics.AlertsDispatched.Add(ctx, 1)
	log.Alert(a.At, a.Loudness, a.Threshold, a.RadiusMiles)

	report := l.dispatcher.Dispatch(ctx, a)

	results := make([]log.DispatchResult, len(report.Results))
	for i, r := range report.Results {
		results[i] = log.DispatchResult{Channel: r.Channel, Err: r.Err, Duration: r.Duration}
	}
	log.Dispatch(results)

	if l.opts.OnDispatch != nil {
		l.opts.OnDispatch(a, report)
	}
}
