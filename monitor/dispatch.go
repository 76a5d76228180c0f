package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"audioguard/observe"
)

// Alert is what every channel receives when the debouncer fires.
type Alert struct {
	At          time.Time
	Loudness    float64
	Threshold   float64
	RadiusMiles float64
}

func (a Alert) Message() string {
	return fmt.Sprintf("Loud sound detected: %.1f dB (threshold %.1f dB). Notifying contacts within %.1f miles.",
		a.Loudness, a.Threshold, a.RadiusMiles)
}

// Channel is one alert action. Send should honour ctx cancellation.
type Channel interface {
	Name() string
	Send(ctx context.Context, a Alert) error
}

type ChannelResult struct {
	Channel  string
	Err      error
	Duration time.Duration
}

// Report collects every channel's outcome for one dispatch.
type Report struct {
	Results []ChannelResult
}

// Err joins the failures, or returns nil if every channel succeeded.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Channel, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Dispatcher runs every channel concurrently and waits for all of them. A
// failing or panicking channel never prevents the others from running.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	metrics  *observe.Metrics
}

// NewDispatcher bounds each action by timeout; zero means no bound.
func NewDispatcher(timeout time.Duration, m *observe.Metrics, channels ...Channel) *Dispatcher {
	if m == nil {
		m = observe.Default()
	}
	return &Dispatcher{channels: channels, timeout: timeout, metrics: m}
}

func (d *Dispatcher) Channels() []Channel { return d.channels }

func (d *Dispatcher) Dispatch(ctx context.Context, a Alert) Report {
	results := make([]ChannelResult, len(d.channels))
	var g errgroup.Group
	for i, ch := range d.channels {
		g.Go(func() error {
			results[i] = d.run(ctx, ch, a)
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		d.metrics.RecordChannel(ctx, r.Channel, r.Duration, r.Err)
	}
	return Report{Results: results}
}

func (d *Dispatcher) run(ctx context.Context, ch Channel, a Alert) (res ChannelResult) {
	res.Channel = ch.Name()
	start := time.Now()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
		res.Duration = time.Since(start)
	}()
	res.Err = ch.Send(ctx, a)
	return res
}
