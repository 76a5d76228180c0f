package monitor

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"audioguard/audio"
	"audioguard/config"
	"audioguard/log"
	"audioguard/memstat"
	"audioguard/observe"
)

// SessionOptions carries the injectable collaborators of a Session.
type SessionOptions struct {
	Rand       Rand
	Classifier Classifier
	Now        func() time.Time
	ReadMemory func() (float64, error)

	OnLevel     func(db float64)
	OnDispatch  func(Alert, Report)
	OnHeartbeat func(rssMB float64)

	Metrics *observe.Metrics
}

// Session owns one monitoring run: a capture source, the processing loop and
// the heartbeat. Whichever of the loop or heartbeat ends first ends the
// session.
type Session struct {
	cfg       config.SystemConfig
	now       func() time.Time
	source    *Source
	debouncer *Debouncer
	loop      *Loop
	heartbeat *Heartbeat
}

func NewSession(device audio.CaptureDevice, cfg config.SystemConfig, channels []Channel, opts SessionOptions) *Session {
	if opts.Metrics == nil {
		opts.Metrics = observe.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReadMemory == nil {
		opts.ReadMemory = memstat.ResidentMB
	}

	var gateOpts []GateOption
	if opts.Rand != nil {
		gateOpts = append(gateOpts, WithRand(opts.Rand))
	}
	if opts.Classifier != nil {
		gateOpts = append(gateOpts, WithClassifier(opts.Classifier))
	}

	state := &AlertState{}
	src := NewSource(device, cfg.QueueDepth, opts.Metrics)
	debouncer := NewDebouncer(state, cfg.CoolDown)
	loop := NewLoop(src.Batches(), src.Errors(), state,
		NewGate(cfg, state, gateOpts...),
		debouncer,
		NewDispatcher(cfg.ActionTimeout, opts.Metrics, channels...),
		LoopOptions{
			Threshold:     cfg.DBThreshold,
			RadiusMiles:   cfg.AlertRadiusMiles,
			CalibrationDB: cfg.CalibrationDB,
			Now:           opts.Now,
			OnLevel:       opts.OnLevel,
			OnDispatch:    opts.OnDispatch,
			Metrics:       opts.Metrics,
		})
	hb := NewHeartbeat(cfg.HeartbeatPeriod, opts.ReadMemory, src.Dropped, opts.OnHeartbeat, opts.Metrics)

	return &Session{cfg: cfg, now: opts.Now, source: src, debouncer: debouncer, loop: loop, heartbeat: hb}
}

func (s *Session) Source() *Source { return s.source }

// Run starts capture and blocks until ctx is cancelled or the loop fails.
// The first cool-down begins when capture starts, so no alert fires during
// it. Cancellation is a clean shutdown and returns nil.
func (s *Session) Run(ctx context.Context) error {
	if !s.cfg.ThresholdReachable() {
		log.Warnf("threshold %.1f dB cannot be reached by a full-scale signal with calibration %.1f dB; no alert will fire",
			s.cfg.DBThreshold, s.cfg.CalibrationDB)
	}
	if err := s.source.Start(); err != nil {
		return err
	}
	defer s.source.Stop()
	s.debouncer.Reset(s.now())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop.Run(gctx) })
	g.Go(func() error { return s.heartbeat.Run(gctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.SessionEnd(s.loop.Alerts(), s.source.Dropped(), err)
	return err
}
