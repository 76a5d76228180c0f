package monitor

import (
	"context"
	"math/rand/v2"
	"sync/atomic"

	"audioguard/config"
	"audioguard/log"
)

// Rand supplies uniform draws in [0, 1).
type Rand interface {
	Float64() float64
}

// RandFunc adapts a function to Rand.
type RandFunc func() float64

func (f RandFunc) Float64() float64 { return f() }

// DefaultRand draws from the runtime's shared generator.
var DefaultRand Rand = RandFunc(rand.Float64)

// Classifier labels a batch with a sound category. When configured, only
// labels listed in the danger patterns may raise an alert.
type Classifier interface {
	Classify(ctx context.Context, samples []float32) (string, error)
}

// AlertState is the flag shared by the gate (writer) and the debouncer
// (reader and clearer).
type AlertState struct {
	active atomic.Bool
}

func (s *AlertState) Raise()       { s.active.Store(true) }
func (s *AlertState) Active() bool { return s.active.Load() }

// take clears the flag and reports whether it was set.
func (s *AlertState) take() bool { return s.active.Swap(false) }

// Gate decides whether a batch's loudness warrants an alert. A threshold
// crossing is suppressed with the configured dampening probability fp_rate.
type Gate struct {
	threshold  float64
	fpRate     float64
	patterns   config.PatternSet
	state      *AlertState
	rand       Rand
	classifier Classifier
}

type GateOption func(*Gate)

func WithRand(r Rand) GateOption {
	return func(g *Gate) { g.rand = r }
}

func WithClassifier(c Classifier) GateOption {
	return func(g *Gate) { g.classifier = c }
}

func NewGate(cfg config.SystemConfig, state *AlertState, opts ...GateOption) *Gate {
	g := &Gate{
		threshold: cfg.DBThreshold,
		fpRate:    cfg.FPRate,
		patterns:  cfg.DangerPatterns,
		state:     state,
		rand:      DefaultRand,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Evaluate raises the alert state and returns true when loudness exceeds the
// threshold, the draw exceeds fp_rate and, with a classifier, the label is a
// danger pattern. A raise is never cleared here.
func (g *Gate) Evaluate(ctx context.Context, loudness float64, samples []float32) bool {
	if !(loudness > g.threshold) {
		return false
	}
	if !(g.rand.Float64() > g.fpRate) {
		return false
	}
	if g.classifier != nil {
		label, err := g.classifier.Classify(ctx, samples)
		if err != nil {
			log.Warnf("classifier failed: %v", err)
			return false
		}
		if !g.patterns.Contains(label) {
			return false
		}
	}
	g.state.Raise()
	return true
}
