// Package monitor turns a stream of microphone amplitude batches into
// debounced alerts fanned out to independent channels.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"audioguard/audio"
	"audioguard/observe"
)

// ErrSourceClosed is returned by Loop.Run when the batch stream ends.
var ErrSourceClosed = errors.New("monitor: sample source closed")

// Batch is one capture callback's amplitudes, each in [-1, 1].
type Batch struct {
	Samples []float32
	At      time.Time
}

// Source adapts a CaptureDevice's callback into a bounded FIFO of batches.
// When the queue is full the oldest waiting batch is discarded so that the
// capture callback never blocks.
type Source struct {
	device  audio.CaptureDevice
	queue   chan Batch
	errs    chan error
	dropped atomic.Uint64
	metrics *observe.Metrics
	now     func() time.Time
}

func NewSource(device audio.CaptureDevice, depth int, m *observe.Metrics) *Source {
	if depth < 1 {
		depth = 1
	}
	if m == nil {
		m = observe.Default()
	}
	return &Source{
		device:  device,
		queue:   make(chan Batch, depth),
		errs:    make(chan error, 1),
		metrics: m,
		now:     time.Now,
	}
}

// Start registers the callbacks and starts the device.
func (s *Source) Start() error {
	s.device.SetErrorCallback(s.fail)
	s.device.SetCallback(s.onData)
	if err := s.device.Start(); err != nil {
		s.device.ClearCallback()
		return fmt.Errorf("start capture on %s: %w", s.device.DeviceName(), err)
	}
	return nil
}

func (s *Source) Stop() {
	s.device.Stop()
	s.device.ClearCallback()
}

// Batches yields batches in capture order.
func (s *Source) Batches() <-chan Batch { return s.queue }

// Errors yields at most one mid-stream capture failure.
func (s *Source) Errors() <-chan error { return s.errs }

// Dropped reports how many batches were discarded on overflow.
func (s *Source) Dropped() uint64 { return s.dropped.Load() }

func (s *Source) onData(data []byte, _ uint32) {
	samples := audio.Normalize(data)
	if len(samples) == 0 {
		return
	}
	s.Offer(Batch{Samples: samples, At: s.now()})
}

// Offer enqueues b without blocking. If the queue is full the oldest batch is
// evicted; if a concurrent producer refills the slot first, b itself is
// dropped.
func (s *Source) Offer(b Batch) {
	select {
	case s.queue <- b:
		return
	default:
	}
	select {
	case <-s.queue:
		s.drop()
	default:
	}
	select {
	case s.queue <- b:
	default:
		s.drop()
	}
}

func (s *Source) drop() {
	s.dropped.Add(1)
	s.metrics.BatchesDropped.Add(context.Background(), 1)
}

func (s *Source) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
