package monitor

import (
	"context"
	"time"

	"audioguard/log"
	"audioguard/observe"
)

// Heartbeat periodically reports resident memory. It runs beside the Loop
// and never touches the alert path.
type Heartbeat struct {
	period  time.Duration
	read    func() (float64, error)
	dropped func() uint64
	onBeat  func(rssMB float64)
	metrics *observe.Metrics
}

// NewHeartbeat reports read() every period. dropped and onBeat may be nil.
func NewHeartbeat(period time.Duration, read func() (float64, error), dropped func() uint64, onBeat func(float64), m *observe.Metrics) *Heartbeat {
	if m == nil {
		m = observe.Default()
	}
	return &Heartbeat{period: period, read: read, dropped: dropped, onBeat: onBeat, metrics: m}
}

func (h *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.beat(ctx)
		}
	}
}

func (h *Heartbeat) beat(ctx context.Context) {
	mb, err := h.read()
	if err != nil {
		log.Warnf("heartbeat: %v", err)
		return
	}
	var dropped uint64
	if h.dropped != nil {
		dropped = h.dropped()
	}
	h.metrics.ResidentMemory.Record(ctx, mb)
	log.Heartbeat(mb, dropped)
	if h.onBeat != nil {
		h.onBeat(mb)
	}
}
