package main

import "time"

const (
	// Below this the microphone is treated as delivering nothing at all.
	quietFloorDB = -70.0

	silenceWarnAfter = 30 * time.Second
	audibleMinRatio  = 0.02
	audibleClearRate = 0.10 // higher threshold to clear warning (hysteresis)
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // microphone looks dead
	SilenceWarnClear              // signal came back after a warning
)

// silenceMonitor watches a sliding window of batches and warns when almost
// none of them carried any signal, which usually means a muted or unplugged
// microphone rather than a quiet room.
type silenceMonitor struct {
	windowSz int

	ticks        int
	window       []bool
	audibleCount int
	warned       bool
}

func newSilenceMonitor(batch time.Duration) *silenceMonitor {
	n := max(int(silenceWarnAfter/batch), 1)
	return &silenceMonitor{windowSz: n, window: make([]bool, n)}
}

func (m *silenceMonitor) ratio() float64 {
	n := min(m.ticks, m.windowSz)
	if n == 0 {
		return 1.0
	}
	return float64(m.audibleCount) / float64(n)
}

// Tick records one batch's calibrated loudness.
func (m *silenceMonitor) Tick(levelDB, calibrationDB float64) SilenceEvent {
	audible := levelDB-calibrationDB > quietFloorDB

	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.audibleCount--
	}
	m.window[idx] = audible
	if audible {
		m.audibleCount++
	}
	m.ticks++

	r := m.ratio()
	if m.ticks >= m.windowSz && r < audibleMinRatio && !m.warned {
		m.warned = true
		return SilenceWarn
	}
	if m.warned && r >= audibleClearRate {
		m.warned = false
		return SilenceWarnClear
	}
	return SilenceNone
}
