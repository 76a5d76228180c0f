package main

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"

	"audioguard/monitor"
)

func TestMeterPos(t *testing.T) {
	tests := []struct {
		db   float64
		want int
	}{
		{math.Inf(-1), 0},
		{math.NaN(), 0},
		{-100, 0},
		{-90, 0},
		{-45, 20},
		{0, 40},
		{12, 40},
	}
	for _, tt := range tests {
		if got := meterPos(tt.db, -90, 0, 40); got != tt.want {
			t.Errorf("meterPos(%v) = %d, want %d", tt.db, got, tt.want)
		}
	}
}

func TestMeterRangeIncludesThreshold(t *testing.T) {
	m := newTUIModel(85, 0, 5)
	lo, hi := m.meterRange()
	if hi < 85 || hi-lo != meterRangeDB {
		t.Errorf("range [%v, %v] does not show threshold 85", lo, hi)
	}

	m = newTUIModel(-20, 0, 5)
	if _, hi := m.meterRange(); hi != 0 {
		t.Errorf("hi = %v, want full scale", hi)
	}
}

func TestLevelDecays(t *testing.T) {
	var model tuiModel = newTUIModel(-20, 0, 5)
	next, _ := model.Update(LevelMsg{DB: -10})
	model = next.(tuiModel)
	if model.level != -10 || model.peak != -10 {
		t.Fatalf("level=%v peak=%v", model.level, model.peak)
	}

	next, _ = model.Update(LevelMsg{DB: math.Inf(-1)})
	model = next.(tuiModel)
	if model.level != -10-levelDecayDB {
		t.Errorf("level = %v, want decayed %v", model.level, -10-levelDecayDB)
	}
	if model.peak != -10 {
		t.Errorf("peak = %v, want held at -10", model.peak)
	}
}

func TestAlertHistoryAndBanner(t *testing.T) {
	var model tuiModel = newTUIModel(-20, 0, 5)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := range historySize + 2 {
		a := monitor.Alert{At: base.Add(time.Duration(i) * time.Second), Loudness: -3}
		next, _ := model.Update(AlertMsg{Alert: a})
		model = next.(tuiModel)
	}
	if len(model.alerts) != historySize {
		t.Fatalf("history len = %d, want %d", len(model.alerts), historySize)
	}
	if model.total != historySize+2 {
		t.Errorf("total = %d", model.total)
	}

	latest := model.alerts[0].alert
	report := monitor.Report{Results: []monitor.ChannelResult{{Channel: "sound"}, {Channel: "notification", Err: errors.New("offline")}}}
	next, _ := model.Update(DispatchMsg{Alert: latest, Report: report})
	model = next.(tuiModel)
	if model.alerts[0].report == nil {
		t.Fatal("dispatch report not attached to its alert")
	}

	next, _ = model.Update(tickMsg(latest.At.Add(time.Second)))
	model = next.(tuiModel)
	if !model.bannerActive() {
		t.Error("banner should show right after an alert")
	}
	next, _ = model.Update(tickMsg(latest.At.Add(bannerHold + time.Second)))
	model = next.(tuiModel)
	if model.bannerActive() {
		t.Error("banner should clear after the hold time")
	}

	hist := model.renderHistory(80)
	if !strings.Contains(hist, "offline") || !strings.Contains(hist, "sound") {
		t.Errorf("history missing channel results:\n%s", hist)
	}
}

func TestHistoryTruncatesByDisplayWidth(t *testing.T) {
	var model tuiModel = newTUIModel(-20, 0, 5)
	a := monitor.Alert{At: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), Loudness: -3}
	next, _ := model.Update(AlertMsg{Alert: a})
	model = next.(tuiModel)
	report := monitor.Report{Results: []monitor.ChannelResult{
		{Channel: "notification", Err: errors.New("échec d'envoi: délai dépassé ✗✗✗✗✗✗✗✗")},
	}}
	next, _ = model.Update(DispatchMsg{Alert: a, Report: report})
	model = next.(tuiModel)

	const width = 30
	for _, line := range strings.Split(model.renderHistory(width), "\n") {
		if !utf8.ValidString(line) {
			t.Errorf("line is not valid UTF-8: %q", line)
		}
		if w := ansi.StringWidth(line); w > width {
			t.Errorf("line width %d > %d: %q", w, width, line)
		}
	}
}

func TestViewBeforeResize(t *testing.T) {
	if got := newTUIModel(0, 0, 0).View(); got != "Loading..." {
		t.Errorf("View() = %q", got)
	}
}

func TestConsoleDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := newConsoleDisplay(&buf)
	a := monitor.Alert{At: time.Now(), Loudness: -3, Threshold: -20, RadiusMiles: 5}
	d.ShowAlert(a)
	d.Dispatched(a, monitor.Report{Results: []monitor.ChannelResult{
		{Channel: "sound", Duration: 12 * time.Millisecond},
		{Channel: "notification", Err: errors.New("timeout")},
	}})
	d.MicSilent(true)

	out := buf.String()
	for _, want := range []string{"ALERT", "Loud sound detected", "sound ok 12ms", "notification failed", "timeout", "silence"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}
