package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"audioguard/alert"
	"audioguard/monitor"
)

// Display abstracts the presentation layer so both the Bubble Tea TUI and
// the plain console receive the same monitoring events.
type Display interface {
	alert.Display
	Level(db float64)
	Dispatched(a monitor.Alert, r monitor.Report)
	Heartbeat(rssMB float64)
	MicSilent(silent bool)
	DeviceLine(text string)
}

var (
	consoleAlertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	consoleOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	consoleErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	consoleDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// consoleDisplay prints one line per event. Levels are not printed.
type consoleDisplay struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleDisplay(out io.Writer) *consoleDisplay {
	return &consoleDisplay{out: out}
}

func (c *consoleDisplay) println(s string) {
	c.mu.Lock()
	fmt.Fprintln(c.out, s)
	c.mu.Unlock()
}

func (c *consoleDisplay) ShowAlert(a monitor.Alert) {
	c.println(consoleAlertStyle.Render("ALERT "+a.At.Format(time.TimeOnly)) + " " + a.Message())
}

func (c *consoleDisplay) Level(float64) {}

func (c *consoleDisplay) Dispatched(_ monitor.Alert, r monitor.Report) {
	c.println("  " + reportLine(r))
}

func (c *consoleDisplay) Heartbeat(rssMB float64) {
	c.println(consoleDimStyle.Render(fmt.Sprintf("heartbeat: %.1f MB resident", rssMB)))
}

func (c *consoleDisplay) MicSilent(silent bool) {
	if silent {
		c.println(consoleErrStyle.Render("warning: microphone is delivering silence (muted or unplugged?)"))
		return
	}
	c.println(consoleOKStyle.Render("microphone signal restored"))
}

func (c *consoleDisplay) DeviceLine(text string) {
	c.println(consoleDimStyle.Render(text))
}

// reportLine renders per-channel results, e.g. "sound ok 12ms | visual ok 0ms".
func reportLine(r monitor.Report) string {
	parts := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		ms := res.Duration.Milliseconds()
		if res.Err != nil {
			parts = append(parts, consoleErrStyle.Render(fmt.Sprintf("%s failed %dms: %v", res.Channel, ms, res.Err)))
			continue
		}
		parts = append(parts, consoleOKStyle.Render(fmt.Sprintf("%s ok %dms", res.Channel, ms)))
	}
	return strings.Join(parts, " | ")
}
