package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"audioguard/monitor"
)

// TUI message types
type LevelMsg struct{ DB float64 }
type AlertMsg struct{ Alert monitor.Alert }
type DispatchMsg struct {
	Alert  monitor.Alert
	Report monitor.Report
}
type HeartbeatMsg struct{ RSSMB float64 }
type MicSilentMsg struct{ Silent bool }
type DeviceLineMsg struct{ Text string }
type tickMsg time.Time

const (
	meterWidth   = 40
	meterRangeDB = 90.0
	levelDecayDB = 1.5 // per level message, so the bar falls smoothly
	bannerHold   = 3 * time.Second
	historySize  = 8
	leftWidth    = meterWidth + 6
)

type alertEntry struct {
	alert  monitor.Alert
	report *monitor.Report
}

type tuiModel struct {
	threshold   float64
	calibration float64
	radius      float64

	now           time.Time
	level         float64
	peak          float64
	width, height int
	deviceLine    string
	rssMB         float64
	silent        bool
	alerts        []alertEntry
	total         int
	lastAlert     time.Time
}

var (
	meterLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	meterHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	meterOffStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	markerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	faintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	bannerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Bold(true).Padding(0, 1)
)

func newTUIModel(threshold, calibration, radius float64) tuiModel {
	floor := calibration - meterRangeDB
	return tuiModel{
		threshold:   threshold,
		calibration: calibration,
		radius:      radius,
		level:       floor,
		peak:        floor,
	}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

// meterRange is the dB span drawn by the level meter. The top always
// includes the threshold so its marker stays visible.
func (m tuiModel) meterRange() (lo, hi float64) {
	hi = max(m.calibration, m.threshold+5)
	return hi - meterRangeDB, hi
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tuiTick()

	case LevelMsg:
		lo, _ := m.meterRange()
		db := msg.DB
		if math.IsInf(db, -1) || math.IsNaN(db) || db < lo {
			db = lo
		}
		m.level = max(db, m.level-levelDecayDB, lo)
		m.peak = max(m.peak, db)

	case AlertMsg:
		m.total++
		m.lastAlert = msg.Alert.At
		m.alerts = append([]alertEntry{{alert: msg.Alert}}, m.alerts...)
		if len(m.alerts) > historySize {
			m.alerts = m.alerts[:historySize]
		}

	case DispatchMsg:
		for i := range m.alerts {
			if m.alerts[i].alert.At.Equal(msg.Alert.At) {
				r := msg.Report
				m.alerts[i].report = &r
				break
			}
		}

	case HeartbeatMsg:
		m.rssMB = msg.RSSMB

	case MicSilentMsg:
		m.silent = msg.Silent

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) bannerActive() bool {
	return !m.lastAlert.IsZero() && m.now.Sub(m.lastAlert) < bannerHold
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var left []string
	if m.bannerActive() {
		left = append(left, bannerStyle.Render("LOUD SOUND DETECTED"))
	} else {
		left = append(left, dimStyle.Render("○ LISTENING"))
	}
	left = append(left, "")

	lo, hi := m.meterRange()
	left = append(left, renderMeter(m.level, m.threshold, lo, hi, meterWidth))
	left = append(left, dimStyle.Render(fmt.Sprintf("level %6.1f dB  peak %6.1f dB", m.level, m.peak)))
	left = append(left, dimStyle.Render(fmt.Sprintf("threshold %.1f dB  radius %.1f mi", m.threshold, m.radius)))

	if m.silent {
		left = append(left, warnStyle.Render("⚠ microphone delivering silence"))
	}
	if m.deviceLine != "" {
		left = append(left, dimStyle.Render(m.deviceLine))
	}
	if m.rssMB > 0 {
		left = append(left, faintStyle.Render(fmt.Sprintf("memory %.1f MB", m.rssMB)))
	}
	left = append(left, "", faintStyle.Render("q to quit"), faintStyle.Render("audioguard "+version))

	leftPanel := lipgloss.NewStyle().
		Width(leftWidth).
		Height(m.height).
		Render(strings.Join(left, "\n"))

	rightWidth := max(m.width-leftWidth-1, 20)
	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(m.renderHistory(rightWidth - 2))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m tuiModel) renderHistory(width int) string {
	if len(m.alerts) == 0 {
		return dimStyle.Render("No alerts yet")
	}
	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("Alerts (%d total)", m.total)) + "\n\n")
	for _, e := range m.alerts {
		head := fmt.Sprintf("%s  %.1f dB", e.alert.At.Format(time.TimeOnly), e.alert.Loudness)
		b.WriteString(meterHighStyle.Render(head) + "\n")
		if e.report == nil {
			b.WriteString(faintStyle.Render("  dispatching...") + "\n")
			continue
		}
		for _, res := range e.report.Results {
			line := fmt.Sprintf("  %-12s %4dms", res.Channel, res.Duration.Milliseconds())
			if res.Err != nil {
				line = ansi.Truncate(line+" "+res.Err.Error(), max(width, 1), "…")
				b.WriteString(warnStyle.Render(line) + "\n")
				continue
			}
			b.WriteString(meterLowStyle.Render(line) + "\n")
		}
	}
	return b.String()
}

// meterPos maps db onto [0, width] cells.
func meterPos(db, lo, hi float64, width int) int {
	if math.IsNaN(db) || db <= lo {
		return 0
	}
	if db >= hi {
		return width
	}
	return int((db - lo) / (hi - lo) * float64(width))
}

func renderMeter(level, threshold, lo, hi float64, width int) string {
	filled := meterPos(level, lo, hi, width)
	mark := min(meterPos(threshold, lo, hi, width), width-1)

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == mark:
			b.WriteString(markerStyle.Render("│"))
		case i < filled && i >= mark:
			b.WriteString(meterHighStyle.Render("█"))
		case i < filled:
			b.WriteString(meterLowStyle.Render("█"))
		default:
			b.WriteString(meterOffStyle.Render("░"))
		}
	}
	return b.String()
}

// tuiDisplay forwards events to the running Bubble Tea program.
type tuiDisplay struct {
	p *tea.Program
}

func (d tuiDisplay) ShowAlert(a monitor.Alert) { d.p.Send(AlertMsg{Alert: a}) }
func (d tuiDisplay) Level(db float64) { d.p.Send(LevelMsg{DB: db}) }
func (d tuiDisplay) Dispatched(a monitor.Alert, r monitor.Report) { d.p.Send(DispatchMsg{Alert: a, Report: r}) }
func (d tuiDisplay) Heartbeat(rssMB float64) { d.p.Send(HeartbeatMsg{RSSMB: rssMB}) }
func (d tuiDisplay) MicSilent(silent bool) { d.p.Send(MicSilentMsg{Silent: silent}) }
func (d tuiDisplay) DeviceLine(text string) { d.p.Send(DeviceLineMsg{Text: text}) }
