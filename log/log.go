package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	DiagnosticsFile = "diagnostics_log.txt"
	AlertsFile      = "alerts_log.txt"
	CrashFile       = "crash_log.txt"

	EnvLogPath = "AUDIOGUARD_LOG_PATH"
)

var (
	diagLog    zerolog.Logger
	diagFile   *os.File
	alertsFile *os.File
	console    io.Writer
	logMu      sync.Mutex
	logReady   atomic.Bool
	pid        int
	dir        string
)

// SessionInfo is the configuration snapshot written at session start.
type SessionInfo struct {
	Device        string
	Threshold     float64
	CalibrationDB float64
	FPRate        float64
	RadiusMiles   float64
	Patterns      string
	Channels      []string
	CoolDown      time.Duration
}

// DispatchResult is one channel's outcome for a dispatched alert.
type DispatchResult struct {
	Channel  string
	Err      error
	Duration time.Duration
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: AUDIOGUARD_LOG_PATH environment variable
	if envPath := os.Getenv(EnvLogPath); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

// SetConsole mirrors diagnostics to w in addition to the log file. Must be
// called before Init; pass nil to disable.
func SetConsole(w io.Writer) {
	logMu.Lock()
	console = w
	logMu.Unlock()
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, DiagnosticsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	alertsFile, err = os.OpenFile(filepath.Join(dir, AlertsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		diagFile = nil
		return err
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	if console != nil {
		out = zerolog.MultiLevelWriter(out, zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: "15:04:05",
		})
	}
	diagLog = zerolog.New(out).With().Timestamp().Int("pid", pid).Logger()

	logReady.Store(true)
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	logReady.Store(false)
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if alertsFile != nil {
		alertsFile.Close()
		alertsFile = nil
	}
}

func Info(msg string) {
	if logReady.Load() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady.Load() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady.Load() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady.Load() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(s SessionInfo) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("device", s.Device).
		Float64("threshold_db", s.Threshold).
		Float64("calibration_db", s.CalibrationDB).
		Float64("fp_rate", s.FPRate).
		Float64("radius_mi", s.RadiusMiles).
		Str("patterns", s.Patterns).
		Strs("channels", s.Channels).
		Dur("cool_down", s.CoolDown).
		Msg("session_start")
}

func SessionEnd(alerts int, dropped uint64, err error) {
	if !logReady.Load() {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Error().Err(err)
	}
	ev.Int("alerts", alerts).
		Uint64("dropped_batches", dropped).
		Msg("session_end")
}

// Alert records a raised alert in the diagnostics log and appends a line to
// the alert history file.
func Alert(at time.Time, loudness, threshold, radius float64) {
	if !logReady.Load() {
		return
	}
	diagLog.Warn().
		Float64("loudness_db", loudness).
		Float64("threshold_db", threshold).
		Float64("radius_mi", radius).
		Msg("alert")

	logMu.Lock()
	defer logMu.Unlock()
	if alertsFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%.1f dB\t%.1f mi\n", at.Format("2006-01-02 15:04:05"), pid, loudness, radius)
	alertsFile.WriteString(line)
}

func Suppressed(at time.Time, since time.Duration) {
	if !logReady.Load() {
		return
	}
	diagLog.Debug().
		Time("at", at).
		Dur("since_last", since).
		Msg("alert_suppressed")
}

func Dispatch(results []DispatchResult) {
	if !logReady.Load() {
		return
	}
	for _, r := range results {
		ev := diagLog.Info()
		if r.Err != nil {
			ev = diagLog.Error().Err(r.Err)
		}
		ev.Str("channel", r.Channel).
			Float64("ms", float64(r.Duration.Microseconds())/1000).
			Msg("alert_dispatch")
	}
}

func Heartbeat(rssMB float64, dropped uint64) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Float64("rss_mb", rssMB).
		Uint64("dropped_batches", dropped).
		Msg("heartbeat")
}
