package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir(""); SetConsole(nil) })
	return tmp
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(wd, "logs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv(EnvLogPath, "/tmp/audioguard-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/audioguard-env-log" {
		t.Errorf("got %q, want /tmp/audioguard-env-log", got)
	}
}

func TestResolveDirFlagBeatsEnv(t *testing.T) {
	t.Setenv(EnvLogPath, "/tmp/from-env")
	got, err := ResolveDir("/tmp/from-flag")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/from-flag" {
		t.Errorf("got %q, want /tmp/from-flag", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv(EnvLogPath, "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "audioguard") {
		t.Errorf("default dir %q does not mention audioguard", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{DiagnosticsFile, AlertsFile} {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestAlertWritesHistory(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local)
	Alert(at, -1.5, -3, 5)

	line := readFile(t, filepath.Join(tmp, AlertsFile))
	if !strings.HasPrefix(line, "2024-03-01 12:30:00\t") {
		t.Errorf("unexpected timestamp prefix: %q", line)
	}
	if !strings.Contains(line, "-1.5 dB") || !strings.Contains(line, "5.0 mi") {
		t.Errorf("alert line missing fields: %q", line)
	}
	if diag := readFile(t, filepath.Join(tmp, DiagnosticsFile)); !strings.Contains(diag, "alert") {
		t.Errorf("diagnostics missing alert event: %q", diag)
	}
}

func TestDispatchLogsFailures(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Dispatch([]DispatchResult{
		{Channel: "visual"},
		{Channel: "sound", Err: errors.New("no output device")},
	})

	diag := readFile(t, filepath.Join(tmp, DiagnosticsFile))
	if !strings.Contains(diag, "channel=visual") {
		t.Errorf("missing visual result: %q", diag)
	}
	if !strings.Contains(diag, "no output device") {
		t.Errorf("missing sound error: %q", diag)
	}
}

func TestConsoleMirror(t *testing.T) {
	setupLogDir(t)
	var buf bytes.Buffer
	SetConsole(&buf)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Heartbeat(12.5, 3)

	if !strings.Contains(buf.String(), "heartbeat") {
		t.Errorf("console mirror missing heartbeat: %q", buf.String())
	}
}

func TestNoOpBeforeInit(t *testing.T) {
	setupLogDir(t)
	// must not panic
	Info("ignored")
	Alert(time.Now(), 0, 0, 0)
	SessionEnd(0, 0, nil)
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
