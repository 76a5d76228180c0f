//go:build integration

package test_test

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

var testBinary string

var (
	loudPath    = filepath.Join("data", "loud.wav")
	silencePath = filepath.Join("data", "silence.wav")
)

func TestMain(m *testing.M) {
	testBinary = os.Getenv("AUDIOGUARD_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "AUDIOGUARD_TEST_BIN not set; build the binary and point the variable at it")
		os.Exit(1)
	}

	if err := os.MkdirAll("data", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data dir: %v\n", err)
		os.Exit(1)
	}
	if err := generateWAV(silencePath, 16000, 1.0, 0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate silence.wav: %v\n", err)
		os.Exit(1)
	}
	// Longer than the 1s cool-down that starts with capture, shorter than two.
	if err := generateWAV(loudPath, 16000, 1.5, 0.9); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate loud.wav: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Remove(silencePath)
	os.Remove(loudPath)
	os.Exit(code)
}

// generateWAV writes a 16-bit mono 1 kHz tone at the given peak amplitude.
func generateWAV(path string, sampleRate int, durationS, amplitude float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i := 0; i < numSamples; i++ {
		v := amplitude * math.Sin(2*math.Pi*1000*float64(i)/float64(sampleRate))
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(int16(v*32767)))
	}
	return os.WriteFile(path, buf, 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

// writeConfig makes alerts deterministic: reachable threshold, no random
// suppression, and a 1s cool-down so the loud file alerts exactly once.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "db_threshold: -20\nfp_rate: 0\ncool_down: 1s\nchannels: [sound, visual, notification]\n" + extra
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runGuard(t *testing.T, stdin string, env []string, args ...string) (logDir, stdout string) {
	t.Helper()
	logDir = t.TempDir()
	cmdArgs := append([]string{"-logpath", logDir, "-env", ""}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), env...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("audioguard exited with error: %v\noutput: %s", err, out)
	}
	return logDir, string(out)
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func TestLoudSoundAlerts(t *testing.T) {
	cfg := writeConfig(t, "")
	logDir, out := runGuard(t, cmds("WAIT_ALERT", "WAIT_AUDIO_DONE", "QUIT"), nil, "-config", cfg, "-test", loudPath)

	if !strings.Contains(out, "Loud sound detected") {
		t.Errorf("stdout missing alert:\n%s", out)
	}
	diag := readLog(t, logDir, "diagnostics_log.txt")
	for _, want := range []string{"session_start", "alert", "alert_dispatch", "session_end"} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q", want)
		}
	}
	alerts := readLog(t, logDir, "alerts_log.txt")
	if n := strings.Count(alerts, "\n"); n != 1 {
		t.Errorf("alerts_log has %d lines, want exactly 1 within the cool-down:\n%s", n, alerts)
	}
}

func TestSilenceDoesNotAlert(t *testing.T) {
	cfg := writeConfig(t, "")
	logDir, out := runGuard(t, cmds("WAIT_AUDIO_DONE", "SLEEP 200", "QUIT"), nil, "-config", cfg, "-test", silencePath)

	if strings.Contains(out, "ALERT") {
		t.Errorf("unexpected alert on silence:\n%s", out)
	}
	if alerts := readLog(t, logDir, "alerts_log.txt"); strings.TrimSpace(alerts) != "" {
		t.Errorf("alerts_log should be empty, got:\n%s", alerts)
	}
	if !strings.Contains(readLog(t, logDir, "diagnostics_log.txt"), "session_end") {
		t.Error("diagnostics missing session_end")
	}
}

func TestUnreachableThresholdWarns(t *testing.T) {
	logDir, _ := runGuard(t, cmds("WAIT_AUDIO_DONE", "QUIT"),
		[]string{"AUDIOGUARD_DB_THRESHOLD=85"}, "-test", loudPath)
	if !strings.Contains(readLog(t, logDir, "diagnostics_log.txt"), "cannot be reached") {
		t.Error("expected unreachable threshold warning")
	}
}

func TestWebhookReceivesAlert(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p map[string]any
		if err := json.Unmarshal(body, &p); err == nil {
			mu.Lock()
			payloads = append(payloads, p)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := writeConfig(t, "")
	runGuard(t, cmds("WAIT_ALERT", "QUIT"), []string{"AUDIOGUARD_WEBHOOK_URL=" + srv.URL}, "-config", cfg, "-test", loudPath)

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 1 {
		t.Fatalf("webhook got %d payloads, want 1", len(payloads))
	}
	if payloads[0]["event"] != "loud_sound_detected" {
		t.Errorf("event = %v", payloads[0]["event"])
	}
}

func TestInvalidConfigExits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("fp_rate: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(testBinary, "-logpath", t.TempDir(), "-env", "", "-config", path, "-test", loudPath)
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected non-zero exit, output: %s", out)
	}
	if !strings.Contains(string(out), "fp_rate") {
		t.Errorf("error output does not name fp_rate: %s", out)
	}
}
