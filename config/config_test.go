package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) = %v", err)
	}
	if cfg.DBThreshold != 85 || cfg.AlertRadiusMiles != 5 || cfg.FPRate != 0.05 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	for _, p := range []string{"gunshot", "glass_break", "scream"} {
		if !cfg.DangerPatterns.Contains(p) {
			t.Errorf("default patterns missing %q", p)
		}
	}
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	src := `
db_threshold: -12.5
fp_rate: 0.2
danger_patterns: [scream, scream, siren]
cool_down: 2s
channels: [visual]
capture:
  sample_rate: 44100
`
	cfg, err := LoadFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBThreshold != -12.5 {
		t.Errorf("DBThreshold = %v", cfg.DBThreshold)
	}
	if cfg.FPRate != 0.2 {
		t.Errorf("FPRate = %v", cfg.FPRate)
	}
	if len(cfg.DangerPatterns) != 2 || !cfg.DangerPatterns.Contains("siren") {
		t.Errorf("DangerPatterns = %v", cfg.DangerPatterns)
	}
	if cfg.CoolDown != 2*time.Second {
		t.Errorf("CoolDown = %v", cfg.CoolDown)
	}
	if cfg.Capture.SampleRate != 44100 {
		t.Errorf("SampleRate = %d", cfg.Capture.SampleRate)
	}
	// untouched fields keep defaults
	if cfg.AlertRadiusMiles != DefaultAlertRadiusMiles {
		t.Errorf("AlertRadiusMiles = %v", cfg.AlertRadiusMiles)
	}
	if cfg.HasChannel(ChannelSound) {
		t.Error("sound channel should be replaced by the file's list")
	}
}

func TestLoadFromReaderEmptyDocument(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.QueueDepth != DefaultQueueDepth {
		t.Errorf("QueueDepth = %d", cfg.QueueDepth)
	}
}

func TestLoadFromReaderUnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("db_treshold: 3\n"))
	if err == nil {
		t.Fatal("expected error for misspelled field")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SystemConfig)
		want   string
	}{
		{"fp rate above one", func(c *SystemConfig) { c.FPRate = 1.5 }, "fp_rate"},
		{"fp rate negative", func(c *SystemConfig) { c.FPRate = -0.1 }, "fp_rate"},
		{"negative radius", func(c *SystemConfig) { c.AlertRadiusMiles = -1 }, "alert_radius_miles"},
		{"zero queue", func(c *SystemConfig) { c.QueueDepth = 0 }, "queue_depth"},
		{"zero heartbeat", func(c *SystemConfig) { c.HeartbeatPeriod = 0 }, "heartbeat_period"},
		{"unknown channel", func(c *SystemConfig) { c.Channels = []string{"pager"} }, "channels"},
		{"duplicate channel", func(c *SystemConfig) { c.Channels = []string{"sound", "sound"} }, "duplicates"},
		{"bad webhook", func(c *SystemConfig) { c.Notify.WebhookURL = "not a url" }, "webhook_url"},
		{"bad metrics addr", func(c *SystemConfig) { c.MetricsAddr = "9464" }, "metrics_addr"},
		{"empty label", func(c *SystemConfig) { c.DangerPatterns = NewPatternSet("") }, "empty label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.FPRate = 2
	cfg.QueueDepth = -1
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "fp_rate") || !strings.Contains(msg, "queue_depth") {
		t.Errorf("joined error missing a field: %q", msg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvThreshold, "-20")
	t.Setenv(EnvWebhookURL, "https://example.com/hook")
	cfg := Default()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.DBThreshold != -20 {
		t.Errorf("DBThreshold = %v", cfg.DBThreshold)
	}
	if cfg.Notify.WebhookURL != "https://example.com/hook" {
		t.Errorf("WebhookURL = %q", cfg.Notify.WebhookURL)
	}

	t.Setenv(EnvThreshold, "loud")
	if err := ApplyEnv(&cfg); err == nil {
		t.Error("expected parse error for non-numeric threshold")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("AUDIOGUARD_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUDIOGUARD_TEST_DOTENV", "")
	os.Unsetenv("AUDIOGUARD_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("AUDIOGUARD_TEST_DOTENV"); got != "loaded" {
		t.Errorf("env = %q, want loaded", got)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("alert_radius_miles: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AlertRadiusMiles != 0 {
		t.Errorf("AlertRadiusMiles = %v, want 0", cfg.AlertRadiusMiles)
	}
}

func TestThresholdReachable(t *testing.T) {
	cfg := Default()
	if cfg.ThresholdReachable() {
		t.Error("85 dB should be unreachable without calibration")
	}
	cfg.CalibrationDB = 94
	if !cfg.ThresholdReachable() {
		t.Error("calibrated threshold should be reachable")
	}
}
