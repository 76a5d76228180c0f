// Package config defines the monitoring session configuration and loads it
// from YAML, .env files and the environment.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied before any file or environment value.
const (
	DefaultDBThreshold      = 85.0
	DefaultAlertRadiusMiles = 5.0
	DefaultFPRate           = 0.05
	DefaultQueueDepth       = 32
	DefaultCoolDown         = 5 * time.Second
	DefaultHeartbeatPeriod  = 60 * time.Second
	DefaultActionTimeout    = 10 * time.Second
	DefaultSampleRate       = 16000
	DefaultWebPushTTL       = 60
)

// Alert channel names accepted in SystemConfig.Channels.
const (
	ChannelSound        = "sound"
	ChannelVisual       = "visual"
	ChannelNotification = "notification"
	ChannelPlatform     = "platform"
)

// DefaultDangerPatterns are the sound categories considered dangerous.
var DefaultDangerPatterns = []string{"gunshot", "glass_break", "scream"}

// PatternSet is an order-irrelevant set of danger labels. It decodes from a
// YAML sequence; duplicates collapse.
type PatternSet map[string]struct{}

func NewPatternSet(labels ...string) PatternSet {
	s := make(PatternSet, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

func (p PatternSet) Contains(label string) bool {
	_, ok := p[label]
	return ok
}

// Sorted returns the labels in lexical order.
func (p PatternSet) Sorted() []string {
	out := make([]string, 0, len(p))
	for l := range p {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

func (p *PatternSet) UnmarshalYAML(node *yaml.Node) error {
	var labels []string
	if err := node.Decode(&labels); err != nil {
		return fmt.Errorf("danger_patterns: %w", err)
	}
	*p = NewPatternSet(labels...)
	return nil
}

func (p PatternSet) MarshalYAML() (any, error) {
	return p.Sorted(), nil
}

func (p PatternSet) String() string {
	return strings.Join(p.Sorted(), ",")
}

type CaptureConfig struct {
	Device     string `yaml:"device"`
	SampleRate uint32 `yaml:"sample_rate" validate:"gte=8000,lte=192000"`
}

type SoundConfig struct {
	// Asset is a FLAC file played on alert. Empty uses the bundled siren.
	Asset string `yaml:"asset"`
}

type WebPushConfig struct {
	Subscriber      string `yaml:"subscriber" validate:"omitempty,email|url"`
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	TTL             int    `yaml:"ttl" validate:"gte=0,lte=2419200"`
	// Store is the SQLite database holding push subscriptions.
	Store string `yaml:"store"`
}

// Enabled reports whether enough is configured to send pushes.
func (w WebPushConfig) Enabled() bool {
	return w.VAPIDPrivateKey != "" && w.Store != ""
}

type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url" validate:"omitempty,url,max=2048"`
	WebPush    WebPushConfig `yaml:"web_push"`
}

type PlatformConfig struct {
	// Command overrides the OS notifier. "{message}" is replaced with the alert text.
	Command []string `yaml:"command"`
}

// SystemConfig is read-only once a monitoring session starts.
type SystemConfig struct {
	DBThreshold      float64    `yaml:"db_threshold"`
	DangerPatterns   PatternSet `yaml:"danger_patterns"`
	AlertRadiusMiles float64    `yaml:"alert_radius_miles" validate:"gte=0"`
	FPRate           float64    `yaml:"fp_rate" validate:"gte=0,lte=1"`

	CalibrationDB   float64       `yaml:"calibration_db"`
	QueueDepth      int           `yaml:"queue_depth" validate:"gte=1,lte=4096"`
	CoolDown        time.Duration `yaml:"cool_down" validate:"gte=0"`
	HeartbeatPeriod time.Duration `yaml:"heartbeat_period" validate:"gt=0"`
	ActionTimeout   time.Duration `yaml:"action_timeout" validate:"gte=0"`
	Channels        []string      `yaml:"channels" validate:"unique,dive,oneof=sound visual notification platform"`

	Capture  CaptureConfig  `yaml:"capture"`
	Sound    SoundConfig    `yaml:"sound"`
	Notify   NotifyConfig   `yaml:"notify"`
	Platform PlatformConfig `yaml:"platform"`

	// MetricsAddr serves Prometheus /metrics when set, e.g. ":9464".
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
}

// Default returns a SystemConfig populated with every default value.
func Default() SystemConfig {
	return SystemConfig{
		DBThreshold:      DefaultDBThreshold,
		DangerPatterns:   NewPatternSet(DefaultDangerPatterns...),
		AlertRadiusMiles: DefaultAlertRadiusMiles,
		FPRate:           DefaultFPRate,
		QueueDepth:       DefaultQueueDepth,
		CoolDown:         DefaultCoolDown,
		HeartbeatPeriod:  DefaultHeartbeatPeriod,
		ActionTimeout:    DefaultActionTimeout,
		Channels:         []string{ChannelSound, ChannelVisual, ChannelNotification},
		Capture:          CaptureConfig{SampleRate: DefaultSampleRate},
		Notify:           NotifyConfig{WebPush: WebPushConfig{TTL: DefaultWebPushTTL}},
	}
}

// HasChannel reports whether the named alert channel is enabled.
func (c SystemConfig) HasChannel(name string) bool {
	return slices.Contains(c.Channels, name)
}

// MaxLoudnessDB is the largest value the estimator can produce, since
// amplitudes never exceed full scale.
const MaxLoudnessDB = 0.0

// ThresholdReachable reports whether a full-scale batch could ever cross the
// threshold after calibration.
func (c SystemConfig) ThresholdReachable() bool {
	return MaxLoudnessDB+c.CalibrationDB > c.DBThreshold
}
