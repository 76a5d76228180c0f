package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvThreshold       = "AUDIOGUARD_DB_THRESHOLD"
	EnvWebhookURL      = "AUDIOGUARD_WEBHOOK_URL"
	EnvVAPIDPublicKey  = "AUDIOGUARD_VAPID_PUBLIC_KEY"
	EnvVAPIDPrivateKey = "AUDIOGUARD_VAPID_PRIVATE_KEY"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audioguard", "config.yaml"), nil
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file at the default location
// is not an error; pass an empty path to use it.
func Load(path string) (SystemConfig, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return SystemConfig{}, fmt.Errorf("config: %w", err)
		}
		path = p
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := ApplyEnv(&cfg); err != nil {
				return SystemConfig{}, err
			}
			return cfg, Validate(cfg)
		}
		return SystemConfig{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return SystemConfig{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults, applies environment
// overrides and validates.
func LoadFromReader(r io.Reader) (SystemConfig, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return SystemConfig{}, fmt.Errorf("decode yaml: %w", err)
	}
	if err := ApplyEnv(&cfg); err != nil {
		return SystemConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return SystemConfig{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %q: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with AUDIOGUARD_* variables.
func ApplyEnv(cfg *SystemConfig) error {
	if v := os.Getenv(EnvThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvThreshold, err)
		}
		cfg.DBThreshold = f
	}
	if v := os.Getenv(EnvWebhookURL); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv(EnvVAPIDPublicKey); v != "" {
		cfg.Notify.WebPush.VAPIDPublicKey = v
	}
	if v := os.Getenv(EnvVAPIDPrivateKey); v != "" {
		cfg.Notify.WebPush.VAPIDPrivateKey = v
	}
	return nil
}

// Validate checks cfg and returns a joined error listing every failure.
func Validate(cfg SystemConfig) error {
	var errs []error

	if math.IsNaN(cfg.DBThreshold) || math.IsInf(cfg.DBThreshold, 0) {
		errs = append(errs, fmt.Errorf("db_threshold must be finite, got %v", cfg.DBThreshold))
	}
	if math.IsNaN(cfg.CalibrationDB) || math.IsInf(cfg.CalibrationDB, 0) {
		errs = append(errs, fmt.Errorf("calibration_db must be finite, got %v", cfg.CalibrationDB))
	}
	for label := range cfg.DangerPatterns {
		if strings.TrimSpace(label) == "" {
			errs = append(errs, errors.New("danger_patterns contains an empty label"))
			break
		}
	}
	if len(cfg.Platform.Command) == 0 && cfg.HasChannel(ChannelPlatform) && !platformNotifierKnown() {
		errs = append(errs, errors.New("platform channel enabled but no notifier is known for this OS; set platform.command"))
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			errs = append(errs, fieldError(e))
		}
	}
	return errors.Join(errs...)
}

func fieldError(e validator.FieldError) error {
	field := strings.TrimPrefix(e.Namespace(), "SystemConfig.")
	switch e.Tag() {
	case "gte":
		return fmt.Errorf("%s must be at least %s, got %v", field, e.Param(), e.Value())
	case "gt":
		return fmt.Errorf("%s must be greater than %s, got %v", field, e.Param(), e.Value())
	case "lte", "max":
		return fmt.Errorf("%s must be at most %s, got %v", field, e.Param(), e.Value())
	case "oneof":
		return fmt.Errorf("%s %q is invalid; valid values: %s", field, e.Value(), e.Param())
	case "unique":
		return fmt.Errorf("%s contains duplicates", field)
	default:
		return fmt.Errorf("%s failed %q validation (value %v)", field, e.Tag(), e.Value())
	}
}
