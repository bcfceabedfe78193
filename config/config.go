package config

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Service names of the four remote detection models.
const (
	ServiceWindows  = "windows"
	ServiceDoors    = "doors"
	ServiceHallways = "hallways"
	ServiceStairs   = "stairs"
)

// ServiceNames lists the remote services in call order.
var ServiceNames = []string{ServiceWindows, ServiceDoors, ServiceHallways, ServiceStairs}

// ServiceConfig holds the endpoint and key of one remote detection service.
// A service with an empty URL or Key is treated as not configured.
type ServiceConfig struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
	Key  string `json:"key" yaml:"key"`
}

// Configured reports whether both URL and Key are set.
func (s ServiceConfig) Configured() bool {
	return strings.TrimSpace(s.URL) != "" && strings.TrimSpace(s.Key) != ""
}

// Config holds runtime configuration for the exit detection pipelines and the
// desktop host. Fields may be loaded from a JSON or YAML file and overridden
// by environment variables.
type Config struct {
	Debug    bool   `json:"debug" yaml:"debug"`
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Remote detection
	Services               []ServiceConfig `json:"services" yaml:"services"`
	MaxUploadSide          int             `json:"max_upload_side" yaml:"max_upload_side"`
	JPEGQuality            int             `json:"jpeg_quality" yaml:"jpeg_quality"`
	ConnectTimeoutSeconds  int             `json:"connect_timeout_seconds" yaml:"connect_timeout_seconds"`
	ReadWriteTimeoutSecs   int             `json:"read_write_timeout_seconds" yaml:"read_write_timeout_seconds"`
	ConnectivityProbeMilli int             `json:"connectivity_probe_millis" yaml:"connectivity_probe_millis"`
	MinConfidence          float64         `json:"min_confidence" yaml:"min_confidence"`

	// Local pipeline
	InferenceMaxSide      int    `json:"inference_max_side" yaml:"inference_max_side"`
	RequiredStreak        int    `json:"required_streak" yaml:"required_streak"`
	CooldownMillis        int    `json:"cooldown_millis" yaml:"cooldown_millis"`
	ExitLabel             string `json:"exit_label" yaml:"exit_label"`
	CaptureIntervalMillis int    `json:"capture_interval_millis" yaml:"capture_interval_millis"`
	SensorRotation        int    `json:"sensor_rotation" yaml:"sensor_rotation"`

	// Screen region captured by the desktop sensor; zero size means full screen.
	RegionX int `json:"region_x" yaml:"region_x"`
	RegionY int `json:"region_y" yaml:"region_y"`
	RegionW int `json:"region_w" yaml:"region_w"`
	RegionH int `json:"region_h" yaml:"region_h"`

	// Template classifier
	MinScale          float64 `json:"min_scale" yaml:"min_scale"`
	MaxScale          float64 `json:"max_scale" yaml:"max_scale"`
	ScaleStep         float64 `json:"scale_step" yaml:"scale_step"`
	TemplateThreshold float64 `json:"template_threshold" yaml:"template_threshold"`
	Stride            int     `json:"stride" yaml:"stride"`
	Refine            bool    `json:"refine" yaml:"refine"`
	StopOnScore       float64 `json:"stop_on_score" yaml:"stop_on_score"`
}

// DefaultConfig returns a Config populated with standard defaults. All four
// services are present but unconfigured.
func DefaultConfig() *Config {
	services := make([]ServiceConfig, 0, len(ServiceNames))
	for _, n := range ServiceNames {
		services = append(services, ServiceConfig{Name: n})
	}
	return &Config{
		Debug:                  false,
		LogLevel:               "info",
		Services:               services,
		MaxUploadSide:          1280,
		JPEGQuality:            85,
		ConnectTimeoutSeconds:  30,
		ReadWriteTimeoutSecs:   60,
		ConnectivityProbeMilli: 3000,
		MinConfidence:          0,
		InferenceMaxSide:       320,
		RequiredStreak:         3,
		CooldownMillis:         2000,
		ExitLabel:              "EXIT",
		CaptureIntervalMillis:  100,
		SensorRotation:         0,
		MinScale:               0.50,
		MaxScale:               2.00,
		ScaleStep:              0.25,
		TemplateThreshold:      0.80,
		Stride:                 2,
		Refine:                 true,
		StopOnScore:            0.95,
	}
}

// Validate clamps/normalizes values to safe ranges. It only returns an error
// for values that cannot be repaired.
func (c *Config) Validate() error {
	if c.MaxUploadSide <= 0 {
		c.MaxUploadSide = 1280
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 85
	}
	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = 30
	}
	if c.ReadWriteTimeoutSecs <= 0 {
		c.ReadWriteTimeoutSecs = 60
	}
	if c.ConnectivityProbeMilli <= 0 {
		c.ConnectivityProbeMilli = 3000
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		c.MinConfidence = 0
	}
	if c.InferenceMaxSide <= 0 {
		c.InferenceMaxSide = 320
	}
	if c.RequiredStreak <= 0 {
		c.RequiredStreak = 3
	}
	if c.CooldownMillis < 0 {
		c.CooldownMillis = 2000
	}
	if strings.TrimSpace(c.ExitLabel) == "" {
		c.ExitLabel = "EXIT"
	}
	if c.CaptureIntervalMillis <= 0 {
		c.CaptureIntervalMillis = 100
	}
	switch c.SensorRotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("sensor_rotation must be 0, 90, 180 or 270, got %d", c.SensorRotation)
	}
	if c.RegionW < 0 || c.RegionH < 0 {
		c.RegionW, c.RegionH = 0, 0
	}
	if c.MinScale <= 0 {
		c.MinScale = 0.50
	}
	if c.MaxScale <= 0 || c.MaxScale < c.MinScale {
		c.MaxScale = c.MinScale + 1.50
	}
	if c.ScaleStep <= 0 {
		c.ScaleStep = 0.25
	}
	if c.ScaleStep > (c.MaxScale - c.MinScale) {
		c.ScaleStep = (c.MaxScale - c.MinScale) / 4
	}
	if c.TemplateThreshold <= 0 || c.TemplateThreshold > 1 {
		c.TemplateThreshold = 0.80
	}
	if c.Stride <= 0 {
		c.Stride = 2
	}
	if c.StopOnScore < 0 || c.StopOnScore > 1 {
		c.StopOnScore = 0.95
	}
	c.Services = normalizeServices(c.Services)
	return nil
}

// normalizeServices guarantees exactly one entry per known service, in call
// order. Unknown names are dropped.
func normalizeServices(in []ServiceConfig) []ServiceConfig {
	byName := make(map[string]ServiceConfig, len(in))
	for _, s := range in {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		s.Name = name
		s.URL = strings.TrimSpace(s.URL)
		s.Key = strings.TrimSpace(s.Key)
		byName[name] = s
	}
	out := make([]ServiceConfig, 0, len(ServiceNames))
	for _, n := range ServiceNames {
		s, ok := byName[n]
		if !ok {
			s = ServiceConfig{Name: n}
		}
		out = append(out, s)
	}
	return out
}

// SlogLevel maps LogLevel to a slog level; unknown values are Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Region returns the configured capture rectangle, or nil for full screen.
func (c *Config) Region() *image.Rectangle {
	if c.RegionW <= 0 || c.RegionH <= 0 {
		return nil
	}
	r := image.Rect(c.RegionX, c.RegionY, c.RegionX+c.RegionW, c.RegionY+c.RegionH)
	return &r
}

// Service returns the config of the named service.
func (c *Config) Service(name string) (ServiceConfig, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceConfig{}, false
}

// ConfiguredCount returns how many services have both URL and Key.
func (c *Config) ConfiguredCount() int {
	n := 0
	for _, s := range c.Services {
		if s.Configured() {
			n++
		}
	}
	return n
}

// Cooldown returns the hysteresis cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownMillis) * time.Millisecond
}

// CaptureInterval returns the desktop sensor sampling interval.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.CaptureIntervalMillis) * time.Millisecond
}

// ConnectTimeout returns the dial timeout for remote calls.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// ReadWriteTimeout returns the read/write timeout for remote calls.
func (c *Config) ReadWriteTimeout() time.Duration {
	return time.Duration(c.ReadWriteTimeoutSecs) * time.Second
}

// ConnectivityProbeTimeout returns the timeout of the reachability probe.
func (c *Config) ConnectivityProbeTimeout() time.Duration {
	return time.Duration(c.ConnectivityProbeMilli) * time.Millisecond
}

// ApplyEnv overrides service endpoints and keys from the environment using
// SENSESAFE_<SERVICE>_URL and SENSESAFE_<SERVICE>_KEY, plus SENSESAFE_DEBUG.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	c.Services = normalizeServices(c.Services)
	for i := range c.Services {
		prefix := "SENSESAFE_" + strings.ToUpper(c.Services[i].Name)
		if v := getenv(prefix + "_URL"); v != "" {
			c.Services[i].URL = strings.TrimSpace(v)
		}
		if v := getenv(prefix + "_KEY"); v != "" {
			c.Services[i].Key = strings.TrimSpace(v)
		}
	}
	if v := getenv("SENSESAFE_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load attempts to read configuration from the given JSON or YAML file path.
// If the file does not exist it returns DefaultConfig(). On decode error it
// returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	if isYAML(path) {
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("decode yaml config: %w", err)
		}
	} else {
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("decode json config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to the given path, as YAML when the extension
// is .yaml/.yml and JSON otherwise.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
