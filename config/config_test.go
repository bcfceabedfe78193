package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_AllServicesUnconfigured(t *testing.T) {
	c := DefaultConfig()
	if len(c.Services) != 4 {
		t.Fatalf("expected 4 services, got %d", len(c.Services))
	}
	if c.ConfiguredCount() != 0 {
		t.Fatalf("expected no configured services, got %d", c.ConfiguredCount())
	}
	if c.RequiredStreak != 3 || c.CooldownMillis != 2000 {
		t.Fatalf("unexpected hysteresis defaults: streak=%d cooldown=%d", c.RequiredStreak, c.CooldownMillis)
	}
}

func TestValidate_ClampsAndNormalizesServices(t *testing.T) {
	c := &Config{
		Services: []ServiceConfig{
			{Name: " Doors ", URL: " http://d ", Key: "k"},
			{Name: "unknown", URL: "http://x", Key: "k"},
		},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(c.Services) != 4 {
		t.Fatalf("expected 4 services after normalize, got %d", len(c.Services))
	}
	if c.Services[1].Name != ServiceDoors || c.Services[1].URL != "http://d" {
		t.Fatalf("doors not normalized: %+v", c.Services[1])
	}
	if c.ConfiguredCount() != 1 {
		t.Fatalf("expected 1 configured, got %d", c.ConfiguredCount())
	}
	if c.MaxUploadSide != 1280 || c.InferenceMaxSide != 320 || c.ExitLabel != "EXIT" {
		t.Fatalf("defaults not restored: %+v", c)
	}
}

func TestValidate_RejectsBadRotation(t *testing.T) {
	c := DefaultConfig()
	c.SensorRotation = 45
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for rotation 45")
	}
}

func TestApplyEnv_OverridesServices(t *testing.T) {
	c := DefaultConfig()
	env := map[string]string{
		"SENSESAFE_STAIRS_URL": "https://stairs.example/detect",
		"SENSESAFE_STAIRS_KEY": "abc",
		"SENSESAFE_DEBUG":      "true",
	}
	c.ApplyEnv(func(k string) string { return env[k] })
	s, ok := c.Service(ServiceStairs)
	if !ok || !s.Configured() {
		t.Fatalf("stairs not configured from env: %+v", s)
	}
	if !c.Debug {
		t.Fatalf("debug not set from env")
	}
}

func TestLoadSave_RoundTripJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cfg.json", "cfg.yaml"} {
		path := filepath.Join(dir, name)
		c := DefaultConfig()
		c.Services[0].URL = "http://windows"
		c.Services[0].Key = "w"
		c.CooldownMillis = 1500
		if err := c.Save(path); err != nil {
			t.Fatalf("%s save: %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("%s load: %v", name, err)
		}
		if got.CooldownMillis != 1500 || !got.Services[0].Configured() {
			t.Fatalf("%s round trip mismatch: %+v", name, got)
		}
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.MaxUploadSide != 1280 {
		t.Fatalf("expected defaults, got %+v", c)
	}
}

func TestLoad_BadJSONReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRegion_ZeroSizeMeansFullScreen(t *testing.T) {
	c := DefaultConfig()
	if c.Region() != nil {
		t.Fatalf("expected nil region by default")
	}
	c.RegionX, c.RegionY, c.RegionW, c.RegionH = 10, 20, 300, 200
	r := c.Region()
	if r == nil || r.Min.X != 10 || r.Max.Y != 220 {
		t.Fatalf("unexpected region %v", r)
	}
	c.RegionW = -5
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Region() != nil || c.RegionH != 0 {
		t.Fatalf("negative size not cleared: %+v", c)
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	} {
		c := Config{LogLevel: in}
		if got := c.SlogLevel(); got != want {
			t.Fatalf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
