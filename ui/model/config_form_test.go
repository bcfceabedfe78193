package model

import (
	"testing"

	"github.com/soocke/sensesafe-go/config"
)

func TestApplyConfigForm_ServicesAndNumbers(t *testing.T) {
	base := config.DefaultConfig()
	base.Services[1].URL = "http://doors"
	base.Services[1].Key = "secret-1234"
	fields := map[string]string{
		URLField(config.ServiceWindows): "http://windows",
		KeyField(config.ServiceWindows): "wkey",
		URLField(config.ServiceDoors):   "http://doors",
		KeyField(config.ServiceDoors):   MaskKey("secret-1234"),
		FieldMinConfidence:              "0.4",
		FieldRequiredStreak:             "x",
		FieldCooldownMillis:             "1500",
	}
	cfg, err := ApplyConfigForm(base, fields)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Services[0].URL != "http://windows" || cfg.Services[0].Key != "wkey" {
		t.Fatalf("windows not applied: %+v", cfg.Services[0])
	}
	if cfg.Services[1].Key != "secret-1234" {
		t.Fatalf("masked key must keep stored key, got %q", cfg.Services[1].Key)
	}
	if cfg.MinConfidence != 0.4 || cfg.CooldownMillis != 1500 || cfg.RequiredStreak != 3 {
		t.Fatalf("numbers not applied: %+v", cfg)
	}
	if cfg.ConfiguredCount() != 2 {
		t.Fatalf("expected 2 configured services, got %d", cfg.ConfiguredCount())
	}
	if base.Services[0].URL != "" {
		t.Fatalf("base config was modified")
	}
}

func TestApplyConfigForm_RejectsInvalid(t *testing.T) {
	base := config.DefaultConfig()
	base.SensorRotation = 45
	if _, err := ApplyConfigForm(base, nil); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMaskKey(t *testing.T) {
	for in, want := range map[string]string{"": "", "abc": "****", "abcdef": "****cdef"} {
		if got := MaskKey(in); got != want {
			t.Fatalf("MaskKey(%q) = %q, want %q", in, got, want)
		}
	}
}
