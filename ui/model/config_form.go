package model

import (
	"strconv"
	"strings"

	"github.com/soocke/sensesafe-go/config"
)

// Form field ids shared by the config panel and ApplyConfigForm.
const (
	FieldMinConfidence     = "minConfidence"
	FieldRequiredStreak    = "requiredStreak"
	FieldCooldownMillis    = "cooldownMillis"
	FieldTemplateThreshold = "templateThreshold"
)

func URLField(service string) string { return service + ".url" }
func KeyField(service string) string { return service + ".key" }

// MaskKey hides all but the last four characters of a service key.
func MaskKey(k string) string {
	if k == "" {
		return ""
	}
	if len(k) <= 4 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}

// ApplyConfigForm returns a validated copy of base with the form fields
// applied. Unparsable numbers keep their previous value. A key field still
// showing the masked value keeps the stored key.
func ApplyConfigForm(base *config.Config, fields map[string]string) (config.Config, error) {
	cfg := *base
	cfg.Services = append([]config.ServiceConfig(nil), base.Services...)
	for i, svc := range cfg.Services {
		if u, ok := fields[URLField(svc.Name)]; ok {
			cfg.Services[i].URL = u
		}
		if k, ok := fields[KeyField(svc.Name)]; ok && k != MaskKey(svc.Key) {
			cfg.Services[i].Key = k
		}
	}
	if f, ok := parseFloatField(fields[FieldMinConfidence]); ok {
		cfg.MinConfidence = f
	}
	if i, ok := parseIntField(fields[FieldRequiredStreak]); ok {
		cfg.RequiredStreak = i
	}
	if i, ok := parseIntField(fields[FieldCooldownMillis]); ok {
		cfg.CooldownMillis = i
	}
	if f, ok := parseFloatField(fields[FieldTemplateThreshold]); ok {
		cfg.TemplateThreshold = f
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// parsing helpers (unexported)
func parseFloatField(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
func parseIntField(s string) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return i, true
}
