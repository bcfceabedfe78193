package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/soocke/sensesafe-go/app"
	"github.com/soocke/sensesafe-go/config"
)

func main() {
	cfgPath := flag.String("config", "sensesafe.yaml", "config file (.json, .yaml or .yml)")
	level := flag.String("log-level", "", "override log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		NewLogger(slog.LevelInfo).Error("config load failed, using defaults", "path", *cfgPath, "error", err)
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		NewLogger(slog.LevelInfo).Error("invalid config", "error", err)
		os.Exit(2)
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if cfg.Debug && *level == "" {
		cfg.LogLevel = "debug"
	}

	// Set up logger
	logger := NewLogger(cfg.SlogLevel())
	logger.Info("starting", "config", *cfgPath, "services_configured", cfg.ConfiguredCount())

	application := app.NewApp("SenseSafe Exit Finder", 900, 860, cfg, *cfgPath, logger)
	application.Start()
}
