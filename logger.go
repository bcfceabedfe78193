package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a JSON slog.Logger on stdout with the given level. Every
// record carries the app name so output can be mixed with other processes.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("app", "sensesafe")
}
