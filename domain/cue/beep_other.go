//go:build !windows

package cue

import (
	"errors"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

var errNoTerminal = errors.New("stderr is not a terminal")

// platformBeep rings the terminal bell when stderr is a terminal.
func platformBeep() error {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return errNoTerminal
	}
	_, err := os.Stderr.Write([]byte{'\a'})
	return err
}

func pulseGap() { time.Sleep(150 * time.Millisecond) }
