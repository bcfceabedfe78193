//go:build windows

package cue

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"
)

const mbIconExclamation = 0x00000030

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBeep = user32.NewProc("MessageBeep")
)

func platformBeep() error {
	r1, _, err := procMessageBeep.Call(mbIconExclamation)
	if r1 == 0 {
		return fmt.Errorf("MessageBeep: %w", err)
	}
	return nil
}

func pulseGap() { time.Sleep(250 * time.Millisecond) }
