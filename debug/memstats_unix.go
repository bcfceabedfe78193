//go:build unix

package debug

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// readRSS returns the peak resident set size of the current process.
// ru_maxrss is reported in bytes on darwin and in kilobytes elsewhere.
func readRSS() (uint64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, fmt.Errorf("getrusage: %w", err)
	}
	rss := uint64(ru.Maxrss)
	if runtime.GOOS != "darwin" && runtime.GOOS != "ios" {
		rss *= 1024
	}
	return rss, nil
}
