//go:build !windows

package daemon

import "time"

// WatchCanaryFile is a no-op off Windows: POSIX builds use SIGUSR1
// (signals_posix.go) as the recycle-all trigger instead of a polled
// canary file (§4, §9).
func (d *Daemon) WatchCanaryFile(pollInterval time.Duration) (stop func()) {
	return func() {}
}
