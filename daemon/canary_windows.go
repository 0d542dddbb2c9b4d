//go:build windows

package daemon

import (
	"os"
	"time"
)

// WatchCanaryFile polls cfg.CanaryFilePath for deletion as the Windows
// substitute for SIGUSR1 (§9: Windows has no user-definable signal
// equivalent to SIGUSR1, so recycle-all is triggered by removing a
// well-known file the daemon watches). Returns a no-op stop func if no
// canary path is configured.
func (d *Daemon) WatchCanaryFile(pollInterval time.Duration) (stop func()) {
	if d.cfg.CanaryFilePath == "" {
		return func() {}
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		existed := canaryExists(d.cfg.CanaryFilePath)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				now := canaryExists(d.cfg.CanaryFilePath)
				if existed && !now {
					d.log.Infof("canary file removed, recycling worker fleet")
					d.RecycleAll()
				}
				existed = now
			}
		}
	}()

	return func() { close(done) }
}

func canaryExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
