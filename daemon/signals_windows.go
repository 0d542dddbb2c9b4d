//go:build windows

package daemon

import (
	"os"
	"os/signal"
)

// WatchSignals installs Windows' portable equivalent of the POSIX signal
// table (§6): Go only guarantees os.Interrupt (Ctrl+C / Ctrl+Break) is
// deliverable on Windows, so that alone triggers graceful Shutdown.
// SIGUSR1 has no Windows analogue by design (§9) — WatchCanaryFile is the
// recycle-all trigger on this platform instead.
func (d *Daemon) WatchSignals() (stop func()) {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, os.Interrupt)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigCh:
				d.log.Infof("%s received, shutting down", sig)
				if err := d.Shutdown(); err != nil {
					d.log.Errorf("shutdown: %v", err)
				}
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
