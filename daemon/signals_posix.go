//go:build !windows

package daemon

import (
	"os"
	"os/signal"
	"syscall"
)

// WatchSignals installs the POSIX signal handling §4 names: SIGTERM/SIGINT
// trigger a graceful Shutdown, SIGUSR1 triggers RecycleAll. It returns
// immediately; handling happens on its own goroutine until stop is
// called.
func (d *Daemon) WatchSignals() (stop func()) {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR1)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGUSR1:
					d.log.Infof("SIGUSR1 received, recycling worker fleet")
					d.RecycleAll()
				case syscall.SIGTERM, syscall.SIGINT:
					d.log.Infof("%s received, shutting down", sig)
					if err := d.Shutdown(); err != nil {
						d.log.Errorf("shutdown: %v", err)
					}
					return
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
