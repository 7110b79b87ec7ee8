//go:build !windows

package dispatch

import (
	"os"
	"os/signal"
	"syscall"
)

// WatchSIGUSR2 registers a signal handler that dispatches bindingID on
// every SIGUSR2, for the CLI/tray/signal input source (spec §4.D). It
// runs until stopCh is closed.
func WatchSIGUSR2(d *Dispatcher, bindingID string, stopCh <-chan struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR2)
	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				d.SIGUSR2(bindingID)
			case <-stopCh:
				return
			}
		}
	}()
}
