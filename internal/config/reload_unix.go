//go:build !windows

package config

import (
	"os"
	"os/signal"
	"syscall"
)

// registerSignalHandler wires SIGHUP to a config reload, so operators can
// force a reload without touching the file (e.g. after rotating API keys).
func (r *Reloader) registerSignalHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				r.logger.Info("SIGHUP received, reloading config")
				r.Reload()
			case <-r.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	r.logger.Info("config reload on SIGHUP enabled")
}
