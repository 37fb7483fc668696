//go:build unix

package core

import (
	"os"
	"os/signal"
	"syscall"

	"ttyrelay/internal/transport"
)

// watchResize forwards terminal size changes to link until the returned
// stop function is called.
func (m *RelayMode) watchResize(link *transport.Link) (stop func()) {
	if link.Resize == nil || m.Local != nil {
		return func() {}
	}

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-winch:
				cols, rows := m.termSize()
				if cols <= 0 || rows <= 0 {
					continue
				}
				m.Logger.Debug("window resized to %dx%d", cols, rows)
				if err := link.Resize(cols, rows); err != nil {
					m.Logger.Debug("resize %s: %v", link.Name, err)
				}
			}
		}
	}()

	return func() {
		signal.Stop(winch)
		close(done)
	}
}
