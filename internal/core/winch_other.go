//go:build !unix

package core

import "ttyrelay/internal/transport"

// watchResize is a no-op where there is no SIGWINCH.
func (m *RelayMode) watchResize(*transport.Link) (stop func()) {
	return func() {}
}
