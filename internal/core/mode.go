// Package core is the orchestration layer.  It opens the two ends of a
// relay, pairs their endpoints on an event loop and tears everything
// down when the relay ends.
//
// Architecture layers (bottom → top):
//
//	relay  →  transport  →  capability  →  session  →  core  →  cmd (CLI)
//
// The builder in this package is the single dispatch point from a
// Config to a runnable Mode.
package core

import "context"

// Mode is a complete run of ttyrelay.  It owns its full lifecycle from
// opening the target to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
