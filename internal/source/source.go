// Package source abstracts the capturable things a pipeline can subscribe
// to: windows and displays. Concrete variants are backed by X11; the capture
// core only sees the Capturable interface.
package source

import (
	"github.com/bryanchriswhite/FrameTap/internal/gfx"
)

// Capturable is anything that can be subscribed to for composited frame
// delivery.
type Capturable interface {
	// CreateCaptureTarget returns a fresh compositor handle for the source
	// together with its current size. Called again whenever the frame pool
	// is recreated.
	CreateCaptureTarget() (gfx.CaptureTarget, error)

	// ClipRegion returns the sub-rectangle of the composited surface that
	// should be materialized into the staging buffer. Re-read on every pool
	// recreation.
	ClipRegion() (gfx.Box, error)

	// CloseSignal returns a channel that is closed when the source goes
	// away (window destroyed, connection lost). Never fires for sources
	// that cannot close.
	CloseSignal() <-chan struct{}

	// Name is a human-readable identifier for logs and the CLI.
	Name() string
}
