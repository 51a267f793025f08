package capture

import (
	"context"
	"image"
)

// FacingMode selects which physical camera a device should prefer.
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
)

// Constraints describe the stream requested from a Device.
type Constraints struct {
	Video  bool
	Audio  bool
	Facing FacingMode
}

// Device negotiates access to capture hardware. Open blocks until access is
// granted or refused; every failure reason is treated as "capture unavailable".
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live capture handle.
type Stream interface {
	Tracks() []Track
	// Ready reports whether a frame can be read.
	Ready() bool
	// Dimensions returns the native capture resolution, or zeros when unknown.
	Dimensions() (width, height int)
	Frame() (image.Image, error)
}

type Track interface {
	Kind() string
	Stop()
}

// Preview is the live surface a granted stream is bound to.
type Preview interface {
	Attach(s Stream)
	Detach()
}

type nopPreview struct{}

func (nopPreview) Attach(Stream) {}
func (nopPreview) Detach()       {}
