// Package testpattern provides a synthetic capture device that renders
// colour-bar frames. It stands in for camera hardware in the terminal
// workspace and in tests.
package testpattern

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/vbonduro/snapsync/internal/capture"
)

var bars = []color.RGBA{
	{R: 0xC0, G: 0xC0, B: 0xC0, A: 0xFF},
	{R: 0xC0, G: 0xC0, B: 0x00, A: 0xFF},
	{R: 0x00, G: 0xC0, B: 0xC0, A: 0xFF},
	{R: 0x00, G: 0xC0, B: 0x00, A: 0xFF},
	{R: 0xC0, G: 0x00, B: 0xC0, A: 0xFF},
	{R: 0xC0, G: 0x00, B: 0x00, A: 0xFF},
	{R: 0x00, G: 0x00, B: 0xC0, A: 0xFF},
}

type Device struct {
	Width  int
	Height int
	// Err, when set, is returned from Open to simulate a refused or busy device.
	Err error
	// Gate, when set, holds Open until it is closed, like a permission prompt
	// the user has not answered yet.
	Gate chan struct{}

	mu      sync.Mutex
	opened  int
	streams []*Stream
}

func New(width, height int) *Device {
	return &Device{Width: width, Height: height}
}

func (d *Device) Open(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Gate != nil {
		<-d.Gate
	}
	if d.Err != nil {
		return nil, d.Err
	}
	s := &Stream{width: d.Width, height: d.Height, facing: c.Facing}
	s.tracks = []*Track{{kind: "video"}}
	s.ready.Store(true)

	d.mu.Lock()
	d.opened++
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

// Opened returns how many streams have been handed out.
func (d *Device) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// LastStream returns the most recently opened stream, or nil.
func (d *Device) LastStream() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

type Stream struct {
	width, height int
	facing        capture.FacingMode
	tracks        []*Track
	ready         atomic.Bool
	frames        atomic.Int64
}

func (s *Stream) Tracks() []capture.Track {
	out := make([]capture.Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

func (s *Stream) Ready() bool { return s.ready.Load() && !s.Stopped() }

// SetReady toggles frame readiness, mimicking a stream still warming up.
func (s *Stream) SetReady(ready bool) { s.ready.Store(ready) }

func (s *Stream) Dimensions() (int, int) { return s.width, s.height }

func (s *Stream) Facing() capture.FacingMode { return s.facing }

// Stopped reports whether every track has been stopped.
func (s *Stream) Stopped() bool {
	for _, t := range s.tracks {
		if !t.stopped.Load() {
			return false
		}
	}
	return true
}

// Frame draws vertical colour bars shifted by one bar per captured frame, so
// consecutive snapshots differ.
func (s *Stream) Frame() (image.Image, error) {
	w, h := s.width, s.height
	if w <= 0 || h <= 0 {
		w, h = 320, 240
	}
	shift := int(s.frames.Add(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	barWidth := (w + len(bars) - 1) / len(bars)
	for x := 0; x < w; x++ {
		c := bars[(x/barWidth+shift)%len(bars)]
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

type Track struct {
	kind    string
	stopped atomic.Bool
}

func (t *Track) Kind() string { return t.kind }
func (t *Track) Stop()        { t.stopped.Store(true) }
