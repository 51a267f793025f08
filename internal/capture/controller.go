package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"sync"

	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/logging"
)

type State int

const (
	StateIdle State = iota
	StatePermissionRequested
	StateActive
)

func (s State) String() string {
	switch s {
	case StatePermissionRequested:
		return "permission-requested"
	case StateActive:
		return "active"
	default:
		return "idle"
	}
}

const (
	defaultFrameWidth  = 640
	defaultFrameHeight = 480
	jpegQuality        = 92
)

var (
	// ErrUnavailable wraps every reason a stream could not be acquired.
	ErrUnavailable = errors.New("capture unavailable")
	// ErrStreamActive is returned when access is requested while a stream is held.
	ErrStreamActive = errors.New("capture stream already active")
	// ErrRequestCancelled is returned when Stop runs while a request is pending.
	ErrRequestCancelled = errors.New("capture request cancelled")
)

// Controller owns the capture device handle for a single view.
type Controller struct {
	device  Device
	preview Preview
	logger  *slog.Logger

	mu     sync.Mutex
	state  State
	stream Stream
	// gen is bumped by Stop so a pending RequestAccess can tell it was cancelled.
	gen    uint64
	cancel context.CancelFunc
}

func NewController(device Device, preview Preview, logger *slog.Logger) *Controller {
	if preview == nil {
		preview = nopPreview{}
	}
	return &Controller{
		device:  device,
		preview: preview,
		logger:  logging.OrDefault(logger),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestAccess asks the device for a video-only, environment-facing stream.
// Failures leave the controller Idle and are returned wrapping ErrUnavailable.
// A Stop while the request is pending cancels it: the stream it yields is
// released and the controller stays Idle.
func (c *Controller) RequestAccess(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrStreamActive
	}
	c.state = StatePermissionRequested
	gen := c.gen
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	var (
		stream Stream
		err    error
	)
	if c.device == nil {
		err = errors.New("no capture device")
	} else {
		stream, err = c.device.Open(ctx, Constraints{Video: true, Audio: false, Facing: FacingEnvironment})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		if stream != nil {
			stopTracks(stream)
			c.logger.Debug("released stream from cancelled request")
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, ErrRequestCancelled)
	}
	c.cancel = nil
	if err != nil {
		c.state = StateIdle
		c.logger.Warn("camera permission denied", "error", err)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.stream = stream
	c.preview.Attach(stream)
	c.state = StateActive
	c.logger.Info("camera started")
	return nil
}

// Stop releases every track of the held stream and cancels a pending
// request. It is a no-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StatePermissionRequested:
		c.gen++
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.state = StateIdle
		c.logger.Info("camera request cancelled")
	case StateActive:
		stopTracks(c.stream)
		c.stream = nil
		c.preview.Detach()
		c.state = StateIdle
		c.logger.Info("camera stopped")
	}
}

func stopTracks(s Stream) {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// CaptureFrame snapshots the current frame as a JPEG payload. It reports false
// without error when the stream is not active or has no frame ready yet.
func (c *Controller) CaptureFrame() (domain.Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive || c.stream == nil || !c.stream.Ready() {
		return "", false
	}

	frame, err := c.stream.Frame()
	if err != nil {
		c.logger.Error("failed to read frame", "error", err)
		return "", false
	}

	w, h := c.stream.Dimensions()
	if w <= 0 || h <= 0 {
		w, h = defaultFrameWidth, defaultFrameHeight
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), frame, frame.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		c.logger.Error("failed to encode frame", "error", err)
		return "", false
	}
	return domain.NewJPEGPayload(buf.Bytes()), true
}
