package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vbonduro/snapsync/internal/logging"
)

var ErrUnknownPanel = errors.New("unknown panel")

// PanelView is a panel that owns resources while it is visible.
type PanelView interface {
	Activate(ctx context.Context)
	Deactivate()
}

// HomePanel is the static landing panel.
type HomePanel struct {
	renderer Renderer
}

func NewHomePanel(renderer Renderer) *HomePanel {
	return &HomePanel{renderer: renderer}
}

func (h *HomePanel) Activate(context.Context) {
	h.renderer.Notify(NoticeInfo, "Open the camera to take photos or the explorer to browse uploads.")
}

func (h *HomePanel) Deactivate() {}

// Coordinator keeps exactly one panel visible.
type Coordinator struct {
	panels map[Panel]PanelView
	logger *slog.Logger

	mu      sync.Mutex
	current Panel
}

func NewCoordinator(home, camera, explorer PanelView, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		panels: map[Panel]PanelView{
			PanelHome:     home,
			PanelCamera:   camera,
			PanelExplorer: explorer,
		},
		logger: logging.OrDefault(logger),
	}
}

func (c *Coordinator) Current() Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Show deactivates the visible panel before activating p.
func (c *Coordinator) Show(ctx context.Context, p Panel) error {
	next, ok := c.panels[p]
	if !ok || next == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPanel, p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == p {
		return nil
	}
	if prev, ok := c.panels[c.current]; ok && prev != nil {
		prev.Deactivate()
	}
	c.current = p
	next.Activate(ctx)
	c.logger.Debug("panel shown", "panel", string(p))
	return nil
}

// Close deactivates the visible panel.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.panels[c.current]; ok && prev != nil {
		prev.Deactivate()
	}
	c.current = ""
}
