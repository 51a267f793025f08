package view

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/logging"
	"github.com/vbonduro/snapsync/internal/poll"
	"github.com/vbonduro/snapsync/internal/syncclient"
)

// ExplorerView lists the session's remote files with storage totals.
type ExplorerView struct {
	client   SyncClient
	renderer Renderer
	interval time.Duration
	logger   *slog.Logger

	renderMu sync.Mutex

	mu       sync.Mutex
	files    []domain.RemoteFileEntry
	stats    domain.StorageStats
	stopPoll func()
}

func NewExplorerView(client SyncClient, renderer Renderer, interval time.Duration, logger *slog.Logger) *ExplorerView {
	return &ExplorerView{
		client:   client,
		renderer: renderer,
		interval: interval,
		logger:   logging.OrDefault(logger).With("view", string(PanelExplorer)),
	}
}

func (v *ExplorerView) Activate(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopPoll == nil {
		v.stopPoll = poll.New(string(PanelExplorer), v.interval, v.Refresh, v.logger).Start(ctx)
	}
}

func (v *ExplorerView) Deactivate() {
	v.mu.Lock()
	stop := v.stopPoll
	v.stopPoll = nil
	v.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (v *ExplorerView) UploadFiles(ctx context.Context, files []syncclient.UploadFile) syncclient.BatchResult {
	res := uploadBatch(ctx, v.client, v.renderer, v.logger, files)
	if len(files) > 0 {
		_ = v.Refresh(ctx)
	}
	return res
}

// Refresh reloads the listing and the totals. A failed listing keeps the
// previous one on screen.
func (v *ExplorerView) Refresh(ctx context.Context) error {
	files, err := v.client.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		v.renderer.Notify(NoticeError, fmt.Sprintf("Could not load files: %v", err))
		return fmt.Errorf("failed to list files: %w", err)
	}
	v.mu.Lock()
	v.files = files
	v.mu.Unlock()
	v.renderMu.Lock()
	v.renderer.RenderFiles(PanelExplorer, fileRows(v.client, files))
	v.renderMu.Unlock()

	stats, err := v.client.Stats(ctx)
	if err != nil {
		v.renderer.Notify(NoticeError, fmt.Sprintf("Could not load storage stats: %v", err))
		return fmt.Errorf("failed to load stats: %w", err)
	}
	v.mu.Lock()
	v.stats = stats
	v.mu.Unlock()
	v.renderMu.Lock()
	v.renderer.RenderStats(stats)
	v.renderMu.Unlock()
	return nil
}

// ShowGallery renders the session's images and videos.
func (v *ExplorerView) ShowGallery(ctx context.Context) error {
	entries, err := v.client.Gallery(ctx)
	if err != nil {
		v.renderer.Notify(NoticeError, fmt.Sprintf("Could not load gallery: %v", err))
		return fmt.Errorf("failed to load gallery: %w", err)
	}
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	v.renderer.RenderGallery(entries)
	return nil
}

func (v *ExplorerView) Files() []domain.RemoteFileEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.RemoteFileEntry(nil), v.files...)
}

func (v *ExplorerView) Stats() domain.StorageStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}
