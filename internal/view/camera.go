package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/snapsync/internal/capture"
	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/logging"
	"github.com/vbonduro/snapsync/internal/photobuffer"
	"github.com/vbonduro/snapsync/internal/poll"
	"github.com/vbonduro/snapsync/internal/syncclient"
)

// CameraView captures photos locally and mirrors the session's remote files.
type CameraView struct {
	controller *capture.Controller
	buffer     *photobuffer.Buffer
	client     SyncClient
	renderer   Renderer
	interval   time.Duration
	logger     *slog.Logger

	renderMu sync.Mutex

	mu            sync.Mutex
	files         []domain.RemoteFileEntry
	promptVisible bool
	stopPoll      func()
}

func NewCameraView(controller *capture.Controller, client SyncClient, renderer Renderer, interval time.Duration, logger *slog.Logger) *CameraView {
	v := &CameraView{
		controller: controller,
		client:     client,
		renderer:   renderer,
		interval:   interval,
		logger:     logging.OrDefault(logger).With("view", string(PanelCamera)),
	}
	v.buffer = photobuffer.New(photobuffer.WithOnChange(func([]domain.CapturedPhoto) {
		v.renderCamera()
	}))
	return v
}

// Activate shows the permission prompt and starts polling the remote listing.
func (v *CameraView) Activate(ctx context.Context) {
	v.mu.Lock()
	v.promptVisible = true
	if v.stopPoll == nil {
		v.stopPoll = poll.New(string(PanelCamera), v.interval, v.Refresh, v.logger).Start(ctx)
	}
	v.mu.Unlock()
	v.renderCamera()
}

// Deactivate releases the camera, stops polling and drops captured photos.
func (v *CameraView) Deactivate() {
	v.controller.Stop()

	v.mu.Lock()
	stop := v.stopPoll
	v.stopPoll = nil
	v.promptVisible = false
	v.mu.Unlock()

	if stop != nil {
		stop()
	}
	v.buffer.Clear()
}

// GrantAccess dismisses the prompt and asks for the camera.
func (v *CameraView) GrantAccess(ctx context.Context) error {
	v.hidePrompt()
	return v.startCamera(ctx)
}

// SkipAccess dismisses the prompt and leaves the camera off.
func (v *CameraView) SkipAccess() {
	v.hidePrompt()
	v.renderCamera()
}

// ToggleCamera stops an active camera or requests one when idle.
func (v *CameraView) ToggleCamera(ctx context.Context) error {
	if v.controller.State() == capture.StateActive {
		v.controller.Stop()
		v.renderCamera()
		return nil
	}
	return v.startCamera(ctx)
}

// Capture snapshots the current frame into the buffer. It reports false when
// no frame is available.
func (v *CameraView) Capture() bool {
	payload, ok := v.controller.CaptureFrame()
	if !ok {
		return false
	}
	v.buffer.Append(payload)
	return true
}

func (v *CameraView) DeletePhoto(index int) bool {
	return v.buffer.DeleteAt(index)
}

func (v *CameraView) ExportPhoto(index int) (photobuffer.Artifact, bool) {
	return v.buffer.ExportAt(index)
}

// UploadPhoto sends the photo at index to the remote store.
func (v *CameraView) UploadPhoto(ctx context.Context, index int) (syncclient.BatchResult, bool) {
	art, ok := v.buffer.ExportAt(index)
	if !ok {
		return syncclient.BatchResult{}, false
	}
	return v.UploadFiles(ctx, []syncclient.UploadFile{syncclient.FromBytes(art.Filename, art.Data)}), true
}

// UploadFiles uploads the batch and refreshes the listing once afterwards.
func (v *CameraView) UploadFiles(ctx context.Context, files []syncclient.UploadFile) syncclient.BatchResult {
	res := uploadBatch(ctx, v.client, v.renderer, v.logger, files)
	if len(files) > 0 {
		_ = v.Refresh(ctx)
	}
	return res
}

// Refresh replaces the listing with the remote one. On failure the previous
// listing is kept and the user is notified.
func (v *CameraView) Refresh(ctx context.Context) error {
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
	defer v.renderMu.Unlock()
	v.renderer.RenderFiles(PanelCamera, fileRows(v.client, files))
	return nil
}

func (v *CameraView) Files() []domain.RemoteFileEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.RemoteFileEntry(nil), v.files...)
}

func (v *CameraView) Photos() []domain.CapturedPhoto {
	return v.buffer.Photos()
}

func (v *CameraView) Snapshot() CameraSnapshot {
	v.mu.Lock()
	prompt := v.promptVisible
	v.mu.Unlock()

	state := v.controller.State()
	return CameraSnapshot{
		State:              state,
		PromptVisible:      prompt,
		PlaceholderVisible: state != capture.StateActive,
		Photos:             v.buffer.Photos(),
	}
}

func (v *CameraView) startCamera(ctx context.Context) error {
	err := v.controller.RequestAccess(ctx)
	if errors.Is(err, capture.ErrRequestCancelled) {
		return err
	}
	if err != nil && errors.Is(err, capture.ErrUnavailable) {
		v.renderer.Notify(NoticeError, "Camera access denied or unavailable. Check permissions and try again.")
	}
	v.renderCamera()
	return err
}

func (v *CameraView) hidePrompt() {
	v.mu.Lock()
	v.promptVisible = false
	v.mu.Unlock()
}

func (v *CameraView) renderCamera() {
	snap := v.Snapshot()
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	v.renderer.RenderCamera(snap)
}

// uploadBatch runs a sequential batch and reports each failure once.
func uploadBatch(ctx context.Context, client SyncClient, r Renderer, logger *slog.Logger, files []syncclient.UploadFile) syncclient.BatchResult {
	if len(files) == 0 {
		return syncclient.BatchResult{}
	}
	res := client.UploadBatch(ctx, files)
	for _, f := range res.Failed {
		logger.Error("upload failed", "file", f.Name, "error", f.Err)
		r.Notify(NoticeError, fmt.Sprintf("Upload failed for %s: %v", f.Name, f.Err))
	}
	if len(res.Uploaded) > 0 {
		r.Notify(NoticeInfo, fmt.Sprintf("Uploaded %d file(s)", len(res.Uploaded)))
	}
	return res
}
