// Package view wires capture, the photo buffer and the sync client into the
// panels a user navigates between.
package view

import (
	"context"

	"github.com/vbonduro/snapsync/internal/capture"
	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/syncclient"
)

type Panel string

const (
	PanelHome     Panel = "home"
	PanelCamera   Panel = "camera"
	PanelExplorer Panel = "explorer"
)

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// FileRow is a remote file as presented to the user.
type FileRow struct {
	Name string
	Size int64
	Link string
}

// CameraSnapshot is everything needed to draw the camera panel.
type CameraSnapshot struct {
	State              capture.State
	PromptVisible      bool
	PlaceholderVisible bool
	Photos             []domain.CapturedPhoto
}

// Renderer draws view state. Calls for one panel are serialised.
type Renderer interface {
	RenderFiles(panel Panel, files []FileRow)
	RenderStats(stats domain.StorageStats)
	RenderGallery(entries []domain.GalleryEntry)
	RenderCamera(snap CameraSnapshot)
	Notify(level NoticeLevel, msg string)
}

// SyncClient is the subset of the sync client the views depend on.
type SyncClient interface {
	UploadBatch(ctx context.Context, files []syncclient.UploadFile) syncclient.BatchResult
	List(ctx context.Context) ([]domain.RemoteFileEntry, error)
	Stats(ctx context.Context) (domain.StorageStats, error)
	Gallery(ctx context.Context) ([]domain.GalleryEntry, error)
	DownloadLinkFor(name string) string
}

func fileRows(c SyncClient, files []domain.RemoteFileEntry) []FileRow {
	rows := make([]FileRow, len(files))
	for i, f := range files {
		rows[i] = FileRow{Name: f.Name, Size: f.Size, Link: c.DownloadLinkFor(f.Name)}
	}
	return rows
}
