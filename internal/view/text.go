package view

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/photobuffer"
)

// EmptyFilesMessage is shown in place of an empty remote listing.
const EmptyFilesMessage = "No files yet"

// TextRenderer writes a plain-text rendition of every view to w.
type TextRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) RenderFiles(panel Panel, files []FileRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "[%s] files\n", panel)
	if len(files) == 0 {
		fmt.Fprintf(r.w, "  %s\n", EmptyFilesMessage)
		return
	}
	for _, f := range files {
		fmt.Fprintf(r.w, "  %-32s %10s  %s\n", f.Name, humanize.Bytes(uint64(f.Size)), f.Link)
	}
}

func (r *TextRenderer) RenderStats(stats domain.StorageStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "  %d files, %s (%.2f MB)\n", stats.TotalFiles, humanize.Bytes(uint64(stats.TotalSize)), stats.TotalSizeMB)
}

func (r *TextRenderer) RenderGallery(entries []domain.GalleryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, "gallery")
	if len(entries) == 0 {
		fmt.Fprintf(r.w, "  %s\n", photobuffer.EmptyMessage)
		return
	}
	for _, e := range entries {
		fmt.Fprintf(r.w, "  %-6s %-32s %10s\n", e.Type, e.Name, humanize.Bytes(uint64(e.Size)))
	}
}

func (r *TextRenderer) RenderCamera(snap CameraSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap.PromptVisible {
		fmt.Fprintln(r.w, "Allow camera access? (grant / skip)")
	}
	if snap.PlaceholderVisible {
		fmt.Fprintln(r.w, "camera: off")
	} else {
		fmt.Fprintf(r.w, "camera: %s\n", snap.State)
	}
	if len(snap.Photos) == 0 {
		fmt.Fprintf(r.w, "  %s\n", photobuffer.EmptyMessage)
		return
	}
	for _, p := range snap.Photos {
		size := 0
		if data, err := p.Payload.Bytes(); err == nil {
			size = len(data)
		}
		fmt.Fprintf(r.w, "  [%d] %s  %s\n", p.Index, p.CapturedAt.Format("15:04:05"), humanize.Bytes(uint64(size)))
	}
}

func (r *TextRenderer) Notify(level NoticeLevel, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := "info"
	if level == NoticeError {
		prefix = "error"
	}
	fmt.Fprintf(r.w, "%s: %s\n", prefix, msg)
}
