// Package photobuffer holds the volatile, index-addressed list of photos
// captured during a view's lifetime. Indices are positions: they are only
// meaningful against the most recent render and shift on every delete.
package photobuffer

import (
	"fmt"
	"sync"
	"time"

	"github.com/vbonduro/snapsync/internal/domain"
)

// EmptyMessage is rendered instead of an empty gallery.
const EmptyMessage = "No photos yet"

// Artifact is a named, downloadable export of one photo.
type Artifact struct {
	Filename string
	MimeType string
	Data     []byte
}

type entry struct {
	payload    domain.Payload
	capturedAt time.Time
}

type Buffer struct {
	mu       sync.Mutex
	entries  []entry
	now      func() time.Time
	onChange func([]domain.CapturedPhoto)
}

type Option func(*Buffer)

// WithClock overrides the clock used to stamp captures.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) { b.now = now }
}

// WithOnChange registers the re-render hook called after every mutation.
func WithOnChange(fn func([]domain.CapturedPhoto)) Option {
	return func(b *Buffer) { b.onChange = fn }
}

func New(opts ...Option) *Buffer {
	b := &Buffer{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buffer) Append(p domain.Payload) {
	b.mu.Lock()
	b.entries = append(b.entries, entry{payload: p, capturedAt: b.now()})
	snapshot := b.snapshotLocked()
	b.mu.Unlock()
	b.notify(snapshot)
}

// DeleteAt removes the photo at index. Out-of-range indices are ignored.
func (b *Buffer) DeleteAt(index int) bool {
	b.mu.Lock()
	if index < 0 || index >= len(b.entries) {
		b.mu.Unlock()
		return false
	}
	b.entries = append(b.entries[:index], b.entries[index+1:]...)
	snapshot := b.snapshotLocked()
	b.mu.Unlock()
	b.notify(snapshot)
	return true
}

// ExportAt builds a download artifact for the photo at index without
// modifying the buffer. Out-of-range indices are ignored.
func (b *Buffer) ExportAt(index int) (Artifact, bool) {
	b.mu.Lock()
	if index < 0 || index >= len(b.entries) {
		b.mu.Unlock()
		return Artifact{}, false
	}
	e := b.entries[index]
	b.mu.Unlock()

	data, err := e.payload.Bytes()
	if err != nil {
		return Artifact{}, false
	}
	return Artifact{
		Filename: fmt.Sprintf("photo-%d.jpg", e.capturedAt.UnixMilli()),
		MimeType: e.payload.MimeType(),
		Data:     data,
	}, true
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Photos returns the current contents with indices derived from position.
func (b *Buffer) Photos() []domain.CapturedPhoto {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// Clear drops every photo when the owning view is torn down. It does not
// notify: there is nothing left to render into.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}

func (b *Buffer) snapshotLocked() []domain.CapturedPhoto {
	out := make([]domain.CapturedPhoto, len(b.entries))
	for i, e := range b.entries {
		out[i] = domain.CapturedPhoto{Index: i, Payload: e.payload, CapturedAt: e.capturedAt}
	}
	return out
}

func (b *Buffer) notify(photos []domain.CapturedPhoto) {
	if b.onChange != nil {
		b.onChange(photos)
	}
}
