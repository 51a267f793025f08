// Package imagedir replays still images from a directory as capture frames.
package imagedir

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vbonduro/snapsync/internal/capture"
)

var frameExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

type Device struct {
	dir string
}

func New(dir string) *Device {
	return &Device{dir: dir}
}

// Open fails when the directory is missing or holds no decodable frames.
func (d *Device) Open(ctx context.Context, _ capture.Constraints) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !frameExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(d.dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames found in %s", d.dir)
	}
	sort.Strings(paths)

	first, err := decode(paths[0])
	if err != nil {
		return nil, err
	}
	b := first.Bounds()
	return &stream{paths: paths, width: b.Dx(), height: b.Dy(), track: &track{}}, nil
}

type stream struct {
	paths         []string
	width, height int
	track         *track

	mu   sync.Mutex
	next int
}

func (s *stream) Tracks() []capture.Track { return []capture.Track{s.track} }

func (s *stream) Ready() bool { return !s.track.isStopped() }

func (s *stream) Dimensions() (int, int) { return s.width, s.height }

func (s *stream) Frame() (image.Image, error) {
	s.mu.Lock()
	path := s.paths[s.next%len(s.paths)]
	s.next++
	s.mu.Unlock()
	return decode(path)
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

type track struct {
	mu      sync.Mutex
	stopped bool
}

func (t *track) Kind() string { return "video" }

func (t *track) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *track) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
