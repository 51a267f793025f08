// Package filestore abstracts where uploaded session files are kept.
package filestore

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/vbonduro/snapsync/internal/domain"
)

var ErrNotFound = errors.New("file not found")

type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FileStore keeps a flat namespace of files per session. Saving an existing
// name replaces it.
type FileStore interface {
	Save(ctx context.Context, session domain.Session, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, session domain.Session, name string) (io.ReadCloser, error)
	List(ctx context.Context, session domain.Session) ([]FileInfo, error)
	Stat(ctx context.Context, session domain.Session, name string) (FileInfo, error)
}
