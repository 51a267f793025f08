package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/filestore"
)

// Store keeps each session's files in its own directory under basePath.
type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) Save(ctx context.Context, session domain.Session, name string, r io.Reader) (int64, error) {
	filePath, err := s.safeJoin(session, name)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create session directory: %w", err)
	}

	// A failed upload must leave an existing file of the same name intact.
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		if cerr := tmp.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(tmp.Name()); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		if rerr := os.Remove(tmp.Name()); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return 0, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}
	return n, nil
}

func (s *Store) Open(ctx context.Context, session domain.Session, name string) (io.ReadCloser, error) {
	filePath, err := s.safeJoin(session, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, filestore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (s *Store) List(ctx context.Context, session domain.Session) ([]filestore.FileInfo, error) {
	dir, err := s.sessionDir(session)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []filestore.FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	files := make([]filestore.FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, filestore.FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *Store) Stat(ctx context.Context, session domain.Session, name string) (filestore.FileInfo, error) {
	filePath, err := s.safeJoin(session, name)
	if err != nil {
		return filestore.FileInfo{}, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return filestore.FileInfo{}, filestore.ErrNotFound
		}
		return filestore.FileInfo{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return filestore.FileInfo{}, filestore.ErrNotFound
	}
	return filestore.FileInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *Store) sessionDir(session domain.Session) (string, error) {
	if err := session.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, session.String()), nil
}

// safeJoin resolves name inside the session directory and rejects directory traversal.
func (s *Store) safeJoin(session domain.Session, name string) (string, error) {
	dir, err := s.sessionDir(session)
	if err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if filepath.Dir(absPath) != absBase {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
