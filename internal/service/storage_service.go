package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/filestore"
	"github.com/vbonduro/snapsync/internal/logging"
)

var (
	ErrInvalidFileName = errors.New("invalid file name")
	ErrInvalidSession  = errors.New("invalid session")
	ErrNotFound        = filestore.ErrNotFound
)

// sessionRepository is the subset of store.SessionStore that StorageService requires.
type sessionRepository interface {
	Create(ctx context.Context, token domain.Session) (*domain.SessionInfo, error)
	Ensure(ctx context.Context, token domain.Session) (*domain.SessionInfo, error)
	Grant(ctx context.Context, token domain.Session) error
	List(ctx context.Context) ([]*domain.SessionInfo, error)
}

// uploadRepository is the subset of store.UploadStore that StorageService requires.
type uploadRepository interface {
	Record(ctx context.Context, session domain.Session, name string, size int64) (*domain.Upload, error)
	ListBySession(ctx context.Context, session domain.Session) ([]*domain.Upload, error)
}

var (
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true}
	videoExtensions = map[string]bool{".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true}

	unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

type StorageService struct {
	sessions sessionRepository
	uploads  uploadRepository
	files    filestore.FileStore
	logger   *slog.Logger
}

func NewStorageService(sessions sessionRepository, uploads uploadRepository, files filestore.FileStore, logger *slog.Logger) *StorageService {
	return &StorageService{
		sessions: sessions,
		uploads:  uploads,
		files:    files,
		logger:   logging.OrDefault(logger),
	}
}

// SanitizeFileName maps an uploaded name onto the stored name: path
// separators and whitespace become underscores, characters outside
// [A-Za-z0-9._-] are dropped and leading dots and underscores are stripped.
func SanitizeFileName(name string) (string, error) {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFileChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "", ErrInvalidFileName
	}
	return name, nil
}

type UploadResult struct {
	Name string
	Size int64
}

// Upload stores r under the sanitised name, replacing any existing file.
func (s *StorageService) Upload(ctx context.Context, session domain.Session, filename string, r io.Reader) (*UploadResult, error) {
	if err := validSession(session); err != nil {
		return nil, err
	}
	name, err := SanitizeFileName(filename)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.Ensure(ctx, session); err != nil {
		return nil, err
	}

	size, err := s.files.Save(ctx, session, name, r)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	if _, err := s.uploads.Record(ctx, session, name, size); err != nil {
		s.logger.Error("failed to record upload", "session", session.String(), "file", name, "error", err)
	}

	s.logger.Info("file uploaded", "session", session.String(), "file", name, "size", size)
	return &UploadResult{Name: name, Size: size}, nil
}

func (s *StorageService) List(ctx context.Context, session domain.Session) ([]domain.RemoteFileEntry, error) {
	if err := validSession(session); err != nil {
		return nil, err
	}
	infos, err := s.files.List(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	entries := make([]domain.RemoteFileEntry, len(infos))
	for i, info := range infos {
		entries[i] = domain.RemoteFileEntry{Name: info.Name, Size: info.Size}
	}
	return entries, nil
}

func (s *StorageService) Open(ctx context.Context, session domain.Session, name string) (io.ReadCloser, error) {
	if err := storedName(session, name); err != nil {
		return nil, err
	}
	return s.files.Open(ctx, session, name)
}

// Stat describes a stored file. Names that could not have been produced by
// SanitizeFileName are reported as not found.
func (s *StorageService) Stat(ctx context.Context, session domain.Session, name string) (filestore.FileInfo, error) {
	if err := storedName(session, name); err != nil {
		return filestore.FileInfo{}, err
	}
	return s.files.Stat(ctx, session, name)
}

func (s *StorageService) Stats(ctx context.Context, session domain.Session) (domain.StorageStats, error) {
	entries, err := s.List(ctx, session)
	if err != nil {
		return domain.StorageStats{}, err
	}
	var stats domain.StorageStats
	for _, e := range entries {
		stats.TotalFiles++
		stats.TotalSize += e.Size
	}
	stats.TotalSizeMB = math.Round(float64(stats.TotalSize)/(1024*1024)*100) / 100
	return stats, nil
}

// MediaType classifies a file name as image or video by extension.
func MediaType(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExtensions[ext]:
		return domain.MediaImage, true
	case videoExtensions[ext]:
		return domain.MediaVideo, true
	default:
		return "", false
	}
}

// DownloadPath is the server-relative path a stored file is served from.
func DownloadPath(session domain.Session, name string) string {
	return "/api/storage/download/" + url.PathEscape(session.String()) + "/" + url.PathEscape(name)
}

func (s *StorageService) Gallery(ctx context.Context, session domain.Session) ([]domain.GalleryEntry, error) {
	entries, err := s.List(ctx, session)
	if err != nil {
		return nil, err
	}
	gallery := []domain.GalleryEntry{}
	for _, e := range entries {
		kind, ok := MediaType(e.Name)
		if !ok {
			continue
		}
		gallery = append(gallery, domain.GalleryEntry{
			Name: e.Name,
			Type: kind,
			Path: DownloadPath(session, e.Name),
			Size: e.Size,
		})
	}
	return gallery, nil
}

type StructureEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

type Structure struct {
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	Contents []StructureEntry `json:"contents"`
}

// Structure presents a session's files as a single storage folder.
func (s *StorageService) Structure(ctx context.Context, session domain.Session) (*Structure, error) {
	entries, err := s.List(ctx, session)
	if err != nil {
		return nil, err
	}
	root := &Structure{Name: "Storage", Type: "folder", Contents: []StructureEntry{}}
	for _, e := range entries {
		root.Contents = append(root.Contents, StructureEntry{Name: e.Name, Type: "file", Size: e.Size, Path: e.Name})
	}
	return root, nil
}

// CreateSession mints a fresh session token.
func (s *StorageService) CreateSession(ctx context.Context) (*domain.SessionInfo, error) {
	token := domain.Session(strings.ReplaceAll(uuid.NewString(), "-", ""))
	info, err := s.sessions.Create(ctx, token)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session created", "session", token.String())
	return info, nil
}

func (s *StorageService) GrantSession(ctx context.Context, session domain.Session) error {
	if err := validSession(session); err != nil {
		return err
	}
	if err := s.sessions.Grant(ctx, session); err != nil {
		return err
	}
	s.logger.Info("session granted", "session", session.String())
	return nil
}

// AdminFile is a stored file as reported to operators. UploadedAt is nil for
// files with no upload record.
type AdminFile struct {
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
}

type AdminSession struct {
	Token     string      `json:"token"`
	Granted   bool        `json:"granted"`
	CreatedAt time.Time   `json:"created_at"`
	Files     []AdminFile `json:"files"`
	FileCount int         `json:"file_count"`
}

// AdminSessions lists every known session with its stored files and when each
// was last uploaded.
func (s *StorageService) AdminSessions(ctx context.Context) ([]AdminSession, error) {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AdminSession, 0, len(sessions))
	for _, info := range sessions {
		entries, err := s.List(ctx, info.Token)
		if err != nil {
			return nil, err
		}
		uploads, err := s.uploads.ListBySession(ctx, info.Token)
		if err != nil {
			return nil, err
		}
		uploadedAt := make(map[string]time.Time, len(uploads))
		for _, u := range uploads {
			uploadedAt[u.Name] = u.UploadedAt
		}

		files := make([]AdminFile, len(entries))
		for i, e := range entries {
			files[i] = AdminFile{Name: e.Name, Size: e.Size}
			if at, ok := uploadedAt[e.Name]; ok {
				files[i].UploadedAt = &at
			}
		}
		out = append(out, AdminSession{
			Token:     info.Token.String(),
			Granted:   info.Granted,
			CreatedAt: info.CreatedAt,
			Files:     files,
			FileCount: len(files),
		})
	}
	return out, nil
}

func storedName(session domain.Session, name string) error {
	if err := validSession(session); err != nil {
		return err
	}
	clean, err := SanitizeFileName(name)
	if err != nil || clean != name {
		return ErrNotFound
	}
	return nil
}

func validSession(session domain.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}
