// Package s3 stores session files as objects in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vbonduro/snapsync/internal/domain"
	"github.com/vbonduro/snapsync/internal/filestore"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Insecure  bool
}

// Store keeps objects under <prefix>/<session>/<name>.
type Store struct {
	client *minio.Client
	cfg    Config
}

func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	var creds *credentials.Credentials
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
		})
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        creds,
		Secure:       !cfg.Insecure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &Store{client: client, cfg: cfg}, nil
}

func (s *Store) Save(ctx context.Context, session domain.Session, name string, r io.Reader) (int64, error) {
	object, err := s.object(session, name)
	if err != nil {
		return 0, err
	}

	// PutObject needs the size up front; spool the upload to learn it.
	spool, err := os.CreateTemp("", "snapsync-upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create spool file: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()
	size, err := io.Copy(spool, r)
	if err != nil {
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to rewind spool file: %w", err)
	}

	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, object, spool, size, minio.PutObjectOptions{}); err != nil {
		return 0, fmt.Errorf("failed to put object: %w", err)
	}
	return size, nil
}

func (s *Store) Open(ctx context.Context, session domain.Session, name string) (io.ReadCloser, error) {
	object, err := s.object(session, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.client.StatObject(ctx, s.cfg.Bucket, object, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, filestore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return obj, nil
}

func (s *Store) List(ctx context.Context, session domain.Session) ([]filestore.FileInfo, error) {
	prefix, err := s.sessionPrefix(session)
	if err != nil {
		return nil, err
	}
	files := []filestore.FileInfo{}
	for obj := range s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		files = append(files, filestore.FileInfo{Name: name, Size: obj.Size, ModTime: obj.LastModified})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *Store) Stat(ctx context.Context, session domain.Session, name string) (filestore.FileInfo, error) {
	object, err := s.object(session, name)
	if err != nil {
		return filestore.FileInfo{}, err
	}
	info, err := s.client.StatObject(ctx, s.cfg.Bucket, object, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return filestore.FileInfo{}, filestore.ErrNotFound
		}
		return filestore.FileInfo{}, fmt.Errorf("failed to stat object: %w", err)
	}
	return filestore.FileInfo{Name: name, Size: info.Size, ModTime: info.LastModified}, nil
}

func (s *Store) sessionPrefix(session domain.Session) (string, error) {
	if err := session.Validate(); err != nil {
		return "", err
	}
	if s.cfg.Prefix == "" {
		return session.String() + "/", nil
	}
	return s.cfg.Prefix + "/" + session.String() + "/", nil
}

func (s *Store) object(session domain.Session, name string) (string, error) {
	prefix, err := s.sessionPrefix(session)
	if err != nil {
		return "", err
	}
	if name == "" || name != path.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return prefix + name, nil
}

func isNotFound(err error) bool {
	errResp := minio.ErrorResponse{}
	if errors.As(err, &errResp) {
		return errResp.StatusCode == http.StatusNotFound
	}
	return false
}
