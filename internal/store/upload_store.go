package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/snapsync/internal/domain"
)

type UploadStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewUploadStore(db *sql.DB) *UploadStore {
	return &UploadStore{db: db, now: time.Now}
}

// Record stores an upload. Re-uploading a name replaces its size and time.
func (s *UploadStore) Record(ctx context.Context, session domain.Session, name string, size int64) (*domain.Upload, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (id, session, name, size, uploaded_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session, name) DO UPDATE SET size = excluded.size, uploaded_at = excluded.uploaded_at
	`, uuid.NewString(), string(session), name, size, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}
	return s.Get(ctx, session, name)
}

func (s *UploadStore) Get(ctx context.Context, session domain.Session, name string) (*domain.Upload, error) {
	u := &domain.Upload{}
	var sess string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session, name, size, uploaded_at FROM uploads WHERE session = ? AND name = ?
	`, string(session), name).Scan(&u.ID, &sess, &u.Name, &u.Size, &u.UploadedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	u.Session = domain.Session(sess)
	return u, nil
}

func (s *UploadStore) ListBySession(ctx context.Context, session domain.Session) ([]*domain.Upload, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session, name, size, uploaded_at FROM uploads WHERE session = ? ORDER BY name ASC
	`, string(session))
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*domain.Upload
	for rows.Next() {
		u := &domain.Upload{}
		var sess string
		if err := rows.Scan(&u.ID, &sess, &u.Name, &u.Size, &u.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		u.Session = domain.Session(sess)
		uploads = append(uploads, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating uploads: %w", err)
	}

	return uploads, nil
}
