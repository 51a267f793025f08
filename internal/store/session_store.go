package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/snapsync/internal/domain"
)

type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

func (s *SessionStore) Create(ctx context.Context, token domain.Session) (*domain.SessionInfo, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, granted, created_at) VALUES (?, 0, ?)
	`, string(token), s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s.Get(ctx, token)
}

// Ensure returns the session, creating it on first use.
func (s *SessionStore) Ensure(ctx context.Context, token domain.Session) (*domain.SessionInfo, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, granted, created_at) VALUES (?, 0, ?)
		ON CONFLICT(token) DO NOTHING
	`, string(token), s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure session: %w", err)
	}
	return s.Get(ctx, token)
}

func (s *SessionStore) Get(ctx context.Context, token domain.Session) (*domain.SessionInfo, error) {
	info := &domain.SessionInfo{}
	var t string
	err := s.db.QueryRowContext(ctx, `
		SELECT token, granted, created_at FROM sessions WHERE token = ?
	`, string(token)).Scan(&t, &info.Granted, &info.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	info.Token = domain.Session(t)
	return info, nil
}

// Grant marks the session as granted, creating it if needed.
func (s *SessionStore) Grant(ctx context.Context, token domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, granted, created_at) VALUES (?, 1, ?)
		ON CONFLICT(token) DO UPDATE SET granted = 1
	`, string(token), s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to grant session: %w", err)
	}
	return nil
}

func (s *SessionStore) List(ctx context.Context) ([]*domain.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, granted, created_at FROM sessions ORDER BY created_at ASC, token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.SessionInfo
	for rows.Next() {
		info := &domain.SessionInfo{}
		var t string
		if err := rows.Scan(&t, &info.Granted, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.Token = domain.Session(t)
		sessions = append(sessions, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}
