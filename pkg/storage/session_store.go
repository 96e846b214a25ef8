package storage

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session represents a notebook session persisted in SQLite.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateSession creates a new session. The ID is generated here; Name falls
// back to a timestamped default when empty.
func (s *Store) CreateSession(name string) (*Session, error) {
	now := time.Now().UTC()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Session " + now.Format("Jan 2 15:04")
	}

	session := &Session{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.Name, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by ID. Returns ErrNotFound when missing.
func (s *Store) GetSession(sessionID string) (*Session, error) {
	var session Session
	err := s.db.QueryRow(
		`SELECT session_id, name, created_at, updated_at FROM sessions WHERE session_id = ?`,
		sessionID,
	).Scan(&session.ID, &session.Name, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// TouchSession bumps updated_at. Sessions are otherwise never updated.
func (s *Store) TouchSession(sessionID string) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET updated_at = ? WHERE session_id = ?`,
		time.Now().UTC(), sessionID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions returns sessions ordered by most recently updated.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT session_id, name, created_at, updated_at FROM sessions ORDER BY updated_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.Name, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
