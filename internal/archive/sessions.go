// SPDX-License-Identifier: MIT

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionRecord is one interactive solving session of a decision maker.
type SessionRecord struct {
	ID            string    `json:"id"`
	ProblemID     string    `json:"problem_id"`
	DecisionMaker string    `json:"dm,omitempty"`
	Method        string    `json:"method"`
	CreatedAt     time.Time `json:"created_at"`
}

// PreferenceRecord stores one preference statement given during a session.
// Value holds the preference payload (e.g. a reference point) as JSON.
type PreferenceRecord struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Kind      string          `json:"kind"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateSession stores a new session. A missing ID is generated and the
// method defaults to "nimbus".
func (s *Store) CreateSession(ctx context.Context, rec *SessionRecord) error {
	if rec.ProblemID == "" {
		return fmt.Errorf("archive: session record has no problem id")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Method == "" {
		rec.Method = "nimbus"
	}
	rec.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO sessions (id, problem_id, dm, method, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.ProblemID, rec.DecisionMaker, rec.Method, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("archive: insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	var rec SessionRecord
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
	SELECT id, problem_id, dm, method, created_at
	FROM sessions WHERE id = ?`, id).
		Scan(&rec.ID, &rec.ProblemID, &rec.DecisionMaker, &rec.Method, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get session: %w", err)
	}
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

// CountSessions reports the total number of sessions, for the sessions gauge.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// AddPreference stores a preference statement and returns its ID. The value
// is marshaled to JSON.
func (s *Store) AddPreference(ctx context.Context, sessionID, kind string, value any) (int64, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("archive: encode preference: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO preferences (session_id, kind, value, created_at)
	VALUES (?, ?, ?, ?)`,
		sessionID, kind, string(raw), now())
	if err != nil {
		return 0, fmt.Errorf("archive: insert preference: %w", err)
	}
	return res.LastInsertId()
}

// LatestPreference returns the most recent preference of a session, or
// ErrNotFound when none has been given yet.
func (s *Store) LatestPreference(ctx context.Context, sessionID string) (*PreferenceRecord, error) {
	var rec PreferenceRecord
	var value, createdAt string
	err := s.db.QueryRowContext(ctx, `
	SELECT id, session_id, kind, value, created_at
	FROM preferences WHERE session_id = ?
	ORDER BY id DESC LIMIT 1`, sessionID).
		Scan(&rec.ID, &rec.SessionID, &rec.Kind, &value, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no preference for session %q", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get preference: %w", err)
	}
	rec.Value = json.RawMessage(value)
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}
