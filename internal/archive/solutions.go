// SPDX-License-Identifier: MIT

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// MatchTolerance is the component-wise tolerance under which two solution
// vectors count as the same solution.
const MatchTolerance = 1e-8

// SolutionRecord is one archived solution of a session.
type SolutionRecord struct {
	ID           int64              `json:"id"`
	SessionID    string             `json:"session_id"`
	PreferenceID *int64             `json:"preference_id,omitempty"`
	Variables    map[string]float64 `json:"variables"`
	Objectives   map[string]float64 `json:"objectives"`
	Saved        bool               `json:"saved"`
	Current      bool               `json:"current"`
	Chosen       bool               `json:"chosen"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Solution is a candidate entering the archive.
type Solution struct {
	Variables  map[string]float64
	Objectives map[string]float64
}

// SaveResults archives the solutions of one iteration and makes them the
// session's current set. Old current flags are cleared first. A solution
// matching an archived one within MatchTolerance is not duplicated; the
// existing row is re-marked current instead. Returns the session's current
// solutions.
func (s *Store) SaveResults(ctx context.Context, sessionID string, preferenceID *int64, sols []Solution) ([]SolutionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := listSolutionsTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE solutions SET current = 0 WHERE session_id = ?`, sessionID); err != nil {
		return nil, fmt.Errorf("archive: clear current flags: %w", err)
	}

	for _, sol := range sols {
		if match := findMatch(existing, sol); match != nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE solutions SET current = 1 WHERE id = ?`, match.ID); err != nil {
				return nil, fmt.Errorf("archive: re-mark current: %w", err)
			}
			continue
		}
		vars, err := json.Marshal(sol.Variables)
		if err != nil {
			return nil, fmt.Errorf("archive: encode variables: %w", err)
		}
		objs, err := json.Marshal(sol.Objectives)
		if err != nil {
			return nil, fmt.Errorf("archive: encode objectives: %w", err)
		}
		var prefID any
		if preferenceID != nil {
			prefID = *preferenceID
		}
		res, err := tx.ExecContext(ctx, `
		INSERT INTO solutions (session_id, preference_id, variables, objectives, current, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
			sessionID, prefID, string(vars), string(objs), now())
		if err != nil {
			return nil, fmt.Errorf("archive: insert solution: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		rec := SolutionRecord{
			ID: id, SessionID: sessionID, PreferenceID: preferenceID,
			Variables: sol.Variables, Objectives: sol.Objectives, Current: true,
		}
		// Later duplicates within the same batch fold into this row.
		existing = append(existing, rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("archive: commit: %w", err)
	}
	return s.CurrentSolutions(ctx, sessionID)
}

// MarkSaved flags every archived solution whose objective vector matches as
// saved. ErrNotFound when nothing matches.
func (s *Store) MarkSaved(ctx context.Context, sessionID string, objectives map[string]float64) error {
	all, err := s.ListSolutions(ctx, sessionID)
	if err != nil {
		return err
	}
	marked := false
	for _, rec := range all {
		if !vectorsMatch(rec.Objectives, objectives) {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE solutions SET saved = 1 WHERE id = ?`, rec.ID); err != nil {
			return fmt.Errorf("archive: mark saved: %w", err)
		}
		marked = true
	}
	if !marked {
		return fmt.Errorf("%w: no archived solution matches the given objective vector", ErrNotFound)
	}
	return nil
}

// Choose flags the archived solution with the matching decision vector as the
// session's final choice. ErrNotFound when the vector is not in the archive.
func (s *Store) Choose(ctx context.Context, sessionID string, variables map[string]float64) (*SolutionRecord, error) {
	all, err := s.ListSolutions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if !vectorsMatch(all[i].Variables, variables) {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE solutions SET chosen = 1, saved = 1 WHERE id = ?`, all[i].ID); err != nil {
			return nil, fmt.Errorf("archive: mark chosen: %w", err)
		}
		all[i].Chosen, all[i].Saved = true, true
		return &all[i], nil
	}
	return nil, fmt.Errorf("%w: no archived solution matches the given decision vector", ErrNotFound)
}

// ListSolutions returns every archived solution of a session in insertion
// order.
func (s *Store) ListSolutions(ctx context.Context, sessionID string) ([]SolutionRecord, error) {
	return s.querySolutions(ctx,
		`SELECT id, session_id, preference_id, variables, objectives, saved, current, chosen, created_at
		FROM solutions WHERE session_id = ? ORDER BY id`, sessionID)
}

// CurrentSolutions returns the solutions of the most recent iteration.
func (s *Store) CurrentSolutions(ctx context.Context, sessionID string) ([]SolutionRecord, error) {
	return s.querySolutions(ctx,
		`SELECT id, session_id, preference_id, variables, objectives, saved, current, chosen, created_at
		FROM solutions WHERE session_id = ? AND current = 1 ORDER BY id`, sessionID)
}

// SavedSolutions returns the solutions the decision maker has saved.
func (s *Store) SavedSolutions(ctx context.Context, sessionID string) ([]SolutionRecord, error) {
	return s.querySolutions(ctx,
		`SELECT id, session_id, preference_id, variables, objectives, saved, current, chosen, created_at
		FROM solutions WHERE session_id = ? AND saved = 1 ORDER BY id`, sessionID)
}

func (s *Store) querySolutions(ctx context.Context, query string, args ...any) ([]SolutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: query solutions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSolutions(rows)
}

func listSolutionsTx(ctx context.Context, tx *sql.Tx, sessionID string) ([]SolutionRecord, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, session_id, preference_id, variables, objectives, saved, current, chosen, created_at
		FROM solutions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("archive: query solutions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSolutions(rows)
}

func scanSolutions(rows *sql.Rows) ([]SolutionRecord, error) {
	var out []SolutionRecord
	for rows.Next() {
		var rec SolutionRecord
		var prefID sql.NullInt64
		var vars, objs, createdAt string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &prefID, &vars, &objs,
			&rec.Saved, &rec.Current, &rec.Chosen, &createdAt); err != nil {
			return nil, fmt.Errorf("archive: scan solution: %w", err)
		}
		if prefID.Valid {
			rec.PreferenceID = &prefID.Int64
		}
		if err := json.Unmarshal([]byte(vars), &rec.Variables); err != nil {
			return nil, fmt.Errorf("archive: decode variables: %w", err)
		}
		if err := json.Unmarshal([]byte(objs), &rec.Objectives); err != nil {
			return nil, fmt.Errorf("archive: decode objectives: %w", err)
		}
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func findMatch(existing []SolutionRecord, sol Solution) *SolutionRecord {
	for i := range existing {
		if vectorsMatch(existing[i].Variables, sol.Variables) &&
			vectorsMatch(existing[i].Objectives, sol.Objectives) {
			return &existing[i]
		}
	}
	return nil
}

// vectorsMatch reports whether two vectors share keys and agree within
// MatchTolerance on every component.
func vectorsMatch(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || math.Abs(av-bv) > MatchTolerance {
			return false
		}
	}
	return true
}
