// SPDX-License-Identifier: MIT

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

// ProblemRecord is a stored problem definition with its metadata.
type ProblemRecord struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Definition *problem.Problem `json:"definition"`
	Solver     string           `json:"solver,omitempty"`
	Owner      string           `json:"owner,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// CreateProblem validates and stores a problem definition. A missing ID is
// generated. Name collisions surface as ErrDuplicate.
func (s *Store) CreateProblem(ctx context.Context, rec *ProblemRecord) error {
	if rec.Definition == nil {
		return fmt.Errorf("archive: problem record has no definition")
	}
	if err := rec.Definition.Validate(); err != nil {
		return fmt.Errorf("archive: invalid problem definition: %w", err)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Name == "" {
		rec.Name = rec.Definition.Name
	}
	def, err := json.Marshal(rec.Definition)
	if err != nil {
		return fmt.Errorf("archive: encode problem definition: %w", err)
	}
	rec.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO problems (id, name, definition, solver, owner, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, string(def), rec.Solver, rec.Owner, rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: problem named %q already exists", ErrDuplicate, rec.Name)
		}
		return fmt.Errorf("archive: insert problem: %w", err)
	}
	return nil
}

// GetProblem retrieves a problem by its ID.
func (s *Store) GetProblem(ctx context.Context, id string) (*ProblemRecord, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, name, definition, solver, owner, created_at
	FROM problems WHERE id = ?`, id)
	return scanProblem(row)
}

// GetProblemByName retrieves a problem by its unique name.
func (s *Store) GetProblemByName(ctx context.Context, name string) (*ProblemRecord, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, name, definition, solver, owner, created_at
	FROM problems WHERE name = ?`, name)
	return scanProblem(row)
}

// ListProblems returns all stored problems ordered by name.
func (s *Store) ListProblems(ctx context.Context) ([]ProblemRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, definition, solver, owner, created_at
	FROM problems ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("archive: list problems: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ProblemRecord
	for rows.Next() {
		rec, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteProblem removes a problem and, through foreign keys, its sessions.
func (s *Store) DeleteProblem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM problems WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive: delete problem: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: problem %q", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*ProblemRecord, error) {
	var rec ProblemRecord
	var def, createdAt string
	err := row.Scan(&rec.ID, &rec.Name, &def, &rec.Solver, &rec.Owner, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: scan problem: %w", err)
	}
	rec.Definition = &problem.Problem{}
	if err := json.Unmarshal([]byte(def), rec.Definition); err != nil {
		return nil, fmt.Errorf("archive: decode problem definition: %w", err)
	}
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
