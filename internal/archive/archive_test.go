// SPDX-License-Identifier: MIT

package archive

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"), Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newSession(t *testing.T, s *Store) *SessionRecord {
	t.Helper()
	ctx := context.Background()
	prob := &ProblemRecord{Definition: problem.SimpleLinear()}
	require.NoError(t, s.CreateProblem(ctx, prob))
	sess := &SessionRecord{ProblemID: prob.ID}
	require.NoError(t, s.CreateSession(ctx, sess))
	return sess
}

func TestProblemCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := &ProblemRecord{Definition: problem.BinhAndKorn(false, false), Solver: "nelder-mead", Owner: "analyst"}
	require.NoError(t, s.CreateProblem(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "The Binh and Korn function", rec.Name)

	got, err := s.GetProblem(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, "nelder-mead", got.Solver)
	assert.NoError(t, got.Definition.Validate())
	assert.Len(t, got.Definition.Objectives, 2)
	assert.False(t, got.CreatedAt.IsZero())

	byName, err := s.GetProblemByName(ctx, rec.Name)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byName.ID)

	list, err := s.ListProblems(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteProblem(ctx, rec.ID))
	_, err = s.GetProblem(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteProblem(ctx, rec.ID), ErrNotFound)
}

func TestCreateProblemDuplicateName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProblem(ctx, &ProblemRecord{Definition: problem.SimpleLinear()}))
	err := s.CreateProblem(ctx, &ProblemRecord{Definition: problem.SimpleLinear()})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateProblemRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	bad := problem.SimpleLinear()
	bad.Objectives[0].Func = nil
	assert.Error(t, s.CreateProblem(context.Background(), &ProblemRecord{Definition: bad}))
}

func TestSessionsAndPreferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, s)

	assert.Equal(t, "nimbus", sess.Method)

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ProblemID, got.ProblemID)

	_, err = s.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.LatestPreference(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	ref := map[string]float64{"f_1": 4.0}
	id1, err := s.AddPreference(ctx, sess.ID, "reference_point", ref)
	require.NoError(t, err)
	id2, err := s.AddPreference(ctx, sess.ID, "reference_point", map[string]float64{"f_1": 5.0})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	latest, err := s.LatestPreference(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, id2, latest.ID)
	var back map[string]float64
	require.NoError(t, json.Unmarshal(latest.Value, &back))
	assert.InDelta(t, 5.0, back["f_1"], 1e-12)
}

func TestSaveResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, s)

	first := []Solution{
		{Variables: map[string]float64{"x_1": 4.2, "x_2": 2.1}, Objectives: map[string]float64{"f_1": 6.3}},
		{Variables: map[string]float64{"x_1": 5.0, "x_2": 2.5}, Objectives: map[string]float64{"f_1": 7.5}},
	}
	current, err := s.SaveResults(ctx, sess.ID, nil, first)
	require.NoError(t, err)
	require.Len(t, current, 2)
	for _, rec := range current {
		assert.True(t, rec.Current)
		assert.False(t, rec.Saved)
	}

	// The second iteration reproduces the first solution within tolerance and
	// adds a new one: no duplicate row, old current flags cleared.
	prefID, err := s.AddPreference(ctx, sess.ID, "reference_point", map[string]float64{"f_1": 6.0})
	require.NoError(t, err)
	second := []Solution{
		{Variables: map[string]float64{"x_1": 4.2 + 1e-10, "x_2": 2.1}, Objectives: map[string]float64{"f_1": 6.3}},
		{Variables: map[string]float64{"x_1": 6.0, "x_2": 3.0}, Objectives: map[string]float64{"f_1": 9.0}},
	}
	current, err = s.SaveResults(ctx, sess.ID, &prefID, second)
	require.NoError(t, err)
	assert.Len(t, current, 2)

	all, err := s.ListSolutions(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// The re-matched row keeps its original identity, the superseded one is no
	// longer current.
	assert.True(t, all[0].Current)
	assert.False(t, all[1].Current)
	assert.True(t, all[2].Current)
	require.NotNil(t, all[2].PreferenceID)
	assert.Equal(t, prefID, *all[2].PreferenceID)
}

func TestSaveResultsFoldsBatchDuplicates(t *testing.T) {
	s := openTestStore(t)
	sess := newSession(t, s)

	dup := Solution{Variables: map[string]float64{"x_1": 1}, Objectives: map[string]float64{"f_1": 2}}
	current, err := s.SaveResults(context.Background(), sess.ID, nil, []Solution{dup, dup})
	require.NoError(t, err)
	assert.Len(t, current, 1)
}

func TestMarkSavedAndChoose(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, s)

	sols := []Solution{
		{Variables: map[string]float64{"x_1": 4.2, "x_2": 2.1}, Objectives: map[string]float64{"f_1": 6.3}},
		{Variables: map[string]float64{"x_1": 5.0, "x_2": 2.5}, Objectives: map[string]float64{"f_1": 7.5}},
	}
	_, err := s.SaveResults(ctx, sess.ID, nil, sols)
	require.NoError(t, err)

	require.NoError(t, s.MarkSaved(ctx, sess.ID, map[string]float64{"f_1": 6.3}))
	saved, err := s.SavedSolutions(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.InDelta(t, 6.3, saved[0].Objectives["f_1"], 1e-12)

	err = s.MarkSaved(ctx, sess.ID, map[string]float64{"f_1": 99.0})
	assert.ErrorIs(t, err, ErrNotFound)

	chosen, err := s.Choose(ctx, sess.ID, map[string]float64{"x_1": 5.0, "x_2": 2.5})
	require.NoError(t, err)
	assert.True(t, chosen.Chosen)
	assert.True(t, chosen.Saved)

	_, err = s.Choose(ctx, sess.ID, map[string]float64{"x_1": 0, "x_2": 0})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProblemCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	sess := newSession(t, s)

	_, err := s.SaveResults(ctx, sess.ID, nil,
		[]Solution{{Variables: map[string]float64{"x_1": 1}, Objectives: map[string]float64{"f_1": 1}}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteProblem(ctx, sess.ProblemID))
	_, err = s.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	sols, err := s.ListSolutions(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, sols)
}
