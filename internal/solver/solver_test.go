// SPDX-License-Identifier: MIT

package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/industrial-optimization-group/desdeo2/internal/problem"
	"github.com/industrial-optimization-group/desdeo2/internal/scalarization"
)

func TestBestKindFor(t *testing.T) {
	tests := []struct {
		name string
		p    *problem.Problem
		want Kind
	}{
		{"smooth continuous", problem.BinhAndKorn(false, false), KindNelderMead},
		{"zdt1", problem.ZDT1(5), KindNelderMead},
		{"binary variables", problem.SimpleKnapsack(), KindDifferentialEvolution},
		{"nonsmooth objective", problem.RiverPollution(true), KindDifferentialEvolution},
		{"data based", problem.SimpleData(), KindDifferentialEvolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BestKindFor(tt.p))
		})
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(Kind("simplex"), Options{})
	assert.ErrorIs(t, err, ErrSolver)
}

func TestSolveUnknownTarget(t *testing.T) {
	nm := &NelderMead{}
	_, err := nm.Solve(context.Background(), problem.SimpleLinear(), "nope")
	assert.ErrorIs(t, err, ErrSolver)
}

func TestNelderMeadBoundConstrainedMinimum(t *testing.T) {
	// f_5 = 50*x_1^4 + 10*x_2^4 over [1,3]^2 has its minimum 60 at (1, 1).
	p, target, err := scalarization.AddObjectiveAsScalarization(problem.NimbusTest(), "s", "f_5")
	require.NoError(t, err)

	nm := &NelderMead{}
	res, err := nm.Solve(context.Background(), p, target)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.InDelta(t, 60.0, res.TargetValue, 1e-2)
	assert.InDelta(t, 1.0, res.OptimalVariables["x_1"], 1e-2)
	assert.InDelta(t, 1.0, res.OptimalVariables["x_2"], 1e-2)
	// Objective values are reported alongside.
	assert.Contains(t, res.OptimalObjectives, "f_1")
}

func TestDifferentialEvolutionConstrainedLinear(t *testing.T) {
	// min x_1 + x_2 s.t. x_1 >= 4.2 and x_2 >= 0.5 * x_1: optimum (4.2, 2.1).
	p, target, err := scalarization.AddObjectiveAsScalarization(problem.SimpleLinear(), "s", "f_1")
	require.NoError(t, err)

	de := &DifferentialEvolution{Options: Options{Seed: 7}}
	res, err := de.Solve(context.Background(), p, target)
	require.NoError(t, err)

	require.True(t, res.Success, "expected a feasible solution, got %q", res.Message)
	assert.InDelta(t, 6.3, res.TargetValue, 5e-2)
	assert.InDelta(t, 4.2, res.OptimalVariables["x_1"], 5e-2)
	assert.InDelta(t, 2.1, res.OptimalVariables["x_2"], 5e-2)
	assert.Contains(t, res.ConstraintValues, "g_1")
}

func TestDifferentialEvolutionKnapsack(t *testing.T) {
	// Equal weights: the best feasible pack is items 1-3 at weight 6.
	p, target, err := scalarization.AddWeightedSums(problem.SimpleKnapsack(), "ws",
		map[string]float64{"f_1": 1.0 / 3, "f_2": 1.0 / 3, "f_3": 1.0 / 3})
	require.NoError(t, err)

	de := &DifferentialEvolution{Options: Options{Seed: 3, MaxIterations: 200}}
	res, err := de.Solve(context.Background(), p, target)
	require.NoError(t, err)

	require.True(t, res.Success)
	assert.InDelta(t, 1, res.OptimalVariables["x_1"], 1e-9)
	assert.InDelta(t, 1, res.OptimalVariables["x_2"], 1e-9)
	assert.InDelta(t, 1, res.OptimalVariables["x_3"], 1e-9)
	assert.InDelta(t, 0, res.OptimalVariables["x_4"], 1e-9)
	assert.InDelta(t, 12.0, res.OptimalObjectives["f_1"], 1e-9)
}

func TestDifferentialEvolutionDeterministic(t *testing.T) {
	p, target, err := scalarization.AddObjectiveAsScalarization(problem.SimpleLinear(), "s", "f_1")
	require.NoError(t, err)

	opts := Options{Seed: 42, MaxIterations: 50}
	first, err := (&DifferentialEvolution{Options: opts}).Solve(context.Background(), p, target)
	require.NoError(t, err)
	second, err := (&DifferentialEvolution{Options: opts}).Solve(context.Background(), p, target)
	require.NoError(t, err)

	assert.Equal(t, first.OptimalVariables, second.OptimalVariables)
}

func TestDifferentialEvolutionCanceledContext(t *testing.T) {
	p, target, err := scalarization.AddObjectiveAsScalarization(problem.SimpleLinear(), "s", "f_1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&DifferentialEvolution{}).Solve(ctx, p, target)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveObjectiveTargetDirectly(t *testing.T) {
	// An objective symbol is a valid target without any scalarization.
	nm := &NelderMead{}
	res, err := nm.Solve(context.Background(), problem.SimpleLinear(), "f_1")
	require.NoError(t, err)
	assert.InDelta(t, 6.3, res.TargetValue, 5e-2)
}

func TestActiveConstraintReportsSuccess(t *testing.T) {
	// The penalized optimum sits a hair inside the infeasible side of the
	// active constraints (violation around gradient/(2*weight)); that point
	// still counts as a successful, feasible solve.
	p, target, err := scalarization.AddObjectiveAsScalarization(problem.SimpleLinear(), "s", "f_1")
	require.NoError(t, err)

	for name, s := range map[string]Solver{
		"nelder-mead":            &NelderMead{},
		"differential-evolution": &DifferentialEvolution{Options: Options{Seed: 7}},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := s.Solve(context.Background(), p, target)
			require.NoError(t, err)
			require.True(t, res.Success, "message: %q", res.Message)
			assert.LessOrEqual(t, res.ConstraintValues["g_1"], 1e-6)
			assert.LessOrEqual(t, res.ConstraintValues["g_2"], 1e-6)
			assert.InDelta(t, 6.3, res.TargetValue, 5e-2)
		})
	}
}
