// SPDX-License-Identifier: MIT

// Package nimbus implements the synchronous NIMBUS interactive method. Each
// iteration the decision maker classifies the objective functions (or gives a
// reference point from which classifications are inferred) and asks for one
// to four new solutions; the sub-problems are scalarized with the NIMBUS,
// STOM, achievement and GUESS functions and solved independently.
package nimbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/industrial-optimization-group/desdeo2/internal/log"
	"github.com/industrial-optimization-group/desdeo2/internal/metrics"
	"github.com/industrial-optimization-group/desdeo2/internal/problem"
	"github.com/industrial-optimization-group/desdeo2/internal/scalarization"
	"github.com/industrial-optimization-group/desdeo2/internal/solver"
)

// ErrNimbus is the sentinel for NIMBUS iteration failures.
var ErrNimbus = errors.New("nimbus error")

// MaxSubProblems is the largest number of new solutions one classification
// can be asked to produce.
const MaxSubProblems = 4

// Method names the scalarization a solution came from.
type Method string

const (
	MethodNIMBUS Method = "nimbus"
	MethodSTOM   Method = "stom"
	MethodASF    Method = "asf"
	MethodGUESS  Method = "guess"
)

// subProblemOrder fixes which scalarizations are used for one to four
// desired solutions. The NIMBUS scalarization always runs first.
var subProblemOrder = [MaxSubProblems]Method{MethodNIMBUS, MethodSTOM, MethodASF, MethodGUESS}

// Solution is one Pareto optimal candidate produced during an iteration.
type Solution struct {
	Method           Method             `json:"method"`
	Variables        map[string]float64 `json:"variables"`
	Objectives       map[string]float64 `json:"objectives"`
	ConstraintValues map[string]float64 `json:"constraint_values,omitempty"`
	Success          bool               `json:"success"`
}

// Options configure an iteration. The zero value uses solver auto-selection
// and the default scalarization parameters.
type Options struct {
	Scalarization scalarization.Options
	Solver        solver.Options

	// NewSolver overrides solver selection; defaults to solver.BestFor.
	NewSolver func(*problem.Problem) solver.Solver
}

func (o Options) solverFor(p *problem.Problem) solver.Solver {
	if o.NewSolver != nil {
		return o.NewSolver(p)
	}
	return solver.BestFor(p, o.Solver)
}

// GenerateStartingPoint produces the first solution shown to the decision
// maker by minimizing the achievement scalarizing function. A nil reference
// point defaults to the problem's ideal point.
func GenerateStartingPoint(ctx context.Context, p *problem.Problem, referencePoint map[string]float64, opts Options) (Solution, error) {
	if !p.HasIdealAndNadir() {
		return Solution{}, fmt.Errorf("%w: the problem must have both an ideal and nadir point defined", ErrNimbus)
	}
	// Missing components default to the ideal value, objective by objective.
	ref := make(map[string]float64, len(p.Objectives))
	for _, obj := range p.Objectives {
		if v, ok := referencePoint[obj.Symbol]; ok {
			ref[obj.Symbol] = v
		} else {
			ref[obj.Symbol] = *obj.Ideal
		}
	}
	sol, err := solveOne(ctx, p, MethodASF, ref, nil, nil, opts)
	if err != nil {
		return Solution{}, err
	}
	return sol, nil
}

// SolveSubProblems runs one NIMBUS iteration: classifications are inferred
// from the reference point against the current objective values, and
// numDesired (1..4) sub-problems are scalarized and solved concurrently.
func SolveSubProblems(ctx context.Context, p *problem.Problem, currentObjectives, referencePoint map[string]float64, numDesired int, opts Options) ([]Solution, error) {
	if numDesired < 1 || numDesired > MaxSubProblems {
		return nil, fmt.Errorf("%w: the number of desired solutions must be between 1 and %d, got %d",
			ErrNimbus, MaxSubProblems, numDesired)
	}
	classes, err := scalarization.InferClassifications(p, currentObjectives, referencePoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNimbus, err)
	}

	logger := log.WithComponentFromContext(ctx, "nimbus")
	logger.Info().
		Str(log.FieldProblemID, p.Name).
		Int("num_desired", numDesired).
		Msg("solving sub-problems")

	solutions := make([]Solution, numDesired)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numDesired; i++ {
		method := subProblemOrder[i]
		g.Go(func() error {
			sol, err := solveOne(gctx, p, method, referencePoint, currentObjectives, classes, opts)
			if err != nil {
				return err
			}
			solutions[i] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return solutions, nil
}

// SolveIntermediate generates solutions between two known ones. Intermediate
// points are taken on the line segment between the decision vectors and each
// is projected back onto the Pareto front by solving an achievement
// scalarization with the point's objective values as the reference point.
func SolveIntermediate(ctx context.Context, p *problem.Problem, variables1, variables2 map[string]float64, numDesired int, opts Options) ([]Solution, error) {
	if numDesired < 1 {
		return nil, fmt.Errorf("%w: the number of desired solutions must be at least 1, got %d", ErrNimbus, numDesired)
	}
	eval, err := problem.NewEvaluator(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNimbus, err)
	}

	vars := eval.Variables()
	// Endpoints excluded: with n intermediates the segment splits into
	// (2 + n) - 1 steps plus margins at both ends.
	steps := make(map[string]float64, len(vars))
	for _, v := range vars {
		v1, ok1 := variables1[v.Symbol]
		v2, ok2 := variables2[v.Symbol]
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: both solutions must define a value for variable %q", ErrNimbus, v.Symbol)
		}
		steps[v.Symbol] = (v2 - v1) / float64(2+numDesired)
	}

	solutions := make([]Solution, numDesired)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numDesired; i++ {
		g.Go(func() error {
			point := make(map[string]float64, len(vars))
			for _, v := range vars {
				point[v.Symbol] = variables1[v.Symbol] + float64(i+2)*steps[v.Symbol]
			}
			ev, err := eval.Evaluate(point)
			if err != nil {
				return fmt.Errorf("%w: evaluating intermediate point: %v", ErrNimbus, err)
			}
			sol, err := solveOne(gctx, p, MethodASF, ev.Objectives, nil, nil, opts)
			if err != nil {
				return err
			}
			solutions[i] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return solutions, nil
}

// solveOne scalarizes p with the given method and solves the result.
func solveOne(ctx context.Context, p *problem.Problem, method Method, referencePoint, currentObjectives map[string]float64, classes scalarization.Classifications, opts Options) (Solution, error) {
	symbol := "sf_" + string(method)
	var (
		scalarized *problem.Problem
		err        error
	)
	switch method {
	case MethodNIMBUS:
		scalarized, _, _, err = scalarization.AddNIMBUS(p, symbol, classes, currentObjectives, opts.Scalarization)
	case MethodSTOM:
		scalarized, _, err = scalarization.AddSTOM(p, symbol, referencePoint, opts.Scalarization)
	case MethodASF:
		scalarized, _, err = scalarization.AddASF(p, symbol, referencePoint, opts.Scalarization)
	case MethodGUESS:
		scalarized, _, err = scalarization.AddGUESS(p, symbol, referencePoint, opts.Scalarization)
	default:
		return Solution{}, fmt.Errorf("%w: unknown method %q", ErrNimbus, method)
	}
	if err != nil {
		return Solution{}, fmt.Errorf("%w: %v", ErrNimbus, err)
	}

	start := time.Now()
	res, err := opts.solverFor(scalarized).Solve(ctx, scalarized, symbol)
	if err != nil {
		return Solution{}, fmt.Errorf("%w: solving %s sub-problem: %v", ErrNimbus, method, err)
	}
	metrics.ObserveSolve(string(method), string(solver.BestKindFor(scalarized)), res.Success, time.Since(start))
	return Solution{
		Method:           method,
		Variables:        res.OptimalVariables,
		Objectives:       res.OptimalObjectives,
		ConstraintValues: res.ConstraintValues,
		Success:          res.Success,
	}, nil
}
