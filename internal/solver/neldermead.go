// SPDX-License-Identifier: MIT

package solver

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/optimize"

	"github.com/industrial-optimization-group/desdeo2/internal/log"
	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

// NelderMead minimizes the target with a simplex search. Variable bounds are
// enforced by clamping and constraints through a static penalty, so results
// on heavily constrained problems should be checked for feasibility via
// Results.Success.
type NelderMead struct {
	Options Options
}

var _ Solver = (*NelderMead)(nil)

// Solve minimizes the target scalarization (or objective) of p.
func (nm *NelderMead) Solve(ctx context.Context, p *problem.Problem, target string) (Results, error) {
	obj, err := newObjective(p, target, nm.Options.penaltyWeight())
	if err != nil {
		return Results{}, err
	}
	logger := log.WithComponentFromContext(ctx, "solver").With().
		Str(log.FieldSolver, string(KindNelderMead)).
		Str(log.FieldProblemID, p.Name).
		Str(log.FieldTarget, target).Logger()

	op := optimize.Problem{
		Func: func(x []float64) float64 {
			if ctx.Err() != nil {
				return 0
			}
			y := append([]float64(nil), x...)
			obj.repair(y)
			return obj.value(y)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: nm.Options.maxIterations(),
		Converger: &optimize.FunctionConverge{
			Absolute:   nm.Options.tolerance(),
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(op, obj.initial(), settings, &optimize.NelderMead{})
	if ctx.Err() != nil {
		return Results{}, ctx.Err()
	}
	if err != nil && res == nil {
		return Results{}, fmt.Errorf("%w: nelder-mead: %v", ErrSolver, err)
	}

	converged := err == nil
	var notConverged *optimize.ErrFunc
	if err != nil && !errors.As(err, &notConverged) {
		// Iteration-budget errors still carry a usable best point.
		converged = res.Status == optimize.IterationLimit || res.Status == optimize.FunctionEvaluationLimit
	}

	x := append([]float64(nil), res.X...)
	obj.repair(x)
	out, rerr := obj.results(x, converged, fmt.Sprintf("nelder-mead finished with status %v", res.Status))
	if rerr != nil {
		return Results{}, rerr
	}
	logger.Debug().
		Bool("success", out.Success).
		Float64("target_value", out.TargetValue).
		Int("evaluations", res.FuncEvaluations).
		Msg("solve finished")
	return out, nil
}
