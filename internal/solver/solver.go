// SPDX-License-Identifier: MIT

// Package solver optimizes scalarized problems. Two solvers are provided: a
// Nelder-Mead simplex search for smooth continuous problems and a
// differential evolution solver for nondifferentiable or integer-valued
// ones. BestFor picks between them based on the problem's features.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

// ErrSolver is the sentinel for solver failures.
var ErrSolver = errors.New("solver error")

// Results holds the outcome of solving a scalarized problem. Objective
// values are reported in each objective's own orientation.
type Results struct {
	OptimalVariables  map[string]float64 `json:"optimal_variables"`
	OptimalObjectives map[string]float64 `json:"optimal_objectives"`
	ConstraintValues  map[string]float64 `json:"constraint_values,omitempty"`
	TargetValue       float64            `json:"target_value"`
	Success           bool               `json:"success"`
	Message           string             `json:"message"`
}

// Options tune a solve. Zero values select the defaults.
type Options struct {
	MaxIterations  int     // iteration (or generation) budget; default 2000
	Tolerance      float64 // convergence tolerance; default 1e-8
	Seed           int64   // random seed for stochastic solvers; default 1
	PopulationSize int     // DE population size; default 15 * n, at least 20
	PenaltyWeight  float64 // static constraint penalty weight; default 1e6
}

func (o Options) maxIterations() int {
	if o.MaxIterations > 0 {
		return o.MaxIterations
	}
	return 2000
}

func (o Options) tolerance() float64 {
	if o.Tolerance > 0 {
		return o.Tolerance
	}
	return 1e-8
}

func (o Options) seed() int64 {
	if o.Seed != 0 {
		return o.Seed
	}
	return 1
}

func (o Options) populationSize(dim int) int {
	if o.PopulationSize > 0 {
		return o.PopulationSize
	}
	n := 15 * dim
	if n < 20 {
		n = 20
	}
	return n
}

func (o Options) penaltyWeight() float64 {
	if o.PenaltyWeight > 0 {
		return o.PenaltyWeight
	}
	return 1e6
}

// Solver minimizes one of a problem's function expressions, identified by its
// symbol.
type Solver interface {
	Solve(ctx context.Context, p *problem.Problem, target string) (Results, error)
}

// Kind names the available solvers.
type Kind string

const (
	KindNelderMead            Kind = "nelder-mead"
	KindDifferentialEvolution Kind = "differential-evolution"
)

// New returns the named solver, or an error for an unknown kind.
func New(kind Kind, opts Options) (Solver, error) {
	switch kind {
	case KindNelderMead:
		return &NelderMead{Options: opts}, nil
	case KindDifferentialEvolution:
		return &DifferentialEvolution{Options: opts}, nil
	default:
		return nil, fmt.Errorf("%w: unknown solver kind %q", ErrSolver, kind)
	}
}

// nonsmoothOps make a problem unsuitable for simplex search.
var nonsmoothOps = []problem.Op{
	problem.OpAbs, problem.OpMax, problem.OpMin, problem.OpCeil, problem.OpFloor,
}

// BestFor picks a solver for the problem: differential evolution when any
// variable is integer-valued, any objective is data-based, or any expression
// is nonsmooth; Nelder-Mead otherwise.
func BestFor(p *problem.Problem, opts Options) Solver {
	if BestKindFor(p) == KindDifferentialEvolution {
		return &DifferentialEvolution{Options: opts}
	}
	return &NelderMead{Options: opts}
}

// BestKindFor reports which solver BestFor would pick.
func BestKindFor(p *problem.Problem) Kind {
	for _, v := range p.Variables {
		if v.Type == problem.VariableInteger || v.Type == problem.VariableBinary {
			return KindDifferentialEvolution
		}
	}
	for _, tv := range p.TensorVariables {
		if tv.Type == problem.VariableInteger || tv.Type == problem.VariableBinary {
			return KindDifferentialEvolution
		}
	}
	for _, o := range p.Objectives {
		if o.Type == problem.ObjectiveDataBased {
			return KindDifferentialEvolution
		}
		if o.Func != nil && o.Func.HasOp(nonsmoothOps...) {
			return KindDifferentialEvolution
		}
	}
	for _, f := range p.ExtraFuncs {
		if f.Func.HasOp(nonsmoothOps...) {
			return KindDifferentialEvolution
		}
	}
	for _, s := range p.Scalarizations {
		if s.Func.HasOp(nonsmoothOps...) {
			return KindDifferentialEvolution
		}
	}
	return KindNelderMead
}

// defaultBound stands in for missing variable bounds.
const defaultBound = 1e6

// objective wraps an evaluator into a penalized scalar function over the flat
// decision vector.
type objective struct {
	eval              *problem.Evaluator
	vars              []problem.Variable
	target            string
	targetIsObjective bool
	penalty           float64
}

func newObjective(p *problem.Problem, target string, penalty float64) (*objective, error) {
	eval, err := problem.NewEvaluator(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSolver, err)
	}

	isObjective := false
	found := false
	for _, s := range p.Scalarizations {
		if s.Symbol == target {
			found = true
			break
		}
	}
	if !found {
		for _, o := range p.Objectives {
			if o.Symbol == target {
				found, isObjective = true, true
				break
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: target %q is neither a scalarization nor an objective of problem %q",
			ErrSolver, target, p.Name)
	}

	return &objective{
		eval:              eval,
		vars:              eval.Variables(),
		target:            target,
		targetIsObjective: isObjective,
		penalty:           penalty,
	}, nil
}

func (o *objective) dim() int { return len(o.vars) }

// bounds returns the lower and upper bound vectors, substituting
// ±defaultBound for missing bounds.
func (o *objective) bounds() (lo, hi []float64) {
	lo = make([]float64, len(o.vars))
	hi = make([]float64, len(o.vars))
	for i, v := range o.vars {
		lo[i], hi[i] = -defaultBound, defaultBound
		if v.LowerBound != nil {
			lo[i] = *v.LowerBound
		}
		if v.UpperBound != nil {
			hi[i] = *v.UpperBound
		}
	}
	return lo, hi
}

// initial returns the starting point: initial values where defined, bound
// midpoints otherwise.
func (o *objective) initial() []float64 {
	lo, hi := o.bounds()
	x := make([]float64, len(o.vars))
	for i, v := range o.vars {
		if v.InitialValue != nil {
			x[i] = *v.InitialValue
		} else {
			x[i] = (lo[i] + hi[i]) / 2
		}
	}
	return x
}

// repair clamps x into bounds and rounds integer-valued variables in place.
func (o *objective) repair(x []float64) {
	lo, hi := o.bounds()
	for i, v := range o.vars {
		if x[i] < lo[i] {
			x[i] = lo[i]
		}
		if x[i] > hi[i] {
			x[i] = hi[i]
		}
		if v.Type == problem.VariableInteger || v.Type == problem.VariableBinary {
			x[i] = math.Round(x[i])
		}
	}
}

// value evaluates the penalized target at x. Infeasible or non-finite
// evaluations are pushed towards +Inf so minimization avoids them.
func (o *objective) value(x []float64) float64 {
	ev, err := o.evaluate(x)
	if err != nil {
		return math.Inf(1)
	}
	t := o.targetValue(ev)
	if math.IsNaN(t) {
		return math.Inf(1)
	}
	pen := 0.0
	for _, c := range o.eval.Problem().Constraints {
		v := ev.Constraints[c.Symbol]
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		switch c.ConsType {
		case problem.ConstraintEQ:
			pen += v * v
		default:
			if v > 0 {
				pen += v * v
			}
		}
	}
	return t + o.penalty*pen
}

func (o *objective) evaluate(x []float64) (*problem.Evaluation, error) {
	vars := make(map[string]float64, len(o.vars))
	for i, v := range o.vars {
		val := x[i]
		if v.Type == problem.VariableInteger || v.Type == problem.VariableBinary {
			val = math.Round(val)
		}
		vars[v.Symbol] = val
	}
	return o.eval.Evaluate(vars)
}

func (o *objective) targetValue(ev *problem.Evaluation) float64 {
	if o.targetIsObjective {
		return ev.MinObjectives[o.target]
	}
	return ev.Scalarizations[o.target]
}

// feasibilityTolerance is the constraint violation accepted in a reported
// solution. The static penalty balances the target's slope against
// weight*violation^2, so the minimizer of the penalized function sits about
// gradient/(2*weight) on the infeasible side of an active constraint; the
// acceptance threshold must cover that equilibrium.
func (o *objective) feasibilityTolerance() float64 {
	tol := 1 / o.penalty
	if tol < problem.ConstraintTolerance {
		tol = problem.ConstraintTolerance
	}
	return tol
}

// results assembles Results from the best point found.
func (o *objective) results(x []float64, success bool, message string) (Results, error) {
	ev, err := o.evaluate(x)
	if err != nil {
		return Results{}, fmt.Errorf("%w: evaluating solution: %v", ErrSolver, err)
	}
	feasible := ev.FeasibleWithin(o.eval.Problem(), o.feasibilityTolerance())
	res := Results{
		OptimalVariables:  ev.Variables,
		OptimalObjectives: ev.Objectives,
		TargetValue:       o.targetValue(ev),
		Success:           success && feasible,
		Message:           message,
	}
	if len(ev.Constraints) > 0 {
		res.ConstraintValues = ev.Constraints
	}
	if success && !feasible {
		res.Message = "no feasible solution found within the iteration budget"
	}
	return res, nil
}
