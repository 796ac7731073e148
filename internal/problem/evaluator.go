// SPDX-License-Identifier: MIT

package problem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Evaluation is the result of evaluating a problem at one decision point.
type Evaluation struct {
	Variables      map[string]float64
	Extras         map[string]float64
	Objectives     map[string]float64 // in each objective's own orientation
	MinObjectives  map[string]float64 // `_min` form: negated when maximized
	Constraints    map[string]float64
	Scalarizations map[string]float64
}

// ConstraintTolerance is the feasibility tolerance applied to constraint
// values.
const ConstraintTolerance = 1e-9

// Feasible reports whether every constraint is satisfied at this point.
func (ev *Evaluation) Feasible(p *Problem) bool {
	return ev.FeasibleWithin(p, ConstraintTolerance)
}

// FeasibleWithin reports feasibility with the given violation tolerance.
// Penalty-based solvers settle slightly on the infeasible side of active
// constraints and check against a tolerance matched to the penalty weight.
func (ev *Evaluation) FeasibleWithin(p *Problem, tol float64) bool {
	for _, c := range p.Constraints {
		v, ok := ev.Constraints[c.Symbol]
		if !ok || math.IsNaN(v) {
			return false
		}
		switch c.ConsType {
		case ConstraintEQ:
			if math.Abs(v) > tol {
				return false
			}
		default:
			if v > tol {
				return false
			}
		}
	}
	return true
}

// Evaluator evaluates a problem's functions at decision points. Extra
// functions are evaluated in definition order and may reference earlier
// extras; objectives may reference variables, constants and extras;
// constraints and scalarizations may additionally reference objective values
// and their `_min` forms.
type Evaluator struct {
	problem  *Problem
	flatVars []Variable
}

// NewEvaluator validates the problem and prepares an evaluator for it.
func NewEvaluator(p *Problem) (*Evaluator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	flat := append([]Variable(nil), p.Variables...)
	for i := range p.TensorVariables {
		flat = append(flat, p.TensorVariables[i].Expand()...)
	}
	return &Evaluator{problem: p, flatVars: flat}, nil
}

// Problem returns the evaluated problem.
func (e *Evaluator) Problem() *Problem { return e.problem }

// Variables returns the flattened scalar variables, tensor elements included.
func (e *Evaluator) Variables() []Variable { return e.flatVars }

// Evaluate computes all problem functions at the given decision point. Every
// variable must have a value.
func (e *Evaluator) Evaluate(vars map[string]float64) (*Evaluation, error) {
	env := make(map[string]float64, len(vars)+2*len(e.problem.Objectives)+len(e.problem.Constants))
	for _, c := range e.problem.Constants {
		env[c.Symbol] = c.Value
	}
	for _, v := range e.flatVars {
		val, ok := vars[v.Symbol]
		if !ok {
			return nil, fmt.Errorf("%w: missing value for variable %q", ErrSchema, v.Symbol)
		}
		env[v.Symbol] = val
	}

	ev := &Evaluation{
		Variables:      make(map[string]float64, len(e.flatVars)),
		Extras:         make(map[string]float64, len(e.problem.ExtraFuncs)),
		Objectives:     make(map[string]float64, len(e.problem.Objectives)),
		MinObjectives:  make(map[string]float64, len(e.problem.Objectives)),
		Constraints:    make(map[string]float64, len(e.problem.Constraints)),
		Scalarizations: make(map[string]float64, len(e.problem.Scalarizations)),
	}
	for _, v := range e.flatVars {
		ev.Variables[v.Symbol] = env[v.Symbol]
	}

	for _, f := range e.problem.ExtraFuncs {
		val, err := f.Func.Eval(env)
		if err != nil {
			return nil, fmt.Errorf("extra function %q: %w", f.Symbol, err)
		}
		env[f.Symbol] = val
		ev.Extras[f.Symbol] = val
	}

	for _, o := range e.problem.Objectives {
		var val float64
		var err error
		if o.Type == ObjectiveDataBased {
			val, err = e.lookupDiscrete(o.Symbol, vars)
		} else {
			val, err = o.Func.Eval(env)
		}
		if err != nil {
			return nil, fmt.Errorf("objective %q: %w", o.Symbol, err)
		}
		minVal := val
		if o.Maximize {
			minVal = -val
		}
		env[o.Symbol] = val
		env[o.Symbol+MinSuffix] = minVal
		ev.Objectives[o.Symbol] = val
		ev.MinObjectives[o.Symbol] = minVal
	}

	for _, c := range e.problem.Constraints {
		val, err := c.Func.Eval(env)
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", c.Symbol, err)
		}
		env[c.Symbol] = val
		ev.Constraints[c.Symbol] = val
	}

	for _, s := range e.problem.Scalarizations {
		val, err := s.Func.Eval(env)
		if err != nil {
			return nil, fmt.Errorf("scalarization %q: %w", s.Symbol, err)
		}
		env[s.Symbol] = val
		ev.Scalarizations[s.Symbol] = val
	}

	return ev, nil
}

// lookupDiscrete resolves a data-based objective by nearest neighbor over the
// discrete representation's decision vectors.
func (e *Evaluator) lookupDiscrete(objective string, vars map[string]float64) (float64, error) {
	d := e.problem.Discrete
	if d == nil {
		return 0, fmt.Errorf("%w: no discrete representation", ErrSchema)
	}
	objVals, ok := d.ObjectiveValues[objective]
	if !ok || len(objVals) == 0 {
		return 0, fmt.Errorf("%w: discrete representation has no values for %q", ErrSchema, objective)
	}

	// Column order is fixed by the table itself.
	var cols []string
	for sym := range d.VariableValues {
		cols = append(cols, sym)
	}
	point := make([]float64, len(cols))
	for i, sym := range cols {
		v, ok := vars[sym]
		if !ok {
			return 0, fmt.Errorf("%w: missing value for variable %q", ErrSchema, sym)
		}
		point[i] = v
	}

	bestIdx, bestDist := -1, math.Inf(1)
	row := make([]float64, len(cols))
	for i := range objVals {
		for j, sym := range cols {
			col := d.VariableValues[sym]
			if i >= len(col) {
				return 0, fmt.Errorf("%w: ragged discrete representation", ErrSchema)
			}
			row[j] = col[i]
		}
		if dist := floats.Distance(point, row, 2); dist < bestDist {
			bestIdx, bestDist = i, dist
		}
	}
	return objVals[bestIdx], nil
}
