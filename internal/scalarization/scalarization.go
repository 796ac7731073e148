// SPDX-License-Identifier: MIT

// Package scalarization builds scalarization functions over multiobjective
// problems. Every builder returns a copy of the problem with the new
// scalarization appended; the input problem is never modified. Scalarization
// expressions reference objectives through their `<symbol>_min` form so that
// maximized objectives are handled uniformly.
package scalarization

import (
	"errors"
	"fmt"

	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

// ErrScalarization is raised when a scalarization function cannot be created
// or added.
var ErrScalarization = errors.New("scalarization error")

const (
	// DefaultDelta defines the utopian offset: utopian = ideal - delta.
	DefaultDelta = 1e-6
	// DefaultRho is the weight of the augmentation term.
	DefaultRho = 1e-6
)

// Options tune the achievement-type scalarizations.
type Options struct {
	// ReferenceInAug uses the reference point inside the augmentation term.
	ReferenceInAug bool
	// Delta overrides DefaultDelta when > 0.
	Delta float64
	// Rho overrides DefaultRho when > 0.
	Rho float64
}

func (o Options) delta() float64 {
	if o.Delta > 0 {
		return o.Delta
	}
	return DefaultDelta
}

func (o Options) rho() float64 {
	if o.Rho > 0 {
		return o.Rho
	}
	return DefaultRho
}

// correctedReference flips reference point entries of maximized objectives so
// they live in minimization space alongside the `_min` objective values.
func correctedReference(p *problem.Problem, ref map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(p.Objectives))
	for _, obj := range p.Objectives {
		v, ok := ref[obj.Symbol]
		if !ok {
			return nil, fmt.Errorf("%w: reference point is missing a component for objective %q",
				ErrScalarization, obj.Symbol)
		}
		if obj.Maximize {
			v = -v
		}
		out[obj.Symbol] = v
	}
	return out, nil
}

func minSym(symbol string) *problem.Expr {
	return problem.Sym(symbol + problem.MinSuffix)
}

// AddASF adds the achievement scalarizing function for the given reference
// point:
//
//	max_k[(f_k_min - r_k) / (nad_k - (ide_k - delta))] + rho * sum_k[f_k_min / (nad_k - (ide_k - delta))]
//
// Requires the problem's ideal and nadir points. Returns the augmented
// problem and the scalarization's symbol.
func AddASF(p *problem.Problem, symbol string, referencePoint map[string]float64, opts Options) (*problem.Problem, string, error) {
	ref, err := correctedReference(p, referencePoint)
	if err != nil {
		return nil, "", err
	}
	ideal, nadir, err := p.CorrectedIdealNadir()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrScalarization, err)
	}
	delta, rho := opts.delta(), opts.rho()

	maxOperands := make([]*problem.Expr, 0, len(p.Objectives))
	augOperands := make([]*problem.Expr, 0, len(p.Objectives))
	for _, obj := range p.Objectives {
		denom := problem.Num(nadir[obj.Symbol] - (ideal[obj.Symbol] - delta))
		maxOperands = append(maxOperands, problem.Div(
			problem.Sub(minSym(obj.Symbol), problem.Num(ref[obj.Symbol])), denom))
		if opts.ReferenceInAug {
			augOperands = append(augOperands, problem.Div(
				problem.Sub(minSym(obj.Symbol), problem.Num(ref[obj.Symbol])), denom))
		} else {
			augOperands = append(augOperands, problem.Div(minSym(obj.Symbol), denom))
		}
	}

	sf := problem.Add(
		problem.Maximum(maxOperands...),
		problem.Mul(problem.Num(rho), problem.Add(augOperands...)),
	)
	return appendScalarization(p, "Achievement scalarizing function", symbol, sf)
}

// AddASFGeneric adds the generic achievement scalarizing function, which
// scales by the given positive weights instead of the objective ranges.
func AddASFGeneric(p *problem.Problem, symbol string, referencePoint, weights map[string]float64, opts Options) (*problem.Problem, string, error) {
	ref, err := correctedReference(p, referencePoint)
	if err != nil {
		return nil, "", err
	}
	for _, obj := range p.Objectives {
		if _, ok := weights[obj.Symbol]; !ok {
			return nil, "", fmt.Errorf("%w: weight vector is missing a component for objective %q",
				ErrScalarization, obj.Symbol)
		}
	}
	rho := opts.rho()

	maxOperands := make([]*problem.Expr, 0, len(p.Objectives))
	augOperands := make([]*problem.Expr, 0, len(p.Objectives))
	for _, obj := range p.Objectives {
		w := problem.Num(weights[obj.Symbol])
		maxOperands = append(maxOperands, problem.Div(
			problem.Sub(minSym(obj.Symbol), problem.Num(ref[obj.Symbol])), w))
		if opts.ReferenceInAug {
			augOperands = append(augOperands, problem.Div(
				problem.Sub(minSym(obj.Symbol), problem.Num(ref[obj.Symbol])), w))
		} else {
			augOperands = append(augOperands, problem.Div(minSym(obj.Symbol), w))
		}
	}

	sf := problem.Add(
		problem.Maximum(maxOperands...),
		problem.Mul(problem.Num(rho), problem.Add(augOperands...)),
	)
	return appendScalarization(p, "Generic achievement scalarizing function", symbol, sf)
}

// AddSTOM adds the satisficing trade-off method scalarization. The utopian
// point (corrected ideal minus delta) anchors the function; the reference
// point sets the scaling:
//
//	max_k[(f_k_min - uto_k) / (r_k - uto_k)] + rho * sum_k[f_k_min / (r_k - uto_k)]
func AddSTOM(p *problem.Problem, symbol string, referencePoint map[string]float64, opts Options) (*problem.Problem, string, error) {
	ref, err := correctedReference(p, referencePoint)
	if err != nil {
		return nil, "", err
	}
	ideal, _, err := p.CorrectedIdealNadir()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrScalarization, err)
	}
	delta, rho := opts.delta(), opts.rho()

	maxOperands := make([]*problem.Expr, 0, len(p.Objectives))
	augOperands := make([]*problem.Expr, 0, len(p.Objectives))
	for _, obj := range p.Objectives {
		uto := ideal[obj.Symbol] - delta
		denom := problem.Num(ref[obj.Symbol] - uto)
		maxOperands = append(maxOperands, problem.Div(
			problem.Sub(minSym(obj.Symbol), problem.Num(uto)), denom))
		augOperands = append(augOperands, problem.Div(minSym(obj.Symbol), denom))
	}

	sf := problem.Add(
		problem.Maximum(maxOperands...),
		problem.Mul(problem.Num(rho), problem.Add(augOperands...)),
	)
	return appendScalarization(p, "STOM scalarization function", symbol, sf)
}

// AddGUESS adds the GUESS scalarization, anchored at the nadir point:
//
//	max_k[(f_k_min - nad_k) / (nad_k - r_k)] + rho * sum_k[f_k_min / (nad_k - r_k)]
func AddGUESS(p *problem.Problem, symbol string, referencePoint map[string]float64, opts Options) (*problem.Problem, string, error) {
	ref, err := correctedReference(p, referencePoint)
	if err != nil {
		return nil, "", err
	}
	_, nadir, err := p.CorrectedIdealNadir()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrScalarization, err)
	}
	rho := opts.rho()

	maxOperands := make([]*problem.Expr, 0, len(p.Objectives))
	augOperands := make([]*problem.Expr, 0, len(p.Objectives))
	for _, obj := range p.Objectives {
		nad := nadir[obj.Symbol]
		denom := problem.Num(nad - ref[obj.Symbol])
		maxOperands = append(maxOperands, problem.Div(
			problem.Sub(minSym(obj.Symbol), problem.Num(nad)), denom))
		augOperands = append(augOperands, problem.Div(minSym(obj.Symbol), denom))
	}

	sf := problem.Add(
		problem.Maximum(maxOperands...),
		problem.Mul(problem.Num(rho), problem.Add(augOperands...)),
	)
	return appendScalarization(p, "GUESS scalarization function", symbol, sf)
}

// AddWeightedSums adds the weighted sums scalarization. The weights are
// assumed, but not checked, to sum to 1. Weighted sums often cannot reach
// every Pareto optimal solution; prefer the achievement-type scalarizations.
func AddWeightedSums(p *problem.Problem, symbol string, weights map[string]float64) (*problem.Problem, string, error) {
	terms := make([]*problem.Expr, 0, len(p.Objectives))
	for _, obj := range p.Objectives {
		w, ok := weights[obj.Symbol]
		if !ok {
			return nil, "", fmt.Errorf("%w: weight vector is missing a component for objective %q",
				ErrScalarization, obj.Symbol)
		}
		terms = append(terms, problem.Mul(problem.Num(w), minSym(obj.Symbol)))
	}
	return appendScalarization(p, "Weighted sums scalarization function", symbol, problem.Add(terms...))
}

// AddObjectiveAsScalarization adds a scalarization that optimizes a single
// objective function of the problem.
func AddObjectiveAsScalarization(p *problem.Problem, symbol, objectiveSymbol string) (*problem.Problem, string, error) {
	if p.Objective(objectiveSymbol) == nil {
		return nil, "", fmt.Errorf("%w: objective %q is not defined for problem %q",
			ErrScalarization, objectiveSymbol, p.Name)
	}
	sf := problem.Mul(problem.Num(1), minSym(objectiveSymbol))
	return appendScalarization(p, "Objective "+objectiveSymbol, symbol, sf)
}

// AddEpsilonConstraints adds an epsilon-constraint scalarization: the target
// objective is optimized while every other objective k is constrained by
// f_k_min - eps_k <= 0. Epsilons are given in minimization form. Returns the
// augmented problem, the scalarization symbol and the added constraint
// symbols.
func AddEpsilonConstraints(p *problem.Problem, symbol string, constraintSymbols map[string]string, objectiveSymbol string, epsilons map[string]float64) (*problem.Problem, string, []string, error) {
	withTarget, _, err := AddObjectiveAsScalarization(p, symbol, objectiveSymbol)
	if err != nil {
		return nil, "", nil, err
	}

	cons := make([]problem.Constraint, 0, len(p.Objectives)-1)
	symbols := make([]string, 0, len(p.Objectives)-1)
	for _, obj := range p.Objectives {
		if obj.Symbol == objectiveSymbol {
			continue
		}
		eps, ok := epsilons[obj.Symbol]
		if !ok {
			return nil, "", nil, fmt.Errorf("%w: epsilons are missing a component for objective %q",
				ErrScalarization, obj.Symbol)
		}
		conSym, ok := constraintSymbols[obj.Symbol]
		if !ok {
			return nil, "", nil, fmt.Errorf("%w: no constraint symbol given for objective %q",
				ErrScalarization, obj.Symbol)
		}
		cons = append(cons, problem.Constraint{
			Name:     "Epsilon for " + obj.Symbol,
			Symbol:   conSym,
			ConsType: problem.ConstraintLTE,
			Func:     problem.Add(minSym(obj.Symbol), problem.Neg(problem.Num(eps))),
		})
		symbols = append(symbols, conSym)
	}

	out, err := withTarget.AddConstraints(cons)
	if err != nil {
		return nil, "", nil, fmt.Errorf("%w: %v", ErrScalarization, err)
	}
	return out, symbol, symbols, nil
}

func appendScalarization(p *problem.Problem, name, symbol string, sf *problem.Expr) (*problem.Problem, string, error) {
	out, err := p.AddScalarization(problem.ScalarizationFunction{
		Name:   name,
		Symbol: symbol,
		Func:   sf,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrScalarization, err)
	}
	return out, symbol, nil
}
