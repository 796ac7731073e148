// SPDX-License-Identifier: MIT

package scalarization

import (
	"fmt"
	"math"

	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

// Class is a NIMBUS classification assigned to an objective function.
type Class string

const (
	// ClassImprove: the objective should improve as much as possible.
	ClassImprove Class = "<"
	// ClassImproveUntil: the objective should improve until the aspiration level.
	ClassImproveUntil Class = "<="
	// ClassKeep: the objective should stay at its current value.
	ClassKeep Class = "="
	// ClassImpairUntil: the objective may be impaired until the reservation level.
	ClassImpairUntil Class = ">="
	// ClassFree: the objective may change freely.
	ClassFree Class = "0"
)

// Classification pairs a class with its aspiration level (for <=) or
// reservation level (for >=), given in the objective's own orientation.
type Classification struct {
	Class Class
	Level *float64
}

// Classifications maps objective symbols to their classifications.
type Classifications map[string]Classification

// classificationTolerance is the closeness tolerance used when inferring
// classes from a reference point.
const classificationTolerance = 1e-8

// InferClassifications derives NIMBUS classifications from a reference point
// and the current objective values. A reference value at the ideal means
// "improve", at the nadir "change freely", at the current value "keep";
// otherwise the value becomes an aspiration or reservation level depending on
// which side of the current value it falls.
func InferClassifications(p *problem.Problem, current, referencePoint map[string]float64) (Classifications, error) {
	if !p.HasIdealAndNadir() {
		return nil, fmt.Errorf("%w: the problem must have both an ideal and nadir point defined", ErrScalarization)
	}
	for _, obj := range p.Objectives {
		if _, ok := referencePoint[obj.Symbol]; !ok {
			return nil, fmt.Errorf("%w: reference point is missing a component for objective %q",
				ErrScalarization, obj.Symbol)
		}
		if _, ok := current[obj.Symbol]; !ok {
			return nil, fmt.Errorf("%w: current point is missing a component for objective %q",
				ErrScalarization, obj.Symbol)
		}
	}

	out := make(Classifications, len(p.Objectives))
	for _, obj := range p.Objectives {
		ref, cur := referencePoint[obj.Symbol], current[obj.Symbol]
		level := ref
		switch {
		case math.Abs(ref-*obj.Nadir) < classificationTolerance:
			out[obj.Symbol] = Classification{Class: ClassFree}
		case math.Abs(ref-*obj.Ideal) < classificationTolerance:
			out[obj.Symbol] = Classification{Class: ClassImprove}
		case math.Abs(ref-cur) < classificationTolerance:
			out[obj.Symbol] = Classification{Class: ClassKeep}
		case !obj.Maximize && ref < cur, obj.Maximize && ref > cur:
			// Reference is better than the current value: aspiration level.
			out[obj.Symbol] = Classification{Class: ClassImproveUntil, Level: &level}
		default:
			// Reference is worse than the current value: reservation level.
			out[obj.Symbol] = Classification{Class: ClassImpairUntil, Level: &level}
		}
	}
	return out, nil
}

// AddNIMBUS adds the synchronous NIMBUS scalarization for the given
// classifications and current objective values:
//
//	max over k in I^< [(f_k_min - uto_k) / (nad_k - uto_k)],
//	    over k in I^<= [(f_k_min - asp_k) / (nad_k - uto_k)]
//	+ rho * sum_k [f_k_min / (nad_k - uto_k)]
//
// with bound constraints f_k_min <= cur_k for classes <, <= and =, and
// f_k_min <= res_k for class >=. A valid classification improves at least one
// objective and allows at least one to worsen. Returns the augmented problem,
// the scalarization's symbol, and the added constraint symbols.
func AddNIMBUS(p *problem.Problem, symbol string, classes Classifications, currentObjectives map[string]float64, opts Options) (*problem.Problem, string, []string, error) {
	ideal, nadir, err := p.CorrectedIdealNadir()
	if err != nil {
		return nil, "", nil, fmt.Errorf("%w: %v", ErrScalarization, err)
	}
	current, err := correctedReference(p, currentObjectives)
	if err != nil {
		return nil, "", nil, err
	}
	delta, rho := opts.delta(), opts.rho()

	improves, worsens := false, false
	var maxOperands, augOperands []*problem.Expr
	var cons []problem.Constraint

	for _, obj := range p.Objectives {
		cls, ok := classes[obj.Symbol]
		if !ok {
			return nil, "", nil, fmt.Errorf("%w: no classification given for objective %q",
				ErrScalarization, obj.Symbol)
		}
		uto := ideal[obj.Symbol] - delta
		denom := problem.Num(nadir[obj.Symbol] - uto)
		augOperands = append(augOperands, problem.Div(minSym(obj.Symbol), denom))

		conSym := fmt.Sprintf("%s_con_%s", symbol, obj.Symbol)
		switch cls.Class {
		case ClassImprove:
			improves = true
			maxOperands = append(maxOperands, problem.Div(
				problem.Sub(minSym(obj.Symbol), problem.Num(uto)), denom))
			cons = append(cons, boundConstraint(conSym, obj.Symbol, current[obj.Symbol]))
		case ClassImproveUntil:
			improves = true
			if cls.Level == nil {
				return nil, "", nil, fmt.Errorf("%w: classification %q for objective %q requires an aspiration level",
					ErrScalarization, cls.Class, obj.Symbol)
			}
			asp := *cls.Level
			if obj.Maximize {
				asp = -asp
			}
			maxOperands = append(maxOperands, problem.Div(
				problem.Sub(minSym(obj.Symbol), problem.Num(asp)), denom))
			cons = append(cons, boundConstraint(conSym, obj.Symbol, current[obj.Symbol]))
		case ClassKeep:
			cons = append(cons, boundConstraint(conSym, obj.Symbol, current[obj.Symbol]))
		case ClassImpairUntil:
			worsens = true
			if cls.Level == nil {
				return nil, "", nil, fmt.Errorf("%w: classification %q for objective %q requires a reservation level",
					ErrScalarization, cls.Class, obj.Symbol)
			}
			res := *cls.Level
			if obj.Maximize {
				res = -res
			}
			cons = append(cons, boundConstraint(conSym, obj.Symbol, res))
		case ClassFree:
			worsens = true
		default:
			return nil, "", nil, fmt.Errorf("%w: unknown classification %q for objective %q",
				ErrScalarization, cls.Class, obj.Symbol)
		}
	}

	if !improves || !worsens {
		return nil, "", nil, fmt.Errorf("%w: a NIMBUS classification must improve at least one objective and allow at least one to worsen",
			ErrScalarization)
	}

	sf := problem.Add(
		problem.Maximum(maxOperands...),
		problem.Mul(problem.Num(rho), problem.Add(augOperands...)),
	)

	withSF, _, err := appendScalarization(p, "NIMBUS scalarization function", symbol, sf)
	if err != nil {
		return nil, "", nil, err
	}
	out, err := withSF.AddConstraints(cons)
	if err != nil {
		return nil, "", nil, fmt.Errorf("%w: %v", ErrScalarization, err)
	}

	symbols := make([]string, len(cons))
	for i, c := range cons {
		symbols[i] = c.Symbol
	}
	return out, symbol, symbols, nil
}

// boundConstraint emits f_min - bound <= 0 for the given objective.
func boundConstraint(conSym, objSymbol string, bound float64) problem.Constraint {
	return problem.Constraint{
		Name:     "NIMBUS bound for " + objSymbol,
		Symbol:   conSym,
		ConsType: problem.ConstraintLTE,
		Func:     problem.Sub(minSym(objSymbol), problem.Num(bound)),
	}
}
