// SPDX-License-Identifier: MIT

// Package problem defines the multiobjective optimization problem model:
// variables, objectives, constraints and function expressions, together with
// an evaluator and a set of canonical test problems.
package problem

import (
	"errors"
	"fmt"
)

// VariableType enumerates the supported decision variable domains.
type VariableType string

const (
	VariableReal    VariableType = "real"
	VariableInteger VariableType = "integer"
	VariableBinary  VariableType = "binary"
)

// ObjectiveType distinguishes analytical objectives (with an expression) from
// data-based ones (defined by a discrete representation).
type ObjectiveType string

const (
	ObjectiveAnalytical ObjectiveType = "analytical"
	ObjectiveDataBased  ObjectiveType = "data_based"
)

// ConstraintType enumerates constraint comparison forms. A constraint
// expression evaluates feasible when its value is <= 0 (LTE) or == 0 (EQ).
type ConstraintType string

const (
	ConstraintLTE ConstraintType = "<="
	ConstraintEQ  ConstraintType = "="
)

// Variable is a scalar decision variable.
type Variable struct {
	Name         string       `json:"name"`
	Symbol       string       `json:"symbol"`
	Type         VariableType `json:"variable_type"`
	LowerBound   *float64     `json:"lowerbound,omitempty"`
	UpperBound   *float64     `json:"upperbound,omitempty"`
	InitialValue *float64     `json:"initial_value,omitempty"`
}

// Constant binds a fixed numeric value to a symbol.
type Constant struct {
	Name   string  `json:"name"`
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
}

// Objective is an objective function. Ideal and Nadir are the best and worst
// attainable values in the objective's own orientation; they are nil when
// unknown.
type Objective struct {
	Name     string        `json:"name"`
	Symbol   string        `json:"symbol"`
	Unit     string        `json:"unit,omitempty"`
	Func     *Expr         `json:"func,omitempty"`
	Maximize bool          `json:"maximize"`
	Ideal    *float64      `json:"ideal,omitempty"`
	Nadir    *float64      `json:"nadir,omitempty"`
	Type     ObjectiveType `json:"objective_type,omitempty"`
}

// Constraint is a constraint function in standard form.
type Constraint struct {
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Func     *Expr          `json:"func"`
	ConsType ConstraintType `json:"cons_type"`
}

// ExtraFunction is a named auxiliary expression other expressions may
// reference by symbol.
type ExtraFunction struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Func   *Expr  `json:"func"`
}

// ScalarizationFunction scalarizes the problem's objectives into a single
// value to be minimized. Scalarization expressions reference objectives
// through their `<symbol>_min` form.
type ScalarizationFunction struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Func   *Expr  `json:"func"`
}

// DiscreteRepresentation carries pre-computed decision/objective vectors for
// data-based problems.
type DiscreteRepresentation struct {
	VariableValues  map[string][]float64 `json:"variable_values"`
	ObjectiveValues map[string][]float64 `json:"objective_values"`
	NonDominated    bool                 `json:"non_dominated"`
}

// Problem is a complete multiobjective optimization problem definition.
type Problem struct {
	Name            string                  `json:"name"`
	Description     string                  `json:"description,omitempty"`
	Constants       []Constant              `json:"constants,omitempty"`
	Variables       []Variable              `json:"variables"`
	TensorVariables []TensorVariable        `json:"tensor_variables,omitempty"`
	Objectives      []Objective             `json:"objectives"`
	Constraints     []Constraint            `json:"constraints,omitempty"`
	ExtraFuncs      []ExtraFunction         `json:"extra_funcs,omitempty"`
	Scalarizations  []ScalarizationFunction `json:"scalarization_funcs,omitempty"`
	Discrete        *DiscreteRepresentation `json:"discrete_representation,omitempty"`
}

// ErrSchema is the sentinel for problem definition errors.
var ErrSchema = errors.New("invalid problem definition")

// Validate checks structural invariants: at least one variable and objective,
// unique symbols, bounds ordering, and complete discrete data for data-based
// objectives.
func (p *Problem) Validate() error {
	if len(p.Variables) == 0 && len(p.TensorVariables) == 0 {
		return fmt.Errorf("%w: problem %q has no variables", ErrSchema, p.Name)
	}
	if len(p.Objectives) == 0 {
		return fmt.Errorf("%w: problem %q has no objectives", ErrSchema, p.Name)
	}

	seen := map[string]struct{}{}
	claim := func(sym string) error {
		if sym == "" {
			return fmt.Errorf("%w: empty symbol in problem %q", ErrSchema, p.Name)
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("%w: duplicate symbol %q in problem %q", ErrSchema, sym, p.Name)
		}
		seen[sym] = struct{}{}
		return nil
	}

	for _, c := range p.Constants {
		if err := claim(c.Symbol); err != nil {
			return err
		}
	}
	for _, v := range p.Variables {
		if err := claim(v.Symbol); err != nil {
			return err
		}
		if v.LowerBound != nil && v.UpperBound != nil && *v.LowerBound > *v.UpperBound {
			return fmt.Errorf("%w: variable %q has lowerbound %v > upperbound %v",
				ErrSchema, v.Symbol, *v.LowerBound, *v.UpperBound)
		}
	}
	for _, tv := range p.TensorVariables {
		if err := claim(tv.Symbol); err != nil {
			return err
		}
		if err := tv.validate(); err != nil {
			return err
		}
	}
	for _, o := range p.Objectives {
		if err := claim(o.Symbol); err != nil {
			return err
		}
		switch o.Type {
		case ObjectiveDataBased:
			if p.Discrete == nil {
				return fmt.Errorf("%w: data-based objective %q without a discrete representation",
					ErrSchema, o.Symbol)
			}
			if _, ok := p.Discrete.ObjectiveValues[o.Symbol]; !ok {
				return fmt.Errorf("%w: discrete representation missing values for objective %q",
					ErrSchema, o.Symbol)
			}
		default:
			if o.Func == nil {
				return fmt.Errorf("%w: analytical objective %q has no expression", ErrSchema, o.Symbol)
			}
		}
	}
	for _, c := range p.Constraints {
		if err := claim(c.Symbol); err != nil {
			return err
		}
		if c.Func == nil {
			return fmt.Errorf("%w: constraint %q has no expression", ErrSchema, c.Symbol)
		}
	}
	for _, f := range p.ExtraFuncs {
		if err := claim(f.Symbol); err != nil {
			return err
		}
	}
	for _, s := range p.Scalarizations {
		if err := claim(s.Symbol); err != nil {
			return err
		}
	}
	return nil
}

// Objective returns the objective with the given symbol, or nil.
func (p *Problem) Objective(symbol string) *Objective {
	for i := range p.Objectives {
		if p.Objectives[i].Symbol == symbol {
			return &p.Objectives[i]
		}
	}
	return nil
}

// IdealPoint returns the ideal value per objective symbol; entries are nil
// when undefined.
func (p *Problem) IdealPoint() map[string]*float64 {
	out := make(map[string]*float64, len(p.Objectives))
	for _, o := range p.Objectives {
		out[o.Symbol] = o.Ideal
	}
	return out
}

// NadirPoint returns the nadir value per objective symbol; entries are nil
// when undefined.
func (p *Problem) NadirPoint() map[string]*float64 {
	out := make(map[string]*float64, len(p.Objectives))
	for _, o := range p.Objectives {
		out[o.Symbol] = o.Nadir
	}
	return out
}

// HasIdealAndNadir reports whether every objective defines both points.
func (p *Problem) HasIdealAndNadir() bool {
	for _, o := range p.Objectives {
		if o.Ideal == nil || o.Nadir == nil {
			return false
		}
	}
	return true
}

// CorrectedIdealNadir returns the ideal and nadir points in minimization
// form: entries of maximized objectives are multiplied by -1.
func (p *Problem) CorrectedIdealNadir() (ideal, nadir map[string]float64, err error) {
	if !p.HasIdealAndNadir() {
		return nil, nil, fmt.Errorf("%w: problem %q must define ideal and nadir for every objective",
			ErrSchema, p.Name)
	}
	ideal = make(map[string]float64, len(p.Objectives))
	nadir = make(map[string]float64, len(p.Objectives))
	for _, o := range p.Objectives {
		i, n := *o.Ideal, *o.Nadir
		if o.Maximize {
			i, n = -i, -n
		}
		ideal[o.Symbol] = i
		nadir[o.Symbol] = n
	}
	return ideal, nadir, nil
}

// Clone returns a deep copy of the problem.
func (p *Problem) Clone() *Problem {
	c := *p
	c.Constants = append([]Constant(nil), p.Constants...)
	c.Variables = make([]Variable, len(p.Variables))
	for i, v := range p.Variables {
		cv := v
		cv.LowerBound = cloneFloat(v.LowerBound)
		cv.UpperBound = cloneFloat(v.UpperBound)
		cv.InitialValue = cloneFloat(v.InitialValue)
		c.Variables[i] = cv
	}
	c.TensorVariables = make([]TensorVariable, len(p.TensorVariables))
	for i, tv := range p.TensorVariables {
		c.TensorVariables[i] = tv.clone()
	}
	c.Objectives = make([]Objective, len(p.Objectives))
	for i, o := range p.Objectives {
		co := o
		co.Func = o.Func.Clone()
		co.Ideal = cloneFloat(o.Ideal)
		co.Nadir = cloneFloat(o.Nadir)
		c.Objectives[i] = co
	}
	c.Constraints = make([]Constraint, len(p.Constraints))
	for i, con := range p.Constraints {
		cc := con
		cc.Func = con.Func.Clone()
		c.Constraints[i] = cc
	}
	c.ExtraFuncs = make([]ExtraFunction, len(p.ExtraFuncs))
	for i, f := range p.ExtraFuncs {
		cf := f
		cf.Func = f.Func.Clone()
		c.ExtraFuncs[i] = cf
	}
	c.Scalarizations = make([]ScalarizationFunction, len(p.Scalarizations))
	for i, s := range p.Scalarizations {
		cs := s
		cs.Func = s.Func.Clone()
		c.Scalarizations[i] = cs
	}
	if p.Discrete != nil {
		d := DiscreteRepresentation{
			VariableValues:  make(map[string][]float64, len(p.Discrete.VariableValues)),
			ObjectiveValues: make(map[string][]float64, len(p.Discrete.ObjectiveValues)),
			NonDominated:    p.Discrete.NonDominated,
		}
		for k, v := range p.Discrete.VariableValues {
			d.VariableValues[k] = append([]float64(nil), v...)
		}
		for k, v := range p.Discrete.ObjectiveValues {
			d.ObjectiveValues[k] = append([]float64(nil), v...)
		}
		c.Discrete = &d
	}
	return &c
}

// AddScalarization returns a copy of the problem with the scalarization
// appended. The receiver is not modified.
func (p *Problem) AddScalarization(sf ScalarizationFunction) (*Problem, error) {
	if sf.Func == nil {
		return nil, fmt.Errorf("%w: scalarization %q has no expression", ErrSchema, sf.Symbol)
	}
	c := p.Clone()
	c.Scalarizations = append(c.Scalarizations, sf)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// AddConstraints returns a copy of the problem with the constraints appended.
// The receiver is not modified.
func (p *Problem) AddConstraints(cons []Constraint) (*Problem, error) {
	c := p.Clone()
	c.Constraints = append(c.Constraints, cons...)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ObjectiveSymbols returns objective symbols in definition order.
func (p *Problem) ObjectiveSymbols() []string {
	out := make([]string, len(p.Objectives))
	for i, o := range p.Objectives {
		out[i] = o.Symbol
	}
	return out
}

// VariableSymbols returns scalar variable symbols in definition order,
// including expanded tensor elements.
func (p *Problem) VariableSymbols() []string {
	out := make([]string, 0, len(p.Variables))
	for _, v := range p.Variables {
		out = append(out, v.Symbol)
	}
	for _, tv := range p.TensorVariables {
		for _, fv := range tv.Expand() {
			out = append(out, fv.Symbol)
		}
	}
	return out
}

// ObjectiveDictToVector orders an objective dict by the problem's objectives.
func (p *Problem) ObjectiveDictToVector(d map[string]float64) ([]float64, error) {
	out := make([]float64, len(p.Objectives))
	for i, o := range p.Objectives {
		v, ok := d[o.Symbol]
		if !ok {
			return nil, fmt.Errorf("%w: objective dict missing entry for %q", ErrSchema, o.Symbol)
		}
		out[i] = v
	}
	return out, nil
}

// VectorToObjectiveDict maps a vector in objective definition order to a dict.
func (p *Problem) VectorToObjectiveDict(v []float64) (map[string]float64, error) {
	if len(v) != len(p.Objectives) {
		return nil, fmt.Errorf("%w: vector length %d != %d objectives", ErrSchema, len(v), len(p.Objectives))
	}
	out := make(map[string]float64, len(v))
	for i, o := range p.Objectives {
		out[o.Symbol] = v[i]
	}
	return out, nil
}

// VariableDictToVector orders a variable dict by the problem's variables.
func (p *Problem) VariableDictToVector(d map[string]float64) ([]float64, error) {
	syms := p.VariableSymbols()
	out := make([]float64, len(syms))
	for i, s := range syms {
		v, ok := d[s]
		if !ok {
			return nil, fmt.Errorf("%w: variable dict missing entry for %q", ErrSchema, s)
		}
		out[i] = v
	}
	return out, nil
}

// VectorToVariableDict maps a vector in variable definition order to a dict.
func (p *Problem) VectorToVariableDict(v []float64) (map[string]float64, error) {
	syms := p.VariableSymbols()
	if len(v) != len(syms) {
		return nil, fmt.Errorf("%w: vector length %d != %d variables", ErrSchema, len(v), len(syms))
	}
	out := make(map[string]float64, len(v))
	for i, s := range syms {
		out[s] = v[i]
	}
	return out, nil
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// F is a pointer-to-float helper for literal problem definitions.
func F(v float64) *float64 { return &v }

// MinSuffix is appended to an objective's symbol to reference its value in
// minimization form (negated when the objective is maximized).
const MinSuffix = "_min"
