// SPDX-License-Identifier: MIT

package problem

import (
	"encoding/json"
	"fmt"
	"math"
)

// Op enumerates the operators supported in function expressions. The names
// follow the MathJSON convention used by problem definitions on the wire.
type Op string

const (
	// Basic arithmetic
	OpNegate   Op = "Negate"
	OpAdd      Op = "Add"
	OpSubtract Op = "Subtract"
	OpMultiply Op = "Multiply"
	OpDivide   Op = "Divide"

	// Exponentiation and logarithms
	OpExp    Op = "Exp"
	OpLn     Op = "Ln"
	OpLb     Op = "Lb"
	OpLg     Op = "Lg"
	OpSqrt   Op = "Sqrt"
	OpSquare Op = "Square"
	OpPower  Op = "Power"

	// Rounding
	OpAbs   Op = "Abs"
	OpCeil  Op = "Ceil"
	OpFloor Op = "Floor"

	// Trigonometry
	OpArccos  Op = "Arccos"
	OpArccosh Op = "Arccosh"
	OpArcsin  Op = "Arcsin"
	OpArcsinh Op = "Arcsinh"
	OpArctan  Op = "Arctan"
	OpArctanh Op = "Arctanh"
	OpCos     Op = "Cos"
	OpCosh    Op = "Cosh"
	OpSin     Op = "Sin"
	OpSinh    Op = "Sinh"
	OpTan     Op = "Tan"
	OpTanh    Op = "Tanh"

	// Aggregates
	OpMax Op = "Max"
	OpMin Op = "Min"
)

type exprKind uint8

const (
	kindNumber exprKind = iota
	kindSymbol
	kindCall
)

// Expr is a node in a function expression tree. Leaves are numbers or
// symbols; interior nodes apply an Op to their arguments.
type Expr struct {
	kind exprKind
	num  float64
	sym  string
	op   Op
	args []*Expr
}

// Num returns a numeric literal node.
func Num(v float64) *Expr { return &Expr{kind: kindNumber, num: v} }

// Sym returns a symbol reference node.
func Sym(s string) *Expr { return &Expr{kind: kindSymbol, sym: s} }

// Call returns an operator application node.
func Call(op Op, args ...*Expr) *Expr { return &Expr{kind: kindCall, op: op, args: args} }

// Convenience constructors for the common operators.
func Add(args ...*Expr) *Expr { return Call(OpAdd, args...) }
func Sub(a, b *Expr) *Expr { return Call(OpSubtract, a, b) }
func Mul(args ...*Expr) *Expr { return Call(OpMultiply, args...) }
func Div(a, b *Expr) *Expr { return Call(OpDivide, a, b) }
func Neg(a *Expr) *Expr { return Call(OpNegate, a) }
func Pow(a, b *Expr) *Expr { return Call(OpPower, a, b) }
func Maximum(args ...*Expr) *Expr { return Call(OpMax, args...) }
func Square(a *Expr) *Expr { return Call(OpSquare, a) }
func SqrtOf(a *Expr) *Expr { return Call(OpSqrt, a) }

// IsNumber reports whether e is a numeric literal, returning its value.
func (e *Expr) IsNumber() (float64, bool) {
	if e.kind == kindNumber {
		return e.num, true
	}
	return 0, false
}

// Symbols appends all symbols referenced by the expression to dst.
func (e *Expr) Symbols(dst map[string]struct{}) {
	switch e.kind {
	case kindSymbol:
		dst[e.sym] = struct{}{}
	case kindCall:
		for _, a := range e.args {
			a.Symbols(dst)
		}
	}
}

// HasOp reports whether any of the given operators occurs in the expression.
func (e *Expr) HasOp(ops ...Op) bool {
	if e.kind != kindCall {
		return false
	}
	for _, op := range ops {
		if e.op == op {
			return true
		}
	}
	for _, a := range e.args {
		if a.HasOp(ops...) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the expression.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	c := &Expr{kind: e.kind, num: e.num, sym: e.sym, op: e.op}
	if e.args != nil {
		c.args = make([]*Expr, len(e.args))
		for i, a := range e.args {
			c.args[i] = a.Clone()
		}
	}
	return c
}

var unaryFns = map[Op]func(float64) float64{
	OpNegate:  func(v float64) float64 { return -v },
	OpExp:     math.Exp,
	OpLn:      math.Log,
	OpLb:      math.Log2,
	OpLg:      math.Log10,
	OpSqrt:    math.Sqrt,
	OpSquare:  func(v float64) float64 { return v * v },
	OpAbs:     math.Abs,
	OpCeil:    math.Ceil,
	OpFloor:   math.Floor,
	OpArccos:  math.Acos,
	OpArccosh: math.Acosh,
	OpArcsin:  math.Asin,
	OpArcsinh: math.Asinh,
	OpArctan:  math.Atan,
	OpArctanh: math.Atanh,
	OpCos:     math.Cos,
	OpCosh:    math.Cosh,
	OpSin:     math.Sin,
	OpSinh:    math.Sinh,
	OpTan:     math.Tan,
	OpTanh:    math.Tanh,
}

// Eval evaluates the expression against the given environment. Referencing a
// symbol absent from env is an error; numeric domain violations (division by
// zero, log of a non-positive value) follow IEEE semantics and surface as
// ±Inf or NaN so that solvers can penalize them.
func (e *Expr) Eval(env map[string]float64) (float64, error) {
	switch e.kind {
	case kindNumber:
		return e.num, nil
	case kindSymbol:
		v, ok := env[e.sym]
		if !ok {
			return 0, fmt.Errorf("expression references undefined symbol %q", e.sym)
		}
		return v, nil
	}

	if fn, ok := unaryFns[e.op]; ok {
		if len(e.args) != 1 {
			return 0, fmt.Errorf("operator %s expects 1 argument, got %d", e.op, len(e.args))
		}
		v, err := e.args[0].Eval(env)
		if err != nil {
			return 0, err
		}
		return fn(v), nil
	}

	switch e.op {
	case OpAdd:
		sum := 0.0
		for _, a := range e.args {
			v, err := a.Eval(env)
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum, nil
	case OpMultiply:
		prod := 1.0
		for _, a := range e.args {
			v, err := a.Eval(env)
			if err != nil {
				return 0, err
			}
			prod *= v
		}
		return prod, nil
	case OpSubtract:
		if len(e.args) != 2 {
			return 0, fmt.Errorf("operator %s expects 2 arguments, got %d", e.op, len(e.args))
		}
		a, err := e.args[0].Eval(env)
		if err != nil {
			return 0, err
		}
		b, err := e.args[1].Eval(env)
		if err != nil {
			return 0, err
		}
		return a - b, nil
	case OpDivide:
		if len(e.args) != 2 {
			return 0, fmt.Errorf("operator %s expects 2 arguments, got %d", e.op, len(e.args))
		}
		a, err := e.args[0].Eval(env)
		if err != nil {
			return 0, err
		}
		b, err := e.args[1].Eval(env)
		if err != nil {
			return 0, err
		}
		return a / b, nil
	case OpPower:
		if len(e.args) != 2 {
			return 0, fmt.Errorf("operator %s expects 2 arguments, got %d", e.op, len(e.args))
		}
		a, err := e.args[0].Eval(env)
		if err != nil {
			return 0, err
		}
		b, err := e.args[1].Eval(env)
		if err != nil {
			return 0, err
		}
		return math.Pow(a, b), nil
	case OpMax, OpMin:
		if len(e.args) == 0 {
			return 0, fmt.Errorf("operator %s expects at least 1 argument", e.op)
		}
		best, err := e.args[0].Eval(env)
		if err != nil {
			return 0, err
		}
		for _, a := range e.args[1:] {
			v, err := a.Eval(env)
			if err != nil {
				return 0, err
			}
			if (e.op == OpMax && v > best) || (e.op == OpMin && v < best) {
				best = v
			}
		}
		return best, nil
	}
	return 0, fmt.Errorf("unsupported operator %q", e.op)
}

// MarshalJSON encodes the expression in MathJSON form: numbers as JSON
// numbers, symbols as strings, calls as ["Op", arg...].
func (e *Expr) MarshalJSON() ([]byte, error) {
	switch e.kind {
	case kindNumber:
		return json.Marshal(e.num)
	case kindSymbol:
		return json.Marshal(e.sym)
	}
	arr := make([]any, 0, len(e.args)+1)
	arr = append(arr, string(e.op))
	for _, a := range e.args {
		arr = append(arr, a)
	}
	return json.Marshal(arr)
}

// UnmarshalJSON decodes a MathJSON expression.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := exprFromMathJSON(raw)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

func exprFromMathJSON(v any) (*Expr, error) {
	switch t := v.(type) {
	case float64:
		return Num(t), nil
	case string:
		return Sym(t), nil
	case []any:
		if len(t) == 0 {
			return nil, fmt.Errorf("empty expression list")
		}
		head, ok := t[0].(string)
		if !ok {
			return nil, fmt.Errorf("expression head must be an operator string, got %T", t[0])
		}
		args := make([]*Expr, 0, len(t)-1)
		for _, raw := range t[1:] {
			arg, err := exprFromMathJSON(raw)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return Call(Op(head), args...), nil
	default:
		return nil, fmt.Errorf("unsupported expression element %T", v)
	}
}
