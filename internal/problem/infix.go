// SPDX-License-Identifier: MIT

package problem

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseInfix parses a function expression written in infix notation
// ("x_1 + 2 * Sin(x_2)") into an expression tree. Operator precedence is the
// usual one: unary minus binds tightest, then ^ (right-associative), then
// * and /, then + and -. Names matching a known operator followed by an
// opening parenthesis are parsed as function calls; everything else is a
// symbol reference.
func ParseInfix(input string) (*Expr, error) {
	p := &infixParser{src: input}
	p.next()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.tok.text, p.tok.pos)
	}
	return expr, nil
}

// MustParseInfix is ParseInfix for statically known expressions; it panics on
// parse errors and is intended for test problem definitions.
func MustParseInfix(input string) *Expr {
	expr, err := ParseInfix(input)
	if err != nil {
		panic(fmt.Sprintf("problem: invalid infix expression %q: %v", input, err))
	}
	return expr
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokNumber
	tokIdent
	tokOp     // + - * / ^
	tokLParen // (
	tokRParen // )
	tokComma
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type infixParser struct {
	src string
	off int
	tok token
}

func (p *infixParser) next() {
	for p.off < len(p.src) && unicode.IsSpace(rune(p.src[p.off])) {
		p.off++
	}
	start := p.off
	if p.off >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	c := p.src[p.off]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		for p.off < len(p.src) && (isDigit(p.src[p.off]) || p.src[p.off] == '.' ||
			p.src[p.off] == 'e' || p.src[p.off] == 'E' ||
			((p.src[p.off] == '+' || p.src[p.off] == '-') && p.off > start &&
				(p.src[p.off-1] == 'e' || p.src[p.off-1] == 'E'))) {
			p.off++
		}
		p.tok = token{kind: tokNumber, text: p.src[start:p.off], pos: start}
	case isIdentStart(c):
		for p.off < len(p.src) && isIdentPart(p.src[p.off]) {
			p.off++
		}
		// Indexed tensor element, e.g. X[1,2], becomes a single symbol.
		if p.off < len(p.src) && p.src[p.off] == '[' {
			for p.off < len(p.src) && p.src[p.off] != ']' {
				p.off++
			}
			if p.off < len(p.src) {
				p.off++ // consume ']'
			}
		}
		p.tok = token{kind: tokIdent, text: strings.ReplaceAll(p.src[start:p.off], " ", ""), pos: start}
	case c == '*' && p.off+1 < len(p.src) && p.src[p.off+1] == '*':
		// Python-style power operator, normalized to ^.
		p.off += 2
		p.tok = token{kind: tokOp, text: "^", pos: start}
	case c == '+' || c == '-' || c == '*' || c == '/' || c == '^':
		p.off++
		p.tok = token{kind: tokOp, text: string(c), pos: start}
	case c == '(':
		p.off++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.off++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	case c == ',':
		p.off++
		p.tok = token{kind: tokComma, text: ",", pos: start}
	default:
		p.tok = token{kind: tokEOF, text: string(c), pos: start}
		p.off = len(p.src)
	}
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || unicode.IsLetter(rune(c)) }
func isIdentPart(c byte) bool  { return c == '_' || isDigit(c) || unicode.IsLetter(rune(c)) }

func (p *infixParser) parseExpr() (*Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			left = Add(left, right)
		} else {
			left = Sub(left, right)
		}
	}
	return left, nil
}

func (p *infixParser) parseTerm() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/") {
		op := p.tok.text
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == "*" {
			left = Mul(left, right)
		} else {
			left = Div(left, right)
		}
	}
	return left, nil
}

func (p *infixParser) parseUnary() (*Expr, error) {
	if p.tok.kind == tokOp && p.tok.text == "-" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Neg(operand), nil
	}
	if p.tok.kind == tokOp && p.tok.text == "+" {
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *infixParser) parsePower() (*Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tokOp && p.tok.text == "^" {
		p.next()
		// Right-associative: 2^3^2 == 2^(3^2).
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Pow(base, exp), nil
	}
	return base, nil
}

// knownOps maps callable names in infix notation to operators.
var knownOps = func() map[string]Op {
	ops := []Op{
		OpNegate, OpExp, OpLn, OpLb, OpLg, OpSqrt, OpSquare, OpPower,
		OpAbs, OpCeil, OpFloor,
		OpArccos, OpArccosh, OpArcsin, OpArcsinh, OpArctan, OpArctanh,
		OpCos, OpCosh, OpSin, OpSinh, OpTan, OpTanh,
		OpMax, OpMin,
	}
	m := make(map[string]Op, len(ops))
	for _, op := range ops {
		m[string(op)] = op
	}
	return m
}()

func (p *infixParser) parsePrimary() (*Expr, error) {
	switch p.tok.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at offset %d", p.tok.text, p.tok.pos)
		}
		p.next()
		return Num(v), nil
	case tokIdent:
		name := p.tok.text
		p.next()
		if p.tok.kind == tokLParen {
			op, ok := knownOps[name]
			if !ok {
				return nil, fmt.Errorf("unknown function %q at offset %d", name, p.tok.pos)
			}
			p.next()
			var args []*Expr
			for {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.tok.kind == tokComma {
					p.next()
					continue
				}
				break
			}
			if p.tok.kind != tokRParen {
				return nil, fmt.Errorf("expected ')' at offset %d", p.tok.pos)
			}
			p.next()
			return Call(op, args...), nil
		}
		return Sym(name), nil
	case tokLParen:
		p.next()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("expected ')' at offset %d", p.tok.pos)
		}
		p.next()
		return expr, nil
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", p.tok.text, p.tok.pos)
	}
}
