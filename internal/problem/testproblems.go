// SPDX-License-Identifier: MIT

package problem

import (
	"fmt"
	"math"
	"strings"
)

// Pre-defined multiobjective optimization problems for testing and
// illustration purposes.

// BinhAndKorn returns the two-objective constrained problem from Binh and
// Korn (1997). For testing, either objective can be flipped to maximization.
func BinhAndKorn(maximizeFirst, maximizeSecond bool) *Problem {
	sign := func(maximize bool) string {
		if maximize {
			return "-"
		}
		return ""
	}
	nadir := func(v float64, maximize bool) *float64 {
		if maximize {
			return F(-v)
		}
		return F(v)
	}

	return &Problem{
		Name:        "The Binh and Korn function",
		Description: "The two-objective problem used in the paper by Binh and Korn.",
		Constants: []Constant{
			{Name: "Four", Symbol: "c_1", Value: 4},
			{Name: "Five", Symbol: "c_2", Value: 5},
		},
		Variables: []Variable{
			{Name: "The first variable", Symbol: "x_1", Type: VariableReal, LowerBound: F(0), UpperBound: F(5), InitialValue: F(2.5)},
			{Name: "The second variable", Symbol: "x_2", Type: VariableReal, LowerBound: F(0), UpperBound: F(3), InitialValue: F(1.5)},
		},
		Objectives: []Objective{
			{
				Name:     "Objective 1",
				Symbol:   "f_1",
				Func:     MustParseInfix(sign(maximizeFirst) + "(c_1 * x_1**2 + c_1 * x_2**2)"),
				Maximize: maximizeFirst,
				Ideal:    F(0),
				Nadir:    nadir(140, maximizeFirst),
			},
			{
				Name:     "Objective 2",
				Symbol:   "f_2",
				Func:     MustParseInfix(sign(maximizeSecond) + "((x_1 - c_2)**2 + (x_2 - c_2)**2)"),
				Maximize: maximizeSecond,
				Ideal:    F(0),
				Nadir:    nadir(50, maximizeSecond),
			},
		},
		Constraints: []Constraint{
			{Name: "Constraint 1", Symbol: "g_1", ConsType: ConstraintLTE,
				Func: MustParseInfix("(x_1 - c_2)**2 + x_2**2 - 25")},
			{Name: "Constraint 2", Symbol: "g_2", ConsType: ConstraintLTE,
				Func: MustParseInfix("-((x_1 - 8)**2) - (x_2 + 3)**2 + 7.7")},
		},
	}
}

// RiverPollution returns the river pollution problem of Narula and
// Weistroffer (1989), with either four or five objectives. The fifth
// objective (BOD deviation) is nondifferentiable.
func RiverPollution(fiveObjectives bool) *Problem {
	objectives := []Objective{
		{Name: "DO city", Symbol: "f_1",
			Func:     MustParseInfix("-4.07 - 2.27 * x_1"),
			Maximize: false, Ideal: F(-6.34), Nadir: F(-4.75)},
		{Name: "DO municipality", Symbol: "f_2",
			Func:     MustParseInfix("-2.60 - 0.03 * x_1 - 0.02 * x_2 - 0.01 / (1.39 - x_1**2) - 0.30 / (1.39 - x_2**2)"),
			Maximize: false, Ideal: F(-3.44), Nadir: F(-2.85)},
		{Name: "ROI fishery", Symbol: "f_3",
			Func:     MustParseInfix("8.21 - 0.71 / (1.09 - x_1**2)"),
			Maximize: true, Ideal: F(7.5), Nadir: F(0.32)},
		{Name: "ROI city", Symbol: "f_4",
			Func:     MustParseInfix("0.96 - 0.96 / (1.09 - x_2**2)"),
			Maximize: true, Ideal: F(0), Nadir: F(-9.70)},
	}
	if fiveObjectives {
		objectives = append(objectives, Objective{
			Name: "BOD deviation", Symbol: "f_5",
			Func:     MustParseInfix("Max(Abs(x_1 - 0.65), Abs(x_2 - 0.65))"),
			Maximize: false, Ideal: F(0), Nadir: F(0.35),
		})
	}

	return &Problem{
		Name:        "The river pollution problem",
		Description: "The river pollution problem to maximize return of investments and minimize pollution.",
		Variables: []Variable{
			{Name: "BOD", Symbol: "x_1", Type: VariableReal, LowerBound: F(0.3), UpperBound: F(1.0), InitialValue: F(0.65)},
			{Name: "DO", Symbol: "x_2", Type: VariableReal, LowerBound: F(0.3), UpperBound: F(1.0), InitialValue: F(0.65)},
		},
		Objectives: objectives,
	}
}

// ZDT1 returns the ZDT1 test problem with n decision variables.
func ZDT1(n int) *Problem {
	variables := make([]Variable, n)
	for i := 1; i <= n; i++ {
		sym := fmt.Sprintf("x_%d", i)
		variables[i-1] = Variable{Name: sym, Symbol: sym, Type: VariableReal,
			LowerBound: F(0), UpperBound: F(1), InitialValue: F(0.5)}
	}

	sumTerms := make([]string, 0, n-1)
	for i := 2; i <= n; i++ {
		sumTerms = append(sumTerms, fmt.Sprintf("x_%d", i))
	}
	gExpr := fmt.Sprintf("1 + (9 / (%d - 1)) * (%s)", n, strings.Join(sumTerms, " + "))
	hExpr := fmt.Sprintf("1 - Sqrt((1 * x_1) / (%s))", gExpr)

	return &Problem{
		Name:        "zdt1",
		Description: "The ZDT1 test problem.",
		Variables:   variables,
		Objectives: []Objective{
			{Name: "f_1", Symbol: "f_1", Func: MustParseInfix("1 * x_1"),
				Maximize: false, Ideal: F(0), Nadir: F(1)},
			{Name: "f_2", Symbol: "f_2", Func: MustParseInfix("g * h"),
				Maximize: false, Ideal: F(0), Nadir: F(1)},
		},
		ExtraFuncs: []ExtraFunction{
			{Name: "g", Symbol: "g", Func: MustParseInfix(gExpr)},
			{Name: "h", Symbol: "h", Func: MustParseInfix(hExpr)},
		},
	}
}

// DTLZ2 returns the DTLZ2 test problem with n variables and m objectives.
func DTLZ2(n, m int) *Problem {
	gTerms := make([]string, 0, n-m+1)
	for i := m; i <= n; i++ {
		gTerms = append(gTerms, fmt.Sprintf("(x_%d - 0.5)**2", i))
	}
	gExpr := "1 + " + strings.Join(gTerms, " + ")

	objectives := make([]Objective, 0, m)
	for k := 1; k <= m; k++ {
		prodTerms := make([]string, 0, m-k+1)
		for i := 1; i <= m-k; i++ {
			prodTerms = append(prodTerms, fmt.Sprintf("Cos(0.5 * %v * x_%d)", math.Pi, i))
		}
		if k > 1 {
			prodTerms = append(prodTerms, fmt.Sprintf("Sin(0.5 * %v * x_%d)", math.Pi, m-k+1))
		}
		prod := strings.Join(prodTerms, " * ")
		if prod == "" {
			prod = "1"
		}
		sym := fmt.Sprintf("f_%d", k)
		objectives = append(objectives, Objective{
			Name: sym, Symbol: sym,
			Func:     MustParseInfix(fmt.Sprintf("(g) * (%s)", prod)),
			Maximize: false, Ideal: F(0), Nadir: F(2),
		})
	}

	variables := make([]Variable, n)
	for i := 1; i <= n; i++ {
		sym := fmt.Sprintf("x_%d", i)
		variables[i-1] = Variable{Name: sym, Symbol: sym, Type: VariableReal,
			LowerBound: F(0), UpperBound: F(1), InitialValue: F(1.0)}
	}

	return &Problem{
		Name:        "dtlz2",
		Description: "The DTLZ2 test problem.",
		Variables:   variables,
		Objectives:  objectives,
		ExtraFuncs: []ExtraFunction{
			{Name: "g", Symbol: "g", Func: MustParseInfix(gExpr)},
		},
	}
}

// SimpleLinear returns a single-objective linear problem with two
// constraints, suitable for testing solvers.
func SimpleLinear() *Problem {
	return &Problem{
		Name:        "Simple linear test problem.",
		Description: "A simple problem for testing purposes.",
		Constants:   []Constant{{Name: "c", Symbol: "c", Value: 4.2}},
		Variables: []Variable{
			{Name: "x_1", Symbol: "x_1", Type: VariableReal, LowerBound: F(-10), UpperBound: F(10), InitialValue: F(5)},
			{Name: "x_2", Symbol: "x_2", Type: VariableReal, LowerBound: F(-10), UpperBound: F(10), InitialValue: F(5)},
		},
		Objectives: []Objective{
			{Name: "f_1", Symbol: "f_1", Func: MustParseInfix("x_1 + x_2"), Maximize: false},
		},
		Constraints: []Constraint{
			{Name: "g_1", Symbol: "g_1", ConsType: ConstraintLTE, Func: MustParseInfix("c - x_1")},
			{Name: "g_2", Symbol: "g_2", ConsType: ConstraintLTE, Func: MustParseInfix("0.5*x_1 - x_2")},
		},
	}
}

// NimbusTest returns the test problem from the synchronous NIMBUS article
// (Miettinen & Mäkelä, 2006), with its published ideal and nadir points.
func NimbusTest() *Problem {
	return &Problem{
		Name:        "NIMBUS test problem",
		Description: "The test problem used in the Synchronous NIMBUS article",
		Variables: []Variable{
			{Name: "x_1", Symbol: "x_1", Type: VariableReal, LowerBound: F(1), UpperBound: F(3), InitialValue: F(1)},
			{Name: "x_2", Symbol: "x_2", Type: VariableReal, LowerBound: F(1), UpperBound: F(3), InitialValue: F(1)},
		},
		Objectives: []Objective{
			{Name: "Objective 1", Symbol: "f_1", Func: MustParseInfix("x_1 * x_2"),
				Maximize: true, Ideal: F(9.0), Nadir: F(1.0)},
			{Name: "Objective 2", Symbol: "f_2", Func: MustParseInfix("(x_1 - 4)**2 + x_2**2"),
				Maximize: false, Ideal: F(2.0), Nadir: F(18.0)},
			{Name: "Objective 3", Symbol: "f_3", Func: MustParseInfix("-x_1 - x_2"),
				Maximize: false, Ideal: F(-6.0), Nadir: F(-2.0)},
			{Name: "Objective 4", Symbol: "f_4", Func: MustParseInfix("x_1 - x_2"),
				Maximize: false, Ideal: F(-2.0), Nadir: F(2.0)},
			{Name: "Objective 5", Symbol: "f_5", Func: MustParseInfix("50 * x_1**4 + 10 * x_2**4"),
				Maximize: false, Ideal: F(60.0), Nadir: F(4860.0)},
			{Name: "Objective 6", Symbol: "f_6", Func: MustParseInfix("30 * (x_1 - 5)**4 + 100*(x_2 - 3)**4"),
				Maximize: false, Ideal: F(480.0), Nadir: F(9280.0)},
		},
	}
}

// SimpleData returns a problem whose objectives are all data-based, with an
// equality constraint and a constant.
func SimpleData() *Problem {
	const nVar, dataLen = 5, 10

	variables := make([]Variable, nVar)
	varData := make(map[string][]float64, nVar)
	for i := 1; i <= nVar; i++ {
		sym := fmt.Sprintf("y_%d", i)
		variables[i-1] = Variable{Name: sym, Symbol: sym, Type: VariableReal,
			LowerBound: F(-50), UpperBound: F(50), InitialValue: F(0.1)}
		col := make([]float64, dataLen)
		for j := 0; j < dataLen; j++ {
			col[j] = float64(i)*0.5 + float64(j)
		}
		varData[sym] = col
	}

	g1 := make([]float64, dataLen)
	g2 := make([]float64, dataLen)
	g3 := make([]float64, dataLen)
	for j := 0; j < dataLen; j++ {
		sum, maxv := 0.0, math.Inf(-1)
		for i := 1; i <= nVar; i++ {
			v := varData[fmt.Sprintf("y_%d", i)][j]
			sum += v
			if v > maxv {
				maxv = v
			}
		}
		g1[j] = sum * sum
		g2[j] = maxv
		g3[j] = -sum
	}

	return &Problem{
		Name:        "Simple data problem",
		Description: "Simple problem with all objectives being data-based. Has constraints and a constant also.",
		Constants:   []Constant{{Name: "c", Symbol: "c", Value: 1000}},
		Variables:   variables,
		Objectives: []Objective{
			{Name: "g_1", Symbol: "g_1", Type: ObjectiveDataBased, Maximize: true, Ideal: F(3000), Nadir: F(0)},
			{Name: "g_2", Symbol: "g_2", Type: ObjectiveDataBased, Maximize: false, Ideal: F(0), Nadir: F(15)},
			{Name: "g_3", Symbol: "g_3", Type: ObjectiveDataBased, Maximize: false, Ideal: F(-60), Nadir: F(13)},
		},
		Constraints: []Constraint{
			{Name: "cons 1", Symbol: "c_1", ConsType: ConstraintEQ, Func: MustParseInfix("y_1 + y_2 - c")},
		},
		Discrete: &DiscreteRepresentation{
			VariableValues:  varData,
			ObjectiveValues: map[string][]float64{"g_1": g1, "g_2": g2, "g_3": g3},
		},
	}
}

// SimpleKnapsack returns a three-objective binary knapsack problem over four
// items with a shared weight constraint.
func SimpleKnapsack() *Problem {
	variables := make([]Variable, 4)
	for i := 1; i <= 4; i++ {
		sym := fmt.Sprintf("x_%d", i)
		variables[i-1] = Variable{Name: sym, Symbol: sym, Type: VariableBinary,
			LowerBound: F(0), UpperBound: F(1), InitialValue: F(0)}
	}
	return &Problem{
		Name:        "Simple knapsack problem",
		Description: "A simple multiobjective knapsack problem with binary variables.",
		Variables:   variables,
		Objectives: []Objective{
			{Name: "f_1", Symbol: "f_1", Func: MustParseInfix("5*x_1 + 4*x_2 + 3*x_3 + 2*x_4"),
				Maximize: true, Ideal: F(14), Nadir: F(0)},
			{Name: "f_2", Symbol: "f_2", Func: MustParseInfix("10*x_1 + 7*x_2 + 5*x_3 + 3*x_4"),
				Maximize: true, Ideal: F(25), Nadir: F(0)},
			{Name: "f_3", Symbol: "f_3", Func: MustParseInfix("15*x_1 + 9*x_2 + 8*x_3 + 5*x_4"),
				Maximize: true, Ideal: F(37), Nadir: F(0)},
		},
		Constraints: []Constraint{
			{Name: "weight", Symbol: "g_1", ConsType: ConstraintLTE,
				Func: MustParseInfix("2*x_1 + 3*x_2 + 1*x_3 + 4*x_4 - 7")},
		},
	}
}
