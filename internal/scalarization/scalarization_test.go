// SPDX-License-Identifier: MIT

package scalarization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

// zdt1Objectives evaluates ZDT1 at the given point and returns (f_1, f_2).
func zdt1Objectives(t *testing.T, p *problem.Problem, x map[string]float64) (float64, float64) {
	t.Helper()
	eval, err := problem.NewEvaluator(p)
	require.NoError(t, err)
	ev, err := eval.Evaluate(x)
	require.NoError(t, err)
	return ev.Objectives["f_1"], ev.Objectives["f_2"]
}

func evalScalarization(t *testing.T, p *problem.Problem, symbol string, x map[string]float64) float64 {
	t.Helper()
	eval, err := problem.NewEvaluator(p)
	require.NoError(t, err)
	ev, err := eval.Evaluate(x)
	require.NoError(t, err)
	v, ok := ev.Scalarizations[symbol]
	require.True(t, ok, "scalarization %s not evaluated", symbol)
	return v
}

func TestAddASF(t *testing.T) {
	base := problem.ZDT1(3)
	ref := map[string]float64{"f_1": 0.4, "f_2": 0.8}

	p, symbol, err := AddASF(base, "asf", ref, Options{})
	require.NoError(t, err)
	assert.Equal(t, "asf", symbol)
	// The input problem is untouched.
	assert.Empty(t, base.Scalarizations)

	x := map[string]float64{"x_1": 0.5, "x_2": 0.5, "x_3": 0.5}
	f1, f2 := zdt1Objectives(t, base, x)

	// Both objectives: ideal 0, nadir 1, minimized.
	den := 1.0 - (0.0 - DefaultDelta)
	want := math.Max((f1-0.4)/den, (f2-0.8)/den) + DefaultRho*(f1/den+f2/den)
	assert.InDelta(t, want, evalScalarization(t, p, "asf", x), 1e-9)
}

func TestAddASFCorrectsMaximizedReference(t *testing.T) {
	base := problem.BinhAndKorn(true, false) // f_1 maximized, ideal 0, nadir -140
	ref := map[string]float64{"f_1": -30, "f_2": 20}

	p, _, err := AddASF(base, "asf", ref, Options{})
	require.NoError(t, err)

	x := map[string]float64{"x_1": 2.5, "x_2": 1.5}
	// f_1 own orientation: -34, min form: 34. Corrected ideal 0, nadir 140,
	// corrected reference 30.
	den1 := 140.0 - (0.0 - DefaultDelta)
	den2 := 50.0 - (0.0 - DefaultDelta)
	want := math.Max((34.0-30.0)/den1, (18.5-20.0)/den2) + DefaultRho*(34.0/den1+18.5/den2)
	assert.InDelta(t, want, evalScalarization(t, p, "asf", x), 1e-9)
}

func TestAddASFRequiresIdealAndNadir(t *testing.T) {
	_, _, err := AddASF(problem.SimpleLinear(), "asf", map[string]float64{"f_1": 0}, Options{})
	assert.ErrorIs(t, err, ErrScalarization)
}

func TestAddASFMissingReferenceComponent(t *testing.T) {
	_, _, err := AddASF(problem.ZDT1(3), "asf", map[string]float64{"f_1": 0.4}, Options{})
	require.ErrorIs(t, err, ErrScalarization)
	assert.Contains(t, err.Error(), "f_2")
}

func TestAddASFGeneric(t *testing.T) {
	base := problem.ZDT1(3)
	ref := map[string]float64{"f_1": 0.4, "f_2": 0.8}
	weights := map[string]float64{"f_1": 2, "f_2": 4}

	p, _, err := AddASFGeneric(base, "asf_g", ref, weights, Options{})
	require.NoError(t, err)

	x := map[string]float64{"x_1": 0.5, "x_2": 0.5, "x_3": 0.5}
	f1, f2 := zdt1Objectives(t, base, x)
	want := math.Max((f1-0.4)/2, (f2-0.8)/4) + DefaultRho*(f1/2+f2/4)
	assert.InDelta(t, want, evalScalarization(t, p, "asf_g", x), 1e-9)
}

func TestAddSTOM(t *testing.T) {
	base := problem.ZDT1(3)
	ref := map[string]float64{"f_1": 0.4, "f_2": 0.8}

	p, _, err := AddSTOM(base, "stom", ref, Options{})
	require.NoError(t, err)

	x := map[string]float64{"x_1": 0.5, "x_2": 0.5, "x_3": 0.5}
	f1, f2 := zdt1Objectives(t, base, x)
	uto := 0.0 - DefaultDelta
	want := math.Max((f1-uto)/(0.4-uto), (f2-uto)/(0.8-uto)) +
		DefaultRho*(f1/(0.4-uto)+f2/(0.8-uto))
	assert.InDelta(t, want, evalScalarization(t, p, "stom", x), 1e-9)
}

func TestAddGUESS(t *testing.T) {
	base := problem.ZDT1(3)
	ref := map[string]float64{"f_1": 0.4, "f_2": 0.8}

	p, _, err := AddGUESS(base, "guess", ref, Options{})
	require.NoError(t, err)

	x := map[string]float64{"x_1": 0.5, "x_2": 0.5, "x_3": 0.5}
	f1, f2 := zdt1Objectives(t, base, x)
	want := math.Max((f1-1.0)/(1.0-0.4), (f2-1.0)/(1.0-0.8)) +
		DefaultRho*(f1/(1.0-0.4)+f2/(1.0-0.8))
	assert.InDelta(t, want, evalScalarization(t, p, "guess", x), 1e-9)
}

func TestAddWeightedSums(t *testing.T) {
	base := problem.ZDT1(3)
	p, _, err := AddWeightedSums(base, "ws", map[string]float64{"f_1": 0.25, "f_2": 0.75})
	require.NoError(t, err)

	x := map[string]float64{"x_1": 0.5, "x_2": 0.5, "x_3": 0.5}
	f1, f2 := zdt1Objectives(t, base, x)
	assert.InDelta(t, 0.25*f1+0.75*f2, evalScalarization(t, p, "ws", x), 1e-9)
}

func TestAddObjectiveAsScalarization(t *testing.T) {
	base := problem.BinhAndKorn(true, false)
	p, _, err := AddObjectiveAsScalarization(base, "obj", "f_1")
	require.NoError(t, err)

	x := map[string]float64{"x_1": 2.5, "x_2": 1.5}
	// Minimization form of the maximized f_1.
	assert.InDelta(t, 34.0, evalScalarization(t, p, "obj", x), 1e-9)

	_, _, err = AddObjectiveAsScalarization(base, "obj", "missing")
	assert.ErrorIs(t, err, ErrScalarization)
}

func TestAddEpsilonConstraints(t *testing.T) {
	base := problem.ZDT1(3)
	p, symbol, conSyms, err := AddEpsilonConstraints(base, "eps_target",
		map[string]string{"f_2": "eps_f_2"}, "f_1", map[string]float64{"f_2": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "eps_target", symbol)
	assert.Equal(t, []string{"eps_f_2"}, conSyms)

	eval, err := problem.NewEvaluator(p)
	require.NoError(t, err)
	x := map[string]float64{"x_1": 0.5, "x_2": 0.5, "x_3": 0.5}
	ev, err := eval.Evaluate(x)
	require.NoError(t, err)

	_, f2 := zdt1Objectives(t, base, x)
	assert.InDelta(t, 0.5, ev.Scalarizations["eps_target"], 1e-9)
	assert.InDelta(t, f2-2.0, ev.Constraints["eps_f_2"], 1e-9)
}
