// SPDX-License-Identifier: MIT

package scalarization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

func f(v float64) *float64 { return &v }

func TestInferClassifications(t *testing.T) {
	p := problem.NimbusTest()
	current := map[string]float64{
		"f_1": 3, "f_2": 10, "f_3": -4, "f_4": 0, "f_5": 1000, "f_6": 2000,
	}
	// f_1 (max, ideal 9, nadir 1): at ideal -> improve.
	// f_2 (min, ideal 2, nadir 18): at nadir -> free.
	// f_3: at current -> keep.
	// f_4 (min, cur 0): ref -1 better -> improve until -1.
	// f_5 (min, cur 1000): ref 2000 worse -> impair until 2000.
	// f_6 (max... minimized, cur 2000): ref 1500 better -> improve until.
	ref := map[string]float64{
		"f_1": 9, "f_2": 18, "f_3": -4, "f_4": -1, "f_5": 2000, "f_6": 1500,
	}

	classes, err := InferClassifications(p, current, ref)
	require.NoError(t, err)

	assert.Equal(t, ClassImprove, classes["f_1"].Class)
	assert.Equal(t, ClassFree, classes["f_2"].Class)
	assert.Equal(t, ClassKeep, classes["f_3"].Class)

	require.Equal(t, ClassImproveUntil, classes["f_4"].Class)
	assert.InDelta(t, -1.0, *classes["f_4"].Level, 1e-12)

	require.Equal(t, ClassImpairUntil, classes["f_5"].Class)
	assert.InDelta(t, 2000.0, *classes["f_5"].Level, 1e-12)

	assert.Equal(t, ClassImproveUntil, classes["f_6"].Class)
}

func TestInferClassificationsMaximized(t *testing.T) {
	p := problem.NimbusTest()
	current := map[string]float64{
		"f_1": 3, "f_2": 10, "f_3": -4, "f_4": 0, "f_5": 1000, "f_6": 2000,
	}
	// For the maximized f_1 a larger reference value is an improvement.
	ref := map[string]float64{
		"f_1": 5, "f_2": 10, "f_3": -4, "f_4": 0, "f_5": 1000, "f_6": 2000,
	}
	classes, err := InferClassifications(p, current, ref)
	require.NoError(t, err)
	require.Equal(t, ClassImproveUntil, classes["f_1"].Class)
	assert.InDelta(t, 5.0, *classes["f_1"].Level, 1e-12)

	// And a smaller one is an impairment.
	ref["f_1"] = 2
	classes, err = InferClassifications(p, current, ref)
	require.NoError(t, err)
	assert.Equal(t, ClassImpairUntil, classes["f_1"].Class)
}

func TestInferClassificationsRequiresIdealNadir(t *testing.T) {
	_, err := InferClassifications(problem.SimpleLinear(), nil, nil)
	assert.ErrorIs(t, err, ErrScalarization)
}

func TestAddNIMBUS(t *testing.T) {
	p := problem.NimbusTest()
	current := map[string]float64{
		"f_1": 3, "f_2": 10, "f_3": -4, "f_4": 0, "f_5": 1000, "f_6": 2000,
	}
	classes := Classifications{
		"f_1": {Class: ClassImprove},
		"f_2": {Class: ClassImproveUntil, Level: f(6)},
		"f_3": {Class: ClassKeep},
		"f_4": {Class: ClassImpairUntil, Level: f(1)},
		"f_5": {Class: ClassFree},
		"f_6": {Class: ClassFree},
	}

	out, symbol, conSyms, err := AddNIMBUS(p, "sf_nimbus", classes, current, Options{})
	require.NoError(t, err)
	assert.Equal(t, "sf_nimbus", symbol)
	// Bound constraints for <, <=, = and >= classes; none for free ones.
	assert.ElementsMatch(t, []string{
		"sf_nimbus_con_f_1", "sf_nimbus_con_f_2", "sf_nimbus_con_f_3", "sf_nimbus_con_f_4",
	}, conSyms)
	assert.Len(t, out.Constraints, len(p.Constraints)+4)
	assert.Empty(t, p.Scalarizations)

	eval, err := problem.NewEvaluator(out)
	require.NoError(t, err)
	ev, err := eval.Evaluate(map[string]float64{"x_1": 1.5, "x_2": 2})
	require.NoError(t, err)

	// f_1 is maximized: f_1 = 3, min form -3, current corrected -3.
	assert.InDelta(t, -3.0-(-3.0), ev.Constraints["sf_nimbus_con_f_1"], 1e-9)
	// f_2 = (1.5-4)^2 + 4 = 10.25, bound is the current value 10.
	assert.InDelta(t, 10.25-10.0, ev.Constraints["sf_nimbus_con_f_2"], 1e-9)
	// f_4 = x_1 - x_2 = -0.5, bound is the reservation level 1.
	assert.InDelta(t, -0.5-1.0, ev.Constraints["sf_nimbus_con_f_4"], 1e-9)
	assert.Contains(t, ev.Scalarizations, "sf_nimbus")
}

func TestAddNIMBUSValidation(t *testing.T) {
	p := problem.NimbusTest()
	current := map[string]float64{
		"f_1": 3, "f_2": 10, "f_3": -4, "f_4": 0, "f_5": 1000, "f_6": 2000,
	}

	t.Run("nothing improves", func(t *testing.T) {
		classes := Classifications{
			"f_1": {Class: ClassKeep}, "f_2": {Class: ClassKeep}, "f_3": {Class: ClassKeep},
			"f_4": {Class: ClassFree}, "f_5": {Class: ClassFree}, "f_6": {Class: ClassFree},
		}
		_, _, _, err := AddNIMBUS(p, "sf", classes, current, Options{})
		assert.ErrorIs(t, err, ErrScalarization)
	})

	t.Run("nothing worsens", func(t *testing.T) {
		classes := Classifications{
			"f_1": {Class: ClassImprove}, "f_2": {Class: ClassImprove}, "f_3": {Class: ClassImprove},
			"f_4": {Class: ClassImprove}, "f_5": {Class: ClassImprove}, "f_6": {Class: ClassImprove},
		}
		_, _, _, err := AddNIMBUS(p, "sf", classes, current, Options{})
		assert.ErrorIs(t, err, ErrScalarization)
	})

	t.Run("missing level", func(t *testing.T) {
		classes := Classifications{
			"f_1": {Class: ClassImproveUntil}, // no level
			"f_2": {Class: ClassFree}, "f_3": {Class: ClassFree},
			"f_4": {Class: ClassFree}, "f_5": {Class: ClassFree}, "f_6": {Class: ClassFree},
		}
		_, _, _, err := AddNIMBUS(p, "sf", classes, current, Options{})
		assert.ErrorIs(t, err, ErrScalarization)
	})

	t.Run("missing classification", func(t *testing.T) {
		_, _, _, err := AddNIMBUS(p, "sf", Classifications{"f_1": {Class: ClassImprove}}, current, Options{})
		assert.ErrorIs(t, err, ErrScalarization)
	})
}
