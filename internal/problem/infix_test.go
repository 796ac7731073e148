// SPDX-License-Identifier: MIT

package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfix(t *testing.T) {
	env := map[string]float64{"x_1": 2, "x_2": 3, "X[1,2]": 7}

	tests := []struct {
		input string
		want  float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"2 ** 3 ** 2", 512}, // right-associative
		{"2 ^ 2", 4},
		{"-x_1 + x_2", 1},
		{"-(x_1 + x_2)", -5},
		{"x_1 - x_2 - 1", -2}, // left-associative
		{"10 / 4 / 2", 1.25},
		{"2 * x_1**2", 8},
		{"-x_1**2", -4}, // unary minus over power
		{"Abs(x_1 - x_2)", 1},
		{"Max(x_1, x_2, 1)", 3},
		{"Sqrt(x_1 * 8)", 4},
		{"Cos(0)", 1},
		{"X[1, 2] + 1", 8}, // indexed tensor element is one symbol
		{"1.5e2 + .5", 150.5},
		{"+x_1", 2},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := ParseInfix(tt.input)
			require.NoError(t, err)
			got, err := e.Eval(env)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseInfixErrors(t *testing.T) {
	inputs := []string{
		"",
		"1 +",
		"(1 + 2",
		"Unknown(1)",
		"1 2",
		"Max(1,)",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseInfix(input)
			assert.Error(t, err)
		})
	}
}

func TestMustParseInfixPanics(t *testing.T) {
	assert.Panics(t, func() { MustParseInfix("((") })
}
