// SPDX-License-Identifier: MIT

package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/industrial-optimization-group/desdeo2/internal/log"
	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

// DifferentialEvolution minimizes the target with a rand/1/bin differential
// evolution search. It handles integer and binary variables by rounding on
// evaluation and is the fallback for data-based and nonsmooth problems. Runs
// are deterministic for a fixed seed.
type DifferentialEvolution struct {
	Options Options

	// Mutation weight is dithered per generation in [MutationMin, MutationMax).
	MutationMin float64 // default 0.5
	MutationMax float64 // default 1.0
	Crossover   float64 // recombination probability; default 0.7
}

var _ Solver = (*DifferentialEvolution)(nil)

func (de *DifferentialEvolution) mutationRange() (lo, hi float64) {
	lo, hi = 0.5, 1.0
	if de.MutationMin > 0 {
		lo = de.MutationMin
	}
	if de.MutationMax > lo {
		hi = de.MutationMax
	}
	return lo, hi
}

func (de *DifferentialEvolution) crossover() float64 {
	if de.Crossover > 0 {
		return de.Crossover
	}
	return 0.7
}

// Solve minimizes the target scalarization (or objective) of p.
func (de *DifferentialEvolution) Solve(ctx context.Context, p *problem.Problem, target string) (Results, error) {
	obj, err := newObjective(p, target, de.Options.penaltyWeight())
	if err != nil {
		return Results{}, err
	}
	logger := log.WithComponentFromContext(ctx, "solver").With().
		Str(log.FieldSolver, string(KindDifferentialEvolution)).
		Str(log.FieldProblemID, p.Name).
		Str(log.FieldTarget, target).Logger()

	dim := obj.dim()
	if dim == 0 {
		return Results{}, fmt.Errorf("%w: problem %q has no decision variables", ErrSolver, p.Name)
	}
	lo, hi := obj.bounds()
	rng := rand.New(rand.NewSource(de.Options.seed()))
	popSize := de.Options.populationSize(dim)
	mutLo, mutHi := de.mutationRange()
	cr := de.crossover()

	// Seed the population uniformly in the box, keeping the initial point as
	// the first member.
	pop := make([][]float64, popSize)
	energy := make([]float64, popSize)
	pop[0] = obj.initial()
	obj.repair(pop[0])
	for i := 1; i < popSize; i++ {
		x := make([]float64, dim)
		for j := range x {
			x[j] = lo[j] + rng.Float64()*(hi[j]-lo[j])
		}
		obj.repair(x)
		pop[i] = x
	}
	for i := range pop {
		energy[i] = obj.value(pop[i])
	}
	best := 0
	for i := range energy {
		if energy[i] < energy[best] {
			best = i
		}
	}

	gens := de.Options.maxIterations()
	tol := de.Options.tolerance()
	trial := make([]float64, dim)
	converged := false

	for gen := 0; gen < gens; gen++ {
		if err := ctx.Err(); err != nil {
			return Results{}, err
		}
		f := mutLo + rng.Float64()*(mutHi-mutLo)
		for i := 0; i < popSize; i++ {
			a, b, c := de.pickDistinct(rng, popSize, i)
			forced := rng.Intn(dim)
			for j := 0; j < dim; j++ {
				if j == forced || rng.Float64() < cr {
					trial[j] = pop[a][j] + f*(pop[b][j]-pop[c][j])
				} else {
					trial[j] = pop[i][j]
				}
			}
			obj.repair(trial)
			if e := obj.value(trial); e <= energy[i] {
				copy(pop[i], trial)
				energy[i] = e
				if e < energy[best] {
					best = i
				}
			}
		}
		if de.hasConverged(energy, tol) {
			converged = true
			logger.Debug().Int("generation", gen).Msg("population converged")
			break
		}
	}

	out, err := obj.results(pop[best], true, fmt.Sprintf("differential evolution finished, converged=%t", converged))
	if err != nil {
		return Results{}, err
	}
	logger.Debug().
		Bool("success", out.Success).
		Float64("target_value", out.TargetValue).
		Msg("solve finished")
	return out, nil
}

// pickDistinct draws three distinct population indices, all different from i.
func (de *DifferentialEvolution) pickDistinct(rng *rand.Rand, popSize, i int) (a, b, c int) {
	for {
		a = rng.Intn(popSize)
		if a != i {
			break
		}
	}
	for {
		b = rng.Intn(popSize)
		if b != i && b != a {
			break
		}
	}
	for {
		c = rng.Intn(popSize)
		if c != i && c != a && c != b {
			break
		}
	}
	return a, b, c
}

// hasConverged reports whether the population energies have collapsed:
// stddev(energy) <= tol * |mean(energy)|.
func (de *DifferentialEvolution) hasConverged(energy []float64, tol float64) bool {
	mean := floats.Sum(energy) / float64(len(energy))
	if math.IsInf(mean, 0) || math.IsNaN(mean) {
		return false
	}
	varsum := 0.0
	for _, e := range energy {
		d := e - mean
		varsum += d * d
	}
	std := math.Sqrt(varsum / float64(len(energy)))
	return std <= tol*math.Abs(mean)
}
