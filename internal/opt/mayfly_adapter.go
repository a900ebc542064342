package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface.
// It is derivative-free and ignores Problem.Grad and x0.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes the Mayfly optimization using the external library
func (m *MayflyAdapter) Run(ctx context.Context, p Problem, x0 []float64) (*Result, error) {
	dim := len(x0)
	if dim == 0 {
		return &Result{X: []float64{}, F: p.Func(x0), Status: StatusConverged}, nil
	}

	// External library uses scalar bounds. Infinite bounds fall back to
	// [-pi, pi], which covers every angle.
	lower, upper := -math.Pi, math.Pi
	if len(p.Lower) > 0 && !math.IsInf(p.Lower[0], 0) {
		lower = p.Lower[0]
	}
	if len(p.Upper) > 0 && !math.IsInf(p.Upper[0], 0) {
		upper = p.Upper[0]
	}

	config := mayfly.NewDefaultConfig()
	// The library has no cancellation hook. Once ctx ends every evaluation
	// returns +Inf immediately, so the remaining iterations cost almost nothing
	// and the best position found so far is kept.
	config.ObjectiveFunc = func(x []float64) float64 {
		if ctx.Err() != nil {
			return math.Inf(1)
		}
		return p.Func(x)
	}
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lower
	config.UpperBound = upper

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	status := StatusIterationLimit
	if ctx.Err() != nil {
		status = StatusCancelled
	}

	x, f := result.GlobalBest.Position, result.GlobalBest.Cost
	if len(x) != dim {
		// No finite evaluation happened before cancellation
		x = append([]float64(nil), x0...)
		f = math.Inf(1)
	}

	return &Result{
		X:          x,
		F:          f,
		Iterations: m.maxIters,
		FuncEvals:  m.maxIters * m.popSize,
		Status:     status,
	}, nil
}
