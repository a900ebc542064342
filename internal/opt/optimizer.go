package opt

import (
	"context"
	"math"
)

// Status describes how an optimization run terminated
type Status string

const (
	StatusConverged      Status = "converged"
	StatusIterationLimit Status = "iteration-limit"
	StatusCancelled      Status = "cancelled"
	StatusFailed         Status = "failed"
)

// Converged reports whether the run reached a local optimum
func (s Status) Converged() bool {
	return s == StatusConverged
}

// Problem describes a minimization problem over a flat parameter vector
type Problem struct {
	// Func is the objective to minimize
	Func func(x []float64) float64

	// Grad writes the gradient of Func at x into grad. Derivative-free
	// optimizers ignore it.
	Grad func(grad, x []float64)

	// Lower and Upper are per-parameter bounds. Nil means unbounded.
	Lower, Upper []float64
}

// Result holds the outcome of an optimization run
type Result struct {
	X          []float64
	F          float64
	Iterations int
	FuncEvals  int
	Status     Status
}

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run minimizes p starting from x0. The returned result is non-nil
	// whenever the backend produced a usable vector, even if err is set.
	Run(ctx context.Context, p Problem, x0 []float64) (*Result, error)
}

// Unbounded returns lower and upper bounds of -Inf and +Inf for dim parameters
func Unbounded(dim int) (lower, upper []float64) {
	lower = make([]float64, dim)
	upper = make([]float64, dim)
	for i := 0; i < dim; i++ {
		lower[i] = math.Inf(-1)
		upper[i] = math.Inf(1)
	}
	return lower, upper
}
