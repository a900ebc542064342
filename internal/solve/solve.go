package solve

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/spheredist/internal/energy"
	"github.com/cwbudde/spheredist/internal/opt"
	"github.com/cwbudde/spheredist/internal/sphere"
)

// Solution is the refined configuration produced by a solve
type Solution struct {
	Points     sphere.PointSet
	Energy     float64
	Iterations int
	FuncEvals  int
	Status     opt.Status
	Elapsed    time.Duration
}

// Solver runs the energy minimization for a point set. It converts points to
// spherical angles, hands objective and gradient to the backend and converts
// the refined vector back to unit vectors. Refined points are reordered to
// follow the input so that each point keeps its identity across solves;
// population-based backends return them in arbitrary order.
type Solver struct {
	optimizer opt.Optimizer
	engine    string
}

// New creates a solver using the given backend and gradient engine
func New(optimizer opt.Optimizer, engine string) *Solver {
	return &Solver{
		optimizer: optimizer,
		engine:    engine,
	}
}

// Solve minimizes the energy starting from points. A non-nil solution may
// accompany an error when the backend produced a partial result.
func (s *Solver) Solve(ctx context.Context, points sphere.PointSet) (*Solution, error) {
	start := time.Now()

	if len(points) == 0 {
		return &Solution{Points: sphere.PointSet{}, Status: opt.StatusConverged}, nil
	}

	x0 := sphere.Pack(points)

	grad, err := energy.NewGradient(s.engine, len(x0))
	if err != nil {
		return nil, fmt.Errorf("failed to create gradient engine: %w", err)
	}
	defer grad.Close()

	lower, upper := opt.Unbounded(len(x0))
	problem := opt.Problem{
		Func:  grad.Value,
		Grad:  grad.Gradient,
		Lower: lower,
		Upper: upper,
	}

	initial := energy.Cartesian(points)
	result, err := s.optimizer.Run(ctx, problem, x0)
	if result == nil {
		return nil, err
	}

	for i, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("optimizer returned non-finite parameter %d (status %s)", i, result.Status)
		}
	}

	refined := sphere.MatchOrder(points, sphere.Unpack(result.X))
	sol := &Solution{
		Points:     refined,
		Energy:     energy.Cartesian(refined),
		Iterations: result.Iterations,
		FuncEvals:  result.FuncEvals,
		Status:     result.Status,
		Elapsed:    time.Since(start),
	}

	slog.Debug("Solve finished",
		"points", len(points),
		"initial_energy", initial,
		"energy", sol.Energy,
		"iterations", sol.Iterations,
		"status", sol.Status,
		"elapsed", sol.Elapsed,
	)

	return sol, err
}
