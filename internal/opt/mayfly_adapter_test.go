package opt

import (
	"context"
	"math"
	"testing"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func sphereGrad(grad, x []float64) {
	for i, v := range x {
		grad[i] = 2 * v
	}
}

func TestMayflyAdapterOnSphere(t *testing.T) {
	optimizer := NewMayfly(100, 20, 42) // maxIters, popSize, seed

	dim := 3
	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for i := 0; i < dim; i++ {
		lower[i] = -10
		upper[i] = 10
	}

	result, err := optimizer.Run(context.Background(), Problem{Func: sphere, Lower: lower, Upper: upper}, make([]float64, dim))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.X) != dim {
		t.Fatalf("Expected %d parameters, got %d", dim, len(result.X))
	}

	// Should converge close to zero
	if result.F > 0.1 {
		t.Errorf("Expected cost near 0, got %f", result.F)
	}

	for i, v := range result.X {
		if math.Abs(v) > 1.0 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}

	// Mayfly has no convergence signal
	if result.Status != StatusIterationLimit {
		t.Errorf("Expected status %s, got %s", StatusIterationLimit, result.Status)
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	p := Problem{Func: sphere, Lower: []float64{-5, -5}, Upper: []float64{5, 5}}

	// Run twice with same seed (popSize must be >=20 for mayfly v0.1.0)
	r1, err := NewMayfly(50, 20, 123).Run(context.Background(), p, make([]float64, 2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	r2, err := NewMayfly(50, 20, 123).Run(context.Background(), p, make([]float64, 2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if r1.F != r2.F {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", r1.F, r2.F)
	}
}

func TestMayflyAdapterUnboundedFallsBackToAngles(t *testing.T) {
	lower, upper := Unbounded(2)
	result, err := NewMayfly(30, 20, 7).Run(context.Background(), Problem{Func: sphere, Lower: lower, Upper: upper}, make([]float64, 2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, v := range result.X {
		if v < -math.Pi || v > math.Pi {
			t.Errorf("Parameter %d = %f outside [-pi, pi]", i, v)
		}
	}
}

func TestMayflyAdapterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	f := func(x []float64) float64 {
		calls++
		return sphere(x)
	}

	result, err := NewMayfly(30, 20, 7).Run(ctx, Problem{Func: f, Lower: []float64{-1, -1}, Upper: []float64{1, 1}}, make([]float64, 2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusCancelled {
		t.Errorf("Expected status %s, got %s", StatusCancelled, result.Status)
	}
	if calls != 0 {
		t.Errorf("Expected no objective evaluations after cancellation, got %d", calls)
	}
}
