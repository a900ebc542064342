package energy

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/spheredist/internal/sphere"
)

func relErr(a, b float64) float64 {
	return math.Abs(a-b) / math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestAntipodalPairEnergy(t *testing.T) {
	ps := sphere.PointSet{{X: 1}, {X: -1}}

	if got := Cartesian(ps); got != 128 {
		t.Errorf("Expected E = 128 exactly, got %v", got)
	}

	// Same configuration through the spherical parameterization
	if got := Value(sphere.Pack(ps)); math.Abs(got-128) > 1e-9 {
		t.Errorf("Expected spherical E close to 128, got %v", got)
	}
}

func TestDiagonalOffset(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	for n := 0; n < 20; n++ {
		if got := Diagonal(n); got != 64*float64(n) {
			t.Errorf("Diagonal(%d) = %v, expected %v", n, got, 64*float64(n))
		}

		ps := sphere.RandomSet(rng, n)
		var sum float64
		for _, p := range ps {
			sum += PairTerm(p, p)
		}
		if relErr(sum, 64*float64(n)) > 1e-12 {
			t.Errorf("Diagonal terms for n=%d sum to %v, expected %v", n, sum, 64*float64(n))
		}
	}
}

func TestPermutationInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	ps := sphere.RandomSet(rng, 12)
	base := Cartesian(ps)

	for trial := 0; trial < 20; trial++ {
		perm := rng.Perm(len(ps))
		shuffled := make(sphere.PointSet, len(ps))
		for i, j := range perm {
			shuffled[i] = ps[j]
		}

		if got := Cartesian(shuffled); relErr(got, base) > 1e-12 {
			t.Errorf("Permuted energy %v differs from %v", got, base)
		}
		if got := Value(sphere.Pack(shuffled)); relErr(got, base) > 1e-10 {
			t.Errorf("Permuted spherical energy %v differs from %v", got, base)
		}
	}
}

func TestCartesianMatchesFullDoubleSum(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	ps := sphere.RandomSet(rng, 9)

	var full float64
	for _, p := range ps {
		for _, q := range ps {
			full += PairTerm(p, q)
		}
	}

	if got := Cartesian(ps); relErr(got, full) > 1e-12 {
		t.Errorf("Gram energy %v, double sum %v", got, full)
	}
	if got := Value(sphere.Pack(ps)); relErr(got, full) > 1e-10 {
		t.Errorf("Spherical energy %v, double sum %v", got, full)
	}
}

func TestEmptyAndSingle(t *testing.T) {
	if got := Cartesian(nil); got != 0 {
		t.Errorf("Expected 0 for empty set, got %v", got)
	}
	if got := Cartesian(sphere.PointSet{{Z: 1}}); got != 64 {
		t.Errorf("Expected 64 for a single point, got %v", got)
	}
}

func finiteDifference(x []float64) []float64 {
	const h = 1e-6
	grad := make([]float64, len(x))
	xp := append([]float64(nil), x...)
	for i := range x {
		xp[i] = x[i] + h
		fp := Value(xp)
		xp[i] = x[i] - h
		fm := Value(xp)
		xp[i] = x[i]
		grad[i] = (fp - fm) / (2 * h)
	}
	return grad
}

func TestGradientEngines(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	x := sphere.Pack(sphere.RandomSet(rng, 6))
	fd := finiteDifference(x)

	for _, engine := range []string{EngineDual, EngineTape} {
		t.Run(engine, func(t *testing.T) {
			g, err := NewGradient(engine, len(x))
			if err != nil {
				t.Fatalf("Failed to create %s engine: %v", engine, err)
			}
			defer g.Close()

			if v := g.Value(x); relErr(v, Value(x)) > 1e-10 {
				t.Errorf("Value mismatch: %v vs %v", v, Value(x))
			}

			grad := make([]float64, len(x))
			g.Gradient(grad, x)

			for i := range grad {
				if relErr(grad[i], fd[i]) > 1e-4 {
					t.Errorf("d/dx%d: engine %v, finite difference %v", i, grad[i], fd[i])
				}
			}
		})
	}
}

func TestGradientEnginesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(34))
	x := sphere.Pack(sphere.RandomSet(rng, 5))

	dual, _ := NewGradient(EngineDual, len(x))
	tape, err := NewGradient(EngineTape, len(x))
	if err != nil {
		t.Fatalf("Failed to create tape: %v", err)
	}
	defer tape.Close()

	gd := make([]float64, len(x))
	gt := make([]float64, len(x))
	dual.Gradient(gd, x)
	tape.Gradient(gt, x)

	for i := range gd {
		if relErr(gd[i], gt[i]) > 1e-8 {
			t.Errorf("d/dx%d: dual %v, tape %v", i, gd[i], gt[i])
		}
	}

	// Re-evaluating at a new point must not reuse the cached run
	x[0] += 0.25
	dual.Gradient(gd, x)
	tape.Gradient(gt, x)
	for i := range gd {
		if relErr(gd[i], gt[i]) > 1e-8 {
			t.Errorf("After move, d/dx%d: dual %v, tape %v", i, gd[i], gt[i])
		}
	}
}

func TestTapeGradientDoesNotAccumulate(t *testing.T) {
	rng := rand.New(rand.NewSource(55))
	x := sphere.Pack(sphere.RandomSet(rng, 4))

	dual, _ := NewGradient(EngineDual, len(x))
	tape, err := NewGradient(EngineTape, len(x))
	if err != nil {
		t.Fatalf("Failed to create tape: %v", err)
	}
	defer tape.Close()

	gd := make([]float64, len(x))
	gt := make([]float64, len(x))
	offsets := []float64{0, 0.1, 0.3, -0.4, 0}
	for run, off := range offsets {
		y := append([]float64(nil), x...)
		y[0] += off
		dual.Gradient(gd, y)
		tape.Gradient(gt, y)
		for i := range gd {
			if relErr(gd[i], gt[i]) > 1e-8 {
				t.Fatalf("Run %d, d/dx%d: dual %v, tape %v", run, i, gd[i], gt[i])
			}
		}
		if v := tape.Value(y); relErr(v, Value(y)) > 1e-10 {
			t.Errorf("Run %d: tape value %v, expected %v", run, v, Value(y))
		}
	}
}

func TestAntipodalGradientVanishes(t *testing.T) {
	x := sphere.Pack(sphere.PointSet{{X: 1}, {X: -1}})
	grad := make([]float64, len(x))
	NewDual().Gradient(grad, x)

	for i, v := range grad {
		if math.Abs(v) > 1e-9 {
			t.Errorf("Expected zero gradient at antipodal optimum, d/dx%d = %v", i, v)
		}
	}
}

func TestNewGradientUnknownEngine(t *testing.T) {
	if _, err := NewGradient("finite", 4); err == nil {
		t.Error("Expected error for unknown engine")
	}
}

func TestTapeRejectsOddDimension(t *testing.T) {
	if _, err := NewTape(3); err == nil {
		t.Error("Expected error for odd dimension")
	}
}

func TestTapeClosed(t *testing.T) {
	tape, err := NewTape(4)
	if err != nil {
		t.Fatalf("Failed to create tape: %v", err)
	}
	tape.Close()

	if v := tape.Value([]float64{0, 0, 1, 1}); !math.IsNaN(v) {
		t.Errorf("Expected NaN from a closed tape, got %v", v)
	}
}

func TestProbe(t *testing.T) {
	for _, engine := range []string{EngineDual, EngineTape} {
		if err := Probe(engine); err != nil {
			t.Errorf("Probe(%s) failed: %v", engine, err)
		}
	}
	if err := Probe("symbolic"); err == nil {
		t.Error("Probe should fail for an unknown engine")
	}
}

func TestDifferentiationErrorUnwrap(t *testing.T) {
	inner := errors.New("unsupported op")
	err := error(&DifferentiationError{Engine: EngineTape, Err: inner})

	if !errors.Is(err, inner) {
		t.Error("DifferentiationError should unwrap to its cause")
	}
	var de *DifferentiationError
	if !errors.As(err, &de) || de.Engine != EngineTape {
		t.Error("errors.As should find the DifferentiationError")
	}
}
