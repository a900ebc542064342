package anim

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/spheredist/internal/coord"
	"github.com/cwbudde/spheredist/internal/energy"
	"github.com/cwbudde/spheredist/internal/opt"
	"github.com/cwbudde/spheredist/internal/solve"
	"github.com/cwbudde/spheredist/internal/sphere"
)

const frameTime = 16 * time.Millisecond

// fakeCoordinator hands out results queued by the test
type fakeCoordinator struct {
	mu       sync.Mutex
	pending  *coord.Result
	latest   uint64
	requests []sphere.PointSet
}

func (f *fakeCoordinator) deliver(points sphere.PointSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest++
	f.pending = &coord.Result{ID: f.latest, Points: points, Status: opt.StatusConverged}
}

func (f *fakeCoordinator) Request(points sphere.PointSet) *coord.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest++
	f.requests = append(f.requests, points)
	return &coord.Ticket{}
}

func (f *fakeCoordinator) PollLatestResult() (*coord.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.pending
	f.pending = nil
	return r, r != nil
}

func (f *fakeCoordinator) LatestID() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *fakeCoordinator) Health() coord.Health {
	return coord.Health{}
}

func TestStep(t *testing.T) {
	tests := []struct {
		dt   time.Duration
		want float64
	}{
		{0, 0},
		{-time.Millisecond, 0},
		{time.Millisecond, 0.007},
		{2 * time.Millisecond, 0.014},
		{frameTime, MaxStep},
		{time.Second, MaxStep},
	}

	for _, tt := range tests {
		if got := Step(tt.dt); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Step(%v) = %v, expected %v", tt.dt, got, tt.want)
		}
	}
}

func TestConvergentInterpolation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	target := sphere.RandomSet(rng, 6)
	displayed := sphere.RandomSet(rng, 6)

	// Keep the start away from exact antipodes, where a linear step has no
	// tangential component
	for i := range displayed {
		if sphere.AngularDistance(displayed[i], target[i]) > 3.0 {
			displayed[i] = sphere.Normalize(sphere.Vec3{X: target[i].X + 0.5, Y: target[i].Y, Z: target[i].Z + 0.5})
		}
	}

	d := New(&fakeCoordinator{}, Discard, Options{Displayed: displayed, Target: target})

	prev := d.MaxAngularError()
	for frame := 0; frame < 1000; frame++ {
		ps := d.Frame(frameTime)

		if e := sphere.MaxNormError(ps); e > 1e-9 {
			t.Fatalf("Frame %d: norm error %v", frame, e)
		}

		// acos loses resolution near zero
		cur := d.MaxAngularError()
		if prev > 1e-5 && cur > prev+1e-10 {
			t.Fatalf("Frame %d: max angular error increased from %v to %v", frame, prev, cur)
		}
		prev = cur
	}

	if prev > 1e-3 {
		t.Errorf("Expected displayed points to reach the target, max error %v", prev)
	}
}

func TestCountReconciliation(t *testing.T) {
	fc := &fakeCoordinator{}
	d := New(fc, Discard, DefaultOptions())

	for i := 0; i < 5; i++ {
		d.Frame(frameTime)
	}
	before := d.Points()[0]

	// Grow: the second point appears at its destination
	grown := sphere.PointSet{{Y: 1}, {Z: 1}}
	fc.deliver(grown)
	ps := d.Frame(frameTime)

	if len(ps) != 2 {
		t.Fatalf("Expected 2 displayed points, got %d", len(ps))
	}
	if sphere.AngularDistance(ps[1], grown[1]) > 1e-12 {
		t.Errorf("Expected the new point at its target, got %v", ps[1])
	}
	if jump := sphere.AngularDistance(before, ps[0]); jump > 0.05 {
		t.Errorf("First point jumped by %v rad", jump)
	}

	// Shrink back to one point
	fc.deliver(sphere.PointSet{{Y: 1}})
	ps = d.Frame(frameTime)

	if len(ps) != 1 {
		t.Fatalf("Expected 1 displayed point, got %d", len(ps))
	}
	if e := sphere.MaxNormError(ps); e > 1e-9 {
		t.Errorf("Norm error after shrinking: %v", e)
	}
}

func TestDegeneratePointFallsBackToTarget(t *testing.T) {
	d := New(&fakeCoordinator{}, Discard, Options{
		Displayed: sphere.PointSet{{}},
		Target:    sphere.PointSet{{Z: 1}},
	})

	// A zero step keeps the zero vector, which must not survive normalization
	ps := d.Frame(0)
	if ps[0] != (sphere.Vec3{Z: 1}) {
		t.Errorf("Expected the target point, got %v", ps[0])
	}
}

func TestRendererReceivesFrames(t *testing.T) {
	var drawn []int
	r := RendererFunc(func(ps sphere.PointSet) {
		drawn = append(drawn, len(ps))
	})

	d := New(&fakeCoordinator{}, r, DefaultOptions())
	d.Frame(frameTime)
	d.Frame(frameTime)

	if len(drawn) != 2 || drawn[0] != 1 {
		t.Errorf("Expected two draws of one point, got %v", drawn)
	}
}

func TestAddRemovePoint(t *testing.T) {
	fc := &fakeCoordinator{}
	d := New(fc, Discard, Options{
		Displayed: sphere.PointSet{{X: 1}, {Y: 1}},
		Target:    sphere.PointSet{{X: 1}, {Y: 1}},
		Rand:      rand.New(rand.NewSource(1)),
	})

	d.AddPoint()
	if d.RemovePoint() == nil {
		t.Fatal("Expected a removal request with two points displayed")
	}

	if len(fc.requests) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(fc.requests))
	}
	added, removed := fc.requests[0], fc.requests[1]

	if len(added) != 3 {
		t.Errorf("Expected 3 points after add, got %d", len(added))
	}
	if math.Abs(added[2].X*added[2].X+added[2].Y*added[2].Y+added[2].Z*added[2].Z-1) > 1e-9 {
		t.Errorf("Added point is not unit length: %v", added[2])
	}
	if len(removed) != 1 || removed[0] != (sphere.Vec3{X: 1}) {
		t.Errorf("Expected the last point removed, got %v", removed)
	}
	if fc.LatestID() != 2 {
		t.Errorf("Expected both actions to bump the request ID, got %d", fc.LatestID())
	}

	// Displayed points are untouched until a result arrives
	if n := len(d.Points()); n != 2 {
		t.Errorf("Expected 2 displayed points, got %d", n)
	}
}

func TestRemoveKeepsLastPoint(t *testing.T) {
	fc := &fakeCoordinator{}
	d := New(fc, Discard, DefaultOptions())

	if d.RemovePoint() != nil {
		t.Error("Expected no request when a single point is displayed")
	}
	if len(fc.requests) != 0 {
		t.Errorf("Expected no requests, got %d", len(fc.requests))
	}
}

func TestDriverWithCoordinator(t *testing.T) {
	solver := coord.SolverFunc(func(ctx context.Context, ps sphere.PointSet) (*solve.Solution, error) {
		return &solve.Solution{Points: ps.Clone(), Energy: 64 * float64(len(ps)), Status: opt.StatusConverged}, nil
	})
	c := coord.New(solver, coord.DefaultOptions())
	defer c.Close()

	d := New(c, Discard, Options{Rand: rand.New(rand.NewSource(2))})

	tk := d.AddPoint()
	select {
	case <-tk.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the solve")
	}

	ps := d.Frame(frameTime)
	if len(ps) != 2 {
		t.Fatalf("Expected 2 points after the result arrived, got %d", len(ps))
	}

	snap := d.Snapshot()
	if snap.Count != 2 || snap.Target != 2 {
		t.Errorf("Unexpected snapshot counts: %+v", snap)
	}
	if snap.ResultID != tk.ID() || snap.LatestID != tk.ID() {
		t.Errorf("Expected result and latest ID %d, got %+v", tk.ID(), snap)
	}
	if snap.Energy != 128 {
		t.Errorf("Expected energy 128, got %v", snap.Energy)
	}
}

func TestDriverWithGradientEngines(t *testing.T) {
	for _, engine := range []string{energy.EngineDual, energy.EngineTape} {
		t.Run(engine, func(t *testing.T) {
			optimizer, err := opt.NewGonum(opt.DefaultGonumSettings())
			if err != nil {
				t.Fatalf("NewGonum failed: %v", err)
			}
			c := coord.New(solve.New(optimizer, engine), coord.DefaultOptions())
			defer c.Close()

			d := New(c, Discard, Options{Rand: rand.New(rand.NewSource(8))})

			tk := d.AddPoint()
			select {
			case <-tk.Done():
			case <-time.After(10 * time.Second):
				t.Fatal("Timed out waiting for the solve")
			}

			d.Frame(frameTime)
			snap := d.Snapshot()
			if snap.ResultID != tk.ID() {
				t.Fatalf("Expected result %d to be applied, got %+v", tk.ID(), snap)
			}
			if snap.Status != opt.StatusConverged {
				t.Errorf("Expected converged, got %s", snap.Status)
			}
			if math.Abs(snap.Energy-128) > 1e-3 {
				t.Errorf("Expected energy near 128, got %g", snap.Energy)
			}

			for i := 0; i < 2000; i++ {
				d.Frame(frameTime)
			}
			ps := d.Points()
			if a := sphere.AngularDistance(ps[0], ps[1]); a < 2.5 {
				t.Errorf("Expected displayed points to end nearly antipodal, angle = %g", a)
			}
		})
	}
}
