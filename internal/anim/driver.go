package anim

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/cwbudde/spheredist/internal/coord"
	"github.com/cwbudde/spheredist/internal/opt"
	"github.com/cwbudde/spheredist/internal/sphere"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// StepRate is the interpolation fraction per nanosecond of frame time
	StepRate = 7e-9

	// MaxStep caps the interpolation fraction of a single frame
	MaxStep = 0.03
)

// Coordinator is the part of *coord.Coordinator the driver uses
type Coordinator interface {
	Request(points sphere.PointSet) *coord.Ticket
	PollLatestResult() (*coord.Result, bool)
	LatestID() uint64
	Health() coord.Health
}

// Renderer draws the displayed points once per frame
type Renderer interface {
	Draw(points sphere.PointSet)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(points sphere.PointSet)

// Draw calls f
func (f RendererFunc) Draw(points sphere.PointSet) {
	f(points)
}

// Discard is a Renderer that draws nothing
var Discard Renderer = RendererFunc(func(sphere.PointSet) {})

// Options configures a Driver
type Options struct {
	// Displayed and Target are the initial configurations
	Displayed sphere.PointSet
	Target    sphere.PointSet

	// Rand is the source for added points. Nil uses a time-seeded source.
	Rand *rand.Rand
}

// DefaultOptions returns a single displayed point at +X moving towards +Y
func DefaultOptions() Options {
	return Options{
		Displayed: sphere.PointSet{{X: 1}},
		Target:    sphere.PointSet{{Y: 1}},
	}
}

// Frame is a snapshot of the driver's state for renderers and APIs
type Frame struct {
	Points     sphere.PointSet `json:"-"`
	Count      int             `json:"count"`
	Target     int             `json:"target"`
	Energy     float64         `json:"energy"`
	Status     opt.Status      `json:"status,omitempty"`
	ResultID   uint64          `json:"resultId"`
	LatestID   uint64          `json:"latestId"`
	MaxError   float64         `json:"maxError"`
	Health     coord.Health    `json:"health"`
	FrameCount uint64          `json:"frame"`
}

// Driver owns the displayed and target point sets. It is advanced by one
// frame goroutine while input callers add or remove points concurrently.
type Driver struct {
	coord    Coordinator
	renderer Renderer

	mu        sync.Mutex
	displayed sphere.PointSet
	target    sphere.PointSet
	last      *coord.Result
	frames    uint64
	rng       *rand.Rand
}

// New creates a driver
func New(c Coordinator, renderer Renderer, opts Options) *Driver {
	if renderer == nil {
		renderer = Discard
	}
	if len(opts.Displayed) == 0 || len(opts.Target) == 0 {
		def := DefaultOptions()
		if len(opts.Displayed) == 0 {
			opts.Displayed = def.Displayed
		}
		if len(opts.Target) == 0 {
			opts.Target = def.Target
		}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Driver{
		coord:     c,
		renderer:  renderer,
		displayed: opts.Displayed.Clone(),
		target:    opts.Target.Clone(),
		rng:       rng,
	}
}

// Step returns the interpolation fraction for a frame of duration dt
func Step(dt time.Duration) float64 {
	if dt <= 0 {
		return 0
	}
	return math.Min(float64(dt.Nanoseconds())*StepRate, MaxStep)
}

// Frame advances the animation by dt: it picks up the latest result,
// reconciles the point count, moves each point towards its target,
// renormalizes and draws. It returns a copy of the drawn points.
func (d *Driver) Frame(dt time.Duration) sphere.PointSet {
	d.mu.Lock()

	if r, ok := d.coord.PollLatestResult(); ok {
		d.target = r.Points.Clone()
		d.last = r
		slog.Debug("Target updated", "request_id", r.ID, "points", len(r.Points), "energy", r.Energy)
	}

	d.reconcile()

	s := Step(dt)
	for i := range d.displayed {
		p, t := d.displayed[i], d.target[i]
		p = r3.Add(p, r3.Scale(s, r3.Sub(t, p)))
		n, ok := sphere.NormalizeOK(p)
		if !ok {
			n = t
		}
		d.displayed[i] = n
	}
	d.frames++

	out := d.displayed.Clone()
	d.mu.Unlock()

	d.renderer.Draw(out)
	return out
}

// reconcile makes the displayed count match the target count. New points
// appear at their target positions; surplus points are dropped from the end.
func (d *Driver) reconcile() {
	switch n, m := len(d.displayed), len(d.target); {
	case m > n:
		d.displayed = append(d.displayed, d.target[n:].Clone()...)
	case m < n:
		d.displayed = d.displayed[:m]
	}
}

// AddPoint requests a configuration with one extra random point
func (d *Driver) AddPoint() *coord.Ticket {
	d.mu.Lock()
	ps := make(sphere.PointSet, 0, len(d.displayed)+1)
	ps = append(ps, d.displayed...)
	ps = append(ps, sphere.RandomUnit(d.rng))
	d.mu.Unlock()

	t := d.coord.Request(ps)
	slog.Info("Point added", "request_id", t.ID(), "points", len(ps))
	return t
}

// RemovePoint requests a configuration without the last displayed point.
// At least one point always remains, in which case nil is returned.
func (d *Driver) RemovePoint() *coord.Ticket {
	d.mu.Lock()
	if len(d.displayed) <= 1 {
		d.mu.Unlock()
		slog.Debug("Refusing to remove the last point")
		return nil
	}
	ps := d.displayed[:len(d.displayed)-1].Clone()
	d.mu.Unlock()

	t := d.coord.Request(ps)
	slog.Info("Point removed", "request_id", t.ID(), "points", len(ps))
	return t
}

// Points returns a copy of the displayed points
func (d *Driver) Points() sphere.PointSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.displayed.Clone()
}

// Target returns a copy of the target points
func (d *Driver) Target() sphere.PointSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target.Clone()
}

// MaxAngularError returns the largest angle between a displayed point and
// its target
func (d *Driver) MaxAngularError() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxAngularError()
}

func (d *Driver) maxAngularError() float64 {
	var worst float64
	for i := range d.displayed {
		if i >= len(d.target) {
			break
		}
		worst = math.Max(worst, sphere.AngularDistance(d.displayed[i], d.target[i]))
	}
	return worst
}

// Snapshot returns the current frame state
func (d *Driver) Snapshot() Frame {
	d.mu.Lock()
	f := Frame{
		Points:     d.displayed.Clone(),
		Count:      len(d.displayed),
		Target:     len(d.target),
		MaxError:   d.maxAngularError(),
		FrameCount: d.frames,
	}
	if d.last != nil {
		f.Energy = d.last.Energy
		f.Status = d.last.Status
		f.ResultID = d.last.ID
	}
	d.mu.Unlock()

	f.LatestID = d.coord.LatestID()
	f.Health = d.coord.Health()
	return f
}
