package opt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Hessian strategies understood by the gonum backend
const (
	// HessianApproximate selects limited-memory BFGS
	HessianApproximate = "approximate"

	// HessianFull selects dense BFGS, which keeps a full inverse-Hessian estimate
	HessianFull = "full"
)

// statusCancelled is reported by the converger when the run context is done
var statusCancelled = optimize.NewStatus("Cancelled", true, nil)

// GonumSettings configures the gonum quasi-Newton backend
type GonumSettings struct {
	HessianStrategy   string
	Memory            int     // L-BFGS history length
	MaxIterations     int     // major iterations, 0 = no limit
	GradientThreshold float64 // stop when the gradient infinity norm drops below this
}

// DefaultGonumSettings returns the settings used by the interactive driver
func DefaultGonumSettings() GonumSettings {
	return GonumSettings{
		HessianStrategy:   HessianApproximate,
		Memory:            15,
		MaxIterations:     500,
		GradientThreshold: 1e-8,
	}
}

// Validate checks the settings
func (s GonumSettings) Validate() error {
	switch s.HessianStrategy {
	case HessianApproximate, HessianFull:
	default:
		return fmt.Errorf("unknown hessian strategy: %q (want %q or %q)", s.HessianStrategy, HessianApproximate, HessianFull)
	}
	if s.Memory < 0 {
		return fmt.Errorf("memory cannot be negative")
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("max iterations cannot be negative")
	}
	return nil
}

// GonumAdapter wraps gonum's optimize package to conform to our Optimizer interface
type GonumAdapter struct {
	settings GonumSettings
}

// NewGonum creates a quasi-Newton optimizer backed by gonum
func NewGonum(settings GonumSettings) (*GonumAdapter, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &GonumAdapter{settings: settings}, nil
}

func (g *GonumAdapter) method() optimize.Method {
	if g.settings.HessianStrategy == HessianFull {
		return &optimize.BFGS{}
	}
	return &optimize.LBFGS{Store: g.settings.Memory}
}

// Run minimizes the problem starting from x0
func (g *GonumAdapter) Run(ctx context.Context, p Problem, x0 []float64) (*Result, error) {
	if p.Grad == nil {
		return nil, errors.New("gonum backend requires a gradient")
	}
	if bounded(p.Lower, p.Upper) {
		return nil, errors.New("gonum backend supports only unbounded problems")
	}
	if len(x0) == 0 {
		return &Result{X: []float64{}, F: p.Func(x0), Status: StatusConverged}, nil
	}

	problem := optimize.Problem{
		Func: p.Func,
		Grad: p.Grad,
	}

	settings := &optimize.Settings{
		MajorIterations:   g.settings.MaxIterations,
		GradientThreshold: g.settings.GradientThreshold,
		Converger: &contextConverger{
			ctx:   ctx,
			inner: &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 100},
		},
	}

	result, err := optimize.Minimize(problem, x0, settings, g.method())
	if result == nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}

	out := &Result{
		X:          result.X,
		F:          result.F,
		Iterations: result.Stats.MajorIterations,
		FuncEvals:  result.Stats.FuncEvaluations,
		Status:     mapStatus(result.Status),
	}
	if ctx.Err() != nil {
		out.Status = StatusCancelled
	}
	if err != nil {
		// A failed line search still leaves the best location found so far
		slog.Debug("Gonum optimizer stopped early", "status", result.Status, "error", err)
		out.Status = StatusFailed
	}
	return out, nil
}

// contextConverger stops the run at the next major iteration once ctx is done
type contextConverger struct {
	ctx   context.Context
	inner optimize.Converger
}

func (c *contextConverger) Init(dim int) {
	c.inner.Init(dim)
}

func (c *contextConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.ctx.Err() != nil {
		return statusCancelled
	}
	return c.inner.Converged(loc)
}

func mapStatus(s optimize.Status) Status {
	switch s {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence,
		optimize.StepConvergence, optimize.FunctionThreshold, optimize.MethodConverge:
		return StatusConverged
	case optimize.IterationLimit, optimize.RuntimeLimit, optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit, optimize.HessianEvaluationLimit:
		return StatusIterationLimit
	case statusCancelled:
		return StatusCancelled
	default:
		return StatusFailed
	}
}

func bounded(lower, upper []float64) bool {
	for _, v := range lower {
		if !math.IsInf(v, -1) {
			return true
		}
	}
	for _, v := range upper {
		if !math.IsInf(v, 1) {
			return true
		}
	}
	return false
}
