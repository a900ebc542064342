package config

import (
	"fmt"
	"time"

	"github.com/cwbudde/spheredist/internal/coord"
	"github.com/cwbudde/spheredist/internal/energy"
	"github.com/cwbudde/spheredist/internal/opt"
	"github.com/cwbudde/spheredist/internal/solve"
)

// Optimization backends
const (
	BackendGonum  = "gonum"
	BackendMayfly = "mayfly"
)

// Config holds every tunable of a session. Commands bind their flags to it.
type Config struct {
	Backend           string  `json:"backend"`         // gonum, mayfly
	HessianStrategy   string  `json:"hessianStrategy"` // approximate, full
	Memory            int     `json:"memory"`          // L-BFGS history size
	MaxIterations     int     `json:"maxIterations"`
	GradientThreshold float64 `json:"gradientThreshold"`
	Engine            string  `json:"engine"` // dual, tape

	// Mayfly backend only
	PopSize int   `json:"popSize"`
	Seed    int64 `json:"seed"`

	Policy           string `json:"policy"` // accept, retry, discard
	MaxRetries       int    `json:"maxRetries"`
	CancelSuperseded bool   `json:"cancelSuperseded"`

	Points    int    `json:"points"` // initial point count
	FPS       int    `json:"fps"`
	TracePath string `json:"tracePath,omitempty"`
}

// Default returns the configuration used when no flags are given
func Default() Config {
	g := opt.DefaultGonumSettings()
	c := coord.DefaultOptions()
	return Config{
		Backend:           BackendGonum,
		HessianStrategy:   g.HessianStrategy,
		Memory:            g.Memory,
		MaxIterations:     g.MaxIterations,
		GradientThreshold: g.GradientThreshold,
		Engine:            energy.EngineDual,
		PopSize:           30,
		Seed:              42,
		Policy:            string(c.Policy),
		MaxRetries:        c.MaxRetries,
		CancelSuperseded:  c.CancelSuperseded,
		Points:            1,
		FPS:               60,
	}
}

// Validate checks every field and returns the first problem found
func (c Config) Validate() error {
	switch c.Backend {
	case BackendGonum:
		if err := c.gonumSettings().Validate(); err != nil {
			return &ValidationError{Field: "HessianStrategy", Reason: err.Error()}
		}
	case BackendMayfly:
		if c.PopSize <= 0 {
			return &ValidationError{Field: "PopSize", Reason: "must be positive"}
		}
	default:
		return &ValidationError{Field: "Backend", Reason: fmt.Sprintf("unknown backend %q", c.Backend)}
	}

	if c.MaxIterations <= 0 {
		return &ValidationError{Field: "MaxIterations", Reason: "must be positive"}
	}
	if c.Engine != energy.EngineDual && c.Engine != energy.EngineTape {
		return &ValidationError{Field: "Engine", Reason: fmt.Sprintf("unknown gradient engine %q", c.Engine)}
	}
	if _, err := coord.ParsePolicy(c.Policy); err != nil {
		return &ValidationError{Field: "Policy", Reason: err.Error()}
	}
	if c.MaxRetries < 0 {
		return &ValidationError{Field: "MaxRetries", Reason: "cannot be negative"}
	}
	if c.Points <= 0 {
		return &ValidationError{Field: "Points", Reason: "must be positive"}
	}
	if c.FPS <= 0 || c.FPS > 1000 {
		return &ValidationError{Field: "FPS", Reason: "must be between 1 and 1000"}
	}
	return nil
}

func (c Config) gonumSettings() opt.GonumSettings {
	return opt.GonumSettings{
		HessianStrategy:   c.HessianStrategy,
		Memory:            c.Memory,
		MaxIterations:     c.MaxIterations,
		GradientThreshold: c.GradientThreshold,
	}
}

// Optimizer creates the configured backend
func (c Config) Optimizer() (opt.Optimizer, error) {
	switch c.Backend {
	case BackendGonum:
		g, err := opt.NewGonum(c.gonumSettings())
		if err != nil {
			return nil, err
		}
		return g, nil
	case BackendMayfly:
		return opt.NewMayfly(c.MaxIterations, c.PopSize, c.Seed), nil
	default:
		return nil, &ValidationError{Field: "Backend", Reason: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
}

// Solver creates a solver for the configured backend and gradient engine
func (c Config) Solver() (*solve.Solver, error) {
	o, err := c.Optimizer()
	if err != nil {
		return nil, fmt.Errorf("failed to create optimizer: %w", err)
	}
	return solve.New(o, c.Engine), nil
}

// CoordOptions returns the coordinator options
func (c Config) CoordOptions() coord.Options {
	return coord.Options{
		Policy:           coord.Policy(c.Policy),
		MaxRetries:       c.MaxRetries,
		CancelSuperseded: c.CancelSuperseded,
	}
}

// FrameInterval returns the time between frames
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// ValidationError represents an invalid configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
