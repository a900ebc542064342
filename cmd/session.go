package main

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cwbudde/spheredist/internal/anim"
	"github.com/cwbudde/spheredist/internal/config"
	"github.com/cwbudde/spheredist/internal/coord"
	"github.com/cwbudde/spheredist/internal/energy"
	"github.com/cwbudde/spheredist/internal/sphere"
	"github.com/cwbudde/spheredist/internal/trace"
	"github.com/spf13/pflag"
)

// bindConfigFlags registers the optimization flags shared by live, serve
// and run
func bindConfigFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Optimization backend: gonum, mayfly")
	fs.StringVar(&cfg.HessianStrategy, "hessian", cfg.HessianStrategy, "Hessian strategy for gonum: approximate (L-BFGS), full (BFGS)")
	fs.IntVar(&cfg.Memory, "memory", cfg.Memory, "L-BFGS history size")
	fs.IntVar(&cfg.MaxIterations, "iters", cfg.MaxIterations, "Max iterations per solve")
	fs.Float64Var(&cfg.GradientThreshold, "grad-threshold", cfg.GradientThreshold, "Gradient norm at which a solve counts as converged")
	fs.StringVar(&cfg.Engine, "engine", cfg.Engine, "Gradient engine: dual (forward), tape (reverse)")
	fs.IntVar(&cfg.PopSize, "pop", cfg.PopSize, "Population size (mayfly)")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	fs.StringVar(&cfg.Policy, "policy", cfg.Policy, "Non-converged results: accept, retry, discard")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Retries per request under the retry policy")
	fs.BoolVar(&cfg.CancelSuperseded, "cancel-superseded", cfg.CancelSuperseded, "Abort a running solve when a newer request arrives (default: let it finish)")
	fs.IntVar(&cfg.Points, "points", cfg.Points, "Initial number of points")
	fs.StringVar(&cfg.TracePath, "trace", cfg.TracePath, "Append solve outcomes to this JSONL file")
}

// session bundles the coordinator with its optional trace sink
type session struct {
	coord *coord.Coordinator
	trace *trace.Writer
}

// newSession validates cfg, checks the gradient engine and starts the
// coordinator worker
func newSession(cfg config.Config) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := energy.Probe(cfg.Engine); err != nil {
		return nil, fmt.Errorf("gradient engine unavailable: %w", err)
	}

	solver, err := cfg.Solver()
	if err != nil {
		return nil, err
	}

	s := &session{}
	opts := cfg.CoordOptions()
	if cfg.TracePath != "" {
		s.trace, err = trace.NewWriter(cfg.TracePath, true)
		if err != nil {
			return nil, err
		}
		opts.OnEvent = s.trace.Record
		slog.Info("Tracing solves", "path", cfg.TracePath, "session", s.trace.Session())
	}

	s.coord = coord.New(solver, opts)
	slog.Info("Session started",
		"backend", cfg.Backend,
		"hessian", cfg.HessianStrategy,
		"engine", cfg.Engine,
		"policy", cfg.Policy,
	)
	return s, nil
}

// Close stops the worker and flushes the trace
func (s *session) Close() error {
	s.coord.Close()
	if s.trace != nil {
		return s.trace.Close()
	}
	return nil
}

// animOptions returns the driver's starting state. A single point starts at
// +X heading for +Y. Larger sets start random and an initial solve is
// requested for them.
func (s *session) animOptions(cfg config.Config) anim.Options {
	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Points <= 1 {
		opts := anim.DefaultOptions()
		opts.Rand = rng
		return opts
	}

	ps := sphere.RandomSet(rng, cfg.Points)
	t := s.coord.Request(ps)
	slog.Info("Initial configuration requested", "request_id", t.ID(), "points", len(ps))
	return anim.Options{
		Displayed: ps,
		Target:    ps.Clone(),
		Rand:      rng,
	}
}
