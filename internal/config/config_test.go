package config

import (
	"errors"
	"testing"
	"time"

	"github.com/cwbudde/spheredist/internal/coord"
	"github.com/cwbudde/spheredist/internal/opt"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config should be valid, got %v", err)
	}
	if Default().CancelSuperseded {
		t.Error("Running solves should not be cancelled by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "annealing" }, "Backend"},
		{"unknown hessian", func(c *Config) { c.HessianStrategy = "exact" }, "HessianStrategy"},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }, "MaxIterations"},
		{"unknown engine", func(c *Config) { c.Engine = "symbolic" }, "Engine"},
		{"unknown policy", func(c *Config) { c.Policy = "ignore" }, "Policy"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "MaxRetries"},
		{"no points", func(c *Config) { c.Points = 0 }, "Points"},
		{"zero fps", func(c *Config) { c.FPS = 0 }, "FPS"},
		{"mayfly without population", func(c *Config) {
			c.Backend = BackendMayfly
			c.PopSize = 0
		}, "PopSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)

			err := c.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected *ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestMayflyIgnoresHessianStrategy(t *testing.T) {
	c := Default()
	c.Backend = BackendMayfly
	c.HessianStrategy = ""

	if err := c.Validate(); err != nil {
		t.Errorf("Mayfly config should not need a hessian strategy, got %v", err)
	}
}

func TestOptimizer(t *testing.T) {
	c := Default()
	o, err := c.Optimizer()
	if err != nil {
		t.Fatalf("Failed to create optimizer: %v", err)
	}
	if _, ok := o.(*opt.GonumAdapter); !ok {
		t.Errorf("Expected *opt.GonumAdapter, got %T", o)
	}

	c.Backend = BackendMayfly
	o, err = c.Optimizer()
	if err != nil {
		t.Fatalf("Failed to create optimizer: %v", err)
	}
	if _, ok := o.(*opt.MayflyAdapter); !ok {
		t.Errorf("Expected *opt.MayflyAdapter, got %T", o)
	}

	c.Backend = "none"
	if _, err := c.Solver(); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestCoordOptions(t *testing.T) {
	c := Default()
	c.Policy = "retry"
	c.MaxRetries = 4
	c.CancelSuperseded = true

	o := c.CoordOptions()
	if o.Policy != coord.PolicyRetry || o.MaxRetries != 4 || !o.CancelSuperseded {
		t.Errorf("Unexpected coordinator options: %+v", o)
	}
}

func TestFrameInterval(t *testing.T) {
	c := Default()
	c.FPS = 50
	if got := c.FrameInterval(); got != 20*time.Millisecond {
		t.Errorf("Expected 20ms, got %v", got)
	}
}
