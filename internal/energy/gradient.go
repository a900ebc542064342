package energy

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/num/dual"
)

// Gradient engine names
const (
	EngineDual = "dual" // forward mode, one dual pass per variable
	EngineTape = "tape" // reverse mode on an expression graph
)

// Gradient evaluates the objective and its exact gradient at packed
// spherical angles. Implementations are not required to be safe for
// concurrent use.
type Gradient interface {
	// Value returns E(x)
	Value(x []float64) float64

	// Gradient writes dE/dx into grad, which has len(x)
	Gradient(grad, x []float64)

	// Close releases engine resources
	Close() error
}

// DifferentiationError reports that the objective could not be
// differentiated by an engine. It is a configuration error.
type DifferentiationError struct {
	Engine string
	Err    error
}

func (e *DifferentiationError) Error() string {
	return "differentiation failed (" + e.Engine + "): " + e.Err.Error()
}

func (e *DifferentiationError) Unwrap() error {
	return e.Err
}

// NewGradient creates a gradient engine for a problem of the given dimension
func NewGradient(engine string, dim int) (Gradient, error) {
	switch engine {
	case EngineDual:
		return NewDual(), nil
	case EngineTape:
		return NewTape(dim)
	default:
		return nil, fmt.Errorf("unknown gradient engine: %s", engine)
	}
}

// Probe builds the configured engine on a small problem and checks that it
// produces a finite gradient.
func Probe(engine string) error {
	x := []float64{0.3, 0.1, 1.2, 2.0, 2.5, -1.0}

	g, err := NewGradient(engine, len(x))
	if err != nil {
		return err
	}
	defer g.Close()

	grad := make([]float64, len(x))
	g.Gradient(grad, x)
	for i, v := range grad {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &DifferentiationError{
				Engine: engine,
				Err:    fmt.Errorf("non-finite derivative at index %d", i),
			}
		}
	}
	return nil
}

// Dual is the forward-mode arithmetic over gonum dual numbers
type Dual struct{}

func (Dual) Const(v float64) dual.Number     { return dual.Number{Real: v} }
func (Dual) Add(a, b dual.Number) dual.Number { return dual.Add(a, b) }
func (Dual) Mul(a, b dual.Number) dual.Number { return dual.Mul(a, b) }
func (Dual) Sin(x dual.Number) dual.Number    { return dual.Sin(x) }
func (Dual) Cos(x dual.Number) dual.Number    { return dual.Cos(x) }

// DualGradient computes gradients by seeding one variable at a time
type DualGradient struct {
	mu  sync.Mutex
	buf []dual.Number
}

// NewDual creates a forward-mode gradient engine
func NewDual() *DualGradient {
	return &DualGradient{}
}

// Value evaluates E with plain floats
func (d *DualGradient) Value(x []float64) float64 {
	return Value(x)
}

// Gradient computes each partial derivative with a separate dual pass
func (d *DualGradient) Gradient(grad, x []float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cap(d.buf) < len(x) {
		d.buf = make([]dual.Number, len(x))
	}
	buf := d.buf[:len(x)]
	for i, v := range x {
		buf[i] = dual.Number{Real: v}
	}

	for k := range x {
		buf[k].Emag = 1
		grad[k] = Spherical[dual.Number](Dual{}, buf).Emag
		buf[k].Emag = 0
	}
}

// Close is a no-op
func (d *DualGradient) Close() error {
	return nil
}
