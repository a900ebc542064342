package energy

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// graphArith builds the objective as a gorgonia expression graph.
// Operation errors panic through gorgonia.Must and are recovered by NewTape.
type graphArith struct {
	g      *gorgonia.ExprGraph
	consts map[float64]*gorgonia.Node
}

func (a *graphArith) Const(v float64) *gorgonia.Node {
	if n, ok := a.consts[v]; ok {
		return n
	}
	n := gorgonia.NewScalar(a.g, tensor.Float64, gorgonia.WithName(fmt.Sprintf("const_%g", v)), gorgonia.WithValue(v))
	a.consts[v] = n
	return n
}

func (a *graphArith) Add(x, y *gorgonia.Node) *gorgonia.Node {
	return gorgonia.Must(gorgonia.Add(x, y))
}

func (a *graphArith) Mul(x, y *gorgonia.Node) *gorgonia.Node {
	return gorgonia.Must(gorgonia.Mul(x, y))
}

func (a *graphArith) Sin(x *gorgonia.Node) *gorgonia.Node {
	return gorgonia.Must(gorgonia.Sin(x))
}

func (a *graphArith) Cos(x *gorgonia.Node) *gorgonia.Node {
	return gorgonia.Must(gorgonia.Cos(x))
}

// Tape is a reverse-mode gradient engine. The expression graph is built once
// for a fixed dimension; each evaluation rebinds the inputs and replays the tape.
// Cost and gradient nodes are read out on every run rather than accumulated
// into the inputs' dual values.
type Tape struct {
	mu       sync.Mutex
	dim      int
	vars     []*gorgonia.Node
	machine  gorgonia.VM
	costVal  gorgonia.Value
	gradVals []gorgonia.Value

	// last evaluated point, so Value and Gradient at the same x share a run
	lastX    []float64
	lastCost float64
	lastGrad []float64
}

// NewTape builds the objective graph and its symbolic gradient for dim
// packed spherical angles.
func NewTape(dim int) (t *Tape, err error) {
	if dim < 2 || dim%2 != 0 {
		return nil, fmt.Errorf("tape dimension must be a positive even number, got %d", dim)
	}

	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = &DifferentiationError{Engine: EngineTape, Err: fmt.Errorf("%v", r)}
		}
	}()

	g := gorgonia.NewGraph()
	vars := make([]*gorgonia.Node, dim)
	for i := range vars {
		vars[i] = gorgonia.NewScalar(g, tensor.Float64, gorgonia.WithName(fmt.Sprintf("x%d", i)), gorgonia.WithValue(0.0))
	}

	arith := &graphArith{g: g, consts: make(map[float64]*gorgonia.Node)}
	cost := Spherical[*gorgonia.Node](arith, vars)

	grads, err := gorgonia.Grad(cost, vars...)
	if err != nil {
		return nil, &DifferentiationError{Engine: EngineTape, Err: err}
	}

	t = &Tape{
		dim:      dim,
		vars:     vars,
		gradVals: make([]gorgonia.Value, dim),
		lastGrad: make([]float64, dim),
	}
	gorgonia.Read(cost, &t.costVal)
	for i, gn := range grads {
		gorgonia.Read(gn, &t.gradVals[i])
	}

	slog.Debug("Built energy tape", "dim", dim, "nodes", len(g.AllNodes()))

	t.machine = gorgonia.NewTapeMachine(g)
	return t, nil
}

// Value returns E(x)
func (t *Tape) Value(x []float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.run(x); err != nil {
		slog.Error("Tape evaluation failed", "error", err)
		return math.NaN()
	}
	return t.lastCost
}

// Gradient writes dE/dx into grad
func (t *Tape) Gradient(grad, x []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.run(x); err != nil {
		slog.Error("Tape gradient failed", "error", err)
		for i := range grad {
			grad[i] = math.NaN()
		}
		return
	}
	copy(grad, t.lastGrad)
}

// Close releases the tape machine
func (t *Tape) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.machine != nil {
		t.machine.Close()
		t.machine = nil
	}
	return nil
}

func (t *Tape) run(x []float64) error {
	if len(x) != t.dim {
		return fmt.Errorf("dimension mismatch: tape has %d variables, got %d", t.dim, len(x))
	}
	if t.machine == nil {
		return fmt.Errorf("tape is closed")
	}
	if t.lastX != nil && equal(t.lastX, x) {
		return nil
	}

	for i, v := range x {
		if err := gorgonia.Let(t.vars[i], v); err != nil {
			return fmt.Errorf("failed to bind x%d: %w", i, err)
		}
	}

	defer t.machine.Reset()
	if err := t.machine.RunAll(); err != nil {
		t.lastX = nil
		return fmt.Errorf("failed to run tape: %w", err)
	}

	cost, err := scalarValue("cost", t.costVal)
	if err != nil {
		t.lastX = nil
		return err
	}
	for i, n := range t.vars {
		v, err := scalarValue("gradient of "+n.Name(), t.gradVals[i])
		if err != nil {
			t.lastX = nil
			return err
		}
		t.lastGrad[i] = v
	}

	t.lastCost = cost
	t.lastX = append(t.lastX[:0], x...)
	return nil
}

func scalarValue(what string, v gorgonia.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("%s has no value", what)
	}
	f, ok := v.Data().(float64)
	if !ok {
		return 0, fmt.Errorf("%s holds %T, expected float64", what, v.Data())
	}
	return f, nil
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
