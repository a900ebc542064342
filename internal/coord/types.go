package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/spheredist/internal/opt"
	"github.com/cwbudde/spheredist/internal/solve"
	"github.com/cwbudde/spheredist/internal/sphere"
)

// RequestState represents the current state of an optimization request
type RequestState string

const (
	StatePending    RequestState = "pending"
	StateRunning    RequestState = "running"
	StateCompleted  RequestState = "completed"
	StateSuperseded RequestState = "superseded"
	StateCancelled  RequestState = "cancelled"
	StateDiscarded  RequestState = "discarded"
	StateFailed     RequestState = "failed"
)

// Terminal reports whether no further transitions can happen
func (s RequestState) Terminal() bool {
	return s != StatePending && s != StateRunning
}

// Policy decides what happens to a result that did not converge
type Policy string

const (
	PolicyAccept  Policy = "accept"  // store it like any other result
	PolicyRetry   Policy = "retry"   // re-solve from the refined points
	PolicyDiscard Policy = "discard" // drop it and keep the previous target
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyAccept, PolicyRetry, PolicyDiscard:
		return p, nil
	default:
		return "", fmt.Errorf("unknown convergence policy: %q", s)
	}
}

var (
	// ErrSuperseded is reported by tickets whose request was replaced by a newer one
	ErrSuperseded = errors.New("request superseded")

	// ErrClosed is reported by tickets issued after or cancelled by Close
	ErrClosed = errors.New("coordinator closed")
)

// PanicError wraps a panic recovered from the solver
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("solver panic: %v", e.Value)
}

// Solver refines a point set. *solve.Solver implements it.
type Solver interface {
	Solve(ctx context.Context, points sphere.PointSet) (*solve.Solution, error)
}

// SolverFunc adapts a function to the Solver interface
type SolverFunc func(ctx context.Context, points sphere.PointSet) (*solve.Solution, error)

// Solve calls f
func (f SolverFunc) Solve(ctx context.Context, points sphere.PointSet) (*solve.Solution, error) {
	return f(ctx, points)
}

// Request is a point set queued for optimization
type Request struct {
	ID     uint64
	Points sphere.PointSet
}

// Result is the output of a completed solve. ID equals the ID of the
// request that produced it.
type Result struct {
	ID         uint64          `json:"id"`
	Points     sphere.PointSet `json:"-"`
	Energy     float64         `json:"energy"`
	Iterations int             `json:"iterations"`
	Status     opt.Status      `json:"status"`
	Attempts   int             `json:"attempts"`
	Elapsed    time.Duration   `json:"elapsed"`
}

// Health describes the worker's condition
type Health struct {
	Degraded  bool   `json:"degraded"`
	LastError string `json:"lastError,omitempty"`
	Panics    int    `json:"panics"` // recovered solver panics; the worker is never restarted
}

// Stats counts what happened to issued requests
type Stats struct {
	Issued    uint64 `json:"issued"`
	Solved    uint64 `json:"solved"`
	Skipped   uint64 `json:"skipped"`   // superseded before the solve started
	Dropped   uint64 `json:"dropped"`   // finished but superseded by the time it was polled
	Cancelled uint64 `json:"cancelled"` // aborted mid-solve
	Discarded uint64 `json:"discarded"` // non-converged, dropped by policy
	Failed    uint64 `json:"failed"`
	Retries   uint64 `json:"retries"`
}

// Event describes the outcome of one dequeued request. It is passed to
// Options.OnEvent outside the coordinator's lock.
type Event struct {
	ID       uint64
	Points   int
	State    RequestState
	Result   *Result
	Err      error
	Finished time.Time
}

// Ticket is a handle to an issued request. Done is closed once the request
// reaches a terminal state.
type Ticket struct {
	id     uint64
	points int
	done   chan struct{}

	mu     sync.Mutex
	state  RequestState
	result *Result
	err    error
}

func newTicket(id uint64, points int) *Ticket {
	return &Ticket{
		id:     id,
		points: points,
		done:   make(chan struct{}),
		state:  StatePending,
	}
}

// ID returns the request ID
func (t *Ticket) ID() uint64 {
	return t.id
}

// Points returns the size of the requested configuration
func (t *Ticket) Points() int {
	return t.points
}

// Done returns a channel closed when the request reaches a terminal state
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// State returns the current request state
func (t *Ticket) State() RequestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Result returns the solve result and error once the ticket is done
func (t *Ticket) Result() (*Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// Wait blocks until the ticket is done or ctx ends
func (t *Ticket) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-t.done:
		return t.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Ticket) setState(s RequestState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *Ticket) finish(s RequestState, r *Result, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Terminal() {
		return
	}
	t.state = s
	t.result = r
	t.err = err
	close(t.done)
}
