package coord

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cwbudde/spheredist/internal/opt"
	"github.com/cwbudde/spheredist/internal/solve"
	"github.com/cwbudde/spheredist/internal/sphere"
)

// Options configures a Coordinator
type Options struct {
	// Policy decides what to do with non-converged results
	Policy Policy

	// MaxRetries bounds re-solves under PolicyRetry
	MaxRetries int

	// CancelSuperseded cancels the in-flight solve's context when a newer
	// request is issued. Backends stop at their next cooperative check.
	CancelSuperseded bool

	// OnEvent, if set, is called from the worker after each dequeued request
	OnEvent func(Event)
}

// DefaultOptions returns the options used by the interactive driver
func DefaultOptions() Options {
	return Options{
		Policy:           PolicyAccept,
		MaxRetries:       2,
		CancelSuperseded: false,
	}
}

type job struct {
	req    Request
	ticket *Ticket
}

// Coordinator owns a single background worker, a monotonic request counter
// and the most recent result. All shared state is guarded by mu, which is
// never held across a solve.
type Coordinator struct {
	solver Solver
	opts   Options

	mu       sync.Mutex
	cond     *sync.Cond
	latestID uint64
	queue    []*job
	closed   bool
	result   *Result
	inflight context.CancelFunc
	health   Health
	stats    Stats

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// New creates a coordinator and starts its worker
func New(solver Solver, opts Options) *Coordinator {
	c := newCoordinator(solver, opts)
	c.start()
	return c
}

func newCoordinator(solver Solver, opts Options) *Coordinator {
	if opts.Policy == "" {
		opts.Policy = PolicyAccept
	}
	ctx, stop := context.WithCancel(context.Background())
	c := &Coordinator{
		solver: solver,
		opts:   opts,
		ctx:    ctx,
		stop:   stop,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *Coordinator) start() {
	c.wg.Add(1)
	go c.run()
}

// Request issues a new optimization request for a copy of points and
// returns immediately. The new request supersedes every earlier one.
func (c *Coordinator) Request(points sphere.PointSet) *Ticket {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		t := newTicket(0, len(points))
		t.finish(StateCancelled, nil, ErrClosed)
		return t
	}

	c.latestID++
	id := c.latestID
	t := newTicket(id, len(points))
	c.queue = append(c.queue, &job{
		req:    Request{ID: id, Points: points.Clone()},
		ticket: t,
	})
	c.stats.Issued++

	if c.opts.CancelSuperseded && c.inflight != nil {
		c.inflight()
	}
	c.mu.Unlock()

	c.cond.Signal()
	slog.Debug("Optimization requested", "request_id", id, "points", len(points))
	return t
}

// PollLatest returns the points of the stored result if it belongs to the
// latest issued request, clearing the slot. A stored result for any other
// request is dropped.
func (c *Coordinator) PollLatest() (sphere.PointSet, bool) {
	r, ok := c.PollLatestResult()
	if !ok {
		return nil, false
	}
	return r.Points, true
}

// PollLatestResult is PollLatest returning the full result
func (c *Coordinator) PollLatestResult() (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return nil, false
	}

	r := c.result
	c.result = nil
	if r.ID != c.latestID {
		c.stats.Dropped++
		slog.Debug("Dropping stale result", "request_id", r.ID, "latest_id", c.latestID)
		return nil, false
	}
	return r, true
}

// LatestID returns the ID of the most recently issued request
func (c *Coordinator) LatestID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latestID
}

// Pending returns the number of queued requests not yet dequeued
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Health returns the worker's health
func (c *Coordinator) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}

// Stats returns request counters
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops accepting requests, cancels the in-flight solve and waits for
// the worker to drain the queue and exit.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.stop()
	c.cond.Broadcast()
	c.wg.Wait()
}

// run is the worker loop
func (c *Coordinator) run() {
	defer c.wg.Done()

	for {
		j, ctx, cancel, skipped, ok := c.next()
		for _, e := range skipped {
			c.emit(e)
		}
		if !ok {
			slog.Debug("Optimization worker stopped")
			return
		}
		c.process(ctx, j)
		cancel()
	}
}

// next blocks until a current request is available. Requests that are no
// longer the latest at dequeue time are finished as superseded without
// solving.
func (c *Coordinator) next() (*job, context.Context, context.CancelFunc, []Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var skipped []Event
	for {
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			return nil, nil, nil, skipped, false
		}

		j := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]

		if j.req.ID != c.latestID || c.closed {
			c.stats.Skipped++
			err := ErrSuperseded
			if c.closed {
				err = ErrClosed
			}
			j.ticket.finish(StateSuperseded, nil, err)
			slog.Debug("Skipping superseded request", "request_id", j.req.ID, "latest_id", c.latestID)
			skipped = append(skipped, Event{ID: j.req.ID, Points: len(j.req.Points), State: StateSuperseded, Err: err, Finished: time.Now()})
			continue
		}

		ctx, cancel := context.WithCancel(c.ctx)
		c.inflight = cancel
		j.ticket.setState(StateRunning)
		return j, ctx, cancel, skipped, true
	}
}

// process solves a current request and stores its result
func (c *Coordinator) process(ctx context.Context, j *job) {
	start := time.Now()
	sol, attempts, err := c.solveWithPolicy(ctx, j.req)

	var r *Result
	if sol != nil {
		r = &Result{
			ID:         j.req.ID,
			Points:     sol.Points,
			Energy:     sol.Energy,
			Iterations: sol.Iterations,
			Status:     sol.Status,
			Attempts:   attempts,
			Elapsed:    time.Since(start),
		}
	}

	c.mu.Lock()
	c.inflight = nil

	var state RequestState
	switch {
	case err != nil:
		state = StateFailed
		c.stats.Failed++
		c.health.Degraded = true
		c.health.LastError = err.Error()
		if _, ok := err.(*PanicError); ok {
			c.health.Panics++
		}
	case sol.Status == opt.StatusCancelled || ctx.Err() != nil:
		state = StateCancelled
		c.stats.Cancelled++
	case !sol.Status.Converged() && c.opts.Policy == PolicyDiscard:
		state = StateDiscarded
		c.stats.Discarded++
	default:
		// Unconditional overwrite; staleness is checked when polling
		state = StateCompleted
		c.result = r
		c.stats.Solved++
		c.health.Degraded = false
	}
	c.mu.Unlock()

	j.ticket.finish(state, r, err)

	switch state {
	case StateFailed:
		slog.Error("Optimization failed", "request_id", j.req.ID, "error", err)
	case StateCompleted:
		slog.Info("Optimization completed",
			"request_id", j.req.ID,
			"points", len(r.Points),
			"energy", r.Energy,
			"iterations", r.Iterations,
			"status", r.Status,
			"attempts", r.Attempts,
			"elapsed", r.Elapsed,
		)
	default:
		slog.Debug("Optimization finished without result", "request_id", j.req.ID, "state", state)
	}

	c.emit(Event{ID: j.req.ID, Points: len(j.req.Points), State: state, Result: r, Err: err, Finished: time.Now()})
}

// solveWithPolicy runs the solver, re-solving non-converged results from
// their refined points under PolicyRetry while the request stays current.
func (c *Coordinator) solveWithPolicy(ctx context.Context, req Request) (*solve.Solution, int, error) {
	sol, err := c.callSolver(ctx, req.Points)
	attempts := 1

	for c.opts.Policy == PolicyRetry && err == nil && attempts <= c.opts.MaxRetries {
		if sol.Status.Converged() || sol.Status == opt.StatusCancelled || ctx.Err() != nil {
			break
		}
		if !c.isLatest(req.ID) {
			break
		}

		c.mu.Lock()
		c.stats.Retries++
		c.mu.Unlock()

		slog.Debug("Retrying non-converged solve", "request_id", req.ID, "attempt", attempts+1, "status", sol.Status)
		sol, err = c.callSolver(ctx, sol.Points)
		attempts++
	}

	return sol, attempts, err
}

// callSolver runs one solve, converting a panic into a *PanicError so the
// worker loop survives a faulty backend.
func (c *Coordinator) callSolver(ctx context.Context, points sphere.PointSet) (sol *solve.Solution, err error) {
	defer func() {
		if r := recover(); r != nil {
			sol = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	sol, err = c.solver.Solve(ctx, points)
	if err == nil && sol == nil {
		err = fmt.Errorf("solver returned no solution")
	}
	return sol, err
}

func (c *Coordinator) isLatest(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return id == c.latestID
}

// emit calls the event hook. Callers must not hold mu.
func (c *Coordinator) emit(e Event) {
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(e)
	}
}
