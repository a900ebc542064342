package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cwbudde/spheredist/internal/anim"
	"github.com/cwbudde/spheredist/internal/coord"
	"github.com/cwbudde/spheredist/internal/sphere"
)

// Coordinator is the part of *coord.Coordinator the server uses
type Coordinator interface {
	anim.Coordinator
	Stats() coord.Stats
	Pending() int
}

// Options configures the server
type Options struct {
	// FrameInterval is the animation tick
	FrameInterval time.Duration

	// StreamInterval throttles SSE frames. Zero streams every frame.
	StreamInterval time.Duration

	Title string
}

// DefaultOptions runs at 60 fps and streams at 30 fps
func DefaultOptions() Options {
	return Options{
		FrameInterval:  time.Second / 60,
		StreamInterval: time.Second / 30,
		Title:          "Points on a sphere",
	}
}

// Server represents the HTTP server. It owns the animation driver and
// advances it on its own frame loop.
type Server struct {
	coord       Coordinator
	driver      *anim.Driver
	broadcaster *EventBroadcaster
	opts        Options
	addr        string
	server      *http.Server
	started     time.Time

	streamMu   sync.Mutex
	lastStream time.Time
	seq        uint64

	mu         sync.Mutex // guards server and framesDone
	frameCtx   context.Context
	stopFrames context.CancelFunc
	framesDone chan struct{}
}

// NewServer creates a server whose driver animates points refined by c
func NewServer(addr string, c Coordinator, animOpts anim.Options, opts Options) *Server {
	def := DefaultOptions()
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = def.FrameInterval
	}
	if opts.Title == "" {
		opts.Title = def.Title
	}

	s := &Server{
		coord:       c,
		broadcaster: NewEventBroadcaster(),
		opts:        opts,
		addr:        addr,
		started:     time.Now(),
	}
	s.frameCtx, s.stopFrames = context.WithCancel(context.Background())
	s.driver = anim.New(c, s, animOpts)
	return s
}

// Driver returns the animation driver
func (s *Server) Driver() *anim.Driver {
	return s.driver
}

// Handler returns the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register UI routes
	mux.HandleFunc("/", s.handleIndex)

	// Register API routes
	mux.HandleFunc("/api/v1/points", s.handlePoints)
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Wrap with middleware
	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the frame loop and the HTTP server. It blocks until the
// server is shut down. If the listener fails, the frame loop is stopped
// before the error is returned.
func (s *Server) Start() error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runFrames(s.frameCtx)
	}()

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	s.mu.Lock()
	s.framesDone = done
	s.server = srv
	s.mu.Unlock()

	slog.Info("Starting HTTP server", "addr", s.addr, "fps", int(time.Second/s.opts.FrameInterval))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.stopFrames()
		<-done
	}
	return err
}

// Shutdown gracefully shuts down the server and stops the frame loop
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	s.stopFrames()

	s.mu.Lock()
	srv, done := s.server, s.framesDone
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	s.broadcaster.Close()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// Draw implements anim.Renderer by publishing throttled frames to stream
// subscribers. It runs on the frame goroutine after the driver unlocked.
func (s *Server) Draw(points sphere.PointSet) {
	s.streamMu.Lock()
	now := time.Now()
	if s.opts.StreamInterval > 0 && now.Sub(s.lastStream) < s.opts.StreamInterval {
		s.streamMu.Unlock()
		return
	}
	s.lastStream = now
	s.streamMu.Unlock()

	s.broadcaster.Broadcast(s.frameEvent(points))
}

func (s *Server) frameEvent(points sphere.PointSet) FrameEvent {
	s.streamMu.Lock()
	s.seq++
	seq := s.seq
	s.streamMu.Unlock()

	return FrameEvent{
		Seq:       seq,
		Points:    encodePoints(points),
		Frame:     s.driver.Snapshot(),
		Timestamp: time.Now(),
	}
}

// PointsResponse is returned by GET /api/v1/points
type PointsResponse struct {
	Points [][3]float64 `json:"points"`
	Target [][3]float64 `json:"target"`
	Frame  anim.Frame   `json:"frame"`
}

// ChangeResponse is returned when a point is added or removed
type ChangeResponse struct {
	RequestID uint64 `json:"requestId"`
	Points    int    `json:"points"`
}

// StatusResponse is returned by GET /api/v1/status
type StatusResponse struct {
	Frame   anim.Frame  `json:"frame"`
	Stats   coord.Stats `json:"stats"`
	Pending int         `json:"pending"`
	Clients int         `json:"clients"`
	Uptime  float64     `json:"uptime"`
}

// handlePoints handles /api/v1/points
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetPoints(w, r)
	case http.MethodPost:
		s.handleAddPoint(w, r)
	case http.MethodDelete:
		s.handleRemovePoint(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetPoints handles GET /api/v1/points
func (s *Server) handleGetPoints(w http.ResponseWriter, r *http.Request) {
	frame := s.driver.Snapshot()
	writeJSON(w, http.StatusOK, PointsResponse{
		Points: encodePoints(frame.Points),
		Target: encodePoints(s.driver.Target()),
		Frame:  frame,
	})
}

// handleAddPoint handles POST /api/v1/points
func (s *Server) handleAddPoint(w http.ResponseWriter, r *http.Request) {
	t := s.driver.AddPoint()
	writeJSON(w, http.StatusAccepted, ChangeResponse{
		RequestID: t.ID(),
		Points:    t.Points(),
	})
}

// handleRemovePoint handles DELETE /api/v1/points
func (s *Server) handleRemovePoint(w http.ResponseWriter, r *http.Request) {
	t := s.driver.RemovePoint()
	if t == nil {
		http.Error(w, "Cannot remove the last point", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, ChangeResponse{
		RequestID: t.ID(),
		Points:    t.Points(),
	})
}

// handleStatus handles GET /api/v1/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Frame:   s.driver.Snapshot(),
		Stats:   s.coord.Stats(),
		Pending: s.coord.Pending(),
		Clients: s.broadcaster.Clients(),
		Uptime:  time.Since(s.started).Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
