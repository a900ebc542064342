package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cwbudde/spheredist/internal/anim"
	"github.com/cwbudde/spheredist/internal/sphere"
	"github.com/google/uuid"
)

// FrameEvent is one animation frame sent to stream subscribers
type FrameEvent struct {
	Seq       uint64       `json:"seq"`
	Points    [][3]float64 `json:"points"`
	Frame     anim.Frame   `json:"frame"`
	Timestamp time.Time    `json:"timestamp"`
}

// EventBroadcaster fans frame events out to SSE subscribers
type EventBroadcaster struct {
	mu        sync.Mutex
	clients   map[string]chan FrameEvent // subscriber ID -> channel
	lastEvent *FrameEvent                // replayed to new subscribers
	closed    bool
}

// NewEventBroadcaster creates a new event broadcaster
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[string]chan FrameEvent),
	}
}

// Subscribe adds a client and returns its ID and event channel. The
// channel is closed by Unsubscribe or Close.
func (eb *EventBroadcaster) Subscribe() (string, chan FrameEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan FrameEvent, 10) // Buffered to prevent blocking

	if eb.closed {
		close(ch)
		return id, ch
	}
	eb.clients[id] = ch

	// Send last event so new clients draw immediately
	if eb.lastEvent != nil {
		select {
		case ch <- *eb.lastEvent:
		default:
		}
	}

	slog.Debug("SSE client subscribed", "client_id", id, "total_clients", len(eb.clients))
	return id, ch
}

// Unsubscribe removes a client
func (eb *EventBroadcaster) Unsubscribe(id string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if ch, ok := eb.clients[id]; ok {
		delete(eb.clients, id)
		close(ch)
		slog.Debug("SSE client unsubscribed", "client_id", id)
	}
}

// Broadcast sends an event to all subscribers. Slow subscribers miss events
// instead of blocking the frame loop.
func (eb *EventBroadcaster) Broadcast(event FrameEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.lastEvent = &event

	for id, ch := range eb.clients {
		select {
		case ch <- event:
		default:
			slog.Debug("SSE channel full, skipping frame", "client_id", id, "seq", event.Seq)
		}
	}
}

// Clients returns the number of subscribers
func (eb *EventBroadcaster) Clients() int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.clients)
}

// Close disconnects every subscriber
func (eb *EventBroadcaster) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for id, ch := range eb.clients {
		close(ch)
		delete(eb.clients, id)
	}
	slog.Debug("Closed SSE broadcaster")
}

func encodePoints(ps sphere.PointSet) [][3]float64 {
	out := make([][3]float64, len(ps))
	for i, p := range ps {
		out[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return out
}

// handleStream handles SSE connections for animation frames
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Get flusher
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, events := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(id)

	// Initial frame with the current state
	if err := writeSSEEvent(w, s.frameEvent(s.driver.Points())); err != nil {
		slog.Error("Failed to write initial SSE event", "error", err)
		return
	}
	flusher.Flush()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("SSE client disconnected", "client_id", id)
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("Failed to write SSE event", "error", err)
				return
			}
			flusher.Flush()

		case <-pingTicker.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes an event in SSE format
func writeSSEEvent(w http.ResponseWriter, event FrameEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// SSE format: "data: {json}\n\n"
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
