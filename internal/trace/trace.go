package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/spheredist/internal/coord"
	"github.com/google/uuid"
)

// Entry records the outcome of one dequeued optimization request.
// Each entry is serialized as a JSON line. Point coordinates are not stored.
type Entry struct {
	// Session identifies the process that wrote the entry
	Session string `json:"session"`

	// RequestID is the coordinator's request ID
	RequestID uint64 `json:"requestId"`

	// Points is the size of the requested configuration
	Points int `json:"points"`

	// Energy of the refined configuration, zero when no result was produced
	Energy float64 `json:"energy"`

	// Status is the backend's convergence status
	Status string `json:"status,omitempty"`

	Iterations int     `json:"iterations"`
	ElapsedMs  float64 `json:"elapsedMs"`

	// Outcome is the request's terminal state (completed, superseded, ...)
	Outcome string `json:"outcome"`

	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Writer writes trace entries to a JSONL file.
// It uses buffered I/O and is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	path    string
	session string
}

// NewWriter creates a trace writer at path with a fresh session ID.
// If append is true, new entries are appended to an existing file.
func NewWriter(path string, append bool) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
	}

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &Writer{
		file:    file,
		writer:  bufio.NewWriterSize(file, 64*1024),
		path:    path,
		session: uuid.New().String(),
	}, nil
}

// Session returns the session ID stamped on entries
func (w *Writer) Session() string {
	return w.session
}

// Path returns the filesystem path to the trace file.
func (w *Writer) Path() string {
	return w.path
}

// Write appends an entry. Session and Timestamp are filled in when empty.
// The entry is buffered and will be written on Flush() or Close().
func (w *Writer) Write(entry Entry) error {
	if entry.Session == "" {
		entry.Session = w.session
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Record converts a coordinator event to an entry and writes it. Write
// errors are logged, so Record can be used directly as coord.Options.OnEvent.
func (w *Writer) Record(e coord.Event) {
	entry := Entry{
		RequestID: e.ID,
		Points:    e.Points,
		Outcome:   string(e.State),
		Timestamp: e.Finished,
	}
	if e.Result != nil {
		entry.Energy = e.Result.Energy
		entry.Status = string(e.Result.Status)
		entry.Iterations = e.Result.Iterations
		entry.ElapsedMs = float64(e.Result.Elapsed) / float64(time.Millisecond)
	}
	if e.Err != nil {
		entry.Error = e.Err.Error()
	}

	if err := w.Write(entry); err != nil {
		slog.Error("Failed to write trace entry", "request_id", e.ID, "error", err)
	}
}

// Flush writes any buffered data to the file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the trace file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// NotFoundError represents a missing trace file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return "trace not found: " + e.Path
	}
	return "trace not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ErrNotFound matches any *NotFoundError with errors.Is
var ErrNotFound = &NotFoundError{}

// Reader reads trace entries from a JSONL file.
type Reader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewReader opens the trace file at path
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{
		file:    file,
		scanner: scanner,
	}, nil
}

// Read reads the next entry.
// Returns io.EOF when no more entries are available.
func (r *Reader) Read() (*Entry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan trace line: %w", err)
		}
		return nil, io.EOF
	}

	var entry Entry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads all remaining entries.
func (r *Reader) ReadAll() ([]Entry, error) {
	var entries []Entry

	for {
		entry, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

// Close closes the trace reader.
func (r *Reader) Close() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// SessionSummary aggregates the entries of one session
type SessionSummary struct {
	Session    string
	Requests   int
	Completed  int
	Superseded int
	Failed     int
	LastEnergy float64 // energy of the last completed request
	MaxPoints  int
	Start      time.Time
	End        time.Time
}

// Summarize groups entries by session, ordered by first timestamp
func Summarize(entries []Entry) []SessionSummary {
	byID := make(map[string]*SessionSummary)
	var order []*SessionSummary

	for _, e := range entries {
		s, ok := byID[e.Session]
		if !ok {
			s = &SessionSummary{Session: e.Session, Start: e.Timestamp}
			byID[e.Session] = s
			order = append(order, s)
		}

		s.Requests++
		switch coord.RequestState(e.Outcome) {
		case coord.StateCompleted:
			s.Completed++
			s.LastEnergy = e.Energy
		case coord.StateSuperseded:
			s.Superseded++
		case coord.StateFailed:
			s.Failed++
		}
		if e.Points > s.MaxPoints {
			s.MaxPoints = e.Points
		}
		if e.Timestamp.Before(s.Start) {
			s.Start = e.Timestamp
		}
		if e.Timestamp.After(s.End) {
			s.End = e.Timestamp
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Start.Before(order[j].Start)
	})

	out := make([]SessionSummary, len(order))
	for i, s := range order {
		out[i] = *s
	}
	return out
}
