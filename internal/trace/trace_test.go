package trace

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/spheredist/internal/coord"
	"github.com/cwbudde/spheredist/internal/opt"
)

func TestWriter_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "session.jsonl")

	writer, err := NewWriter(path, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []Entry{
		{RequestID: 1, Points: 2, Energy: 128, Status: "converged", Outcome: "completed"},
		{RequestID: 2, Points: 3, Outcome: "superseded"},
		{RequestID: 3, Points: 4, Energy: 300.5, Status: "iteration-limit", Iterations: 500, Outcome: "completed"},
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Trace file not created: %s", path)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	got, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}

	for i, e := range got {
		if e.RequestID != entries[i].RequestID {
			t.Errorf("Entry %d: expected request %d, got %d", i, entries[i].RequestID, e.RequestID)
		}
		if e.Energy != entries[i].Energy {
			t.Errorf("Entry %d: expected energy %f, got %f", i, entries[i].Energy, e.Energy)
		}
		if e.Session != writer.Session() {
			t.Errorf("Entry %d: expected session %s, got %s", i, writer.Session(), e.Session)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("Entry %d: timestamp not filled in", i)
		}
	}
}

func TestWriter_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")

	for i := 0; i < 2; i++ {
		writer, err := NewWriter(path, true)
		if err != nil {
			t.Fatalf("Failed to create trace writer: %v", err)
		}
		if err := writer.Write(Entry{RequestID: uint64(i + 1), Outcome: "completed"}); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("Failed to close writer: %v", err)
		}
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Session == entries[1].Session {
		t.Error("Expected each writer to use its own session")
	}
}

func TestWriter_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	writer, err := NewWriter(path, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	finished := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	writer.Record(coord.Event{
		ID:     7,
		Points: 2,
		State:  coord.StateCompleted,
		Result: &coord.Result{
			ID:         7,
			Energy:     128,
			Iterations: 12,
			Status:     opt.StatusConverged,
			Elapsed:    1500 * time.Microsecond,
		},
		Finished: finished,
	})
	writer.Record(coord.Event{ID: 8, Points: 3, State: coord.StateFailed, Err: errors.New("boom"), Finished: finished})

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	e, err := reader.Read()
	if err != nil {
		t.Fatalf("Failed to read entry: %v", err)
	}
	if e.RequestID != 7 || e.Energy != 128 || e.Status != "converged" || e.Iterations != 12 || e.Outcome != "completed" {
		t.Errorf("Unexpected entry: %+v", e)
	}
	if e.ElapsedMs != 1.5 {
		t.Errorf("Expected 1.5ms, got %v", e.ElapsedMs)
	}
	if !e.Timestamp.Equal(finished) {
		t.Errorf("Expected timestamp %v, got %v", finished, e.Timestamp)
	}

	e, err = reader.Read()
	if err != nil {
		t.Fatalf("Failed to read entry: %v", err)
	}
	if e.Outcome != "failed" || e.Error != "boom" {
		t.Errorf("Unexpected failure entry: %+v", e)
	}

	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestReader_NotFound(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.jsonl"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestReader_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	if _, err := reader.ReadAll(); err == nil {
		t.Error("Expected error for invalid JSON line")
	}
}

func TestSummarize(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Session: "b", RequestID: 1, Points: 3, Outcome: "completed", Energy: 300, Timestamp: t0.Add(time.Hour)},
		{Session: "a", RequestID: 1, Points: 2, Outcome: "superseded", Timestamp: t0},
		{Session: "a", RequestID: 2, Points: 3, Outcome: "completed", Energy: 250, Timestamp: t0.Add(time.Second)},
		{Session: "a", RequestID: 3, Points: 4, Outcome: "failed", Timestamp: t0.Add(2 * time.Second)},
	}

	sums := Summarize(entries)
	if len(sums) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sums))
	}

	a := sums[0]
	if a.Session != "a" {
		t.Fatalf("Expected session a first, got %s", a.Session)
	}
	if a.Requests != 3 || a.Completed != 1 || a.Superseded != 1 || a.Failed != 1 {
		t.Errorf("Unexpected counts: %+v", a)
	}
	if a.LastEnergy != 250 || a.MaxPoints != 4 {
		t.Errorf("Unexpected energy or size: %+v", a)
	}
	if got := a.End.Sub(a.Start); got != 2*time.Second {
		t.Errorf("Expected 2s span, got %v", got)
	}
}
