package log

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testEvent(connID string, category Category) Event {
	return Event{
		Timestamp:    time.Now().UTC(),
		ConnectionID: connID,
		Direction:    DirectionIn,
		Layer:        LayerWire,
		Category:     category,
		Message:      &MessageEvent{Kind: "command", Command: "read_file"},
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.cborlog")

	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	fl.Log(testEvent("a", CategoryMessage))
	fl.Log(testEvent("b", CategoryMessage))
	fl.Log(testEvent("a", CategoryError))
	if err := fl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Logging after close is silently ignored.
	fl.Log(testEvent("c", CategoryMessage))

	reader, err := NewFilteredReader(path, Filter{ConnectionID: "a"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var got []Event
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, ev)
	}

	if len(got) != 2 {
		t.Fatalf("got %d events for conn a, want 2", len(got))
	}
	if got[1].Category != CategoryError {
		t.Errorf("second event category = %v, want ERROR", got[1].Category)
	}
}

func TestMemoryLoggerEviction(t *testing.T) {
	ml := NewMemoryLogger(3)

	for i := 0; i < 5; i++ {
		ml.Log(testEvent(fmt.Sprintf("conn-%d", i), CategoryMessage))
	}

	events := ml.Events()
	if len(events) != 3 {
		t.Fatalf("retained %d events, want 3", len(events))
	}
	// Oldest two were evicted.
	if events[0].ConnectionID != "conn-2" || events[2].ConnectionID != "conn-4" {
		t.Errorf("wrong retained window: %q .. %q", events[0].ConnectionID, events[2].ConnectionID)
	}

	ml.Reset()
	if ml.Len() != 0 {
		t.Errorf("Len after reset = %d", ml.Len())
	}
}

func TestMemoryLoggerConcurrentProducers(t *testing.T) {
	ml := NewMemoryLogger(64)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ml.Log(testEvent("shared", CategoryMessage))
			}
		}()
	}
	wg.Wait()

	if ml.Len() != 64 {
		t.Errorf("Len = %d, want full capacity 64", ml.Len())
	}
}

func TestMultiLoggerFanOut(t *testing.T) {
	a := NewMemoryLogger(8)
	b := NewMemoryLogger(8)
	ml := NewMultiLogger(a, b, NoopLogger{})

	ml.Log(testEvent("x", CategoryMessage))

	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("fan-out lengths = %d, %d, want 1, 1", a.Len(), b.Len())
	}
}
