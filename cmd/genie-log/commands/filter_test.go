package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunFilterByConnection(t *testing.T) {
	path := writeTestLog(t)
	out := filepath.Join(t.TempDir(), "filtered.cborlog")

	err := RunFilter(path, FilterOptions{Output: out, ConnID: "conn-1"})
	if err != nil {
		t.Fatalf("RunFilter() error: %v", err)
	}

	var buf bytes.Buffer
	if err := RunView(out, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView() on filtered file: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "conn-1") {
		t.Errorf("conn-1 events missing:\n%s", output)
	}
	if strings.Contains(output, "conn-2") {
		t.Errorf("conn-2 events not filtered:\n%s", output)
	}
}

func TestRunFilterByCommand(t *testing.T) {
	path := writeTestLog(t)
	out := filepath.Join(t.TempDir(), "filtered.cborlog")

	err := RunFilter(path, FilterOptions{Output: out, Command: "get_scene_context"})
	if err != nil {
		t.Fatalf("RunFilter() error: %v", err)
	}

	var buf bytes.Buffer
	if err := RunView(out, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView() on filtered file: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "get_scene_context") {
		t.Errorf("command events missing:\n%s", output)
	}
	if strings.Contains(output, "dial refused") {
		t.Errorf("non-message events not filtered:\n%s", output)
	}
}

func TestRunFilterInvalidTime(t *testing.T) {
	path := writeTestLog(t)
	out := filepath.Join(t.TempDir(), "filtered.cborlog")

	err := RunFilter(path, FilterOptions{Output: out, TimeStart: "yesterday"})
	if err == nil {
		t.Error("expected error for invalid time format")
	}
}
