package logring

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// DefaultCapacity is the default number of lines the buffer retains.
const DefaultCapacity = 1000

// Level classifies a log line.
type Level uint8

const (
	// LevelInfo is a plain informational line.
	LevelInfo Level = iota
	// LevelWarning is a warning emitted by the host.
	LevelWarning
	// LevelError is an error emitted by the host.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Line is a single entry in the log buffer.
type Line struct {
	Time  time.Time
	Level Level
	Text  string
}

// TapFunc observes appended lines. Taps run synchronously on the appending
// goroutine and must return quickly.
type TapFunc func(Line)

// Buffer is a bounded ordered sequence of log lines.
// Safe for concurrent append and read.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	lines    []Line
	start    int
	count    int

	taps   map[int]TapFunc
	nextID int

	mirror *os.File
}

// NewBuffer creates a buffer retaining up to capacity lines.
// Non-positive capacities fall back to DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		lines:    make([]Line, capacity),
		taps:     make(map[int]TapFunc),
	}
}

// Append adds a line, evicting the oldest when full.
func (b *Buffer) Append(level Level, text string) {
	line := Line{Time: time.Now(), Level: level, Text: text}

	b.mu.Lock()
	idx := (b.start + b.count) % b.capacity
	b.lines[idx] = line
	if b.count < b.capacity {
		b.count++
	} else {
		b.start = (b.start + 1) % b.capacity
	}

	taps := make([]TapFunc, 0, len(b.taps))
	for _, tap := range b.taps {
		taps = append(taps, tap)
	}
	mirror := b.mirror
	b.mu.Unlock()

	for _, tap := range taps {
		tap(line)
	}

	if mirror != nil {
		// Mirror write failures do not disturb producers.
		fmt.Fprintf(mirror, "%s [%s] %s\n",
			line.Time.Format(time.RFC3339), line.Level, line.Text)
	}
}

// Appendf formats and appends a line.
func (b *Buffer) Appendf(level Level, format string, args ...any) {
	b.Append(level, fmt.Sprintf(format, args...))
}

// Lines returns a snapshot of retained lines, oldest first.
func (b *Buffer) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Line, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.lines[(b.start+i)%b.capacity]
	}
	return out
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Tap registers an observer for every subsequently appended line and
// returns a function that removes it.
func (b *Buffer) Tap(fn TapFunc) (remove func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.taps[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.taps, id)
		b.mu.Unlock()
	}
}

// MirrorToFile mirrors appended lines to the file at path, appending.
// Pass an empty path to use the per-platform default.
func (b *Buffer) MirrorToFile(path string) error {
	if path == "" {
		path = DefaultMirrorPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	b.mu.Lock()
	old := b.mirror
	b.mirror = f
	b.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// CloseMirror stops file mirroring.
func (b *Buffer) CloseMirror() error {
	b.mu.Lock()
	f := b.mirror
	b.mirror = nil
	b.mu.Unlock()

	if f != nil {
		return f.Close()
	}
	return nil
}

// DefaultMirrorPath resolves the platform-specific default mirror file.
func DefaultMirrorPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(base, "GameGenie", "bridge.log")
	}
	return filepath.Join(base, "game-genie", "bridge.log")
}
