package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/game-genie/genie-go/pkg/wire"
)

// Dispatcher errors.
var (
	ErrDispatcherClosed = errors.New("dispatcher is closed")
	ErrDuplicateHandler = errors.New("handler already registered")
)

// DefaultMaxInFlight is the default bound on concurrently running handlers.
const DefaultMaxInFlight = 8

// HandlerFunc executes one command. The params map is the decoded params
// object of the envelope; it must not be retained past the call.
type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

// HandlerError wraps a failure produced by a handler, carrying the command
// name for the failure response.
type HandlerError struct {
	Command string
	Err     error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying cause.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Dispatcher routes commands through a fixed handler table.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	closed   bool

	// Bounds concurrently running handlers
	slots *semaphore.Weighted

	// Tracks in-flight tasks for Drain
	wg sync.WaitGroup

	logger *slog.Logger
}

// New creates a dispatcher with the given in-flight bound.
// A bound of zero or less uses DefaultMaxInFlight.
func New(maxInFlight int64, logger *slog.Logger) *Dispatcher {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		slots:    semaphore.NewWeighted(maxInFlight),
		logger:   logger,
	}
}

// Register adds a handler to the table. The table is fixed once serving
// starts; registering a duplicate name is an error.
func (d *Dispatcher) Register(command string, fn HandlerFunc) error {
	if command == "" {
		return wire.ErrEmptyCommand
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[command]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, command)
	}
	d.handlers[command] = fn
	return nil
}

// Commands returns the registered command names.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch runs the handler for one command envelope and returns the
// response to send, or nil when no response is owed.
//
// An unknown command name is silently ignored. A handler error or panic
// becomes a failure response carrying the command's message_id; neither
// terminates the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd *wire.Command) *wire.Response {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil
	}
	fn, ok := d.handlers[cmd.Command]
	d.mu.RUnlock()

	if !ok {
		// Unknown commands are dropped without a response or error.
		d.logger.Debug("unknown command ignored", "command", cmd.Command)
		return nil
	}

	msgID := cmd.MessageID()

	// Track the task before it can queue on the semaphore, so Drain also
	// waits for dispatches still holding a seat in line.
	d.wg.Add(1)
	defer d.wg.Done()

	if err := d.slots.Acquire(ctx, 1); err != nil {
		return wire.ErrorResponse(cmd.Command, msgID, "dispatcher shutting down")
	}
	defer d.slots.Release(1)

	// Drain may have started while this dispatch was queued.
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return wire.ErrorResponse(cmd.Command, msgID, "dispatcher shutting down")
	}

	result, err := d.runHandler(ctx, cmd.Command, fn, cmd.Params)
	if err != nil {
		d.logger.Warn("handler failed", "command", cmd.Command, "error", err)
		return wire.ErrorResponse(cmd.Command, msgID, err.Error())
	}

	return wire.SuccessResponse(cmd.Command, msgID, result)
}

// runHandler invokes the handler with panic containment.
func (d *Dispatcher) runHandler(ctx context.Context, command string, fn HandlerFunc, params map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Command: command, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = fn(ctx, params)
	if err != nil {
		err = &HandlerError{Command: command, Err: err}
	}
	return result, err
}

// Drain waits for all in-flight handlers to finish, or for the context to
// expire. New dispatches are rejected once draining starts.
func (d *Dispatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
