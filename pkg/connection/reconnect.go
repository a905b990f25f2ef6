package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrManagerClosed    = errors.New("connection manager closed")
	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")
)

// DefaultAttemptTimeout bounds a single automatic reconnection attempt.
const DefaultAttemptTimeout = 30 * time.Second

// State is the manager's view of the connection lifecycle. It sits above
// the transport's own state machine: Reconnecting exists only here, while
// the transport cycles through its connect states underneath.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc runs one connection attempt.
// It returns nil on success or an error describing the failure.
type ConnectFunc func(ctx context.Context) error

// Manager tracks connection lifecycle and drives retries.
//
// Retry is manual by default: failed attempts stay failed until Connect is
// called again, and the failure text is retained for display. Automatic
// reconnection with backoff is opt-in via SetAutoReconnect.
type Manager struct {
	mu sync.RWMutex

	state State

	// lastError holds the most recent failure text. Cleared when an
	// attempt succeeds, retained across manual retries so the console can
	// show why the last one failed.
	lastError string

	backoff        *Backoff
	connectFn      ConnectFunc
	autoReconnect  bool
	attemptTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// reconnectCh wakes the reconnect loop; buffered so a loss reported
	// while an attempt is running coalesces instead of queueing.
	reconnectCh chan struct{}

	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
}

// NewManager creates a new connection manager.
func NewManager(connectFn ConnectFunc) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		state:          StateDisconnected,
		backoff:        NewBackoff(),
		connectFn:      connectFn,
		attemptTimeout: DefaultAttemptTimeout,
		ctx:            ctx,
		cancel:         cancel,
		reconnectCh:    make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if currently connected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

// LastError returns the text of the most recent failed attempt, or the
// empty string when the last attempt succeeded.
func (m *Manager) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// SetAutoReconnect enables or disables automatic reconnection.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// Connect runs one connection attempt.
// Returns ErrAlreadyConnected if already connected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrManagerClosed
	}

	oldState := m.state
	m.state = StateConnecting
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateConnecting)

	err := m.connectFn(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateDisconnected
		m.lastError = err.Error()
		m.mu.Unlock()
		m.notifyStateChange(StateConnecting, StateDisconnected)
		return err
	}

	m.state = StateConnected
	m.lastError = ""
	m.backoff.Reset()
	m.mu.Unlock()

	m.notifyStateChange(StateConnecting, StateConnected)
	if m.onConnected != nil {
		m.onConnected()
	}

	return nil
}

// Disconnect records a deliberate disconnect.
// A deliberate disconnect never triggers automatic reconnection.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	m.state = StateDisconnected
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateDisconnected)
	if m.onDisconnected != nil {
		m.onDisconnected()
	}
}

// NotifyConnectionLost should be called when an unexpected connection loss
// is detected. This triggers automatic reconnection if enabled; otherwise
// the manager settles in Disconnected and waits for a manual Connect.
func (m *Manager) NotifyConnectionLost(reason string) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	autoReconnect := m.autoReconnect
	m.lastError = reason

	if autoReconnect {
		m.state = StateReconnecting
	} else {
		m.state = StateDisconnected
	}
	newState := m.state
	m.mu.Unlock()

	m.notifyStateChange(oldState, newState)
	if m.onDisconnected != nil {
		m.onDisconnected()
	}

	if autoReconnect {
		m.triggerReconnect()
	}
}

// StartReconnectLoop starts the background reconnection loop.
// Must be called once before automatic reconnection will work.
func (m *Manager) StartReconnectLoop() {
	m.wg.Add(1)
	go m.reconnectLoop()
}

// Close shuts down the connection manager.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	m.state = StateClosed
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateClosed)

	m.cancel()
	m.wg.Wait()
}

func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
		// already pending
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.attemptReconnect()
		}
	}
}

// attemptReconnect retries until connected, closed, or the context ends.
func (m *Manager) attemptReconnect() {
	for {
		m.mu.RLock()
		state := m.state
		m.mu.RUnlock()

		if state == StateClosed || state == StateConnected {
			return
		}

		delay := m.backoff.Next()
		attempts := m.backoff.Attempts()

		if m.onReconnecting != nil {
			m.onReconnecting(attempts, delay)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		m.mu.Lock()
		if m.state == StateClosed || m.state == StateConnected {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(m.ctx, m.attemptTimeout)
		err := m.connectFn(ctx)
		cancel()

		if err == nil {
			m.mu.Lock()
			oldState := m.state
			m.state = StateConnected
			m.lastError = ""
			m.backoff.Reset()
			m.mu.Unlock()

			m.notifyStateChange(oldState, StateConnected)
			if m.onConnected != nil {
				m.onConnected()
			}
			return
		}

		m.mu.Lock()
		m.lastError = err.Error()
		m.mu.Unlock()
	}
}

func (m *Manager) notifyStateChange(oldState, newState State) {
	if m.onStateChange != nil {
		m.onStateChange(oldState, newState)
	}
}

// OnStateChange registers a callback invoked on every state transition.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected registers a callback invoked after each successful connect.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected registers a callback invoked when the connection ends,
// deliberately or not.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting registers a callback invoked before each automatic
// attempt, with the attempt number and the delay about to be waited.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// BackoffAttempts reports how many automatic attempts have run since the
// last successful connect.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}
