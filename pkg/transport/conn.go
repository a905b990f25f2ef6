package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/game-genie/genie-go/pkg/log"
	"github.com/game-genie/genie-go/pkg/wire"
)

// Connection states.
type ConnectionState int32

const (
	// StateDisconnected indicates no connection.
	StateDisconnected ConnectionState = iota

	// StateConnecting indicates connection in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateClosing indicates graceful close in progress.
	StateClosing
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Connection errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrConnectionLost   = errors.New("connection lost")
)

// ConnectionError wraps a transport-level failure with the operation that
// produced it. Transport failures are the only errors that terminate a
// connection.
type ConnectionError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Framing constants.
const (
	// DefaultMaxMessageSize is the default maximum logical message size (1 MB).
	DefaultMaxMessageSize = 1 << 20

	// MaxLogFrameDataSize is the maximum message data size to include in logs (4 KB).
	// Larger messages are truncated in log events to avoid excessive memory usage.
	MaxLogFrameDataSize = 4096

	// readChunkSize is the fragment size fed into the wire decoder.
	readChunkSize = 8192
)

// Config configures a bridge connection.
type Config struct {
	// ClientName identifies this client in the handshake envelope.
	ClientName string

	// ClientVersion is reported in the handshake envelope.
	ClientVersion string

	// ConnectTimeout is the hard upper bound on connection establishment
	// (default: 8s).
	ConnectTimeout time.Duration

	// WriteTimeout is the timeout for write operations (default: 10s).
	WriteTimeout time.Duration

	// CloseTimeout is the timeout for graceful close (default: 5s).
	CloseTimeout time.Duration

	// MaxMessageSize is the maximum logical message size (default: 1MB).
	MaxMessageSize int64

	// HealthCheck configuration.
	HealthCheck HealthCheckConfig

	// ProtocolLogger receives wire-level trace events. Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns the default connection configuration.
func DefaultConfig() Config {
	return Config{
		ClientName:     "Unity",
		ClientVersion:  "0.3.0",
		ConnectTimeout: 8 * time.Second,
		WriteTimeout:   10 * time.Second,
		CloseTimeout:   5 * time.Second,
		MaxMessageSize: DefaultMaxMessageSize,
		HealthCheck:    DefaultHealthCheckConfig(),
	}
}

// Handler handles connection events.
type Handler interface {
	// OnMessage is called for each decoded inbound envelope.
	OnMessage(msg *wire.Message)

	// OnStateChange is called when the connection state changes.
	OnStateChange(oldState, newState ConnectionState)

	// OnError is called when an error occurs.
	OnError(err error)
}

// Conn is a single long-lived duplex connection to the agent server.
// A Conn is reusable: after disconnecting, Connect may be called again.
type Conn struct {
	config  Config
	handler Handler

	// Network connection
	ws      *websocket.Conn
	decoder *wire.Decoder
	connID  string
	remote  string

	// Health monitoring
	health *HealthCheck

	// State
	state     atomic.Int32
	lastErr   string
	closeOnce *sync.Once
	closeDone chan struct{}

	// Synchronization
	mu      sync.RWMutex
	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewConn creates a new connection (not yet connected).
func NewConn(config Config, handler Handler) *Conn {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 8 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.CloseTimeout == 0 {
		config.CloseTimeout = 5 * time.Second
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}

	c := &Conn{
		config:    config,
		handler:   handler,
		closeOnce: &sync.Once{},
		closeDone: make(chan struct{}),
	}
	c.state.Store(int32(StateDisconnected))

	return c
}

// State returns the current connection state.
func (c *Conn) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// IsConnected returns true while the connection is established.
func (c *Conn) IsConnected() bool {
	return c.State() == StateConnected
}

// LastError returns the text of the most recent connection failure.
func (c *Conn) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// ConnectionID returns the identifier assigned to the current connection.
func (c *Conn) ConnectionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connID
}

// endpointURL builds the websocket URL for a host:port address.
func endpointURL(address string) string {
	if strings.Contains(address, "://") {
		return address
	}
	u := url.URL{Scheme: "ws", Host: address}
	return u.String()
}

// Connect establishes a connection to the specified host:port address and
// emits the handshake envelope. Calling Connect while already connecting or
// connected is a no-op returning ErrAlreadyConnected.
func (c *Conn) Connect(ctx context.Context, address string) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}

	// The connection's internal context is owned by the Conn and ends only
	// on ForceClose. The caller's ctx bounds establishment alone; tying the
	// lifetime to it would let a reconnect attempt's cancel kill the read
	// loop of a connection that just came up.
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.closeOnce = &sync.Once{}
	c.closeDone = make(chan struct{})
	c.decoder = wire.NewDecoder()
	c.connID = uuid.NewString()
	c.remote = address
	c.mu.Unlock()

	c.notifyStateChange(StateDisconnected, StateConnecting, "")

	dialer := websocket.Dialer{HandshakeTimeout: c.config.ConnectTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	ws, _, err := dialer.DialContext(dialCtx, endpointURL(address), nil)
	if err != nil {
		connErr := &ConnectionError{Op: "dial", Err: err}
		c.setLastError(connErr)
		c.state.Store(int32(StateDisconnected))
		c.notifyStateChange(StateConnecting, StateDisconnected, connErr.Error())
		return connErr
	}

	ws.SetReadLimit(c.config.MaxMessageSize)

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()

	// Acknowledge a peer-initiated close with a close frame; the read loop
	// then unwinds on the resulting close error.
	ws.SetCloseHandler(func(code int, text string) error {
		c.logControl(log.ControlMsgClose, log.DirectionIn, &code)
		deadline := time.Now().Add(c.config.WriteTimeout)
		ack := websocket.FormatCloseMessage(code, "")
		_ = ws.WriteControl(websocket.CloseMessage, ack, deadline)
		c.logControl(log.ControlMsgClose, log.DirectionOut, &code)
		return nil
	})

	ws.SetPongHandler(func(appData string) error {
		c.logControl(log.ControlMsgPong, log.DirectionIn, nil)
		if hc := c.healthCheck(); hc != nil {
			hc.ReplyReceived(appData)
		}
		return nil
	})

	c.state.Store(int32(StateConnected))
	c.notifyStateChange(StateConnecting, StateConnected, "")

	// Handshake goes out immediately on entering Connected.
	if err := c.sendHandshake(); err != nil {
		connErr := &ConnectionError{Op: "handshake", Err: err}
		c.setLastError(connErr)
		c.ForceClose(connErr.Error())
		return connErr
	}

	c.startHealthCheck()

	go c.readLoop()

	return nil
}

// sendHandshake emits the fixed handshake envelope.
func (c *Conn) sendHandshake() error {
	data, err := wire.EncodeHandshake(wire.NewHandshake(c.config.ClientName, c.config.ClientVersion))
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Send writes one logical message over the connection.
// Writes are serialized: a single writer at a time touches the transport.
func (c *Conn) Send(data []byte) error {
	if c.State() != StateConnected && c.State() != StateClosing {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	ws := c.ws
	c.mu.RUnlock()

	if ws == nil {
		return ErrNotConnected
	}

	if c.config.WriteTimeout > 0 {
		ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		defer ws.SetWriteDeadline(time.Time{})
	}

	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return &ConnectionError{Op: "send", Err: err}
	}

	c.logFrame(data, log.DirectionOut)
	return nil
}

// Close gracefully closes the connection.
func (c *Conn) Close() error {
	return c.CloseWithTimeout(c.config.CloseTimeout)
}

// CloseWithTimeout gracefully closes with a specific timeout.
func (c *Conn) CloseWithTimeout(timeout time.Duration) error {
	currentState := c.State()
	if currentState == StateDisconnected {
		return nil
	}

	if c.state.CompareAndSwap(int32(StateConnected), int32(StateClosing)) {
		c.notifyStateChange(StateConnected, StateClosing, "")

		// Send close frame; the peer's ack unblocks the read loop.
		c.mu.RLock()
		ws := c.ws
		closeDone := c.closeDone
		c.mu.RUnlock()

		if ws != nil {
			deadline := time.Now().Add(timeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = ws.WriteControl(websocket.CloseMessage, msg, deadline)
			c.logControl(log.ControlMsgClose, log.DirectionOut, nil)
		}

		select {
		case <-closeDone:
		case <-time.After(timeout):
		}
	}

	c.ForceClose("")
	return nil
}

// ForceClose immediately closes the connection without graceful handshake.
// Cancelling the connection context aborts the active read wait and any
// outbound send awaiting completion.
func (c *Conn) ForceClose(reason string) {
	c.mu.RLock()
	once := c.closeOnce
	c.mu.RUnlock()

	once.Do(func() {
		currentState := c.State()

		if hc := c.healthCheck(); hc != nil {
			hc.Stop()
		}

		c.mu.Lock()
		if c.cancel != nil {
			c.cancel()
		}
		if c.ws != nil {
			c.ws.Close()
			c.ws = nil
		}
		c.health = nil
		c.mu.Unlock()

		c.state.Store(int32(StateDisconnected))
		if currentState != StateDisconnected {
			c.notifyStateChange(currentState, StateDisconnected, reason)
		}
	})
}

// startHealthCheck initializes and starts liveness monitoring.
func (c *Conn) startHealthCheck() {
	hc := NewHealthCheck(
		c.config.HealthCheck,
		func(seq string) error {
			c.mu.RLock()
			ws := c.ws
			c.mu.RUnlock()
			if ws == nil || c.State() != StateConnected {
				return ErrNotConnected
			}
			deadline := time.Now().Add(c.config.HealthCheck.ProbeTimeout)
			err := ws.WriteControl(websocket.PingMessage, []byte(seq), deadline)
			if err == nil {
				c.logControl(log.ControlMsgPing, log.DirectionOut, nil)
			}
			return err
		},
		func() {
			// Socket dropped to a non-open state while the connected flag
			// was still set.
			lostErr := &ConnectionError{Op: "health check", Err: ErrConnectionLost}
			c.setLastError(lostErr)
			c.handler.OnError(lostErr)
			c.ForceClose("connection lost")
		},
	)

	c.mu.Lock()
	c.health = hc
	ctx := c.ctx
	c.mu.Unlock()

	hc.Start(ctx)
}

// healthCheck returns the active health monitor, if any.
func (c *Conn) healthCheck() *HealthCheck {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// HealthStats returns liveness statistics for the active connection.
func (c *Conn) HealthStats() HealthStats {
	if hc := c.healthCheck(); hc != nil {
		return hc.Stats()
	}
	return HealthStats{}
}

// readLoop reads logical messages from the connection and delivers decoded
// envelopes to the handler. Steady-state receive has no timeout; it waits
// indefinitely for the next message and unblocks only on close.
func (c *Conn) readLoop() {
	c.mu.RLock()
	ws := c.ws
	decoder := c.decoder
	ctx := c.ctx
	closeDone := c.closeDone
	c.mu.RUnlock()

	defer close(closeDone)

	if ws == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			// Leaving the loop without tearing down would strand the
			// connection in Connected with no reader.
			c.ForceClose("")
			return
		default:
		}

		_, r, err := ws.NextReader()
		if err != nil {
			c.handleReadError(err)
			return
		}

		// The transport delivers the message as a fragment stream;
		// io.EOF is its end-of-message marker.
		size, ferr := c.feedFragments(decoder, r)
		if ferr != nil {
			c.handleReadError(ferr)
			return
		}

		msg, derr := decoder.EndMessage()
		if derr != nil {
			// Malformed frame: drop the bytes and continue reading.
			c.logError(derr, "decode")
			continue
		}
		if msg == nil {
			continue
		}

		c.logFrameSize(size, log.DirectionIn)
		c.logMessage(msg)
		c.handler.OnMessage(msg)
	}
}

// feedFragments copies one message's fragments into the decoder,
// concatenating them in arrival order. Returns the message size.
func (c *Conn) feedFragments(decoder *wire.Decoder, r io.Reader) (int, error) {
	var size int
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			decoder.Feed(buf[:n])
			size += n
		}
		if err == io.EOF {
			return size, nil
		}
		if err != nil {
			return size, &ConnectionError{Op: "read", Err: err}
		}
	}
}

// handleReadError classifies a read failure and tears the connection down.
func (c *Conn) handleReadError(err error) {
	if c.State() == StateClosing || c.ctxErr() != nil {
		// Expected during close.
		c.ForceClose("")
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		// Peer-initiated close; the close handler already acknowledged it.
		c.ForceClose("peer closed")
		return
	}

	connErr := &ConnectionError{Op: "read", Err: err}
	c.setLastError(connErr)
	c.handler.OnError(connErr)
	c.ForceClose(connErr.Error())
}

// ctxErr reports the connection context's error, if the context exists.
func (c *Conn) ctxErr() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ctx == nil {
		return nil
	}
	return c.ctx.Err()
}

// setLastError records the most recent connection failure text.
func (c *Conn) setLastError(err error) {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

// notifyStateChange notifies the handler and the protocol logger.
func (c *Conn) notifyStateChange(oldState, newState ConnectionState, reason string) {
	if c.config.ProtocolLogger != nil {
		c.config.ProtocolLogger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: c.connID,
			Layer:        log.LayerService,
			Category:     log.CategoryState,
			RemoteAddr:   c.remote,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				OldState: oldState.String(),
				NewState: newState.String(),
				Reason:   reason,
			},
		})
	}
	if c.handler != nil {
		c.handler.OnStateChange(oldState, newState)
	}
}

// logFrame records an outbound or inbound message at the transport layer.
func (c *Conn) logFrame(data []byte, direction log.Direction) {
	if c.config.ProtocolLogger == nil {
		return
	}

	frameData := data
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}

	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.remote,
		Frame: &log.FrameEvent{
			Size:      len(data),
			Data:      frameData,
			Truncated: truncated,
		},
	})
}

// logFrameSize records a message at the transport layer without payload bytes.
func (c *Conn) logFrameSize(size int, direction log.Direction) {
	if c.config.ProtocolLogger == nil {
		return
	}
	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.remote,
		Frame:        &log.FrameEvent{Size: size},
	})
}

// logMessage records a decoded envelope at the wire layer.
func (c *Conn) logMessage(msg *wire.Message) {
	if c.config.ProtocolLogger == nil {
		return
	}

	me := &log.MessageEvent{Kind: strings.ToLower(msg.Kind.String())}
	switch msg.Kind {
	case wire.KindCommand:
		me.Command = msg.Command.Command
		me.MessageID = msg.Command.MessageID()
	case wire.KindResponse:
		me.Command = msg.Response.Command
		me.MessageID = msg.Response.MessageID
		success := msg.Response.Data.Success
		me.Success = &success
	}

	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		RemoteAddr:   c.remote,
		Message:      me,
	})
}

// logControl records a control frame.
func (c *Conn) logControl(ctrlType log.ControlMsgType, direction log.Direction, closeCode *int) {
	if c.config.ProtocolLogger == nil {
		return
	}
	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		RemoteAddr:   c.remote,
		ControlMsg:   &log.ControlMsgEvent{Type: ctrlType, CloseCode: closeCode},
	})
}

// logError records an error event without terminating the connection.
func (c *Conn) logError(err error, context string) {
	if c.config.ProtocolLogger == nil {
		return
	}
	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		RemoteAddr:   c.remote,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: context,
		},
	})
}
