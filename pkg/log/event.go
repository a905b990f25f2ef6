package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (host:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"7,keyasint,omitempty"`  // Transport layer
	Message     *MessageEvent     `cbor:"8,keyasint,omitempty"`  // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"9,keyasint,omitempty"`  // Connection/execution state
	ControlMsg  *ControlMsgEvent  `cbor:"10,keyasint,omitempty"` // Ping/pong/close
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"` // Errors at any layer
}

// Direction tells whether the event concerns data arriving from the agent
// or leaving the bridge.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer names where in the stack the event was captured: raw websocket
// fragments, decoded JSON envelopes, or the dispatch/handler layer.
type Layer uint8

const (
	LayerTransport Layer = 0
	LayerWire      Layer = 1
	LayerService   Layer = 2
)

func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event: a protocol envelope, a websocket control
// frame, a state transition, or an error.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryControl Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw fragment data at the transport layer.
type FrameEvent struct {
	// Size is the logical message size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw message bytes (may be truncated for large messages).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded envelope at the wire layer.
type MessageEvent struct {
	// Kind distinguishes command/response/handshake.
	Kind string `cbor:"1,keyasint"`

	// Command is the command name the envelope refers to.
	Command string `cbor:"2,keyasint,omitempty"`

	// MessageID correlates command/response pairs (empty when absent).
	MessageID string `cbor:"3,keyasint,omitempty"`

	// Success is the response outcome (responses only).
	Success *bool `cbor:"4,keyasint,omitempty"`

	// ProcessingTime is the duration from command receipt to response send
	// (responses only). Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures connection and execution lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity distinguishes connection state transitions from sandbox
// execution stage transitions.
type StateEntity uint8

const (
	StateEntityConnection StateEntity = 0
	StateEntityExecution  StateEntity = 1
)

func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityExecution:
		return "EXECUTION"
	default:
		return "UNKNOWN"
	}
}

// ControlMsgEvent captures transport-level control frames.
type ControlMsgEvent struct {
	// Type of control frame.
	Type ControlMsgType `cbor:"1,keyasint"`

	// CloseCode is the close status code for close frames.
	CloseCode *int `cbor:"2,keyasint,omitempty"`
}

// ControlMsgType is the websocket control frame kind.
type ControlMsgType uint8

const (
	ControlMsgPing  ControlMsgType = 0
	ControlMsgPong  ControlMsgType = 1
	ControlMsgClose ControlMsgType = 2
)

func (c ControlMsgType) String() string {
	switch c {
	case ControlMsgPing:
		return "PING"
	case ControlMsgPong:
		return "PONG"
	case ControlMsgClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
