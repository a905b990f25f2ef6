package wire

import (
	"errors"
	"fmt"
)

// Envelope type tags.
const (
	// TypeHandshake identifies the handshake envelope.
	TypeHandshake = "handshake"

	// TypeResponse identifies the response envelope.
	TypeResponse = "response"
)

// MessageIDKey is the params key carrying the caller-supplied correlation ID.
const MessageIDKey = "message_id"

// Message validation errors.
var (
	// ErrEmptyCommand indicates a command envelope without a command name.
	ErrEmptyCommand = errors.New("command name is empty")
)

// Handshake is the first envelope sent after a connection is established,
// identifying the client to the agent server.
type Handshake struct {
	Type    string `json:"type"`
	Client  string `json:"client"`
	Version string `json:"version"`
}

// NewHandshake creates a handshake envelope for the given client identity.
func NewHandshake(client, version string) *Handshake {
	return &Handshake{
		Type:    TypeHandshake,
		Client:  client,
		Version: version,
	}
}

// Command is an inbound command envelope. It is immutable once parsed;
// handlers receive the Params map but must not retain or mutate it.
type Command struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// Validate checks the command envelope for structural validity.
func (c *Command) Validate() error {
	if c.Command == "" {
		return ErrEmptyCommand
	}
	return nil
}

// MessageID returns the caller-supplied correlation ID from params.
// Absent or non-string values default to the empty string; uniqueness is
// not guaranteed by the protocol.
func (c *Command) MessageID() string {
	if c.Params == nil {
		return ""
	}
	if id, ok := c.Params[MessageIDKey].(string); ok {
		return id
	}
	return ""
}

// StringParam returns the named param as a string.
// Missing or non-string values degrade to the empty string rather than
// failing; handlers document this per parameter.
func (c *Command) StringParam(key string) string {
	if c.Params == nil {
		return ""
	}
	if s, ok := c.Params[key].(string); ok {
		return s
	}
	return ""
}

// ResponseData is the payload of a response envelope.
type ResponseData struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is an outbound response envelope. Exactly one response is sent
// per command envelope that carries a message_id.
type Response struct {
	Type      string       `json:"type"`
	Command   string       `json:"command"`
	MessageID string       `json:"message_id"`
	Data      ResponseData `json:"data"`
}

// SuccessResponse builds a success response for a command.
func SuccessResponse(command, messageID string, result any) *Response {
	return &Response{
		Type:      TypeResponse,
		Command:   command,
		MessageID: messageID,
		Data: ResponseData{
			Success: true,
			Result:  result,
		},
	}
}

// ErrorResponse builds a failure response for a command.
func ErrorResponse(command, messageID, errText string) *Response {
	return &Response{
		Type:      TypeResponse,
		Command:   command,
		MessageID: messageID,
		Data: ResponseData{
			Success: false,
			Error:   errText,
		},
	}
}

// MessageKind classifies a decoded envelope.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindCommand
	KindResponse
	KindHandshake
)

// String returns the kind name.
func (k MessageKind) String() string {
	switch k {
	case KindCommand:
		return "COMMAND"
	case KindResponse:
		return "RESPONSE"
	case KindHandshake:
		return "HANDSHAKE"
	default:
		return "UNKNOWN"
	}
}

// Message is a classified inbound envelope. Exactly one of the pointer
// fields is non-nil, matching Kind.
type Message struct {
	Kind      MessageKind
	Command   *Command
	Response  *Response
	Handshake *Handshake
}

// ProtocolError indicates a malformed frame. The connection survives a
// protocol error: the offending bytes are dropped and reading continues.
type ProtocolError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
