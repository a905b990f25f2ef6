package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marshal encodes a value to JSON bytes.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON bytes into a value.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// EncodeHandshake encodes a handshake envelope to JSON bytes.
func EncodeHandshake(h *Handshake) ([]byte, error) {
	if h.Type == "" {
		h.Type = TypeHandshake
	}
	return Marshal(h)
}

// EncodeCommand encodes a command envelope to JSON bytes.
func EncodeCommand(cmd *Command) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}
	return Marshal(cmd)
}

// DecodeCommand decodes JSON bytes into a command envelope.
func DecodeCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := Unmarshal(data, &cmd); err != nil {
		return nil, &ProtocolError{Reason: "malformed command", Err: err}
	}
	if err := cmd.Validate(); err != nil {
		return nil, &ProtocolError{Reason: "invalid command", Err: err}
	}
	return &cmd, nil
}

// EncodeResponse encodes a response envelope to JSON bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	if resp.Type == "" {
		resp.Type = TypeResponse
	}
	return Marshal(resp)
}

// DecodeResponse decodes JSON bytes into a response envelope.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return nil, &ProtocolError{Reason: "malformed response", Err: err}
	}
	return &resp, nil
}

// DecodeMessage decodes one logical message and classifies it.
//
// Classification looks at the top-level fields:
//   - "type":"response"  -> Response
//   - "type":"handshake" -> Handshake
//   - "command" present  -> Command
//
// Anything else, including invalid JSON, fails with *ProtocolError.
func DecodeMessage(data []byte) (*Message, error) {
	var probe struct {
		Type    string `json:"type"`
		Command string `json:"command"`
	}
	if err := Unmarshal(data, &probe); err != nil {
		return nil, &ProtocolError{Reason: "malformed message", Err: err}
	}

	switch {
	case probe.Type == TypeResponse:
		resp, err := DecodeResponse(data)
		if err != nil {
			return nil, err
		}
		return &Message{Kind: KindResponse, Response: resp}, nil

	case probe.Type == TypeHandshake:
		var h Handshake
		if err := Unmarshal(data, &h); err != nil {
			return nil, &ProtocolError{Reason: "malformed handshake", Err: err}
		}
		return &Message{Kind: KindHandshake, Handshake: &h}, nil

	case probe.Command != "":
		cmd, err := DecodeCommand(data)
		if err != nil {
			return nil, err
		}
		return &Message{Kind: KindCommand, Command: cmd}, nil

	default:
		return nil, &ProtocolError{Reason: "unrecognized envelope"}
	}
}

// Decoder reassembles logical messages from transport fragments.
//
// The transport reports message boundaries; Feed appends raw fragment bytes
// in arrival order and EndMessage decodes the accumulated buffer when the
// transport signals end-of-message. Reassembly is boundary-invariant: any
// split of the same byte sequence produces the same envelope.
//
// Decoder is not safe for concurrent use; each connection read loop owns
// exactly one.
type Decoder struct {
	buf bytes.Buffer
}

// NewDecoder creates an empty message decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a raw fragment to the pending message buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf.Write(p)
}

// Buffered returns the number of pending bytes awaiting an end-of-message.
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}

// EndMessage decodes the buffered fragments as one logical message and
// resets the buffer. An empty buffer yields (nil, nil). On malformed input
// the buffered bytes are dropped and a *ProtocolError is returned; the
// decoder is immediately reusable for the next message.
func (d *Decoder) EndMessage() (*Message, error) {
	if d.buf.Len() == 0 {
		return nil, nil
	}
	data := d.buf.Bytes()
	msg, err := DecodeMessage(data)
	d.buf.Reset()
	return msg, err
}

// Equal compares two values by their JSON encoding.
func Equal(a, b any) bool {
	dataA, errA := Marshal(a)
	dataB, errB := Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(dataA, dataB)
}
