package wire

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeMessageClassification(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind MessageKind
	}{
		{
			name: "command",
			data: `{"command":"get_scene_context","params":{}}`,
			kind: KindCommand,
		},
		{
			name: "command with message_id",
			data: `{"command":"read_file","params":{"path":"Assets/Foo.cs","message_id":"7"}}`,
			kind: KindCommand,
		},
		{
			name: "response",
			data: `{"type":"response","command":"read_file","message_id":"7","data":{"success":true,"result":"ok"}}`,
			kind: KindResponse,
		},
		{
			name: "handshake",
			data: `{"type":"handshake","client":"Unity","version":"0.3.0"}`,
			kind: KindHandshake,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tt.data))
			if err != nil {
				t.Fatalf("DecodeMessage failed: %v", err)
			}
			if msg.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", msg.Kind, tt.kind)
			}
		})
	}
}

func TestDecodeMessageMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "truncated JSON", data: `{"command":"ge`},
		{name: "not JSON", data: `hello world`},
		{name: "empty object", data: `{}`},
		{name: "empty command name", data: `{"command":"","params":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessage([]byte(tt.data))
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ProtocolError, got %v", err)
			}
			if perr.Error() == "" {
				t.Error("protocol error has empty message")
			}
		})
	}
}

func TestCommandMessageID(t *testing.T) {
	cmd := &Command{
		Command: "get_scene_file",
		Params:  map[string]any{"message_id": "42"},
	}
	if got := cmd.MessageID(); got != "42" {
		t.Errorf("MessageID() = %q, want %q", got, "42")
	}

	// Absent or non-string IDs default to empty string.
	cmd = &Command{Command: "get_scene_file", Params: map[string]any{}}
	if got := cmd.MessageID(); got != "" {
		t.Errorf("MessageID() = %q, want empty", got)
	}
	cmd = &Command{Command: "get_scene_file", Params: map[string]any{"message_id": 42.0}}
	if got := cmd.MessageID(); got != "" {
		t.Errorf("MessageID() = %q, want empty for non-string", got)
	}
	cmd = &Command{Command: "get_scene_file"}
	if got := cmd.MessageID(); got != "" {
		t.Errorf("MessageID() = %q, want empty for nil params", got)
	}
}

func TestStringParamDefaults(t *testing.T) {
	cmd := &Command{
		Command: "add_script_to_project",
		Params:  map[string]any{"script_name": "Spawner", "count": 3.0},
	}

	if got := cmd.StringParam("script_name"); got != "Spawner" {
		t.Errorf("StringParam(script_name) = %q", got)
	}
	if got := cmd.StringParam("missing"); got != "" {
		t.Errorf("StringParam(missing) = %q, want empty", got)
	}
	if got := cmd.StringParam("count"); got != "" {
		t.Errorf("StringParam(count) = %q, want empty for non-string", got)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := SuccessResponse("get_scene_context", "9", map[string]any{"root": "Scene"})

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}

	decoded, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if decoded.Type != TypeResponse {
		t.Errorf("type = %q, want %q", decoded.Type, TypeResponse)
	}
	if decoded.Command != "get_scene_context" || decoded.MessageID != "9" {
		t.Errorf("envelope = %+v", decoded)
	}
	if !decoded.Data.Success {
		t.Error("expected success=true")
	}
}

func TestErrorResponseOmitsResult(t *testing.T) {
	resp := ErrorResponse("read_file", "", "file not found")

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}

	s := string(data)
	if strings.Contains(s, `"result"`) {
		t.Errorf("error response should omit result field: %s", s)
	}
	if !strings.Contains(s, `"message_id":""`) {
		t.Errorf("empty message_id must still be present: %s", s)
	}
	if !strings.Contains(s, `"success":false`) {
		t.Errorf("expected success=false: %s", s)
	}
}

func TestHandshakeEncode(t *testing.T) {
	data, err := EncodeHandshake(NewHandshake("Unity", "0.3.0"))
	if err != nil {
		t.Fatalf("EncodeHandshake failed: %v", err)
	}

	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if msg.Kind != KindHandshake {
		t.Fatalf("kind = %v, want handshake", msg.Kind)
	}
	if msg.Handshake.Client != "Unity" || msg.Handshake.Version != "0.3.0" {
		t.Errorf("handshake = %+v", msg.Handshake)
	}
}
