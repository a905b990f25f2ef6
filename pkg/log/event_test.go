package log

import (
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	success := true
	procTime := 12 * time.Millisecond

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "frame event",
			event: Event{
				Timestamp:    time.Now().UTC(),
				ConnectionID: "conn-1",
				Direction:    DirectionIn,
				Layer:        LayerTransport,
				Category:     CategoryMessage,
				Frame:        &FrameEvent{Size: 42, Data: []byte(`{"command":"x"}`)},
			},
		},
		{
			name: "message event",
			event: Event{
				Timestamp:    time.Now().UTC(),
				ConnectionID: "conn-1",
				Direction:    DirectionOut,
				Layer:        LayerWire,
				Category:     CategoryMessage,
				Message: &MessageEvent{
					Kind:           "response",
					Command:        "get_scene_context",
					MessageID:      "7",
					Success:        &success,
					ProcessingTime: &procTime,
				},
			},
		},
		{
			name: "state change",
			event: Event{
				Timestamp:    time.Now().UTC(),
				ConnectionID: "conn-2",
				Layer:        LayerService,
				Category:     CategoryState,
				StateChange: &StateChangeEvent{
					Entity:   StateEntityConnection,
					OldState: "CONNECTING",
					NewState: "CONNECTED",
				},
			},
		},
		{
			name: "error event",
			event: Event{
				Timestamp:    time.Now().UTC(),
				ConnectionID: "conn-2",
				Layer:        LayerTransport,
				Category:     CategoryError,
				Error: &ErrorEventData{
					Layer:   LayerTransport,
					Message: "connection lost",
					Context: "health check",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}

			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}

			if got.ConnectionID != tt.event.ConnectionID {
				t.Errorf("ConnectionID = %q, want %q", got.ConnectionID, tt.event.ConnectionID)
			}
			if got.Category != tt.event.Category {
				t.Errorf("Category = %v, want %v", got.Category, tt.event.Category)
			}
			if tt.event.Message != nil {
				if got.Message == nil {
					t.Fatal("Message payload lost in round trip")
				}
				if got.Message.MessageID != tt.event.Message.MessageID {
					t.Errorf("MessageID = %q, want %q", got.Message.MessageID, tt.event.Message.MessageID)
				}
			}
			if tt.event.StateChange != nil && got.StateChange == nil {
				t.Error("StateChange payload lost in round trip")
			}
			if tt.event.Error != nil && got.Error == nil {
				t.Error("Error payload lost in round trip")
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	if DirectionIn.String() != "IN" || DirectionOut.String() != "OUT" {
		t.Error("direction names wrong")
	}
	if LayerTransport.String() != "TRANSPORT" || LayerService.String() != "SERVICE" {
		t.Error("layer names wrong")
	}
	if CategoryControl.String() != "CONTROL" || CategoryError.String() != "ERROR" {
		t.Error("category names wrong")
	}
	if StateEntityExecution.String() != "EXECUTION" {
		t.Error("state entity names wrong")
	}
	if ControlMsgClose.String() != "CLOSE" {
		t.Error("control type names wrong")
	}
}
