// Package transport provides the bridge transport layer implementation.
//
// The transport layer handles:
//   - Persistent websocket connections to the agent server
//   - Reassembly of message fragments into logical JSON envelopes
//   - Handshake emission on connect
//   - Polled health checks for silent connection loss
//   - Connection state management
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      JSON Envelopes            │
//	├────────────────────────────────┤
//	│   WebSocket message framing    │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// The websocket layer preserves message boundaries; the wire.Decoder
// concatenates fragments of one logical message in arrival order and
// decodes at the end-of-message marker the transport reports.
//
// # Connection Lifecycle
//
// A Conn moves through Disconnected -> Connecting -> Connected -> Closing.
// The handshake envelope is emitted immediately on entering Connected.
// A peer-initiated close frame is acknowledged with a close frame and
// terminates the read loop. A periodic health check detects the socket
// silently dropping while the connected flag is still set.
package transport
