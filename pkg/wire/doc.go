// Package wire defines the JSON message envelopes exchanged with the agent
// server and the codec that turns transport fragments into envelopes.
//
// Three envelope kinds travel over the connection:
//
//   - Handshake: {"type":"handshake","client":"<name>","version":"<ver>"},
//     sent once immediately after the transport is established.
//   - Command: {"command":"<name>","params":{...}}, received from the agent.
//   - Response: {"type":"response","command":"<name>","message_id":"<id>",
//     "data":{"success":true,...}}, sent back for each command that carries
//     a message_id.
//
// The protocol relies on the transport's own message boundaries rather than
// length-prefixing. When the transport delivers a logical message in several
// fragments, Decoder buffers them in arrival order and decodes the whole
// message at the transport's end-of-message marker. Malformed JSON fails with
// *ProtocolError and the offending bytes are dropped, not retried.
package wire
