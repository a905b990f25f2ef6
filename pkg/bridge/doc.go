// Package bridge composes the transport, dispatcher and correlator into
// the editor-side endpoint of the agent connection.
//
// A Bridge is an explicit object: it owns one connection, one handler
// table and one pending-call table, and is passed by reference into
// whatever hosts it. Several independent bridges can coexist in one
// process.
//
// Inbound envelope routing:
//
//   - commands become dispatcher tasks; their responses are sent back
//     over the connection, or discarded if it has closed meanwhile
//   - responses resolve pending calls in the correlator
//   - handshake echoes are ignored
//
// Shutdown drains in-flight handlers before tearing the connection down.
package bridge
