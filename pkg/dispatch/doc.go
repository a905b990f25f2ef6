// Package dispatch routes inbound command envelopes to handlers.
//
// The dispatcher owns a fixed table built at startup: command name to
// handler function. Each inbound command becomes an explicit tracked task;
// the number of concurrently running handlers is bounded, which applies
// backpressure to the read loop feeding the dispatcher.
//
// Failure containment is the package's main job:
//
//   - An unknown command produces no response and no error.
//   - A handler error becomes a failure response.
//   - A handler panic is recovered and becomes a failure response.
//
// None of these conditions propagate past Dispatch.
package dispatch
