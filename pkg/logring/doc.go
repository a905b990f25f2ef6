// Package logring implements the bounded editor log buffer.
//
// The buffer holds the most recent N log lines, oldest evicted first.
// It is append-only from multiple producers and snapshot-readable by any
// consumer. Registered taps observe every appended line; the execution
// sandbox uses a tap to capture warnings and errors the host emits while
// untrusted code runs. Lines can additionally be mirrored to a file whose
// default location is resolved per platform.
package logring
