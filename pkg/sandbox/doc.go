// Package sandbox compiles and runs untrusted source inside an embedded
// interpreter, capturing output and faults without crashing the host.
//
// A snippet is a block of statements. Each execution wraps it in a
// uniquely named compilation unit with a single fixed entry point, so
// repeated executions in one process never collide:
//
//	package snippet_<id>
//
//	func Run() (out any) {
//		... snippet ...
//		return out
//	}
//
// The snippet's package references are resolved against an explicit,
// enumerable capability Registry built at startup. Only the minimal
// referenced set is granted; nothing is resolved from the host's ambient
// runtime.
//
// An execution moves through a fixed pipeline: Received, then
// Validated or Rejected by the safety gate, then Compiled or
// CompileFailed, then Executed or RuntimeFailed. Compile failures carry
// line-numbered diagnostics relative to the snippet; runtime panics are
// caught, unwrapped from the interpreter's invocation wrapper, and
// reported as text. The executor remains usable after any failure.
package sandbox
