package sandbox

import (
	"fmt"
	"strings"
)

// Diagnostic is one line-numbered compile diagnostic, with the line
// relative to the snippet as submitted.
type Diagnostic struct {
	Line    int
	Column  int
	Message string
}

// String formats the diagnostic as "line:col: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Message)
}

// CompileError reports that a snippet failed to compile. No execution
// takes place and no side effect is performed.
type CompileError struct {
	Diagnostics []Diagnostic
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "compile failed"
	}
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return "compile failed: " + strings.Join(lines, "; ")
}

// RuntimeError reports a fault raised by the snippet during execution,
// unwrapped from the interpreter's invocation wrapper.
type RuntimeError struct {
	Value any
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Value)
}
