package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationWarning is the verdict for a snippet that failed validation.
// It is a warning, not a hard error: execution may proceed after an
// explicit override.
type ValidationWarning struct {
	Pattern string
	Reason  string
}

// Error implements the error interface.
func (w *ValidationWarning) Error() string {
	return fmt.Sprintf("unsafe code: %s (matched %q)", w.Reason, w.Pattern)
}

// denyEntry is one fully-qualified dangerous call.
type denyEntry struct {
	substring string
	reason    string
}

// denyList enumerates dangerous calls by fully-qualified name. Both the
// editor's scripting surface and the sandbox's own language surface are
// covered; snippets arrive in either form.
var denyList = []denyEntry{
	// Process start
	{"System.Diagnostics.Process.Start", "starts an external process"},
	{"exec.Command", "starts an external process"},
	{"syscall.Exec", "starts an external process"},

	// Recursive delete
	{"System.IO.Directory.Delete", "deletes a directory tree"},
	{"os.RemoveAll", "deletes a directory tree"},

	// Environment mutation
	{"System.Environment.SetEnvironmentVariable", "mutates the process environment"},
	{"Environment.SetEnvironmentVariable", "mutates the process environment"},
	{"os.Setenv", "mutates the process environment"},

	// Global preference wipe
	{"PlayerPrefs.DeleteAll", "wipes global editor preferences"},
	{"EditorPrefs.DeleteAll", "wipes global editor preferences"},

	// Application quit
	{"Application.Quit", "terminates the host application"},
	{"EditorApplication.Exit", "terminates the host application"},
	{"os.Exit", "terminates the host application"},
}

// categoryPattern is a regex covering a class of risky constructs.
type categoryPattern struct {
	re     *regexp.Regexp
	reason string
}

var categoryPatterns = []categoryPattern{
	{
		re:     regexp.MustCompile(`System\.IO\.(Directory|File|Path)\b|\bos\.(Remove|Rename|Chmod|Truncate)\b|\bfilepath\.Walk`),
		reason: "manipulates filesystem paths",
	},
	{
		re:     regexp.MustCompile(`System\.Net\.Sockets|\bnet\.(Dial|Listen)\b|TcpClient|TcpListener|UdpClient`),
		reason: "constructs a network socket",
	},
	{
		re:     regexp.MustCompile(`System\.Reflection|Assembly\.Load|\breflect\.\w|\bplugin\.Open\b|\bunsafe\.\w`),
		reason: "uses reflection or loads code dynamically",
	},
}

// Gate scans source text for disallowed operations. The zero value is not
// usable; construct with NewGate.
type Gate struct {
	deny     []denyEntry
	patterns []categoryPattern
}

// NewGate creates a gate with the built-in deny-list and category patterns.
func NewGate() *Gate {
	return &Gate{deny: denyList, patterns: categoryPatterns}
}

// AddPattern registers an extra category regex, e.g. from configuration.
// Invalid expressions are rejected.
func (g *Gate) AddPattern(expr, reason string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("safety pattern %q: %w", expr, err)
	}
	g.patterns = append(g.patterns, categoryPattern{re: re, reason: reason})
	return nil
}

// Validate scans the source and reports whether it is safe to execute.
// Pure and deterministic: the same source always yields the same verdict.
// The first match short-circuits with a human-readable reason.
func (g *Gate) Validate(source string) (safe bool, reason string) {
	if w := g.Check(source); w != nil {
		return false, w.Error()
	}
	return true, ""
}

// Check is Validate returning the structured warning, or nil when safe.
func (g *Gate) Check(source string) *ValidationWarning {
	for _, entry := range g.deny {
		if strings.Contains(source, entry.substring) {
			return &ValidationWarning{Pattern: entry.substring, Reason: entry.reason}
		}
	}
	for _, cat := range g.patterns {
		if loc := cat.re.FindString(source); loc != "" {
			return &ValidationWarning{Pattern: loc, Reason: cat.reason}
		}
	}
	return nil
}
