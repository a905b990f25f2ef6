package sandbox

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/traefik/yaegi/interp"

	"github.com/game-genie/genie-go/pkg/logring"
	"github.com/game-genie/genie-go/pkg/safety"
)

// DefaultExecuteTimeout bounds a single snippet execution.
const DefaultExecuteTimeout = 10 * time.Second

// Stage identifies a step in the execution pipeline.
type Stage int

const (
	StageReceived Stage = iota
	StageValidated
	StageRejected
	StageCompiled
	StageCompileFailed
	StageExecuted
	StageRuntimeFailed
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "Received"
	case StageValidated:
		return "Validated"
	case StageRejected:
		return "Rejected"
	case StageCompiled:
		return "Compiled"
	case StageCompileFailed:
		return "CompileFailed"
	case StageExecuted:
		return "Executed"
	case StageRuntimeFailed:
		return "RuntimeFailed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the stage ends the pipeline.
func (s Stage) Terminal() bool {
	switch s {
	case StageRejected, StageCompileFailed, StageExecuted, StageRuntimeFailed:
		return true
	default:
		return false
	}
}

// Progress is one pipeline notification.
type Progress struct {
	Stage  Stage
	Detail string
}

// Result is the terminal outcome of one execution.
type Result struct {
	Success bool
	Stage   Stage

	// Output is the value returned by the snippet, formatted as text.
	Output string

	// Error is the failure text for unsuccessful stages.
	Error string

	// Captured holds host warnings and errors emitted while the snippet
	// ran, attached even when the snippet itself returned nothing.
	Captured []string
}

// Config configures an executor.
type Config struct {
	// Timeout bounds one execution (default: 10s).
	Timeout time.Duration

	// Gate screens source before compilation. Nil skips validation.
	Gate *safety.Gate

	// Overrides allows gated source through after explicit user approval.
	Overrides *safety.OverrideLog

	// LogBuffer, when set, is tapped during the call so host warnings and
	// errors land in the result.
	LogBuffer *logring.Buffer
}

// Executor runs snippets against a fixed capability registry.
// An executor is safe for concurrent use and stays usable after any
// failed execution.
type Executor struct {
	registry *Registry
	config   Config
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry, config Config) *Executor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultExecuteTimeout
	}
	return &Executor{registry: registry, config: config}
}

// Execute runs the pipeline for one snippet. Progress notifications are
// delivered on the first channel, one per stage entered; the terminal
// result arrives on the second. Both channels are closed when done.
func (e *Executor) Execute(ctx context.Context, source string) (<-chan Progress, <-chan Result) {
	progressCh := make(chan Progress, 8)
	resultCh := make(chan Result, 1)

	go func() {
		defer close(progressCh)
		defer close(resultCh)
		resultCh <- e.run(ctx, source, progressCh)
	}()

	return progressCh, resultCh
}

// ExecuteSync runs the pipeline and blocks until the terminal result.
func (e *Executor) ExecuteSync(ctx context.Context, source string) Result {
	progressCh, resultCh := e.Execute(ctx, source)
	for range progressCh {
	}
	return <-resultCh
}

// run drives one snippet through the pipeline.
func (e *Executor) run(ctx context.Context, source string, progress chan<- Progress) Result {
	notify := func(stage Stage, detail string) {
		select {
		case progress <- Progress{Stage: stage, Detail: detail}:
		default:
		}
	}

	notify(StageReceived, "")

	// Validation
	if e.config.Gate != nil {
		if safe, reason := e.config.Gate.Validate(source); !safe {
			if e.config.Overrides == nil || !e.config.Overrides.IsApproved(source) {
				notify(StageRejected, reason)
				return Result{Stage: StageRejected, Error: reason}
			}
			// Explicitly approved despite the warning.
		}
	}
	notify(StageValidated, "")

	// Compilation
	unit := newUnit(source)

	refs, diags := unit.resolveReferences(e.registry)
	if diags != nil {
		cerr := &CompileError{Diagnostics: diags}
		notify(StageCompileFailed, cerr.Error())
		return Result{Stage: StageCompileFailed, Error: cerr.Error()}
	}

	i := interp.New(interp.Options{})
	if len(refs) > 0 {
		if err := i.Use(e.registry.exports(refs)); err != nil {
			notify(StageCompileFailed, err.Error())
			return Result{Stage: StageCompileFailed, Error: err.Error()}
		}
	}

	paths := make([]string, 0, len(refs))
	for _, name := range refs {
		if c, ok := e.registry.Lookup(name); ok {
			paths = append(paths, c.Path)
		}
	}

	entry, cerr := unit.compile(i, paths)
	if cerr != nil {
		notify(StageCompileFailed, cerr.Error())
		return Result{Stage: StageCompileFailed, Error: cerr.Error()}
	}
	notify(StageCompiled, unit.name)

	// Execution, inside the scoped capture region.
	var capturedMu sync.Mutex
	var captured []string
	if e.config.LogBuffer != nil {
		remove := e.config.LogBuffer.Tap(func(line logring.Line) {
			if line.Level < logring.LevelWarning {
				return
			}
			capturedMu.Lock()
			captured = append(captured, line.Text)
			capturedMu.Unlock()
		})
		defer remove()
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	out, rerr := invoke(ctx, entry)

	capturedMu.Lock()
	capturedCopy := append([]string(nil), captured...)
	capturedMu.Unlock()

	if rerr != nil {
		notify(StageRuntimeFailed, rerr.Error())
		return Result{Stage: StageRuntimeFailed, Error: rerr.Error(), Captured: capturedCopy}
	}

	output := ""
	if out != nil {
		output = fmt.Sprint(out)
	}
	notify(StageExecuted, "")
	return Result{Success: true, Stage: StageExecuted, Output: output, Captured: capturedCopy}
}

// invoke calls the entry point, containing any fault the snippet raises.
func invoke(ctx context.Context, entry func() any) (out any, err error) {
	type invocation struct {
		out any
		err error
	}
	done := make(chan invocation, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				// Unwrap the interpreter's invocation wrapper.
				if p, ok := r.(interp.Panic); ok {
					done <- invocation{err: &RuntimeError{Value: p.Value}}
					return
				}
				done <- invocation{err: &RuntimeError{Value: r}}
			}
		}()
		done <- invocation{out: entry()}
	}()

	select {
	case inv := <-done:
		return inv.out, inv.err
	case <-ctx.Done():
		return nil, &RuntimeError{Value: fmt.Sprintf("execution aborted: %v", ctx.Err())}
	}
}

// unit is one uniquely named compilation unit wrapping a snippet.
type unit struct {
	name   string
	source string
}

// newUnit assigns a fresh unit name so executions never collide within
// one process lifetime.
func newUnit(source string) *unit {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return &unit{name: "snippet_" + id, source: source}
}

// header builds the wrapper prefix for the given import paths.
func (u *unit) header(importPaths []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\n", u.name)
	if len(importPaths) > 0 {
		b.WriteString("import (\n")
		for _, p := range importPaths {
			fmt.Fprintf(&b, "\t%q\n", p)
		}
		b.WriteString(")\n\n")
	}
	b.WriteString("func Run() (out any) {\n")
	return b.String()
}

// wrap builds the complete unit source and reports the line offset of the
// snippet's first line within it.
func (u *unit) wrap(importPaths []string) (src string, lineOffset int) {
	h := u.header(importPaths)
	return h + u.source + "\n\treturn out\n}\n", strings.Count(h, "\n")
}

// resolveReferences parses the wrapped snippet and resolves its free
// package references against the registry. Parse failures surface as
// snippet-relative diagnostics.
func (u *unit) resolveReferences(registry *Registry) (refs []string, diags []Diagnostic) {
	src, offset := u.wrap(nil)

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, u.name+".go", src, 0)
	if err != nil {
		return nil, parserDiagnostics(err, offset)
	}

	seen := map[string]bool{}
	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		ident, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		if seen[ident.Name] {
			return true
		}
		if _, registered := registry.Lookup(ident.Name); registered {
			seen[ident.Name] = true
			refs = append(refs, ident.Name)
		}
		return true
	})

	return refs, nil
}

// compile evaluates the wrapped unit and extracts the entry point.
func (u *unit) compile(i *interp.Interpreter, importPaths []string) (func() any, *CompileError) {
	src, offset := u.wrap(importPaths)

	if _, err := i.Eval(src); err != nil {
		return nil, &CompileError{Diagnostics: evalDiagnostics(err, offset)}
	}

	v, err := i.Eval(u.name + ".Run")
	if err != nil {
		return nil, &CompileError{Diagnostics: evalDiagnostics(err, offset)}
	}

	entry, ok := v.Interface().(func() any)
	if !ok {
		return nil, &CompileError{Diagnostics: []Diagnostic{{Line: 1, Column: 1, Message: "entry point has unexpected signature"}}}
	}
	return entry, nil
}

// parserDiagnostics converts parse errors to snippet-relative diagnostics.
func parserDiagnostics(err error, offset int) []Diagnostic {
	list, ok := err.(scanner.ErrorList)
	if !ok {
		return []Diagnostic{{Line: 1, Column: 1, Message: err.Error()}}
	}

	diags := make([]Diagnostic, 0, len(list))
	for _, e := range list {
		line := e.Pos.Line - offset
		if line < 1 {
			line = 1
		}
		diags = append(diags, Diagnostic{Line: line, Column: e.Pos.Column, Message: e.Msg})
	}
	return diags
}

// evalPosRe matches "line:col: message" in interpreter error text.
var evalPosRe = regexp.MustCompile(`(?m)^(?:.*?:)?(\d+):(\d+): (.+)$`)

// evalDiagnostics converts interpreter errors to snippet-relative
// diagnostics.
func evalDiagnostics(err error, offset int) []Diagnostic {
	matches := evalPosRe.FindAllStringSubmatch(err.Error(), -1)
	if len(matches) == 0 {
		return []Diagnostic{{Line: 1, Column: 1, Message: err.Error()}}
	}

	diags := make([]Diagnostic, 0, len(matches))
	for _, m := range matches {
		line := atoiOrZero(m[1]) - offset
		if line < 1 {
			line = 1
		}
		diags = append(diags, Diagnostic{Line: line, Column: atoiOrZero(m[2]), Message: m[3]})
	}
	return diags
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
