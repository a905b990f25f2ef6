package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-genie/genie-go/pkg/logring"
	"github.com/game-genie/genie-go/pkg/safety"
)

func newTestExecutor(t *testing.T, config Config) *Executor {
	t.Helper()
	return NewExecutor(DefaultRegistry(), config)
}

func TestExecuteSimpleSnippet(t *testing.T) {
	e := newTestExecutor(t, Config{})

	result := e.ExecuteSync(context.Background(), `x := 40 + 2
out = x`)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, StageExecuted, result.Stage)
	assert.Equal(t, "42", result.Output)
}

func TestExecuteResolvesCapabilities(t *testing.T) {
	e := newTestExecutor(t, Config{})

	result := e.ExecuteSync(context.Background(), `out = strings.ToUpper("hi")`)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "HI", result.Output)
}

func TestExecuteNilOutput(t *testing.T) {
	e := newTestExecutor(t, Config{})

	result := e.ExecuteSync(context.Background(), `_ = 1 + 1`)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Empty(t, result.Output)
}

func TestExecuteSyntaxErrorHasLineNumberedDiagnostic(t *testing.T) {
	e := newTestExecutor(t, Config{})

	result := e.ExecuteSync(context.Background(), `x := 1
y := (
out = x`)

	require.False(t, result.Success)
	assert.Equal(t, StageCompileFailed, result.Stage)
	require.NotEmpty(t, result.Error)
	// At least one diagnostic carries a snippet-relative line number.
	assert.Regexp(t, `\d+:\d+:`, result.Error)
	assert.NotContains(t, result.Error, "snippet_", "diagnostics must not leak the wrapper name in positions")
}

func TestExecuteUndefinedIdentifierFailsCompile(t *testing.T) {
	e := newTestExecutor(t, Config{})

	result := e.ExecuteSync(context.Background(), `out = nonsense.Call()`)

	require.False(t, result.Success)
	assert.Equal(t, StageCompileFailed, result.Stage)
	assert.NotEmpty(t, result.Error)
}

func TestExecuteRuntimePanicContained(t *testing.T) {
	e := newTestExecutor(t, Config{})

	result := e.ExecuteSync(context.Background(), `panic("prefab missing")`)

	require.False(t, result.Success)
	assert.Equal(t, StageRuntimeFailed, result.Stage)
	assert.Contains(t, result.Error, "prefab missing")

	// The host stays usable for an independent execution afterwards.
	next := e.ExecuteSync(context.Background(), `out = "still alive"`)
	require.True(t, next.Success, "error: %s", next.Error)
	assert.Equal(t, "still alive", next.Output)
}

func TestExecuteRejectedByGate(t *testing.T) {
	e := newTestExecutor(t, Config{Gate: safety.NewGate()})

	result := e.ExecuteSync(context.Background(), `out = "x" // os.RemoveAll cleanup`)

	require.False(t, result.Success)
	assert.Equal(t, StageRejected, result.Stage)
	assert.NotEmpty(t, result.Error)
}

func TestExecuteOverrideAllowsRejectedSnippet(t *testing.T) {
	overrides := safety.NewOverrideLog(nil)
	e := newTestExecutor(t, Config{Gate: safety.NewGate(), Overrides: overrides})

	source := `out = "x" // os.RemoveAll cleanup`

	_, err := overrides.Approve(source, "alex", "comment only, nothing deleted")
	require.NoError(t, err)

	result := e.ExecuteSync(context.Background(), source)
	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "x", result.Output)
}

func TestExecuteCaptureRegion(t *testing.T) {
	buf := logring.NewBuffer(16)

	registry := DefaultRegistry()
	require.NoError(t, registry.GrantFuncs("genie/debug", map[string]any{
		"Warn": func(msg string) { buf.Append(logring.LevelWarning, msg) },
		"Log":  func(msg string) { buf.Append(logring.LevelInfo, msg) },
	}))

	e := NewExecutor(registry, Config{LogBuffer: buf})

	// The snippet returns nothing; the warning still reaches the result.
	result := e.ExecuteSync(context.Background(), `debug.Log("starting")
debug.Warn("missing material")`)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Empty(t, result.Output)
	assert.Equal(t, []string{"missing material"}, result.Captured)
}

func TestExecuteTimeout(t *testing.T) {
	e := newTestExecutor(t, Config{Timeout: 50 * time.Millisecond})

	result := e.ExecuteSync(context.Background(), `time.Sleep(time.Minute)`)

	require.False(t, result.Success)
	assert.Equal(t, StageRuntimeFailed, result.Stage)
	assert.Contains(t, result.Error, "aborted")
}

func TestExecuteProgressSequence(t *testing.T) {
	e := newTestExecutor(t, Config{Gate: safety.NewGate()})

	progressCh, resultCh := e.Execute(context.Background(), `out = 7`)

	var stages []Stage
	for p := range progressCh {
		stages = append(stages, p.Stage)
	}
	result := <-resultCh

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, []Stage{StageReceived, StageValidated, StageCompiled, StageExecuted}, stages)
}

func TestExecuteUnitsAreUnique(t *testing.T) {
	e := newTestExecutor(t, Config{})

	var names []string
	for i := 0; i < 2; i++ {
		progressCh, resultCh := e.Execute(context.Background(), `out = 1`)
		for p := range progressCh {
			if p.Stage == StageCompiled {
				names = append(names, p.Detail)
			}
		}
		require.True(t, (<-resultCh).Success)
	}

	require.Len(t, names, 2)
	assert.NotEqual(t, names[0], names[1], "compilation units must be uniquely named")
	for _, n := range names {
		assert.True(t, strings.HasPrefix(n, "snippet_"), "unit name %q", n)
	}
}

func TestStageTerminal(t *testing.T) {
	terminal := []Stage{StageRejected, StageCompileFailed, StageExecuted, StageRuntimeFailed}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%v", s)
	}
	for _, s := range []Stage{StageReceived, StageValidated, StageCompiled} {
		assert.False(t, s.Terminal(), "%v", s)
	}
}
