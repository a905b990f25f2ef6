// Package interactive provides the interactive command-line interface
// for the bridge.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/game-genie/genie-go/pkg/bridge"
	"github.com/game-genie/genie-go/pkg/editor"
	"github.com/game-genie/genie-go/pkg/inspect"
	"github.com/game-genie/genie-go/pkg/logring"
	"github.com/game-genie/genie-go/pkg/safety"
	"github.com/game-genie/genie-go/pkg/sandbox"
	"github.com/game-genie/genie-go/pkg/wire"
)

// Collaborators provides the console access to the bridge internals
// without depending on the main package's wiring.
type Collaborators struct {
	Gate      *safety.Gate
	Overrides *safety.OverrideLog
	Executor  *sandbox.Executor
	Activity  *logring.Buffer
	Scene     editor.SceneGraph
	Endpoint  string
}

// Console handles interactive mode for genie-bridge.
type Console struct {
	b         *bridge.Bridge
	c         Collaborators
	formatter *inspect.Formatter
	rl        *readline.Instance
}

// New creates a new interactive console.
func New(b *bridge.Bridge, c Collaborators) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "genie> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{b: b, c: c, formatter: inspect.NewFormatter(), rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status", "st":
			c.cmdStatus()

		case "connect":
			c.cmdConnect(ctx)

		case "disconnect":
			c.cmdDisconnect()

		case "call":
			c.cmdCall(ctx, args, input)

		case "validate", "v":
			c.cmdValidate(args, input)

		case "approve":
			c.cmdApprove(args, input)

		case "exec", "x":
			c.cmdExec(ctx, args, input)

		case "overrides":
			c.cmdOverrides()

		case "scene", "s":
			c.cmdScene()

		case "objects", "o":
			c.cmdObjects()

		case "project", "p":
			c.cmdProject()

		case "find", "f":
			c.cmdFind(args)

		case "log":
			c.cmdLog(args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Bridge Commands:
  Connection:
    status             - Show connection status
    connect            - Connect to the agent server
    disconnect         - Disconnect from the agent server
    call <cmd> [id]    - Send a command and wait for its response

  Scene Inspection:
    scene              - Show the scene tree
    objects            - List active objects (selected marked *)
    project            - Show the project summary
    find <name>        - Locate objects by name

  Code Safety & Execution:
    validate <code>    - Run code through the safety gate
    approve <code>     - Approve gated code for execution
    exec <code>        - Execute code in the sandbox
    overrides          - List approved overrides

  General:
    log [n]            - Show the last n log lines (default 20)
    help               - Show this help
    quit               - Exit the bridge`)
}

// cmdStatus handles the status command.
func (c *Console) cmdStatus() {
	out := c.rl.Stdout()
	fmt.Fprintf(out, "Endpoint: %s\n", c.c.Endpoint)
	fmt.Fprintf(out, "State:    %s\n", c.b.State())
	if lastErr := c.b.LastError(); lastErr != "" {
		fmt.Fprintf(out, "Last error: %s\n", lastErr)
	}
}

// cmdConnect handles the connect command.
func (c *Console) cmdConnect(ctx context.Context) {
	out := c.rl.Stdout()
	if c.b.IsConnected() {
		fmt.Fprintln(out, "Already connected")
		return
	}

	fmt.Fprintf(out, "Connecting to %s...\n", c.c.Endpoint)
	if err := c.b.Connect(ctx); err != nil {
		fmt.Fprintf(out, "Connect failed: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Connected")
}

// cmdDisconnect handles the disconnect command.
func (c *Console) cmdDisconnect() {
	out := c.rl.Stdout()
	if !c.b.IsConnected() {
		fmt.Fprintln(out, "Not connected")
		return
	}
	if err := c.b.Disconnect(); err != nil {
		fmt.Fprintf(out, "Disconnect failed: %v\n", err)
		return
	}
	fmt.Fprintln(out, "Disconnected")
}

// cmdCall handles the call command.
func (c *Console) cmdCall(ctx context.Context, args []string, _ string) {
	out := c.rl.Stdout()
	if len(args) < 1 {
		fmt.Fprintln(out, "Usage: call <command> [message-id]")
		return
	}

	params := map[string]any{}
	if len(args) > 1 {
		params[wire.MessageIDKey] = args[1]
	} else {
		params[wire.MessageIDKey] = fmt.Sprintf("cli-%d", time.Now().UnixNano())
	}

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.b.Call(callCtx, &wire.Command{Command: args[0], Params: params})
	if err != nil {
		fmt.Fprintf(out, "Call failed: %v\n", err)
		return
	}
	if resp == nil {
		fmt.Fprintln(out, "Sent (no response expected)")
		return
	}

	if resp.Data.Success {
		fmt.Fprintf(out, "OK: %v\n", resp.Data.Result)
	} else {
		fmt.Fprintf(out, "Error: %s\n", resp.Data.Error)
	}
}

// rest returns everything after the command word, preserving spacing.
func rest(input string, cmd int) string {
	fields := strings.SplitN(input, " ", cmd+1)
	if len(fields) <= cmd {
		return ""
	}
	return strings.TrimSpace(fields[cmd])
}

// cmdValidate handles the validate command.
func (c *Console) cmdValidate(args []string, input string) {
	out := c.rl.Stdout()
	code := rest(input, 1)
	if code == "" {
		fmt.Fprintln(out, "Usage: validate <code>")
		return
	}

	if warning := c.c.Gate.Check(code); warning != nil {
		fmt.Fprintf(out, "UNSAFE: %s (pattern: %s)\n", warning.Reason, warning.Pattern)
		fmt.Fprintf(out, "Digest: %s\n", safety.Digest(code))
		return
	}
	fmt.Fprintln(out, "Safe")
}

// cmdApprove handles the approve command.
func (c *Console) cmdApprove(args []string, input string) {
	out := c.rl.Stdout()
	code := rest(input, 1)
	if code == "" {
		fmt.Fprintln(out, "Usage: approve <code>")
		return
	}

	override, err := c.c.Overrides.Approve(code, "console", "approved interactively")
	if err != nil {
		fmt.Fprintf(out, "Approve failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Approved, digest %s\n", override.Digest)
}

// cmdExec handles the exec command.
func (c *Console) cmdExec(ctx context.Context, args []string, input string) {
	out := c.rl.Stdout()
	code := rest(input, 1)
	if code == "" {
		fmt.Fprintln(out, "Usage: exec <code>")
		return
	}

	result := c.c.Executor.ExecuteSync(ctx, code)
	if !result.Success {
		fmt.Fprintf(out, "Failed at %s: %s\n", result.Stage, result.Error)
		return
	}
	fmt.Fprintf(out, "Result: %s\n", result.Output)
	for _, line := range result.Captured {
		fmt.Fprintf(out, "  captured: %s\n", line)
	}
}

// cmdOverrides handles the overrides command.
func (c *Console) cmdOverrides() {
	out := c.rl.Stdout()
	overrides := c.c.Overrides.Overrides()
	if len(overrides) == 0 {
		fmt.Fprintln(out, "No approved overrides")
		return
	}
	for _, o := range overrides {
		fmt.Fprintf(out, "  %s  by %s  %s\n", o.Digest[:12], o.User, o.Reason)
	}
}

// cmdScene handles the scene command.
func (c *Console) cmdScene() {
	out := c.rl.Stdout()
	root, err := c.c.Scene.Dump()
	if err != nil {
		fmt.Fprintf(out, "Scene dump failed: %v\n", err)
		return
	}
	if path := c.c.Scene.ActiveScenePath(); path != "" {
		fmt.Fprintf(out, "Scene: %s\n", path)
	}
	fmt.Fprint(out, c.formatter.FormatTree(root))
}

// cmdObjects handles the objects command.
func (c *Console) cmdObjects() {
	fmt.Fprint(c.rl.Stdout(),
		c.formatter.FormatObjectList(c.c.Scene.ActiveObjects(), c.c.Scene.SelectedObjects()))
}

// cmdProject handles the project command.
func (c *Console) cmdProject() {
	fmt.Fprint(c.rl.Stdout(), c.formatter.FormatSummary(c.c.Scene.Summary()))
}

// cmdFind handles the find command.
func (c *Console) cmdFind(args []string) {
	out := c.rl.Stdout()
	if len(args) < 1 {
		fmt.Fprintln(out, "Usage: find <name>")
		return
	}

	root, err := c.c.Scene.Dump()
	if err != nil {
		fmt.Fprintf(out, "Scene dump failed: %v\n", err)
		return
	}

	matches := inspect.FindAll(root, args[0])
	if len(matches) == 0 {
		fmt.Fprintf(out, "No objects named %q\n", args[0])
		return
	}
	for _, m := range matches {
		fmt.Fprintf(out, "  %s\n", m.Path)
	}
}

// cmdLog handles the log command.
func (c *Console) cmdLog(args []string) {
	out := c.rl.Stdout()
	n := 20
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			fmt.Fprintln(out, "Usage: log [n]")
			return
		}
		n = parsed
	}

	lines := c.c.Activity.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(out, "Log is empty")
		return
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, line := range lines {
		fmt.Fprintf(out, "  %s [%s] %s\n", line.Time.Format("15:04:05"), line.Level, line.Text)
	}
}
