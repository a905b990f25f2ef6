package editor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/game-genie/genie-go/pkg/dispatch"
	"github.com/game-genie/genie-go/pkg/logring"
	"github.com/game-genie/genie-go/pkg/sandbox"
)

// Handler errors.
var (
	ErrNoActiveScene = errors.New("no active scene")
	ErrEmptyCode     = errors.New("code is empty")
)

// Handlers binds the command set to its collaborators.
type Handlers struct {
	Scene    SceneGraph
	Files    FileStore
	Executor *sandbox.Executor
	Log      *logring.Buffer
}

// Register installs the full handler set on the dispatcher.
func (h *Handlers) Register(d *dispatch.Dispatcher) error {
	table := map[string]dispatch.HandlerFunc{
		"execute_unity_code_in_editor": h.ExecuteCode,
		"get_scene_context":            h.GetSceneContext,
		"get_scene_file":               h.GetSceneFile,
		"add_script_to_project":        h.AddScript,
		"edit_existing_script":         h.EditScript,
		"edit_prefab":                  h.EditPrefab,
		"read_file":                    h.ReadFile,
		"save_image_to_project":        h.SaveImage,
		"ping":                         h.Ping,
	}
	for name, fn := range table {
		if err := d.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// stringParam reads a param as a string, degrading missing or non-string
// values to the empty string.
func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if s, ok := params[key].(string); ok {
		return s
	}
	return ""
}

// ExecuteCode runs a code snippet through the sandbox.
// Params: "code" (empty code is rejected).
func (h *Handlers) ExecuteCode(ctx context.Context, params map[string]any) (any, error) {
	code := stringParam(params, "code")
	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptyCode
	}

	h.appendLog(logring.LevelInfo, "executing snippet (%d bytes)", len(code))

	result := h.Executor.ExecuteSync(ctx, code)
	if !result.Success {
		h.appendLog(logring.LevelError, "execution failed at %s: %s", result.Stage, result.Error)
		return nil, fmt.Errorf("%s: %s", result.Stage, result.Error)
	}

	return map[string]any{
		"output":   result.Output,
		"warnings": result.Captured,
	}, nil
}

// GetSceneContext dumps the scene tree, selection and project summary.
// Params: none.
func (h *Handlers) GetSceneContext(ctx context.Context, params map[string]any) (any, error) {
	tree, err := h.Scene.Dump()
	if err != nil {
		return nil, fmt.Errorf("dump scene: %w", err)
	}

	return map[string]any{
		"scene":           tree,
		"activeObjects":   h.Scene.ActiveObjects(),
		"selectedObjects": h.Scene.SelectedObjects(),
		"project":         h.Scene.Summary(),
	}, nil
}

// GetSceneFile returns the raw text of the open scene file.
// Params: none. Fails when no scene is open.
func (h *Handlers) GetSceneFile(ctx context.Context, params map[string]any) (any, error) {
	scenePath := h.Scene.ActiveScenePath()
	if scenePath == "" {
		return nil, ErrNoActiveScene
	}
	return h.Files.ReadText(scenePath)
}

// AddScript writes a new script asset.
// Params: "script_name" (".cs" appended when absent), "content".
func (h *Handlers) AddScript(ctx context.Context, params map[string]any) (any, error) {
	name := stringParam(params, "script_name")
	content := stringParam(params, "content")

	if name == "" {
		return nil, fmt.Errorf("%w: script_name", ErrEmptyPath)
	}
	if path.Ext(name) == "" {
		name += ".cs"
	}
	scriptPath := path.Join("Scripts", name)

	if err := h.Files.WriteText(scriptPath, content); err != nil {
		return nil, err
	}
	h.appendLog(logring.LevelInfo, "script added: %s", scriptPath)
	return map[string]any{"path": scriptPath}, nil
}

// EditScript overwrites an existing script asset.
// Params: "path", "content".
func (h *Handlers) EditScript(ctx context.Context, params map[string]any) (any, error) {
	scriptPath := stringParam(params, "path")
	content := stringParam(params, "content")

	if _, err := h.Files.ReadText(scriptPath); err != nil {
		return nil, fmt.Errorf("script does not exist: %w", err)
	}
	if err := h.Files.WriteText(scriptPath, content); err != nil {
		return nil, err
	}
	h.appendLog(logring.LevelInfo, "script edited: %s", scriptPath)
	return map[string]any{"path": scriptPath}, nil
}

// EditPrefab overwrites a prefab asset. Prefabs are text assets; the
// agent sends the full new serialization.
// Params: "prefab_path", "content".
func (h *Handlers) EditPrefab(ctx context.Context, params map[string]any) (any, error) {
	prefabPath := stringParam(params, "prefab_path")
	content := stringParam(params, "content")

	if err := h.Files.WriteText(prefabPath, content); err != nil {
		return nil, err
	}
	h.appendLog(logring.LevelInfo, "prefab edited: %s", prefabPath)
	return map[string]any{"path": prefabPath}, nil
}

// ReadFile reads an asset as text.
// Params: "path".
func (h *Handlers) ReadFile(ctx context.Context, params map[string]any) (any, error) {
	return h.Files.ReadText(stringParam(params, "path"))
}

// SaveImage decodes a base64 payload into a binary asset.
// Params: "path", "data" (base64).
func (h *Handlers) SaveImage(ctx context.Context, params map[string]any) (any, error) {
	imagePath := stringParam(params, "path")
	encoded := stringParam(params, "data")

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	if err := h.Files.WriteBytes(imagePath, data); err != nil {
		return nil, err
	}
	h.appendLog(logring.LevelInfo, "image saved: %s (%d bytes)", imagePath, len(data))
	return map[string]any{"path": imagePath, "bytes": len(data)}, nil
}

// Ping answers the agent server's liveness probe.
// Params: none.
func (h *Handlers) Ping(ctx context.Context, params map[string]any) (any, error) {
	return map[string]any{"status": "ok"}, nil
}

// appendLog writes to the log sink when one is attached.
func (h *Handlers) appendLog(level logring.Level, format string, args ...any) {
	if h.Log != nil {
		h.Log.Appendf(level, format, args...)
	}
}
