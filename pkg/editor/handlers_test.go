package editor

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-genie/genie-go/pkg/dispatch"
	"github.com/game-genie/genie-go/pkg/logring"
	"github.com/game-genie/genie-go/pkg/sandbox"
	"github.com/game-genie/genie-go/pkg/safety"
	"github.com/game-genie/genie-go/pkg/wire"
)

func newTestHandlers(t *testing.T) (*Handlers, *StubSceneGraph, *DiskFileStore) {
	t.Helper()

	scene := NewStubSceneGraph()
	files := NewDiskFileStore(t.TempDir())
	buf := logring.NewBuffer(64)

	h := &Handlers{
		Scene:    scene,
		Files:    files,
		Executor: sandbox.NewExecutor(sandbox.DefaultRegistry(), sandbox.Config{Gate: safety.NewGate(), LogBuffer: buf}),
		Log:      buf,
	}
	return h, scene, files
}

func TestRegisterInstallsFullCommandSet(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	d := dispatch.New(0, nil)

	require.NoError(t, h.Register(d))

	want := []string{
		"execute_unity_code_in_editor",
		"get_scene_context",
		"get_scene_file",
		"add_script_to_project",
		"edit_existing_script",
		"edit_prefab",
		"read_file",
		"save_image_to_project",
		"ping",
	}
	got := d.Commands()
	assert.ElementsMatch(t, want, got)
}

func TestExecuteCode(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	result, err := h.ExecuteCode(context.Background(), map[string]any{"code": `out = 6 * 7`})
	require.NoError(t, err)

	m := result.(map[string]any)
	assert.Equal(t, "42", m["output"])
}

func TestExecuteCodeEmptyRejected(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	_, err := h.ExecuteCode(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, ErrEmptyCode)
}

func TestExecuteCodeUnsafeRejected(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	_, err := h.ExecuteCode(context.Background(), map[string]any{
		"code": `os.RemoveAll("Assets")`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rejected")
}

func TestGetSceneContext(t *testing.T) {
	h, scene, _ := newTestHandlers(t)
	scene.SetScene("Assets/Scenes/Main.unity", SceneNode{
		Name: "Root",
		Children: []SceneNode{
			{Name: "Player", ComponentNames: []string{"Transform", "Rigidbody"}},
		},
	})
	scene.Selected = []string{"Player"}
	scene.Project = ProjectSummary{Scenes: []string{"Assets/Scenes/Main.unity"}}

	result, err := h.GetSceneContext(context.Background(), nil)
	require.NoError(t, err)

	m := result.(map[string]any)
	tree := m["scene"].(SceneNode)
	assert.Equal(t, "Root", tree.Name)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, []string{"Transform", "Rigidbody"}, tree.Children[0].ComponentNames)
	assert.Equal(t, []string{"Player"}, m["selectedObjects"])
}

func TestGetSceneFileNoActiveScene(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	_, err := h.GetSceneFile(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoActiveScene)
}

func TestGetSceneFileReadsActiveScene(t *testing.T) {
	h, scene, files := newTestHandlers(t)

	require.NoError(t, files.WriteText("Scenes/Main.unity", "%YAML 1.1"))
	scene.SetScene("Assets/Scenes/Main.unity", SceneNode{Name: "Root"})

	result, err := h.GetSceneFile(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "%YAML 1.1", result)
}

func TestAddScript(t *testing.T) {
	h, _, files := newTestHandlers(t)

	result, err := h.AddScript(context.Background(), map[string]any{
		"script_name": "Enemy",
		"content":     "class Enemy {}",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"path": "Scripts/Enemy.cs"}, result)

	content, err := files.ReadText("Scripts/Enemy.cs")
	require.NoError(t, err)
	assert.Equal(t, "class Enemy {}", content)
}

func TestAddScriptMissingNameFails(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	// The name degrades to "", which fails cleanly instead of writing a
	// nameless asset.
	_, err := h.AddScript(context.Background(), map[string]any{"content": "x"})
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestEditScript(t *testing.T) {
	h, _, files := newTestHandlers(t)
	require.NoError(t, files.WriteText("Scripts/Player.cs", "old"))

	_, err := h.EditScript(context.Background(), map[string]any{
		"path":    "Assets/Scripts/Player.cs",
		"content": "new",
	})
	require.NoError(t, err)

	content, err := files.ReadText("Scripts/Player.cs")
	require.NoError(t, err)
	assert.Equal(t, "new", content)
}

func TestEditScriptMissingFileFails(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	_, err := h.EditScript(context.Background(), map[string]any{
		"path":    "Scripts/Ghost.cs",
		"content": "x",
	})
	assert.Error(t, err)
}

func TestEditPrefab(t *testing.T) {
	h, _, files := newTestHandlers(t)

	_, err := h.EditPrefab(context.Background(), map[string]any{
		"prefab_path": "Prefabs/Door.prefab",
		"content":     "%YAML 1.1\n--- !u!1 &1",
	})
	require.NoError(t, err)

	content, err := files.ReadText("Prefabs/Door.prefab")
	require.NoError(t, err)
	assert.Contains(t, content, "!u!1")
}

func TestReadFile(t *testing.T) {
	h, _, files := newTestHandlers(t)
	require.NoError(t, files.WriteText("Data/config.json", `{"a":1}`))

	result, err := h.ReadFile(context.Background(), map[string]any{"path": "Data/config.json"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, result)

	// Missing path param degrades to "", which fails cleanly.
	_, err = h.ReadFile(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestSaveImage(t *testing.T) {
	h, _, files := newTestHandlers(t)

	payload := []byte{0x89, 'P', 'N', 'G'}
	result, err := h.SaveImage(context.Background(), map[string]any{
		"path": "Textures/gen.png",
		"data": base64.StdEncoding.EncodeToString(payload),
	})
	require.NoError(t, err)

	m := result.(map[string]any)
	assert.Equal(t, 4, m["bytes"])

	_, err = files.ReadText("Textures/gen.png")
	require.NoError(t, err)
}

func TestSaveImageBadBase64(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	_, err := h.SaveImage(context.Background(), map[string]any{
		"path": "Textures/gen.png",
		"data": "not base64!!!",
	})
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	result, err := h.Ping(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "ok"}, result)
}

func TestSceneFileFailureThroughDispatcher(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	d := dispatch.New(0, nil)
	require.NoError(t, h.Register(d))

	resp := d.Dispatch(context.Background(), &wire.Command{
		Command: "get_scene_file",
		Params:  map[string]any{wire.MessageIDKey: "42"},
	})

	require.NotNil(t, resp)
	assert.Equal(t, "response", resp.Type)
	assert.Equal(t, "get_scene_file", resp.Command)
	assert.Equal(t, "42", resp.MessageID)
	assert.False(t, resp.Data.Success)
	assert.NotEmpty(t, resp.Data.Error)
}
