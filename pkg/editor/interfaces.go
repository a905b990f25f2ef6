package editor

import "context"

// SceneNode is one node of the dumped scene tree.
type SceneNode struct {
	Name           string      `json:"name"`
	ComponentNames []string    `json:"componentNames"`
	Children       []SceneNode `json:"children"`
}

// ProjectSummary lists the project's main asset groups.
type ProjectSummary struct {
	Scenes  []string `json:"scenes"`
	Prefabs []string `json:"prefabs"`
	Scripts []string `json:"scripts"`
}

// SceneGraph exposes the editor's scene state to handlers.
type SceneGraph interface {
	// Dump returns the active scene as a tree.
	Dump() (SceneNode, error)

	// ActiveObjects returns the names of active objects in the scene.
	ActiveObjects() []string

	// SelectedObjects returns the names of currently selected objects.
	SelectedObjects() []string

	// Summary returns the project structure summary.
	Summary() ProjectSummary

	// ActiveScenePath returns the asset path of the open scene, or the
	// empty string when no scene is open.
	ActiveScenePath() string
}

// FileStore reads and writes text and binary assets under the project
// asset root. Paths are accepted with or without the root prefix and are
// normalized before use.
type FileStore interface {
	ReadText(path string) (string, error)
	WriteText(path, content string) error
	WriteBytes(path string, data []byte) error
}

// LLMClient sends a prompt with context to a language model. It is used
// only by UI layers outside the core; the handlers never call it.
type LLMClient interface {
	Send(ctx context.Context, prompt, context string) (string, error)
}
