package inspect

import (
	"strings"
	"testing"

	"github.com/game-genie/genie-go/pkg/editor"
)

func sampleScene() editor.SceneNode {
	return editor.SceneNode{
		Name:           "Root",
		ComponentNames: []string{"Transform"},
		Children: []editor.SceneNode{
			{
				Name:           "Player",
				ComponentNames: []string{"Transform", "Rigidbody", "PlayerController"},
				Children: []editor.SceneNode{
					{Name: "Weapon", ComponentNames: []string{"Transform", "MeshRenderer"}},
				},
			},
			{Name: "Main Camera", ComponentNames: []string{"Transform", "Camera"}},
		},
	}
}

func TestFormatTree(t *testing.T) {
	f := NewFormatter()
	out := f.FormatTree(sampleScene())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	if lines[0] != "Root [Transform]" {
		t.Errorf("root line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  Player") {
		t.Errorf("child not indented: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "    Weapon") {
		t.Errorf("grandchild not double-indented: %q", lines[2])
	}
	if !strings.Contains(lines[1], "PlayerController") {
		t.Errorf("components missing: %q", lines[1])
	}
}

func TestFormatTreeWithoutComponents(t *testing.T) {
	f := NewFormatter()
	f.ShowComponents = false
	out := f.FormatTree(sampleScene())

	if strings.Contains(out, "Transform") {
		t.Errorf("components shown despite ShowComponents=false:\n%s", out)
	}
}

func TestFormatTreeUnnamedNode(t *testing.T) {
	f := NewFormatter()
	out := f.FormatTree(editor.SceneNode{})
	if !strings.Contains(out, "(unnamed)") {
		t.Errorf("unnamed node not marked: %q", out)
	}
}

func TestFormatSummary(t *testing.T) {
	f := NewFormatter()
	out := f.FormatSummary(editor.ProjectSummary{
		Scenes:  []string{"Assets/Scenes/Main.unity"},
		Scripts: []string{"Assets/Scripts/Player.cs", "Assets/Scripts/Enemy.cs"},
	})

	if !strings.Contains(out, "Scenes (1):") {
		t.Errorf("scene group missing:\n%s", out)
	}
	if !strings.Contains(out, "Scripts (2):") {
		t.Errorf("script group missing:\n%s", out)
	}
	if strings.Contains(out, "Prefabs") {
		t.Errorf("empty prefab group shown:\n%s", out)
	}
}

func TestFormatSummaryEmpty(t *testing.T) {
	f := NewFormatter()
	if out := f.FormatSummary(editor.ProjectSummary{}); out != "(empty project)\n" {
		t.Errorf("empty summary = %q", out)
	}
}

func TestFormatObjectList(t *testing.T) {
	f := NewFormatter()
	out := f.FormatObjectList(
		[]string{"Player", "Main Camera", "Directional Light"},
		[]string{"Main Camera"},
	)

	if !strings.Contains(out, "* Main Camera") {
		t.Errorf("selected object not marked:\n%s", out)
	}
	if !strings.Contains(out, "  Player") {
		t.Errorf("unselected object marked:\n%s", out)
	}
}
