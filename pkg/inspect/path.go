package inspect

import (
	"fmt"
	"strings"

	"github.com/game-genie/genie-go/pkg/editor"
)

// Find resolves a slash-separated object path against a scene tree,
// the way transform paths address objects in a scene. The root node
// itself is addressed by its name; "Player/Weapon" finds the child
// named "Weapon" under the root's child "Player".
func Find(root editor.SceneNode, path string) (editor.SceneNode, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return editor.SceneNode{}, fmt.Errorf("empty object path")
	}

	if parts[0] != root.Name {
		return editor.SceneNode{}, fmt.Errorf("object %q not found", parts[0])
	}

	node := root
	for _, part := range parts[1:] {
		child, ok := findChild(node, part)
		if !ok {
			return editor.SceneNode{}, fmt.Errorf("object %q has no child %q", node.Name, part)
		}
		node = child
	}
	return node, nil
}

// FindAll returns every node in the tree whose name matches, with its
// full path from the root.
func FindAll(root editor.SceneNode, name string) []Match {
	var matches []Match
	walk(root, root.Name, func(node editor.SceneNode, path string) {
		if node.Name == name {
			matches = append(matches, Match{Path: path, Node: node})
		}
	})
	return matches
}

// Match is one located node with its full path.
type Match struct {
	Path string
	Node editor.SceneNode
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func findChild(node editor.SceneNode, name string) (editor.SceneNode, bool) {
	for _, child := range node.Children {
		if child.Name == name {
			return child, true
		}
	}
	return editor.SceneNode{}, false
}

func walk(node editor.SceneNode, path string, fn func(editor.SceneNode, string)) {
	fn(node, path)
	for _, child := range node.Children {
		walk(child, path+"/"+child.Name, fn)
	}
}
