// Package inspect renders scene trees and project summaries for display.
package inspect

import (
	"fmt"
	"strings"

	"github.com/game-genie/genie-go/pkg/editor"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowComponents includes component names next to each object
	ShowComponents bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowComponents: true,
		IndentWidth:    2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	indent := strings.Repeat(" ", depth*width)
	return indent + content
}

// FormatTree renders a scene tree as indented text.
func (f *Formatter) FormatTree(root editor.SceneNode) string {
	var sb strings.Builder
	f.formatNode(&sb, root, 0)
	return sb.String()
}

func (f *Formatter) formatNode(sb *strings.Builder, node editor.SceneNode, depth int) {
	line := node.Name
	if line == "" {
		line = "(unnamed)"
	}
	if f.ShowComponents && len(node.ComponentNames) > 0 {
		line += " [" + strings.Join(node.ComponentNames, ", ") + "]"
	}
	sb.WriteString(f.Indent(depth, line))
	sb.WriteByte('\n')

	for _, child := range node.Children {
		f.formatNode(sb, child, depth+1)
	}
}

// FormatSummary renders a project summary as grouped asset lists.
func (f *Formatter) FormatSummary(summary editor.ProjectSummary) string {
	var sb strings.Builder
	f.formatGroup(&sb, "Scenes", summary.Scenes)
	f.formatGroup(&sb, "Prefabs", summary.Prefabs)
	f.formatGroup(&sb, "Scripts", summary.Scripts)
	if sb.Len() == 0 {
		return "(empty project)\n"
	}
	return sb.String()
}

func (f *Formatter) formatGroup(sb *strings.Builder, label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s (%d):\n", label, len(paths))
	for _, p := range paths {
		sb.WriteString(f.Indent(1, p))
		sb.WriteByte('\n')
	}
}

// FormatObjectList renders a flat object name list, marking selected ones.
func (f *Formatter) FormatObjectList(active, selected []string) string {
	if len(active) == 0 {
		return "(no active objects)\n"
	}

	sel := make(map[string]bool, len(selected))
	for _, name := range selected {
		sel[name] = true
	}

	var sb strings.Builder
	for _, name := range active {
		marker := " "
		if sel[name] {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %s\n", marker, name)
	}
	return sb.String()
}
