package editor

import "sync"

// StubSceneGraph is an in-memory SceneGraph for running the bridge
// outside the editor (development, tests, the standalone binary).
type StubSceneGraph struct {
	mu        sync.RWMutex
	Tree      SceneNode
	Active    []string
	Selected  []string
	Project   ProjectSummary
	ScenePath string
}

// NewStubSceneGraph returns an empty stub with no open scene.
func NewStubSceneGraph() *StubSceneGraph {
	return &StubSceneGraph{Tree: SceneNode{Name: "Root"}}
}

// Dump implements SceneGraph.
func (s *StubSceneGraph) Dump() (SceneNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Tree, nil
}

// ActiveObjects implements SceneGraph.
func (s *StubSceneGraph) ActiveObjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.Active...)
}

// SelectedObjects implements SceneGraph.
func (s *StubSceneGraph) SelectedObjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.Selected...)
}

// Summary implements SceneGraph.
func (s *StubSceneGraph) Summary() ProjectSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Project
}

// ActiveScenePath implements SceneGraph.
func (s *StubSceneGraph) ActiveScenePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ScenePath
}

// SetScene replaces the stub's scene state.
func (s *StubSceneGraph) SetScene(path string, tree SceneNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScenePath = path
	s.Tree = tree
}
