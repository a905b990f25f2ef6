package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/game-genie/genie-go/pkg/safety"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// BridgeState contains the runtime state of the bridge.
type BridgeState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// LastEndpoint is the agent server address of the last successful
	// connection. A restarted bridge reconnects here before browsing.
	LastEndpoint string `json:"last_endpoint,omitempty"`

	// Overrides contains user-confirmed safety gate overrides.
	// Approvals are keyed by snippet digest, so they stay valid only for
	// byte-identical snippets.
	Overrides []safety.Override `json:"overrides,omitempty"`
}

// StateStore manages persistence of bridge state to a JSON file.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a new bridge state store.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Save persists the bridge state to disk.
func (s *StateStore) Save(state *BridgeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads the bridge state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *StateStore) Load() (*BridgeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &BridgeState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}

	return state, nil
}

// Clear removes the state file.
func (s *StateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
