package auth

import (
	"encoding/json"
	"fmt"
	"os"
)

// State is the persisted shape: a normalized, ordered list of session ids
// plus one record per id, kept separate from the encrypted secrets.
type State struct {
	IDs     []string                   `json:"ids"`
	Records map[string]json.RawMessage `json:"records"`
}

// StateStore is the general key-value persistence port for session metadata.
type StateStore interface {
	Load() (State, error)
	Save(State) error
}

// FileStateStore keeps the state as one JSON file.
type FileStateStore struct {
	path string
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

func (f *FileStateStore) Load() (State, error) {
	state := State{Records: make(map[string]json.RawMessage)}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, fmt.Errorf("failed to read session state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupt state file is treated as empty rather than fatal; the
		// secrets are still intact and sessions can be recreated.
		return State{Records: make(map[string]json.RawMessage)}, nil
	}
	if state.Records == nil {
		state.Records = make(map[string]json.RawMessage)
	}
	return state, nil
}

func (f *FileStateStore) Save(state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return nil
}

// MemoryStateStore is an in-process StateStore for tests.
type MemoryStateStore struct {
	state State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{state: State{Records: make(map[string]json.RawMessage)}}
}

func (m *MemoryStateStore) Load() (State, error) { return m.state, nil }

func (m *MemoryStateStore) Save(state State) error {
	m.state = state
	return nil
}
