package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercomputeco/tarot/pkg/tarot"
)

const (
	drawFile = "draw.json"
)

// DrawState is the most recent draw made from the CLI.
type DrawState struct {
	DrawnAt time.Time         `json:"drawn_at"`
	Arcana  tarot.Arcana      `json:"arcana"`
	Cards   []tarot.DrawnCard `json:"cards"`
}

// LoadDrawState loads the last draw from a target .tarot/draw.json.
// Returns nil, nil if nothing has been drawn yet.
func (m *Manager) LoadDrawState(overrideDir string) (*DrawState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, drawFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading draw state: %w", err)
	}

	state := &DrawState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing draw state: %w", err)
	}

	return state, nil
}

// SaveDrawState persists state to a target .tarot/draw.json.
func (m *Manager) SaveDrawState(state *DrawState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil draw state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling draw state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, drawFile), data, 0o600); err != nil {
		return fmt.Errorf("writing draw state: %w", err)
	}

	return nil
}

// ClearDrawState removes the draw state file. Returns nil if it doesn't exist.
func (m *Manager) ClearDrawState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, drawFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing draw state: %w", err)
	}

	return nil
}
