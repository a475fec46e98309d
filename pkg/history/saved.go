package history

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/tarot/pkg/storage"
	"github.com/papercomputeco/tarot/pkg/tarot"
)

// ReadingData is a complete reading as shared, saved or exported.
type ReadingData struct {
	Title    string            `json:"title"`
	Date     string            `json:"date,omitempty"`
	Type     string            `json:"type,omitempty"`
	Question string            `json:"question,omitempty"`
	Cards    []tarot.DrawnCard `json:"cards"`

	// Content is the reading rendered as HTML.
	Content string `json:"content"`
}

// SavedReading is a ReadingData with its save metadata.
type SavedReading struct {
	ID string `json:"id"`
	ReadingData

	SavedAt   time.Time `json:"savedAt"`
	SavedDate string    `json:"savedDate"`
}

// Save prepends data to the saved list and returns its id. The list keeps at
// most MaxSaved readings.
func (s *Store) Save(ctx context.Context, data ReadingData) (SavedReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.loadSaved(ctx)
	if err != nil {
		return SavedReading{}, err
	}

	now := s.now()
	reading := SavedReading{
		ID:          uuid.NewString(),
		ReadingData: data,
		SavedAt:     now.UTC(),
		SavedDate:   now.Format("2006/1/2 15:04:05"),
	}

	saved = append([]SavedReading{reading}, saved...)
	if len(saved) > MaxSaved {
		saved = saved[:MaxSaved]
	}

	if err := storage.SetJSON(ctx, s.driver, SavedKey, saved); err != nil {
		return SavedReading{}, fmt.Errorf("saving reading: %w", err)
	}
	return reading, nil
}

// List returns the saved readings, newest first.
func (s *Store) List(ctx context.Context) ([]SavedReading, error) {
	return s.loadSaved(ctx)
}

// Get returns the saved reading with the given id.
func (s *Store) Get(ctx context.Context, id string) (*SavedReading, error) {
	saved, err := s.loadSaved(ctx)
	if err != nil {
		return nil, err
	}
	for i := range saved {
		if saved[i].ID == id {
			return &saved[i], nil
		}
	}
	return nil, storage.NotFoundError{Key: id}
}

// Delete removes the saved reading with the given id. It reports whether a
// reading was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.loadSaved(ctx)
	if err != nil {
		return false, err
	}

	kept := slices.DeleteFunc(saved, func(r SavedReading) bool {
		return r.ID == id
	})
	if len(kept) == len(saved) {
		return false, nil
	}

	if err := storage.SetJSON(ctx, s.driver, SavedKey, kept); err != nil {
		return false, fmt.Errorf("deleting reading: %w", err)
	}
	return true, nil
}

// ClearAll removes every saved reading.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.driver.Remove(ctx, SavedKey); err != nil {
		return fmt.Errorf("clearing saved readings: %w", err)
	}
	return nil
}

func (s *Store) loadSaved(ctx context.Context) ([]SavedReading, error) {
	var saved []SavedReading
	if _, err := storage.GetJSON(ctx, s.driver, SavedKey, &saved); err != nil {
		return nil, fmt.Errorf("loading saved readings: %w", err)
	}
	if saved == nil {
		saved = []SavedReading{}
	}
	return saved, nil
}
