// Package history persists the daily reading history and the list of saved
// readings on top of a storage.Driver.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/tarot/pkg/storage"
	"github.com/papercomputeco/tarot/pkg/tarot"
)

const (
	// HistoryKey holds the map of day keys to daily entries.
	HistoryKey = "tarot_history"

	// SavedKey holds the list of saved readings.
	SavedKey = "saved_readings"

	// MaxSaved caps the saved list; the oldest entries are dropped first.
	MaxSaved = 50

	dayLayout     = "2006-01-02"
	displayLayout = "2006年01月02日"
)

// Entry is the daily reading stored for one day.
type Entry struct {
	// Date is the human-readable date the reading was made.
	Date    string            `json:"date"`
	Cards   []tarot.DrawnCard `json:"cards"`
	Reading string            `json:"reading"`
}

// DatedEntry is an Entry with its day key.
type DatedEntry struct {
	Day string `json:"day"`
	Entry
}

// Store reads and writes history through a storage.Driver. Writes are
// read-modify-write on a single key and are serialized by the Store.
type Store struct {
	driver storage.Driver
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store.
func New(driver storage.Driver, opts ...Option) *Store {
	s := &Store{
		driver: driver,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DayKey returns the local-date key for t.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// DisplayDate renders t the way entries show their date.
func DisplayDate(t time.Time) string {
	return t.Format(displayLayout)
}

// SaveToday stores the reading as today's entry, replacing any earlier one.
func (s *Store) SaveToday(ctx context.Context, cards []tarot.DrawnCard, reading string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return Entry{}, err
	}

	now := s.now()
	entry := Entry{
		Date:    DisplayDate(now),
		Cards:   cards,
		Reading: reading,
	}
	all[DayKey(now)] = entry

	if err := storage.SetJSON(ctx, s.driver, HistoryKey, all); err != nil {
		return Entry{}, fmt.Errorf("saving history: %w", err)
	}
	return entry, nil
}

// Today returns today's entry, or nil when there is none.
func (s *Store) Today(ctx context.Context) (*Entry, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	entry, ok := all[DayKey(s.now())]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// HasToday reports whether today's reading has been made.
func (s *Store) HasToday(ctx context.Context) (bool, error) {
	entry, err := s.Today(ctx)
	return entry != nil, err
}

// Sorted returns every entry, newest day first.
func (s *Store) Sorted(ctx context.Context) ([]DatedEntry, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DatedEntry, 0, len(all))
	for day, entry := range all {
		out = append(out, DatedEntry{Day: day, Entry: entry})
	}
	// Day keys are zero-padded, so lexical order is date order.
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day > out[j].Day
	})
	return out, nil
}

// Clear removes the whole daily history.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.driver.Remove(ctx, HistoryKey); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// RefreshIn returns the time from now until the next local midnight, when a
// new daily reading may be drawn.
func (s *Store) RefreshIn() time.Duration {
	return RefreshIn(s.now())
}

// RefreshIn returns the time from now until the next local midnight.
func RefreshIn(now time.Time) time.Duration {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}

// FormatRefresh renders a RefreshIn duration as whole hours and minutes.
func FormatRefresh(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%d小时%d分钟后可重新抽取", hours, minutes)
}

func (s *Store) load(ctx context.Context) (map[string]Entry, error) {
	all := map[string]Entry{}
	if _, err := storage.GetJSON(ctx, s.driver, HistoryKey, &all); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if all == nil {
		all = map[string]Entry{}
	}
	return all, nil
}
