package tarot

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// Deck draws cards from the catalogue.
type Deck struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// DeckOption configures a Deck.
type DeckOption func(*Deck)

// WithRand draws from r instead of the global source. Draws from a seeded
// source are reproducible.
func WithRand(r *rand.Rand) DeckOption {
	return func(d *Deck) {
		d.rng = r
	}
}

// NewDeck creates a Deck.
func NewDeck(opts ...DeckOption) *Deck {
	d := &Deck{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDeck = NewDeck()

// Draw draws from the shared deck. See Deck.Draw.
func Draw(count int, excludeIDs []int, arcana Arcana) []DrawnCard {
	return defaultDeck.Draw(count, excludeIDs, arcana)
}

// Draw shuffles the cards of the requested arcana that are not excluded and
// returns the first count of them, each independently upright or reversed
// with equal probability. Fewer than count cards are returned when not enough
// remain; the result never repeats a card.
func (d *Deck) Draw(count int, excludeIDs []int, arcana Arcana) []DrawnCard {
	if count <= 0 {
		return []DrawnCard{}
	}

	available := make([]Card, 0, len(catalogue))
	for _, c := range Cards(arcana) {
		if !slices.Contains(excludeIDs, c.ID) {
			available = append(available, c)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := len(available) - 1; i > 0; i-- {
		j := d.intN(i + 1)
		available[i], available[j] = available[j], available[i]
	}

	if count > len(available) {
		count = len(available)
	}

	drawn := make([]DrawnCard, 0, count)
	for _, c := range available[:count] {
		drawn = append(drawn, Orient(c, d.intN(2) == 0))
	}
	return drawn
}

func (d *Deck) intN(n int) int {
	if d.rng != nil {
		return d.rng.IntN(n)
	}
	return rand.IntN(n)
}
