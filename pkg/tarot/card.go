// Package tarot holds the card catalogue and the drawing logic.
package tarot

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

// Arcana selects a subset of the deck.
type Arcana string

const (
	ArcanaAll   Arcana = "all"
	ArcanaMajor Arcana = "major"
	ArcanaMinor Arcana = "minor"
)

// ParseArcana maps a user-supplied name to an Arcana. An empty name selects
// the whole deck.
func ParseArcana(s string) (Arcana, error) {
	switch Arcana(s) {
	case "", ArcanaAll:
		return ArcanaAll, nil
	case ArcanaMajor, ArcanaMinor:
		return Arcana(s), nil
	default:
		return "", fmt.Errorf("unknown arcana %q", s)
	}
}

// Card is one entry of the catalogue.
type Card struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	NameEn          string   `json:"nameEn"`
	Arcana          Arcana   `json:"arcana"`
	Image           string   `json:"img"`
	Keywords        []string `json:"keywords"`
	UprightMeaning  string   `json:"uprightMeaning"`
	ReversedMeaning string   `json:"reversedMeaning"`
	Description     string   `json:"description"`
}

// DrawnCard is a card with the orientation it was drawn in.
type DrawnCard struct {
	Card

	Upright bool `json:"isUpright"`

	// Meaning is the upright or reversed meaning, matching Upright.
	Meaning string `json:"meaning"`

	// DisplayName carries a reversed marker when the card is reversed.
	DisplayName string `json:"displayName"`
}

// Orient returns c drawn in the given orientation.
func Orient(c Card, upright bool) DrawnCard {
	d := DrawnCard{
		Card:        c,
		Upright:     upright,
		Meaning:     c.UprightMeaning,
		DisplayName: c.Name,
	}
	if !upright {
		d.Meaning = c.ReversedMeaning
		d.DisplayName = c.Name + "（逆位）"
	}
	return d
}

// Orientation returns the Chinese orientation label.
func (d DrawnCard) Orientation() string {
	if d.Upright {
		return "正位"
	}
	return "逆位"
}

//go:embed cards.json
var catalogueJSON []byte

var catalogue = mustLoadCatalogue()

func mustLoadCatalogue() []Card {
	var cards []Card
	if err := json.Unmarshal(catalogueJSON, &cards); err != nil {
		panic(fmt.Sprintf("tarot: invalid embedded catalogue: %v", err))
	}
	return cards
}

// Cards returns a copy of the catalogue filtered by arcana.
func Cards(arcana Arcana) []Card {
	out := make([]Card, 0, len(catalogue))
	for _, c := range catalogue {
		if arcana == ArcanaAll || arcana == "" || c.Arcana == arcana {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the card with the given id.
func Lookup(id int) (Card, bool) {
	for _, c := range catalogue {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}
