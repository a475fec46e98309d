package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/tarot/pkg/tarot"
)

var (
	drawToolName    = "draw_cards"
	drawDescription = "Draw tarot cards without repetition, each upright or reversed at random. Returns the cards with their meanings and a basic three-card interpretation."
)

const (
	defaultDrawCount = 3
	maxDrawCount     = 22
)

// DrawInput represents the input arguments for the draw_cards tool.
type DrawInput struct {
	Count      int    `json:"count,omitempty" jsonschema:"number of cards to draw (default: 3)"`
	Arcana     string `json:"arcana,omitempty" jsonschema:"which cards to draw from: all, major or minor (default: all)"`
	ExcludeIDs []int  `json:"exclude_ids,omitempty" jsonschema:"card ids that must not be drawn"`
	Question   string `json:"question,omitempty" jsonschema:"the question the cards are drawn for"`
}

// DrawnCard is a card as returned by draw_cards.
type DrawnCard struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	NameEn      string   `json:"name_en"`
	Orientation string   `json:"orientation"`
	Upright     bool     `json:"upright"`
	Meaning     string   `json:"meaning"`
	Keywords    []string `json:"keywords"`
}

// DrawOutput represents the output of the draw_cards tool.
type DrawOutput struct {
	Cards          []DrawnCard `json:"cards"`
	Interpretation string      `json:"interpretation"`
	Count          int         `json:"count"`
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// handleDraw processes a draw_cards request.
func (s *Server) handleDraw(_ context.Context, _ *mcp.CallToolRequest, input DrawInput) (*mcp.CallToolResult, DrawOutput, error) {
	logger := s.config.Logger

	count := input.Count
	if count <= 0 {
		count = defaultDrawCount
	}
	if count > maxDrawCount {
		return toolError("count must be at most %d", maxDrawCount), DrawOutput{}, nil
	}

	arcana, err := tarot.ParseArcana(input.Arcana)
	if err != nil {
		return toolError("Invalid arcana: %v", err), DrawOutput{}, nil
	}

	logger.Debug("MCP draw request",
		"count", count,
		"arcana", arcana,
	)

	drawn := s.config.Deck.Draw(count, input.ExcludeIDs, arcana)
	output := buildDrawOutput(drawn, input.Question)

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal draw output", "error", err)
		return toolError("Failed to serialize cards: %v", err), DrawOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func toDrawnCard(c tarot.DrawnCard) DrawnCard {
	return DrawnCard{
		ID:          c.ID,
		Name:        c.Name,
		NameEn:      c.NameEn,
		Orientation: c.Orientation(),
		Upright:     c.Upright,
		Meaning:     c.Meaning,
		Keywords:    c.Keywords,
	}
}

// buildDrawOutput converts drawn cards into the tool output.
func buildDrawOutput(drawn []tarot.DrawnCard, question string) DrawOutput {
	cards := make([]DrawnCard, 0, len(drawn))
	for _, c := range drawn {
		cards = append(cards, toDrawnCard(c))
	}

	return DrawOutput{
		Cards:          cards,
		Interpretation: tarot.Interpret(drawn, tarot.ThreeCard, question),
		Count:          len(cards),
	}
}
