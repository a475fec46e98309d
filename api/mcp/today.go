package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/tarot/pkg/history"
)

var (
	todayToolName    = "today_reading"
	todayDescription = "Return today's daily tarot reading, if one has been made, and how long until a new one can be drawn."
)

// TodayInput takes no arguments.
type TodayInput struct{}

// TodayOutput represents the output of the today_reading tool.
type TodayOutput struct {
	Found     bool        `json:"found"`
	Date      string      `json:"date,omitempty"`
	Cards     []DrawnCard `json:"cards,omitempty"`
	Reading   string      `json:"reading,omitempty"`
	RefreshIn string      `json:"refresh_in"`
}

func (s *Server) handleToday(ctx context.Context, _ *mcp.CallToolRequest, _ TodayInput) (*mcp.CallToolResult, TodayOutput, error) {
	store := s.config.History

	entry, err := store.Today(ctx)
	if err != nil {
		s.config.Logger.Error("failed to load today's reading", "error", err)
		return toolError("Failed to load today's reading: %v", err), TodayOutput{}, nil
	}

	output := TodayOutput{RefreshIn: history.FormatRefresh(store.RefreshIn())}
	if entry != nil {
		output.Found = true
		output.Date = entry.Date
		output.Reading = entry.Reading
		for _, c := range entry.Cards {
			output.Cards = append(output.Cards, toDrawnCard(c))
		}
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError("Failed to serialize reading: %v", err), TodayOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
