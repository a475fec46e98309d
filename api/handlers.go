package api

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/storage"
	"github.com/papercomputeco/tarot/pkg/tarot"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DrawRequest asks for cards.
type DrawRequest struct {
	Count      int    `json:"count"`
	ExcludeIDs []int  `json:"exclude_ids,omitempty"`
	Arcana     string `json:"arcana,omitempty"`
	Question   string `json:"question,omitempty"`
}

// DrawResponse carries the drawn cards and their basic interpretation.
type DrawResponse struct {
	Cards          []tarot.DrawnCard `json:"cards"`
	Spread         tarot.Spread      `json:"spread"`
	Interpretation string            `json:"interpretation"`
}

// TodayResponse reports today's daily reading and when the next one is allowed.
type TodayResponse struct {
	Entry            *history.Entry `json:"entry"`
	RefreshIn        string         `json:"refresh_in"`
	RefreshInSeconds int64          `json:"refresh_in_seconds"`
}

const defaultDrawCount = 3

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msg})
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleListCards(c *fiber.Ctx) error {
	arcana, err := tarot.ParseArcana(c.Query("arcana"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(tarot.Cards(arcana))
}

func (s *Server) handleGetCard(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "card id must be an integer")
	}

	card, ok := tarot.Lookup(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "card not found"})
	}
	return c.JSON(card)
}

func (s *Server) handleDraw(c *fiber.Ctx) error {
	var req DrawRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	arcana, err := tarot.ParseArcana(req.Arcana)
	if err != nil {
		return badRequest(c, err.Error())
	}

	count := req.Count
	if count == 0 {
		count = defaultDrawCount
	}
	if count < 0 {
		return badRequest(c, "count must not be negative")
	}

	cards := s.deps.Deck.Draw(count, req.ExcludeIDs, arcana)
	return c.JSON(DrawResponse{
		Cards:          cards,
		Spread:         tarot.ThreeCard,
		Interpretation: tarot.Interpret(cards, tarot.ThreeCard, req.Question),
	})
}

func (s *Server) handleListHistory(c *fiber.Ctx) error {
	entries, err := s.deps.History.Sorted(c.Context())
	if err != nil {
		s.logger.Error("listing history", "error", err)
		return internalError(c, "failed to list history")
	}
	return c.JSON(entries)
}

func (s *Server) handleToday(c *fiber.Ctx) error {
	entry, err := s.deps.History.Today(c.Context())
	if err != nil {
		s.logger.Error("loading today's reading", "error", err)
		return internalError(c, "failed to load today's reading")
	}

	in := s.deps.History.RefreshIn()
	return c.JSON(TodayResponse{
		Entry:            entry,
		RefreshIn:        history.FormatRefresh(in),
		RefreshInSeconds: int64(in / time.Second),
	})
}

func (s *Server) handleClearHistory(c *fiber.Ctx) error {
	if err := s.deps.History.Clear(c.Context()); err != nil {
		s.logger.Error("clearing history", "error", err)
		return internalError(c, "failed to clear history")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleListSaved(c *fiber.Ctx) error {
	saved, err := s.deps.History.List(c.Context())
	if err != nil {
		s.logger.Error("listing saved readings", "error", err)
		return internalError(c, "failed to list saved readings")
	}
	return c.JSON(saved)
}

func (s *Server) handleSave(c *fiber.Ctx) error {
	var data history.ReadingData
	if err := c.BodyParser(&data); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(data.Content) == "" {
		return badRequest(c, "content is required")
	}

	saved, err := s.deps.History.Save(c.Context(), data)
	if err != nil {
		s.logger.Error("saving reading", "error", err)
		return internalError(c, "failed to save reading")
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (s *Server) handleGetSaved(c *fiber.Ctx) error {
	saved, err := s.deps.History.Get(c.Context(), c.Params("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "saved reading not found"})
		}
		s.logger.Error("loading saved reading", "error", err)
		return internalError(c, "failed to load saved reading")
	}
	return c.JSON(saved)
}

func (s *Server) handleExportSaved(c *fiber.Ctx) error {
	saved, err := s.deps.History.Get(c.Context(), c.Params("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "saved reading not found"})
		}
		return internalError(c, "failed to load saved reading")
	}

	var buf bytes.Buffer
	if err := history.Export(&buf, saved.ReadingData); err != nil {
		return internalError(c, "failed to export reading")
	}

	name := history.ExportFilename(saved.ReadingData, time.Now())
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename*=UTF-8''"+url.PathEscape(name))
	return c.Send(buf.Bytes())
}

func (s *Server) handleDeleteSaved(c *fiber.Ctx) error {
	removed, err := s.deps.History.Delete(c.Context(), c.Params("id"))
	if err != nil {
		s.logger.Error("deleting saved reading", "error", err)
		return internalError(c, "failed to delete saved reading")
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "saved reading not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleClearSaved(c *fiber.Ctx) error {
	if err := s.deps.History.ClearAll(c.Context()); err != nil {
		s.logger.Error("clearing saved readings", "error", err)
		return internalError(c, "failed to clear saved readings")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
