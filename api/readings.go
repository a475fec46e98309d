package api

import (
	"bufio"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/tarot/pkg/format"
	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/reading"
	"github.com/papercomputeco/tarot/pkg/sse"
	"github.com/papercomputeco/tarot/pkg/tarot"
	"github.com/papercomputeco/tarot/pkg/worker"
)

// ReadingRequest asks for a streamed reading. Without cards, three are drawn.
// A daily reading is given once per day; Force reads again.
type ReadingRequest struct {
	Type        string       `json:"type"`
	Question    string       `json:"question,omitempty"`
	Cards       []CardChoice `json:"cards,omitempty"`
	Arcana      string       `json:"arcana,omitempty"`
	Insight     bool         `json:"insight,omitempty"`
	BaseReading string       `json:"base_reading,omitempty"`
	Force       bool         `json:"force,omitempty"`
}

// AlreadyReadResponse is returned with 409 when today's reading exists.
type AlreadyReadResponse struct {
	Error string `json:"error"`
	TodayResponse
}

// CardChoice names a card and its orientation.
type CardChoice struct {
	ID      int  `json:"id"`
	Upright bool `json:"upright"`
}

// ProgressFrame carries the accumulated reading text.
type ProgressFrame struct {
	Text string `json:"text"`
}

// DoneFrame closes a successful reading.
type DoneFrame struct {
	Done   bool              `json:"done"`
	ID     string            `json:"id"`
	Source reading.Source    `json:"source"`
	Text   string            `json:"text"`
	HTML   string            `json:"html"`
	Cards  []tarot.DrawnCard `json:"cards"`
}

// ErrorFrame reports a reading that failed after the stream started.
type ErrorFrame struct {
	Error string `json:"error"`
}

func (s *Server) handleReading(c *fiber.Ctx) error {
	var body ReadingRequest
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req, err := s.readingRequest(body)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if req.Type == reading.Daily && !req.Insight && !body.Force {
		entry, err := s.deps.History.Today(c.Context())
		if err != nil {
			s.logger.Error("loading today's reading", "error", err)
			return internalError(c, "failed to load today's reading")
		}
		if entry != nil {
			in := s.deps.History.RefreshIn()
			return c.Status(fiber.StatusConflict).JSON(AlreadyReadResponse{
				Error: "today's reading already exists",
				TodayResponse: TodayResponse{
					Entry:            entry,
					RefreshIn:        history.FormatRefresh(in),
					RefreshInSeconds: int64(in / time.Second),
				},
			})
		}
	}

	gen, model := s.readings()
	id := uuid.NewString()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		s.streamReading(w, gen, model, id, req)
	})
	return nil
}

// readingRequest validates body and resolves its cards.
func (s *Server) readingRequest(body ReadingRequest) (reading.Request, error) {
	t, err := reading.ParseType(body.Type)
	if err != nil {
		return reading.Request{}, err
	}

	var cards []tarot.DrawnCard
	if len(body.Cards) == 0 {
		arcana, err := tarot.ParseArcana(body.Arcana)
		if err != nil {
			return reading.Request{}, err
		}
		cards = s.deps.Deck.Draw(defaultDrawCount, nil, arcana)
	} else {
		for _, choice := range body.Cards {
			card, ok := tarot.Lookup(choice.ID)
			if !ok {
				return reading.Request{}, fmt.Errorf("unknown card id %d", choice.ID)
			}
			cards = append(cards, tarot.Orient(card, choice.Upright))
		}
	}

	req := reading.Request{
		Type:        t,
		Question:    body.Question,
		Cards:       cards,
		Spread:      tarot.ThreeCard,
		Insight:     body.Insight,
		BaseReading: body.BaseReading,
	}
	if err := req.Validate(); err != nil {
		return reading.Request{}, err
	}
	return req, nil
}

// frameWriter serializes frame writes from the progress callback and the
// stream goroutine, and cancels generation once the client is gone.
type frameWriter struct {
	w      *bufio.Writer
	cancel context.CancelFunc

	mu     sync.Mutex
	failed bool
}

func (f *frameWriter) frame(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failed {
		return
	}
	if err := sse.WriteFrame(f.w, v); err != nil {
		f.fail()
		return
	}
	if err := f.w.Flush(); err != nil {
		f.fail()
	}
}

func (f *frameWriter) done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failed {
		return
	}
	if err := sse.WriteDone(f.w); err != nil {
		f.fail()
		return
	}
	if err := f.w.Flush(); err != nil {
		f.fail()
	}
}

func (f *frameWriter) fail() {
	f.failed = true
	f.cancel()
}

func (s *Server) streamReading(w *bufio.Writer, gen Generator, model, id string, req reading.Request) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fw := &frameWriter{w: w, cancel: cancel}
	res, err := gen.Generate(ctx, req, func(text string) {
		fw.frame(ProgressFrame{Text: text})
	})
	if err != nil {
		s.logger.Error("reading failed",
			"reading_id", id,
			"type", req.Type,
			"error", err,
		)
		fw.frame(ErrorFrame{Error: err.Error()})
		fw.done()
		return
	}

	s.logger.Info("reading complete",
		"reading_id", id,
		"type", req.Type,
		"source", res.Source,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)

	if s.deps.Pool != nil {
		s.deps.Pool.Enqueue(worker.Job{
			ID:      id,
			Request: req,
			Result:  res,
			Model:   model,
		})
	}

	fw.frame(DoneFrame{
		Done:   true,
		ID:     id,
		Source: res.Source,
		Text:   res.Text,
		HTML:   format.HTML(res.Text),
		Cards:  req.Cards,
	})
	fw.done()
}
