package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/reading"
	"github.com/papercomputeco/tarot/pkg/storage/inmemory"
	"github.com/papercomputeco/tarot/pkg/tarot"
	"github.com/papercomputeco/tarot/pkg/worker"
)

// fakeGenerator replays progress updates and returns a fixed result.
type fakeGenerator struct {
	progress []string
	result   reading.Result
	err      error

	requests []reading.Request
}

func (g *fakeGenerator) Generate(_ context.Context, req reading.Request, onProgress func(string)) (reading.Result, error) {
	g.requests = append(g.requests, req)
	for _, p := range g.progress {
		onProgress(p)
	}
	if g.err != nil {
		return reading.Result{}, g.err
	}
	return g.result, nil
}

// sseFrames returns the payloads of the "data:" frames of an SSE body.
func sseFrames(body string) []string {
	frames := []string{}
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if strings.HasPrefix(block, "data: ") {
			frames = append(frames, strings.TrimPrefix(block, "data: "))
		}
	}
	return frames
}

func doRequest(server *Server, method, target string, body any) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := server.App().Test(req, -1)
	Expect(err).NotTo(HaveOccurred())

	respBody, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, respBody
}

var _ = Describe("Server", func() {
	var (
		server *Server
		gen    *fakeGenerator
		store  *history.Store
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		gen = &fakeGenerator{
			progress: []string{"Hel", "Hello"},
			result: reading.Result{
				Text:    "Hello **world**",
				Source:  reading.SourceLLM,
				Elapsed: 10 * time.Millisecond,
			},
		}
		store = history.New(inmemory.NewDriver())

		var err error
		server, err = NewServer(Config{ListenAddr: ":0", Model: "test-model"}, Deps{
			Readings: gen,
			History:  store,
		}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("requires a reading generator", func() {
			_, err := NewServer(Config{}, Deps{History: store}, nil)
			Expect(err).To(MatchError(ContainSubstring("reading generator is required")))
		})

		It("requires a history store", func() {
			_, err := NewServer(Config{}, Deps{Readings: gen}, nil)
			Expect(err).To(MatchError(ContainSubstring("history store is required")))
		})
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			resp, body := doRequest(server, http.MethodGet, "/ping", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(string(body)).To(Equal(`"pong"`))
		})
	})

	Describe("cards", func() {
		It("lists the catalogue", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/cards", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var cards []tarot.Card
			Expect(json.Unmarshal(body, &cards)).To(Succeed())
			Expect(cards).To(HaveLen(len(tarot.Cards(tarot.ArcanaAll))))
		})

		It("rejects an unknown arcana", func() {
			resp, _ := doRequest(server, http.MethodGet, "/v1/cards?arcana=cups", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns a single card", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/cards/0", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var card tarot.Card
			Expect(json.Unmarshal(body, &card)).To(Succeed())
			Expect(card.Name).To(Equal("愚者"))
		})

		It("returns 404 for an unknown card", func() {
			resp, _ := doRequest(server, http.MethodGet, "/v1/cards/999", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("POST /v1/draw", func() {
		It("draws three cards by default", func() {
			resp, body := doRequest(server, http.MethodPost, "/v1/draw", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out DrawResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Cards).To(HaveLen(3))
			Expect(out.Spread.Key).To(Equal(tarot.ThreeCard.Key))
			Expect(out.Interpretation).NotTo(BeEmpty())
		})

		It("never returns excluded cards", func() {
			exclude := []int{}
			for id := 0; id < 21; id++ {
				exclude = append(exclude, id)
			}

			resp, body := doRequest(server, http.MethodPost, "/v1/draw", DrawRequest{Count: 3, ExcludeIDs: exclude})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out DrawResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Cards).To(HaveLen(1))
			Expect(out.Cards[0].ID).To(Equal(21))
		})

		It("rejects a negative count", func() {
			resp, _ := doRequest(server, http.MethodPost, "/v1/draw", DrawRequest{Count: -1})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("POST /v1/readings", func() {
		It("streams progress frames then the result", func() {
			resp, body := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{
				Type:  "quick",
				Cards: []CardChoice{{ID: 0, Upright: true}, {ID: 1, Upright: false}, {ID: 2, Upright: true}},
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			frames := sseFrames(string(body))
			Expect(frames).To(HaveLen(4))

			var first, second ProgressFrame
			Expect(json.Unmarshal([]byte(frames[0]), &first)).To(Succeed())
			Expect(json.Unmarshal([]byte(frames[1]), &second)).To(Succeed())
			Expect(first.Text).To(Equal("Hel"))
			Expect(second.Text).To(Equal("Hello"))

			var done DoneFrame
			Expect(json.Unmarshal([]byte(frames[2]), &done)).To(Succeed())
			Expect(done.Done).To(BeTrue())
			Expect(done.ID).NotTo(BeEmpty())
			Expect(done.Source).To(Equal(reading.SourceLLM))
			Expect(done.Text).To(Equal("Hello **world**"))
			Expect(done.HTML).To(ContainSubstring("<strong>world</strong>"))
			Expect(done.Cards).To(HaveLen(3))
			Expect(done.Cards[1].Upright).To(BeFalse())

			Expect(frames[3]).To(Equal("[DONE]"))

			Expect(gen.requests).To(HaveLen(1))
			Expect(gen.requests[0].Type).To(Equal(reading.Quick))
		})

		It("draws cards when none are given", func() {
			resp, _ := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{Type: "daily"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(gen.requests).To(HaveLen(1))
			Expect(gen.requests[0].Cards).To(HaveLen(3))
		})

		Context("when today's reading exists", func() {
			BeforeEach(func() {
				star, _ := tarot.Lookup(17)
				_, err := store.SaveToday(ctx, []tarot.DrawnCard{tarot.Orient(star, true)}, "今日已读")
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns today's entry with 409 instead of reading again", func() {
				resp, body := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{Type: "daily"})
				Expect(resp.StatusCode).To(Equal(fiber.StatusConflict))
				Expect(gen.requests).To(BeEmpty())

				var got AlreadyReadResponse
				Expect(json.Unmarshal(body, &got)).To(Succeed())
				Expect(got.Entry).NotTo(BeNil())
				Expect(got.Entry.Reading).To(Equal("今日已读"))
				Expect(got.RefreshIn).To(ContainSubstring("后可重新抽取"))
			})

			It("reads again with force", func() {
				resp, _ := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{Type: "daily", Force: true})
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
				Expect(gen.requests).To(HaveLen(1))
			})

			It("still gives a daily insight", func() {
				resp, _ := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{
					Type:        "daily",
					Insight:     true,
					BaseReading: "今日已读",
				})
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
				Expect(gen.requests).To(HaveLen(1))
				Expect(gen.requests[0].Insight).To(BeTrue())
			})

			It("does not limit other reading types", func() {
				resp, _ := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{Type: "quick"})
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			})
		})

		It("reports a failed reading as an error frame", func() {
			gen.err = errors.New("boom")

			resp, body := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{Type: "quick"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			frames := sseFrames(string(body))
			Expect(frames).To(HaveLen(4))

			var failed ErrorFrame
			Expect(json.Unmarshal([]byte(frames[2]), &failed)).To(Succeed())
			Expect(failed.Error).To(Equal("boom"))
			Expect(frames[3]).To(Equal("[DONE]"))
		})

		It("rejects an unknown type", func() {
			resp, _ := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{Type: "weekly"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(gen.requests).To(BeEmpty())
		})

		It("rejects a custom reading without a question", func() {
			resp, body := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{Type: "custom"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			var out ErrorResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Error).To(Equal(reading.ErrQuestionRequired.Error()))
		})

		It("rejects an unknown card", func() {
			resp, _ := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{
				Type:  "quick",
				Cards: []CardChoice{{ID: 99}},
			})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("uses the generator set by SetReadings", func() {
			other := &fakeGenerator{result: reading.Result{Text: "other", Source: reading.SourceOffline}}
			server.SetReadings(other, "other-model")

			_, body := doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{Type: "quick"})
			Expect(other.requests).To(HaveLen(1))
			Expect(gen.requests).To(BeEmpty())

			frames := sseFrames(string(body))
			var done DoneFrame
			Expect(json.Unmarshal([]byte(frames[0]), &done)).To(Succeed())
			Expect(done.Source).To(Equal(reading.SourceOffline))
		})

		It("hands completed daily readings to the worker pool", func() {
			pool, err := worker.NewPool(&worker.Config{History: store, NumWorkers: 1})
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(pool.Close)

			server, err = NewServer(Config{}, Deps{Readings: gen, History: store, Pool: pool}, nil)
			Expect(err).NotTo(HaveOccurred())

			doRequest(server, http.MethodPost, "/v1/readings", ReadingRequest{Type: "daily"})

			Eventually(func() (bool, error) {
				return store.HasToday(ctx)
			}).Should(BeTrue())

			entry, err := store.Today(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.Reading).To(Equal("Hello **world**"))
		})
	})

	Describe("history", func() {
		It("reports no entry before today's reading", func() {
			resp, body := doRequest(server, http.MethodGet, "/v1/history/today", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out TodayResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Entry).To(BeNil())
			Expect(out.RefreshInSeconds).To(BeNumerically(">", 0))
		})

		It("lists and clears entries", func() {
			fool, _ := tarot.Lookup(0)
			_, err := store.SaveToday(ctx, []tarot.DrawnCard{tarot.Orient(fool, true)}, "今日")
			Expect(err).NotTo(HaveOccurred())

			resp, body := doRequest(server, http.MethodGet, "/v1/history", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var entries []history.DatedEntry
			Expect(json.Unmarshal(body, &entries)).To(Succeed())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Reading).To(Equal("今日"))

			resp, _ = doRequest(server, http.MethodDelete, "/v1/history", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))

			has, err := store.HasToday(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(has).To(BeFalse())
		})
	})

	Describe("saved readings", func() {
		data := history.ReadingData{
			Title:   "今日塔罗解读",
			Date:    "2026年10月19日",
			Type:    "daily",
			Content: "**今日** 宜冒险",
		}

		It("rejects a reading without content", func() {
			resp, body := doRequest(server, http.MethodPost, "/v1/saved", history.ReadingData{Title: "x"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			var out ErrorResponse
			Expect(json.Unmarshal(body, &out)).To(Succeed())
			Expect(out.Error).To(Equal("content is required"))
		})

		It("saves, fetches, exports and deletes a reading", func() {
			resp, body := doRequest(server, http.MethodPost, "/v1/saved", data)
			Expect(resp.StatusCode).To(Equal(fiber.StatusCreated))

			var saved history.SavedReading
			Expect(json.Unmarshal(body, &saved)).To(Succeed())
			Expect(saved.ID).NotTo(BeEmpty())

			resp, body = doRequest(server, http.MethodGet, "/v1/saved", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			var list []history.SavedReading
			Expect(json.Unmarshal(body, &list)).To(Succeed())
			Expect(list).To(HaveLen(1))

			resp, body = doRequest(server, http.MethodGet, "/v1/saved/"+saved.ID, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			var got history.SavedReading
			Expect(json.Unmarshal(body, &got)).To(Succeed())
			Expect(got.Content).To(Equal(data.Content))

			resp, body = doRequest(server, http.MethodGet, "/v1/saved/"+saved.ID+"/export", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(HavePrefix("attachment; filename*=UTF-8''"))
			Expect(string(body)).To(ContainSubstring("宜冒险"))

			resp, _ = doRequest(server, http.MethodDelete, "/v1/saved/"+saved.ID, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))

			resp, _ = doRequest(server, http.MethodDelete, "/v1/saved/"+saved.ID, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))

			resp, _ = doRequest(server, http.MethodGet, "/v1/saved/"+saved.ID, nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})

		It("clears all saved readings", func() {
			_, err := store.Save(ctx, data)
			Expect(err).NotTo(HaveOccurred())

			resp, _ := doRequest(server, http.MethodDelete, "/v1/saved", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusNoContent))

			list, err := store.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})
	})
})
