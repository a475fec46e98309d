package mcp_test

import (
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/api/mcp"
	"github.com/papercomputeco/tarot/pkg/history"
	tarotlogger "github.com/papercomputeco/tarot/pkg/logger"
	"github.com/papercomputeco/tarot/pkg/storage/inmemory"
	"github.com/papercomputeco/tarot/pkg/tarot"
)

// connect wires an MCP client to server over in-memory transports.
func connect(ctx context.Context, server *mcp.Server) *sdkmcp.ClientSession {
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()

	_, err := server.MCPServer().Connect(ctx, serverTransport, nil)
	Expect(err).NotTo(HaveOccurred())

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(session.Close)
	return session
}

func textOf(result *sdkmcp.CallToolResult) string {
	Expect(result.Content).To(HaveLen(1))
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("MCP Server", func() {
	var (
		ctx   context.Context
		store *history.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = history.New(inmemory.NewDriver())
	})

	Describe("NewServer", func() {
		It("returns an error when the deck is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: tarotlogger.Nop()})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("deck is required"))
		})

		It("returns an error when the logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Deck: tarot.NewDeck()})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("builds an empty server in noop mode", func() {
			server, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.MCPServer()).NotTo(BeNil())
		})

		It("exposes an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{Deck: tarot.NewDeck(), Logger: tarotlogger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		var session *sdkmcp.ClientSession

		BeforeEach(func() {
			server, err := mcp.NewServer(mcp.Config{
				Deck:    tarot.NewDeck(),
				History: store,
				Logger:  tarotlogger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())
			session = connect(ctx, server)
		})

		It("lists draw_cards and today_reading", func() {
			res, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
			Expect(err).NotTo(HaveOccurred())

			names := []string{}
			for _, tool := range res.Tools {
				names = append(names, tool.Name)
			}
			Expect(names).To(ConsistOf("draw_cards", "today_reading"))
		})

		It("draws three cards by default", func() {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "draw_cards",
				Arguments: map[string]any{},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.DrawOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Count).To(Equal(3))
			Expect(out.Cards).To(HaveLen(3))
			Expect(out.Interpretation).To(ContainSubstring("今日运势"))
		})

		It("honours count, arcana and exclusions", func() {
			exclude := []int{}
			for id := 0; id < 20; id++ {
				exclude = append(exclude, id)
			}

			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name: "draw_cards",
				Arguments: map[string]any{
					"count":       2,
					"arcana":      "major",
					"exclude_ids": exclude,
					"question":    "工作",
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.DrawOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Cards).To(HaveLen(2))
			for _, c := range out.Cards {
				Expect(c.ID).To(BeNumerically(">=", 20))
				Expect(c.ID).To(BeNumerically("<", 22))
			}
			Expect(out.Interpretation).To(ContainSubstring("工作"))
		})

		It("reports an invalid arcana as a tool error", func() {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "draw_cards",
				Arguments: map[string]any{"arcana": "wands"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("Invalid arcana"))
		})

		It("reports no reading before one is saved today", func() {
			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "today_reading",
				Arguments: map[string]any{},
			})
			Expect(err).NotTo(HaveOccurred())

			var out mcp.TodayOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Found).To(BeFalse())
			Expect(out.RefreshIn).NotTo(BeEmpty())
		})

		It("returns today's saved reading", func() {
			fool, _ := tarot.Lookup(0)
			_, err := store.SaveToday(ctx, []tarot.DrawnCard{tarot.Orient(fool, false)}, "新的开始")
			Expect(err).NotTo(HaveOccurred())

			res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "today_reading",
				Arguments: map[string]any{},
			})
			Expect(err).NotTo(HaveOccurred())

			var out mcp.TodayOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Found).To(BeTrue())
			Expect(out.Reading).To(Equal("新的开始"))
			Expect(out.Cards).To(HaveLen(1))
			Expect(out.Cards[0].Orientation).To(Equal("逆位"))
		})
	})
})
