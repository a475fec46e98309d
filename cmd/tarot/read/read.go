// Package readcmder provides the read command, which streams a tarot reading
// to the terminal.
package readcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tarot/cmd/tarot/setup"
	"github.com/papercomputeco/tarot/pkg/cliui"
	"github.com/papercomputeco/tarot/pkg/config"
	"github.com/papercomputeco/tarot/pkg/dotdir"
	"github.com/papercomputeco/tarot/pkg/format"
	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/reading"
	"github.com/papercomputeco/tarot/pkg/tarot"
)

const readLongDesc string = `Stream a tarot reading.

Reading types:
  daily     Today's reading. One per day; later calls show today's entry
            until local midnight. Use --force to read again.
  quick     A reading of the cards for everyday life.
  custom    A reading for your own question.

Three cards are drawn for the reading unless --last reuses the cards of the
previous "tarot draw". The reading streams as it is written. When the AI
service cannot be reached, an offline reading is written instead.

Examples:
  tarot read daily
  tarot read quick --arcana major
  tarot read custom "我应该换工作吗？"
  tarot read custom --last --question "这段关系会怎样发展？" --save
  tarot read daily --insight
  tarot read quick --no-stream --html > reading.html`

const readShortDesc string = "Stream a tarot reading"

type readCommander struct {
	question string
	last     bool
	arcana   string
	insight  bool
	force    bool
	stream   bool
	html     bool
	raw      bool
	offline  bool
	save     bool

	// bound into the viper chain by setup.Load
	baseURL     string
	model       string
	maxTokens   uint
	throttleMs  uint
	storage     string
	sqlitePath  string
	postgresDSN string

	configDir string
	out       io.Writer
	errOut    io.Writer
	logger    *slog.Logger
	now       func() time.Time
}

var readFlagKeys = []string{
	config.FlagBaseURL,
	config.FlagModel,
	config.FlagMaxTokens,
	config.FlagThrottle,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

func NewReadCmd() *cobra.Command {
	cmder := &readCommander{now: time.Now}

	cmd := &cobra.Command{
		Use:       "read <daily|quick|custom> [question]",
		Short:     readShortDesc,
		Long:      readLongDesc,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{string(reading.Daily), string(reading.Quick), string(reading.Custom)},
		RunE: func(cmd *cobra.Command, args []string) error {
			var debug bool
			cmder.configDir, debug = setup.Flags(cmd)
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			cmder.logger = setup.Logger(debug)

			t, err := reading.ParseType(args[0])
			if err != nil {
				return err
			}
			if len(args) > 1 {
				if cmder.question != "" {
					return errors.New("give the question as an argument or with --question, not both")
				}
				cmder.question = strings.Join(args[1:], " ")
			}

			cfg, err := setup.Load(cmd, readFlagKeys...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cfg, t)
		},
	}

	cmd.Flags().StringVarP(&cmder.question, "question", "q", "", "Question for a custom reading")
	cmd.Flags().BoolVar(&cmder.last, "last", false, `Read the cards of the last "tarot draw"`)
	cmd.Flags().StringVarP(&cmder.arcana, "arcana", "a", string(tarot.ArcanaAll), "Cards to draw from (all, major, minor)")
	cmd.Flags().BoolVar(&cmder.insight, "insight", false, "Ask for the deeper psychological reading")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Make a new daily reading even if today's exists")
	cmd.Flags().BoolVar(&cmder.stream, "stream", true, "Print the reading as it is written")
	cmd.Flags().BoolVar(&cmder.html, "html", false, "Print the finished reading as HTML")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Dump the raw LLM stream to stderr")
	cmd.Flags().BoolVar(&cmder.offline, "offline", false, "Skip the AI service and read offline")
	cmd.Flags().BoolVar(&cmder.save, "save", false, "Add the reading to the saved readings")

	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	config.AddUintFlag(cmd, config.Flags, config.FlagThrottle, &cmder.throttleMs)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storage)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)

	return cmd
}

func (c *readCommander) run(ctx context.Context, cfg *config.Config, t reading.Type) error {
	if t == reading.Custom && strings.TrimSpace(c.question) == "" {
		return reading.ErrQuestionRequired
	}

	var store *history.Store
	if t == reading.Daily || c.save {
		s, closeStore, err := setup.History(ctx, cfg, c.configDir, c.logger)
		if err != nil {
			return err
		}
		defer closeStore()
		store = s
	}

	var baseReading string
	if t == reading.Daily {
		entry, err := store.Today(ctx)
		if err != nil {
			return err
		}
		switch {
		case entry != nil && c.insight:
			baseReading = entry.Reading
		case entry != nil && !c.force:
			return c.printToday(store, entry)
		}
	}

	cards, err := c.cards(ctx, store, baseReading)
	if err != nil {
		return err
	}

	req := reading.Request{
		Type:        t,
		Question:    c.question,
		Cards:       cards,
		Spread:      tarot.ThreeCard,
		Insight:     c.insight,
		BaseReading: baseReading,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	var tap io.Writer
	if c.raw {
		tap = c.errOut
	}

	svc, err := setup.Service(cfg, setup.ServiceOpts{
		Offline: c.offline,
		Tap:     tap,
		Logger:  c.logger,
		Notifier: reading.NotifierFunc(func(msg string) {
			cliui.Notice(c.errOut, msg)
		}),
	})
	if err != nil {
		return err
	}

	c.printCards(t, cards)

	res, err := c.generate(ctx, svc, req)
	if err != nil {
		return err
	}

	if t == reading.Daily && !c.insight {
		if _, err := store.SaveToday(ctx, cards, res.Text); err != nil {
			return fmt.Errorf("saving today's reading: %w", err)
		}
	}

	if c.save {
		saved, err := store.Save(ctx, history.ReadingData{
			Title:    t.Title(c.question),
			Date:     history.DisplayDate(c.now()),
			Type:     string(t),
			Question: c.question,
			Cards:    cards,
			Content:  format.HTML(res.Text),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.errOut, "%s Saved reading %s\n", cliui.SuccessMark, saved.ID)
	}

	fmt.Fprintln(c.errOut, cliui.DimStyle.Render(fmt.Sprintf("%s · %s", res.Source, cliui.FormatDuration(res.Elapsed))))
	return nil
}

// cards returns the cards to read: those of today's entry for a daily
// insight, the last draw with --last, or a fresh draw.
func (c *readCommander) cards(ctx context.Context, store *history.Store, baseReading string) ([]tarot.DrawnCard, error) {
	if baseReading != "" {
		entry, err := store.Today(ctx)
		if err != nil {
			return nil, err
		}
		return entry.Cards, nil
	}

	if c.last {
		state, err := dotdir.NewManager().LoadDrawState(c.configDir)
		if err != nil {
			return nil, err
		}
		if state == nil || len(state.Cards) == 0 {
			return nil, errors.New(`no previous draw found; run "tarot draw" first`)
		}
		return state.Cards, nil
	}

	arcana, err := tarot.ParseArcana(c.arcana)
	if err != nil {
		return nil, err
	}
	return tarot.Draw(len(tarot.ThreeCard.Positions), nil, arcana), nil
}

// generate runs the reading, streaming it live when enabled.
func (c *readCommander) generate(ctx context.Context, svc *reading.Service, req reading.Request) (reading.Result, error) {
	if c.stream && !c.html {
		progress := cliui.NewProgress(c.out)
		res, err := svc.Generate(ctx, req, progress.Update)
		progress.Finish()
		return res, err
	}

	var res reading.Result
	err := cliui.Step(c.errOut, "Reading the cards", func() error {
		var err error
		res, err = svc.Generate(ctx, req, func(string) {})
		return err
	})
	if err != nil {
		return res, err
	}

	c.printFinished(res.Text)
	return res, nil
}

func (c *readCommander) printFinished(text string) {
	switch {
	case c.html:
		fmt.Fprintln(c.out, format.HTML(text))
	case c.out == os.Stdout && cliui.IsTerminal(os.Stdout):
		rendered, err := cliui.RenderMarkdown(text, cliui.Width(os.Stdout))
		if err != nil {
			c.logger.Debug("rendering markdown", "error", err)
		}
		fmt.Fprint(c.out, rendered)
	default:
		fmt.Fprintln(c.out, text)
	}
}

func (c *readCommander) printCards(t reading.Type, cards []tarot.DrawnCard) {
	width := cliui.Width(os.Stdout)
	for i, card := range cards {
		fmt.Fprintf(c.errOut, "  %s\n", cliui.CardLine(t.Position(i), card, width-2))
	}
	fmt.Fprintln(c.errOut)
}

func (c *readCommander) printToday(store *history.Store, entry *history.Entry) error {
	fmt.Fprintf(c.errOut, "%s\n\n", cliui.TitleStyle.Render("今日塔罗 · "+entry.Date))
	c.printCards(reading.Daily, entry.Cards)
	c.printFinished(entry.Reading)
	fmt.Fprintln(c.errOut, cliui.DimStyle.Render(history.FormatRefresh(store.RefreshIn())))
	return nil
}
