// Package drawcmder provides the draw command, which draws cards and
// remembers them for "tarot read --last".
package drawcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tarot/pkg/cliui"
	"github.com/papercomputeco/tarot/pkg/dotdir"
	"github.com/papercomputeco/tarot/pkg/tarot"
)

const drawLongDesc string = `Draw tarot cards.

Cards are drawn without repetition, each upright or reversed with equal
chance, and shown with the basic three-card interpretation. The draw is
saved to the .tarot/ directory so "tarot read --last" can interpret it.

Examples:
  tarot draw
  tarot draw --arcana major --question "我的工作"
  tarot draw --count 1 --exclude 0,1 --json`

const drawShortDesc string = "Draw tarot cards"

type drawCommander struct {
	count     int
	arcana    string
	exclude   []int
	question  string
	json      bool
	noSave    bool
	configDir string

	out io.Writer
	now func() time.Time
	dd  *dotdir.Manager
}

func NewDrawCmd() *cobra.Command {
	cmder := &drawCommander{
		now: time.Now,
		dd:  dotdir.NewManager(),
	}

	cmd := &cobra.Command{
		Use:   "draw",
		Short: drawShortDesc,
		Long:  drawLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
	}

	cmd.Flags().IntVarP(&cmder.count, "count", "n", 3, "Number of cards to draw")
	cmd.Flags().StringVarP(&cmder.arcana, "arcana", "a", string(tarot.ArcanaAll), "Cards to draw from (all, major, minor)")
	cmd.Flags().IntSliceVar(&cmder.exclude, "exclude", nil, "Card ids that must not be drawn")
	cmd.Flags().StringVarP(&cmder.question, "question", "q", "", "Question the cards are drawn for")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print the draw as JSON")
	cmd.Flags().BoolVar(&cmder.noSave, "no-save", false, "Do not remember the draw")

	return cmd
}

func (c *drawCommander) run() error {
	if c.count <= 0 {
		return fmt.Errorf("count must be positive, got %d", c.count)
	}

	arcana, err := tarot.ParseArcana(c.arcana)
	if err != nil {
		return err
	}

	cards := tarot.Draw(c.count, c.exclude, arcana)
	if len(cards) == 0 {
		return fmt.Errorf("no %s cards left to draw", arcana)
	}

	if !c.noSave {
		state := &dotdir.DrawState{
			DrawnAt: c.now(),
			Arcana:  arcana,
			Cards:   cards,
		}
		if err := c.dd.SaveDrawState(state, c.configDir); err != nil {
			return err
		}
	}

	interpretation := tarot.Interpret(cards, tarot.ThreeCard, c.question)

	if c.json {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Cards          []tarot.DrawnCard `json:"cards"`
			Interpretation string            `json:"interpretation"`
		}{cards, interpretation})
	}

	width := cliui.Width(os.Stdout)
	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.TitleStyle.Render(tarot.ThreeCard.Name))
	for i, card := range cards {
		position := ""
		if i < len(tarot.ThreeCard.Positions) {
			position = tarot.ThreeCard.Positions[i].Name
		}
		fmt.Fprintf(c.out, "  %s\n", cliui.CardLine(position, card, width-2))
	}
	fmt.Fprintf(c.out, "\n%s\n", interpretation)

	return nil
}
