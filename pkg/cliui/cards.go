package cliui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/tarot/pkg/tarot"
)

// CardLine renders one drawn card on a single line no wider than width.
// position may be empty.
func CardLine(position string, c tarot.DrawnCard, width int) string {
	orientation := UprightStyle.Render(c.Orientation())
	if !c.Upright {
		orientation = ReverseStyle.Render(c.Orientation())
	}

	var b strings.Builder
	if position != "" {
		b.WriteString(DimStyle.Render(position))
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "%s %s %s", TitleStyle.Render(c.Name), DimStyle.Render(c.NameEn), orientation)
	if len(c.Keywords) > 0 {
		b.WriteString(" · ")
		b.WriteString(DimStyle.Render(strings.Join(c.Keywords, "、")))
	}

	line := b.String()
	if width > 0 && ansi.StringWidth(line) > width {
		line = ansi.Truncate(line, width, "…")
	}
	return line
}
