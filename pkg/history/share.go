package history

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/papercomputeco/tarot/pkg/format"
)

// ShareText renders a reading as plain text for sharing or export.
func ShareText(data ReadingData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔮 %s\n", data.Title)
	if data.Date != "" {
		fmt.Fprintf(&b, "📅 %s\n", data.Date)
	}
	if data.Question != "" {
		fmt.Fprintf(&b, "❓ 问题：%s\n", data.Question)
	}

	b.WriteString("\n🃏 抽取的牌：\n")
	for i, c := range data.Cards {
		fmt.Fprintf(&b, "%d. %s（%s）\n", i+1, c.Name, c.Orientation())
	}

	b.WriteString("\n📖 解读内容：\n")
	b.WriteString(format.PlainText(data.Content))
	b.WriteString("\n\n✨ 来自塔罗牌解读应用")

	return b.String()
}

// ExportFilename names the text file a reading is exported to. Readings
// without a date use the date of now.
func ExportFilename(data ReadingData, now time.Time) string {
	date := data.Date
	if date == "" {
		date = DisplayDate(now)
	}
	date = strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "_").Replace(date)
	return "塔罗解读_" + date + ".txt"
}

// Export writes the share text of data to w.
func Export(w io.Writer, data ReadingData) error {
	if _, err := io.WriteString(w, ShareText(data)+"\n"); err != nil {
		return fmt.Errorf("exporting reading: %w", err)
	}
	return nil
}
