package tarot

import (
	"fmt"
	"strings"
)

// Position is one slot of a spread.
type Position struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Meaning string `json:"meaning"`
}

// Spread is a named card layout.
type Spread struct {
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Positions   []Position `json:"positions"`
}

// ThreeCard is the past, present and future spread used by every reading.
var ThreeCard = Spread{
	Key:         "threeCard",
	Name:        "三张牌阵",
	Description: "最基本的牌阵之一，三张牌可以代表过去、现在和未来，或者问题、行动和结果。",
	Positions: []Position{
		{ID: 0, Name: "第一张牌", Meaning: "代表过去或问题的根源"},
		{ID: 1, Name: "第二张牌", Meaning: "代表现在或当前的情况"},
		{ID: 2, Name: "第三张牌", Meaning: "代表未来或可能的结果"},
	},
}

// Spreads lists the known spreads by key.
var Spreads = map[string]Spread{
	ThreeCard.Key: ThreeCard,
}

// Interpret produces the basic, catalogue-only interpretation of a spread. It
// is used when no generated reading is available. An empty question reads as
// the day's fortune.
func Interpret(cards []DrawnCard, spread Spread, question string) string {
	if question == "" {
		question = "今日运势"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "基于您的问题\"%s\",以下是%s的解读：\n\n", question, spread.Name)

	for i, pos := range spread.Positions {
		if i >= len(cards) {
			break
		}
		c := cards[i]
		fmt.Fprintf(&b, "%s（%s）：\n%s\n\n", pos.Name, c.DisplayName, c.Meaning)
	}

	b.WriteString("综合解读：\n")
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, c.DisplayName)
	}
	fmt.Fprintf(&b, "%s共同指向的主题值得您细细体会。", strings.Join(names, "、"))
	return b.String()
}
