package reading

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/tarot/pkg/tarot"
)

// cardsInfo lists each card with its position, orientation and meaning, one
// per line.
func cardsInfo(cards []tarot.DrawnCard, t Type) string {
	lines := make([]string, 0, len(cards))
	for i, c := range cards {
		lines = append(lines, fmt.Sprintf("%s: %s(%s) - %s", t.Position(i), c.Name, c.Orientation(), c.Meaning))
	}
	return strings.Join(lines, "\n")
}

const readingOutline = `请详细解释每张牌在其位置上的含义，分别解释每张牌代表的含义并且分析不同牌面之间的关系，%s进行综合分析和占卜。解读应包括:
1. 每张牌的详细含义和象征
2. 牌在特定位置的深度解读
3. 三张牌之间的关联性和互动关系分析
4. %s的综合解读、占卜结果和相关建议

请在输出文字中适当加入🔮✨🌙⭐️🌟等小图标增加时尚感，并使用Markdown格式，包括标题和分段。`

// BuildReadingPrompt builds the prompt for a standard reading.
func BuildReadingPrompt(cards []tarot.DrawnCard, t Type, question string) (string, error) {
	req := Request{Type: t, Question: question, Cards: cards}
	if err := req.Validate(); err != nil {
		return "", err
	}

	info := cardsInfo(cards, t)
	keyword := t.Keyword(question)

	switch t {
	case Daily:
		return "请你作为一位专业的塔罗牌解读师，使用通义千问-Plus模型为我解读今日塔罗牌。我抽到了以下三张牌:\n" + info + "\n\n" +
			fmt.Sprintf(readingOutline, "结合关键词「"+keyword+"」", "对今日"), nil
	case Quick:
		return "请你作为一位专业的塔罗牌解读师，使用通义千问-Plus模型为我进行快速塔罗解读。我抽到了以下三张牌:\n" + info + "\n\n" +
			fmt.Sprintf(readingOutline, "结合关键词「"+keyword+"」", "近期"), nil
	default:
		return fmt.Sprintf("请你作为一位专业的塔罗牌解读师，使用通义千问-Plus模型为我解答以下问题: \"%s\"。我抽到了以下三张牌:\n", question) + info + "\n\n" +
			fmt.Sprintf(readingOutline, "结合用户提供的问题/关键词", "针对问题"), nil
	}
}

const insightOutline = `请基于以上信息，提供更深层次的心理学和象征意义分析，包括：
1. 从心理学角度分析这些牌面组合反映的潜意识状态
2. 提供更具体的行动建议和自我提升方向
3. 分析可能面临的挑战和如何克服
4. 提供一个简短的冥想或反思练习，帮助我更好地应用这个解读

请使用专业但易于理解的语言，在输出文字中适当加入🧠💭🌈✨等小图标增加可读性，并使用Markdown格式，包括标题和分段。`

// BuildInsightPrompt builds the prompt for the deeper reading. baseReading,
// when set, is included for the model to build on.
func BuildInsightPrompt(cards []tarot.DrawnCard, t Type, question, baseReading string) (string, error) {
	req := Request{Type: t, Question: question, Cards: cards}
	if err := req.Validate(); err != nil {
		return "", err
	}

	var subject string
	switch t {
	case Daily:
		subject = "今日塔罗牌"
	case Quick:
		subject = "生活问题"
	default:
		subject = fmt.Sprintf("关于\"%s\"", question)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "请你作为一位专业的塔罗牌解读师和心理学专家，使用通义千问-Plus模型为我提供%s的深度AI解读。我抽到了以下三张牌:\n", subject)
	b.WriteString(cardsInfo(cards, t))
	b.WriteString("\n\n")
	if baseReading != "" {
		b.WriteString("基础解读内容：\n" + baseReading + "\n\n")
	}
	b.WriteString(insightOutline)
	return b.String(), nil
}

// Prompt builds the prompt the request calls for.
func (r Request) Prompt() (string, error) {
	if r.Insight {
		return BuildInsightPrompt(r.Cards, r.Type, r.Question, r.BaseReading)
	}
	return BuildReadingPrompt(r.Cards, r.Type, r.Question)
}
