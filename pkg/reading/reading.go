// Package reading turns a drawn spread into interpretive text: it builds the
// LLM prompts, streams the reply through a throttled progress callback, and
// falls back to an offline generator when the LLM cannot be reached.
package reading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/tarot/pkg/tarot"
)

// Type is the kind of reading.
type Type string

const (
	Daily  Type = "daily"
	Quick  Type = "quick"
	Custom Type = "custom"
)

var (
	// ErrQuestionRequired is returned for a custom reading without a question.
	ErrQuestionRequired = errors.New("a custom reading needs a question")

	// ErrNoCards is returned when a reading is requested for an empty spread.
	ErrNoCards = errors.New("no cards to read")

	// ErrEmptyReading is returned when generation produced no text.
	ErrEmptyReading = errors.New("reading is empty")

	// ErrUnknownType is returned by ParseType.
	ErrUnknownType = errors.New("unknown reading type")
)

// Types lists the reading types.
func Types() []Type {
	return []Type{Daily, Quick, Custom}
}

// ParseType maps a name to a Type.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case Daily, Quick, Custom:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

var (
	timelinePositions = []string{"过去/问题根源", "现在/当前情况", "未来/可能结果"}
	questionPositions = []string{"当前状况", "障碍或助力", "建议或结果"}
)

// Position returns the name of the i-th spread position for the type.
func (t Type) Position(i int) string {
	positions := timelinePositions
	if t == Custom {
		positions = questionPositions
	}
	if i < 0 || i >= len(positions) {
		return ""
	}
	return positions[i]
}

// Keyword is the focus the reading is asked to interpret the cards against.
func (t Type) Keyword(question string) string {
	switch t {
	case Daily:
		return "今日"
	case Quick:
		return "生活"
	default:
		return question
	}
}

// Title is the heading a reading of this type is shown under.
func (t Type) Title(question string) string {
	switch t {
	case Daily:
		return "今日塔罗解读"
	case Quick:
		return "快速塔罗解读"
	default:
		return "定向塔罗解读: " + question
	}
}

// Request describes one reading.
type Request struct {
	Type     Type
	Question string
	Cards    []tarot.DrawnCard
	Spread   tarot.Spread

	// Insight asks for the deeper psychological reading, building on
	// BaseReading when it is set.
	Insight     bool
	BaseReading string
}

// Validate checks the request can be read.
func (r Request) Validate() error {
	if len(r.Cards) == 0 {
		return ErrNoCards
	}
	switch r.Type {
	case Daily, Quick:
		return nil
	case Custom:
		if strings.TrimSpace(r.Question) == "" {
			return ErrQuestionRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}
}
