package reading

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// DefaultOfflineStep is the pause between sections of an offline reading.
const DefaultOfflineStep = 500 * time.Millisecond

var (
	offlineMeanings = []string{
		"内在力量和潜能",
		"转变和新的开始",
		"智慧和内在的声音",
		"稳定和物质基础",
		"选择和决策时刻",
		"和谐与平衡",
		"成功和成就",
		"内在的平静和满足",
	}

	offlineUprightAdvice = []string{
		"保持开放的心态，接受新的可能性",
		"相信自己的直觉和判断",
		"关注当下，不要过分担忧未来",
		"寻求平衡，不要走向极端",
		"勇敢面对挑战，这将带来成长",
		"与重要的人保持沟通和联系",
		"给自己一些时间和空间进行反思",
		"采取具体行动，而不仅仅是计划",
	}

	offlineReversedAdvice = []string{
		"注意不要过于冲动或鲁莽",
		"避免过度分析导致的犹豫不决",
		"警惕可能的误导或欺骗",
		"不要忽视重要的细节或警告信号",
		"避免过度依赖他人的意见",
		"注意不要陷入消极思维模式",
		"避免逃避责任或困难情况",
		"不要让过去的失败阻碍你前进",
	}

	offlineSituations = []string{
		"转变和成长",
		"反思和内省",
		"决策和选择",
		"稳定和巩固",
		"挑战和机遇并存",
		"收获和成就",
	}

	offlineOutcomes = []string{
		"带来新的机会和可能性",
		"帮助你做出重要决定",
		"让你收获之前努力的成果",
		"虽有挑战，但最终会有所收获",
		"引导你发现新的方向和目标",
		"帮助你与重要的人建立更深层次的联系",
	}
)

// Offline writes a reading from phrase tables without any network access. It
// emits the text section by section so callers see the same progressive
// delivery as a streamed reading.
type Offline struct {
	step time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// OfflineOption configures an Offline generator.
type OfflineOption func(*Offline)

// WithStep sets the pause between sections. Zero disables pausing.
func WithStep(d time.Duration) OfflineOption {
	return func(o *Offline) {
		o.step = d
	}
}

// WithRand picks phrases from r instead of the global source.
func WithRand(r *rand.Rand) OfflineOption {
	return func(o *Offline) {
		o.rng = r
	}
}

// NewOffline creates an Offline generator.
func NewOffline(opts ...OfflineOption) *Offline {
	o := &Offline{step: DefaultOfflineStep}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate writes the reading for req. onProgress, if set, receives the
// accumulated text after every section.
func (o *Offline) Generate(ctx context.Context, req Request, onProgress func(string)) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	emit := func(last bool) error {
		if onProgress != nil {
			onProgress(b.String())
		}
		if last {
			return nil
		}
		return o.pause(ctx)
	}

	fmt.Fprintf(&b, "**%s**\n\n", req.Type.Title(req.Question))
	if err := emit(false); err != nil {
		return "", err
	}

	for i, c := range req.Cards {
		pos := req.Type.Position(i)
		fmt.Fprintf(&b, "**%s - %s**\n\n", pos, c.Name)
		fmt.Fprintf(&b, "%s代表着%s。在%s的位置，它%s显示%s。\n\n",
			c.Name, o.pick(offlineMeanings), pos, c.Orientation(), o.advice(c.Upright))
		if err := emit(false); err != nil {
			return "", err
		}
	}

	b.WriteString("**牌与牌之间的关系分析**\n\n")
	switch {
	case len(req.Cards) >= 2:
		fmt.Fprintf(&b, "%s与%s的组合显示，你的过去经历正在影响当前的情况。", req.Cards[0].Name, req.Cards[1].Name)
		if len(req.Cards) > 2 {
			fmt.Fprintf(&b, "而%s则预示着可能的未来发展方向。", req.Cards[2].Name)
		}
	default:
		fmt.Fprintf(&b, "%s独自承载着这次占卜的主题。", req.Cards[0].Name)
	}
	b.WriteString("\n\n")
	if err := emit(false); err != nil {
		return "", err
	}

	b.WriteString("**综合解读和建议**\n\n")
	switch req.Type {
	case Daily:
		fmt.Fprintf(&b, "今天是充满%s的一天。过去的经验已经为你奠定了基础，现在的情况虽有挑战但也蕴含机会，未来的发展取决于你今天的选择。保持积极的心态，相信自己的直觉，今天将会是富有成效的一天。\n\n",
			o.pick(offlineSituations))
	case Quick:
		fmt.Fprintf(&b, "近期你可能会经历%s。这段时间里，重要的是保持平衡和专注，不要被短期的困难所干扰。接下来的发展将取决于你如何应对当前的挑战和机遇。\n\n",
			o.pick(offlineSituations))
	default:
		fmt.Fprintf(&b, "关于\"%s\"，这三张牌共同表明，你正处于一个%s的阶段。当前的情况需要你%s，未来的发展将会%s。\n\n",
			req.Question, o.pick(offlineSituations), o.advice(true), o.pick(offlineOutcomes))
	}
	if err := emit(false); err != nil {
		return "", err
	}

	b.WriteString("**具体建议**\n\n")
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, "%d. %s\n", i, o.advice(true))
	}
	if err := emit(true); err != nil {
		return "", err
	}

	return b.String(), nil
}

func (o *Offline) pause(ctx context.Context) error {
	if o.step <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(o.step)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *Offline) advice(upright bool) string {
	if upright {
		return o.pick(offlineUprightAdvice)
	}
	return o.pick(offlineReversedAdvice)
}

func (o *Offline) pick(phrases []string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rng != nil {
		return phrases[o.rng.IntN(len(phrases))]
	}
	return phrases[rand.IntN(len(phrases))]
}
