package timer_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/pkg/logger"
	"github.com/papercomputeco/tarot/pkg/timer"
)

type steppingClock struct {
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	return c.now
}

func (c *steppingClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

var _ = Describe("Timer", func() {
	var clock *steppingClock

	BeforeEach(func() {
		clock = &steppingClock{now: time.Unix(0, 0)}
	})

	It("reports elapsed time without stopping", func() {
		t := timer.Start(nil, "connect", timer.WithClock(clock.Now))
		clock.Advance(120 * time.Millisecond)
		Expect(t.Elapsed()).To(Equal(120 * time.Millisecond))
		clock.Advance(30 * time.Millisecond)
		Expect(t.Elapsed()).To(Equal(150 * time.Millisecond))
	})

	It("records the duration on the first Stop only", func() {
		t := timer.Start(nil, "stream", timer.WithClock(clock.Now))
		clock.Advance(time.Second)
		Expect(t.Stop()).To(Equal(time.Second))

		clock.Advance(time.Second)
		Expect(t.Stop()).To(Equal(time.Second))
	})

	It("keeps timers with the same label independent", func() {
		a := timer.Start(nil, "api", timer.WithClock(clock.Now))
		clock.Advance(time.Second)
		b := timer.Start(nil, "api", timer.WithClock(clock.Now))
		clock.Advance(time.Second)

		Expect(b.Stop()).To(Equal(time.Second))
		Expect(a.Stop()).To(Equal(2 * time.Second))
	})

	It("logs the label when stopped", func() {
		var buf bytes.Buffer
		t := timer.Start(logger.New(logger.WithDebug(true), logger.WithWriter(&buf)), "first-chunk")
		t.Stop()
		Expect(buf.String()).To(ContainSubstring("first-chunk"))
		Expect(buf.String()).To(ContainSubstring("elapsed_ms"))
	})

	Describe("Measure", func() {
		It("returns the error of the measured function", func() {
			boom := errors.New("boom")
			d, err := timer.Measure(nil, "op", func() error { return boom })
			Expect(err).To(MatchError(boom))
			Expect(d).To(BeNumerically(">=", 0))
		})
	})
})
