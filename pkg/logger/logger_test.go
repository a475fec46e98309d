package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/pkg/logger"
)

func decodeJSONLine(b []byte) map[string]any {
	var parsed map[string]any
	ExpectWithOffset(1, json.Unmarshal(bytes.TrimSpace(b), &parsed)).To(Succeed())
	return parsed
}

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes text at Info by default", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("card drawn", "card", "星星")
			l.Debug("hidden")

			Expect(buf.String()).To(ContainSubstring("card drawn"))
			Expect(buf.String()).To(ContainSubstring("card=星星"))
			Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		})

		It("enables debug output", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
			l.Debug("debug msg")

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("lets WithLevel raise the threshold", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true), logger.WithLevel(slog.LevelWarn))
			l.Info("quiet")
			l.Warn("loud")

			Expect(buf.String()).NotTo(ContainSubstring("quiet"))
			Expect(buf.String()).To(ContainSubstring("loud"))
		})

		It("writes JSON", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("reading complete", "cards", 3)

			parsed := decodeJSONLine(buf.Bytes())
			Expect(parsed["msg"]).To(Equal("reading complete"))
			Expect(parsed["cards"]).To(BeNumerically("==", 3))
		})

		It("writes pretty output", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
			l.Info("pretty output")

			Expect(buf.String()).To(ContainSubstring("pretty output"))
		})
	})

	Describe("ParseLevel", func() {
		DescribeTable("known names",
			func(name string, want slog.Level) {
				level, err := logger.ParseLevel(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(level).To(Equal(want))
			},
			Entry("empty", "", slog.LevelInfo),
			Entry("debug", "debug", slog.LevelDebug),
			Entry("upper case", "WARN", slog.LevelWarn),
			Entry("error", "error", slog.LevelError),
		)

		It("rejects unknown names", func() {
			_, err := logger.ParseLevel("chatty")
			Expect(err).To(MatchError(ContainSubstring("invalid log level")))
		})
	})

	Describe("Nop", func() {
		It("is disabled at every level", func() {
			l := logger.Nop()
			Expect(l.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
			Expect(func() { l.With("k", "v").WithGroup("g").Info("msg") }).NotTo(Panic())
		})
	})

	Describe("Multi", func() {
		It("dispatches to every logger at its own level", func() {
			var info, debug bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&info)),
				logger.New(logger.WithWriter(&debug), logger.WithDebug(true)),
			)

			multi.Debug("details")
			multi.Info("broadcast")

			Expect(info.String()).To(ContainSubstring("broadcast"))
			Expect(info.String()).NotTo(ContainSubstring("details"))
			Expect(debug.String()).To(ContainSubstring("details"))
			Expect(debug.String()).To(ContainSubstring("broadcast"))
		})

		It("carries With and WithGroup to every handler", func() {
			var buf bytes.Buffer
			multi := logger.Multi(logger.New(logger.WithWriter(&buf), logger.WithJSON(true)))

			multi.With("component", "api").WithGroup("request").Info("processed", "method", "GET")

			parsed := decodeJSONLine(buf.Bytes())
			Expect(parsed["component"]).To(Equal("api"))
			group, ok := parsed["request"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(group["method"]).To(Equal("GET"))
		})

		It("skips nil loggers", func() {
			Expect(func() { logger.Multi(nil, logger.Nop()).Info("x") }).NotTo(Panic())
		})
	})

	Describe("WithFile", func() {
		It("appends JSON records to the file and keeps the console", func() {
			var console bytes.Buffer
			path := filepath.Join(GinkgoT().TempDir(), "serve.log")

			l, closer, err := logger.WithFile(logger.New(logger.WithWriter(&console)), path, slog.LevelInfo)
			Expect(err).NotTo(HaveOccurred())
			l.Info("server started", "listen", ":8080")
			Expect(closer.Close()).To(Succeed())

			Expect(console.String()).To(ContainSubstring("server started"))

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).To(HaveLen(1))
			parsed := decodeJSONLine([]byte(lines[0]))
			Expect(parsed["listen"]).To(Equal(":8080"))
		})

		It("fails when the file cannot be opened", func() {
			_, _, err := logger.WithFile(logger.Nop(), filepath.Join(GinkgoT().TempDir(), "missing", "x.log"), slog.LevelInfo)
			Expect(err).To(MatchError(ContainSubstring("opening log file")))
		})
	})
})
