package servecmder

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func freeAddr() string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := ln.Addr().String()
	Expect(ln.Close()).To(Succeed())
	return addr
}

var _ = Describe("NewServeCmd", func() {
	It("registers the server flags", func() {
		cmd := NewServeCmd()
		for _, name := range []string{
			"listen", "storage", "sqlite", "postgres-dsn",
			"eventstream", "eventstream-topic", "model", "base-url",
			"max-tokens", "throttle-ms", "workers", "no-mcp", "no-watch", "log-json",
			"log-level", "log-file",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("serves the API until the context is cancelled", func() {
		addr := freeAddr()
		configDir := GinkgoT().TempDir()
		logFile := filepath.Join(configDir, "serve.log")

		root := &cobra.Command{Use: "tarot", SilenceUsage: true}
		root.PersistentFlags().String("config-dir", "", "")
		root.PersistentFlags().Bool("debug", false, "")
		root.AddCommand(NewServeCmd())
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs([]string{
			"serve",
			"--config-dir", configDir,
			"--listen", addr,
			"--storage", "memory",
			"--eventstream", "nop",
			"--log-json",
			"--log-file", logFile,
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- root.ExecuteContext(ctx) }()

		client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
		ping := func() (string, error) {
			resp, err := client.Get(fmt.Sprintf("http://%s/ping", addr))
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			b, err := io.ReadAll(resp.Body)
			return string(b), err
		}
		Eventually(ping, 5*time.Second, 50*time.Millisecond).Should(ContainSubstring("pong"))

		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))

		data, err := os.ReadFile(logFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("starting tarot server"))
	})

	It("rejects an unknown log level", func() {
		root := &cobra.Command{Use: "tarot", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(NewServeCmd())
		root.SetArgs([]string{"serve", "--config-dir", GinkgoT().TempDir(), "--log-level", "chatty"})

		Expect(root.Execute()).To(MatchError(ContainSubstring("invalid log level")))
	})

	It("rejects an unknown storage driver", func() {
		root := &cobra.Command{Use: "tarot", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(NewServeCmd())
		root.SetArgs([]string{"serve", "--config-dir", GinkgoT().TempDir(), "--storage", "bogus", "--no-watch"})

		Expect(root.Execute()).To(MatchError(ContainSubstring("unknown storage driver")))
	})
})
