package servecmder

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/pkg/logger"
)

var _ = Describe("watchConfig", func() {
	var (
		dir     string
		calls   atomic.Int32
		cancel  context.CancelFunc
		stopped chan error
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		calls.Store(0)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		stopped = make(chan error, 1)
		go func() {
			stopped <- watchConfig(ctx, dir, logger.Nop(), func() { calls.Add(1) })
		}()

		// give the watcher time to register the directory
		time.Sleep(100 * time.Millisecond)
	})

	AfterEach(func() {
		cancel()
		Eventually(stopped).Should(Receive(BeNil()))
	})

	It("fires when config.toml is written", func() {
		path := filepath.Join(dir, configFileName)
		Expect(os.WriteFile(path, []byte("version = 0\n"), 0o600)).To(Succeed())

		Eventually(calls.Load, 2*time.Second).Should(BeNumerically(">=", 1))
	})

	It("coalesces a burst of writes", func() {
		path := filepath.Join(dir, configFileName)
		for range 10 {
			Expect(os.WriteFile(path, []byte("version = 0\n"), 0o600)).To(Succeed())
		}

		Eventually(calls.Load, 2*time.Second).Should(BeNumerically(">=", 1))
		Consistently(calls.Load, 500*time.Millisecond).Should(BeNumerically("<=", 2))
	})

	It("ignores other files in the directory", func() {
		Expect(os.WriteFile(filepath.Join(dir, "tarot.db"), []byte("x"), 0o600)).To(Succeed())

		Consistently(calls.Load, 500*time.Millisecond).Should(BeZero())
	})
})

var _ = Describe("watchConfig errors", func() {
	It("fails for a missing directory", func() {
		err := watchConfig(context.Background(), filepath.Join(GinkgoT().TempDir(), "missing"), logger.Nop(), func() {})
		Expect(err).To(MatchError(ContainSubstring("watching")))
	})
})
