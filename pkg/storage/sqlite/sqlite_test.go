package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/pkg/storage"
	"github.com/papercomputeco/tarot/pkg/storage/sqlite"
)

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		driver, err = sqlite.NewDriver(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("creates a driver with file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "tarot.db")

			s, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			// Verify file was created
			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists values across reopen", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "tarot.db")

			s, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Set(ctx, "tarot_history", []byte(`{"a":1}`))).To(Succeed())
			Expect(s.Close()).To(Succeed())

			s, err = sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			v, err := s.Get(ctx, "tarot_history")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(v)).To(Equal(`{"a":1}`))
		})
	})

	It("upserts values", func() {
		Expect(driver.Set(ctx, "k", []byte("one"))).To(Succeed())
		Expect(driver.Set(ctx, "k", []byte("二"))).To(Succeed())

		v, err := driver.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(v)).To(Equal("二"))
	})

	It("returns NotFoundError for missing keys", func() {
		_, err := driver.Get(ctx, "nope")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("removes keys idempotently", func() {
		Expect(driver.Set(ctx, "k", []byte("v"))).To(Succeed())
		Expect(driver.Remove(ctx, "k")).To(Succeed())
		Expect(driver.Remove(ctx, "k")).To(Succeed())

		_, err := driver.Get(ctx, "k")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})
})
