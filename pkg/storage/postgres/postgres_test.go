package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/pkg/storage"
	"github.com/papercomputeco/tarot/pkg/storage/postgres"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("TAROT_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("TAROT_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	var (
		driver *postgres.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		dsn := connStr()

		var err error
		driver, err = postgres.NewDriver(ctx, dsn)
		Expect(err).NotTo(HaveOccurred())

		// Clean all keys before each test for isolation.
		_, err = driver.DB.ExecContext(ctx, "DELETE FROM kv")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	It("upserts values", func() {
		Expect(driver.Set(ctx, "k", []byte("one"))).To(Succeed())
		Expect(driver.Set(ctx, "k", []byte("two"))).To(Succeed())

		v, err := driver.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(v)).To(Equal("two"))
	})

	It("returns NotFoundError for missing keys", func() {
		_, err := driver.Get(ctx, "nope")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("removes keys", func() {
		Expect(driver.Set(ctx, "k", []byte("v"))).To(Succeed())
		Expect(driver.Remove(ctx, "k")).To(Succeed())

		_, err := driver.Get(ctx, "k")
		Expect(storage.IsNotFound(err)).To(BeTrue())
	})

	It("fails to connect to an unreachable server", func() {
		_, err := postgres.NewDriver(ctx, "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
		Expect(err).To(HaveOccurred())
	})
})
