package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tarot/pkg/dotdir"
	"github.com/papercomputeco/tarot/pkg/tarot"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Target", func() {
		It("creates the directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("prefers the override over a local .tarot dir", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".tarot"), 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .tarot dir when it exists and no override is provided", func() {
			local := filepath.Join(tmpDir, ".tarot")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to ~/.tarot", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(emptyDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			home := filepath.Join(tmpDir, "home")
			Expect(os.Mkdir(home, 0o755)).To(Succeed())
			origHome := os.Getenv("HOME")
			Expect(os.Setenv("HOME", home)).To(Succeed())
			DeferCleanup(func() { os.Setenv("HOME", origHome) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(home, ".tarot")))
		})
	})

	Describe("Path", func() {
		It("joins a file name onto the target", func() {
			p, err := m.Path(tmpDir, "tarot.db")
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(Equal(filepath.Join(tmpDir, "tarot.db")))
		})
	})

	Describe("draw state", func() {
		It("returns nil before anything is drawn", func() {
			state, err := m.LoadDrawState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("round-trips the last draw", func() {
			fool, _ := tarot.Lookup(0)
			drawnAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
			Expect(m.SaveDrawState(&dotdir.DrawState{
				DrawnAt: drawnAt,
				Arcana:  tarot.ArcanaMajor,
				Cards:   []tarot.DrawnCard{tarot.Orient(fool, false)},
			}, tmpDir)).To(Succeed())

			state, err := m.LoadDrawState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.DrawnAt.Equal(drawnAt)).To(BeTrue())
			Expect(state.Cards).To(HaveLen(1))
			Expect(state.Cards[0].Upright).To(BeFalse())
			Expect(state.Cards[0].Meaning).To(Equal(fool.ReversedMeaning))
		})

		It("rejects nil state", func() {
			Expect(m.SaveDrawState(nil, tmpDir)).To(MatchError("cannot save nil draw state"))
		})

		It("clears the state and tolerates clearing twice", func() {
			Expect(m.SaveDrawState(&dotdir.DrawState{}, tmpDir)).To(Succeed())
			Expect(m.ClearDrawState(tmpDir)).To(Succeed())
			Expect(m.ClearDrawState(tmpDir)).To(Succeed())

			state, err := m.LoadDrawState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("reports corrupt state", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "draw.json"), []byte("{"), 0o600)).To(Succeed())
			_, err := m.LoadDrawState(tmpDir)
			Expect(err).To(MatchError(ContainSubstring("parsing draw state")))
		})
	})
})
