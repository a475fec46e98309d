package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/tarot/cmd/tarot/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	// run executes the config command and returns its output.
	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "tarot-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .tarot dir so the manager picks it up
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".tarot"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			_, err := run("set", "llm.model", "qwen-max")
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(filepath.Join(tmpDir, ".tarot", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`model = "qwen-max"`))
		})

		It("masks secrets in its output", func() {
			out, err := run("set", "llm.api_key", "sk-abcdef123456")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).NotTo(ContainSubstring("sk-abcdef123456"))
			Expect(out).To(ContainSubstring("3456"))
		})

		It("rejects unknown keys", func() {
			_, err := run("set", "invalid_key", "value")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown config key"))
		})

		It("requires exactly two arguments", func() {
			_, err := run("set", "llm.model")
			Expect(err).To(HaveOccurred())

			_, err = run("set")
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid integer values", func() {
			_, err := run("set", "reading.throttle_ms", "not-a-number")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			_, err := run("set", "transport.backend", "chunked")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("get", "transport.backend")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("chunked"))
		})

		It("reports defaults for keys not in the file", func() {
			out, err := run("get", "llm.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("qwen-plus"))
		})

		It("reports unset keys", func() {
			out, err := run("get", "storage.postgres_dsn")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			_, err := run("get", "invalid_key")
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			_, err := run("get")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			out, err := run("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("llm.base_url"))
			Expect(out).To(ContainSubstring("eventstream.topic"))
		})

		It("masks the api key", func() {
			_, err := run("set", "llm.api_key", "sk-abcdef123456")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).NotTo(ContainSubstring("sk-abcdef123456"))
			Expect(out).To(ContainSubstring(`"****3456"`))
		})

		It("rejects any arguments", func() {
			_, err := run("list", "extra")
			Expect(err).To(HaveOccurred())
		})
	})
})
