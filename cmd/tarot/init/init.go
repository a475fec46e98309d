// Package initcmder provides the init command for initializing a local .tarot
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tarot/pkg/config"
)

const (
	dirName = ".tarot"

	remoteTimeout = 10 * time.Second

	// maxRemoteConfig bounds a config.toml fetched by URL.
	maxRemoteConfig = 1 << 20
)

const initLongDesc string = `Initialize a new .tarot/ directory in the current working directory.

Creates a local .tarot/ directory that takes precedence over the default
~/.tarot/ directory for configuration, the reading database and the last
draw. A config.toml with default values is written unless one exists.

Use --preset to start from a provider preset (dashscope, openai, ollama) or
from a config.toml fetched from a URL. A preset overwrites an existing
config.toml.

Examples:
  tarot init
  tarot init --preset ollama
  tarot init --preset https://example.com/tarot/config.toml`

const initShortDesc string = "Initialize a local .tarot/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset ("+strings.Join(config.ValidPresetNames(), ", ")+") or URL of a config.toml")

	return cmd
}

func (c *initCommander) run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()
	if !existed {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .tarot directory: %w", err)
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	switch {
	case c.preset != "":
		cfg, err := c.presetConfig()
		if err != nil {
			return err
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}

	case !fileExists(cfger.GetTarget()):
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}
	}

	if existed {
		fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
	} else {
		fmt.Fprintf(c.out, "Initialized .tarot directory: %s\n", dir)
	}
	return nil
}

func (c *initCommander) presetConfig() (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(c.preset)
	}
	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: remoteTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfig))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
