// Package configcmder provides the config command for managing persistent
// tarot configuration stored in the .tarot/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tarot/pkg/cliui"
	"github.com/papercomputeco/tarot/pkg/config"
)

const configLongDesc string = `Manage persistent tarot configuration.

Configuration is stored as config.toml in the .tarot/ directory and provides
default values for command flags. CLI flags and TAROT_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  llm.base_url, llm.api_key, llm.model, llm.max_tokens,
  transport.backend, transport.timeout,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  reading.throttle_ms, reading.offline_step_ms,
  api.listen,
  eventstream.backend, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  tarot config set <key> <value>    Set a configuration value
  tarot config get <key>            Get a configuration value
  tarot config list                 List all configuration values

Examples:
  tarot config set llm.model qwen-max
  tarot config set transport.backend chunked
  tarot config get llm.model
  tarot config list`

const configShortDesc string = "Manage persistent tarot configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// loadConfiger opens the config in the --config-dir override or the resolved
// .tarot/ directory and prints which file is in use.
func loadConfiger(cmd *cobra.Command) (*config.Configer, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	printTarget(cmd.OutOrStdout(), cfger.GetTarget())
	return cfger, nil
}

func printTarget(w io.Writer, target string) {
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
