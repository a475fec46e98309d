// Package historycmder provides the history command for the daily readings.
package historycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tarot/cmd/tarot/setup"
	"github.com/papercomputeco/tarot/pkg/cliui"
	"github.com/papercomputeco/tarot/pkg/config"
	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/reading"
	"github.com/papercomputeco/tarot/pkg/utils"
)

const historyLongDesc string = `Show and manage past daily readings.

One daily reading is kept per local day. With no subcommand, lists them
newest first.

Examples:
  tarot history
  tarot history today
  tarot history list --json
  tarot history clear`

const historyShortDesc string = "Show past daily readings"

var storageFlagKeys = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

// addStorageFlags registers the storage flags on cmd.
func addStorageFlags(cmd *cobra.Command) {
	var driver, sqlitePath, dsn string
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &dsn)
}

// withStore opens the history store for cmd and passes it to fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *history.Store) error) error {
	configDir, debug := setup.Flags(cmd)

	cfg, err := setup.Load(cmd, storageFlagKeys...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, closeStore, err := setup.History(ctx, cfg, configDir, setup.Logger(debug))
	if err != nil {
		return err
	}
	defer closeStore()

	return fn(ctx, store)
}

func NewHistoryCmd() *cobra.Command {
	var asJSON bool

	list := func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(ctx context.Context, store *history.Store) error {
			return runList(ctx, cmd.OutOrStdout(), store, asJSON)
		})
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	addStorageFlags(cmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List past daily readings, newest first",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	addStorageFlags(listCmd)

	todayCmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *history.Store) error {
				return runToday(ctx, cmd.OutOrStdout(), store)
			})
		},
	}
	addStorageFlags(todayCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all daily readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *history.Store) error {
				if err := store.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s History cleared\n", cliui.SuccessMark)
				return nil
			})
		},
	}
	addStorageFlags(clearCmd)

	cmd.AddCommand(listCmd, todayCmd, clearCmd)
	return cmd
}

func runList(ctx context.Context, w io.Writer, store *history.Store, asJSON bool) error {
	entries, err := store.Sorted(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, cliui.DimStyle.Render("No daily readings yet. Run \"tarot read daily\"."))
		return nil
	}

	for _, e := range entries {
		names := make([]string, 0, len(e.Cards))
		for _, c := range e.Cards {
			names = append(names, c.DisplayName)
		}
		fmt.Fprintf(w, "%s  %s\n", cliui.KeyStyle.Render(e.Date), cliui.ValueStyle.Render(fmt.Sprint(names)))
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render(utils.Truncate(firstLine(e.Reading), 60)))
	}
	return nil
}

func runToday(ctx context.Context, w io.Writer, store *history.Store) error {
	entry, err := store.Today(ctx)
	if err != nil {
		return err
	}

	if entry == nil {
		fmt.Fprintln(w, cliui.DimStyle.Render("No reading yet today. Run \"tarot read daily\"."))
		return nil
	}

	fmt.Fprintf(w, "%s\n\n", cliui.TitleStyle.Render("今日塔罗 · "+entry.Date))
	for i, c := range entry.Cards {
		fmt.Fprintf(w, "  %s\n", cliui.CardLine(reading.Daily.Position(i), c, 0))
	}
	fmt.Fprintf(w, "\n%s\n\n%s\n", entry.Reading, cliui.DimStyle.Render(history.FormatRefresh(store.RefreshIn())))
	return nil
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
