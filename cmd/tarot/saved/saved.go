// Package savedcmder provides the saved command for saved readings.
package savedcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tarot/cmd/tarot/setup"
	"github.com/papercomputeco/tarot/pkg/cliui"
	"github.com/papercomputeco/tarot/pkg/config"
	"github.com/papercomputeco/tarot/pkg/history"
	"github.com/papercomputeco/tarot/pkg/storage"
)

const savedLongDesc string = `Show and manage saved readings.

Readings are saved with "tarot read --save". At most 50 are kept, newest
first. With no subcommand, lists them.

Examples:
  tarot saved
  tarot saved show <id>
  tarot saved export <id>
  tarot saved export <id> -o reading.txt
  tarot saved delete <id>
  tarot saved clear`

const savedShortDesc string = "Show and manage saved readings"

type savedCommander struct {
	asJSON bool
	output string
	now    func() time.Time
}

func addStorageFlags(cmd *cobra.Command) {
	var driver, sqlitePath, dsn string
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &driver)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &dsn)
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *history.Store) error) error {
	configDir, debug := setup.Flags(cmd)

	cfg, err := setup.Load(cmd, config.FlagStorageDriver, config.FlagSQLite, config.FlagPostgresDSN)
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

func NewSavedCmd() *cobra.Command {
	cmder := &savedCommander{now: time.Now}

	list := func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd, func(ctx context.Context, store *history.Store) error {
			return cmder.list(ctx, cmd.OutOrStdout(), store)
		})
	}

	cmd := &cobra.Command{
		Use:   "saved",
		Short: savedShortDesc,
		Long:  savedLongDesc,
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print as JSON")
	addStorageFlags(cmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved readings, newest first",
		Args:  cobra.NoArgs,
		RunE:  list,
	}
	listCmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print as JSON")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved reading as share text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store *history.Store) error {
				saved, err := get(ctx, store, args[0])
				if err != nil {
					return err
				}
				return history.Export(cmd.OutOrStdout(), saved.ReadingData)
			})
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a saved reading to a text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store *history.Store) error {
				return cmder.export(ctx, cmd.OutOrStdout(), store, args[0])
			})
		},
	}
	exportCmd.Flags().StringVarP(&cmder.output, "output", "o", "", "File to write (default: named after the reading date, - for stdout)")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store *history.Store) error {
				removed, err := store.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("saved reading %q not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", cliui.SuccessMark, args[0])
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *history.Store) error {
				if err := store.ClearAll(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Saved readings cleared\n", cliui.SuccessMark)
				return nil
			})
		},
	}

	for _, sub := range []*cobra.Command{listCmd, showCmd, exportCmd, deleteCmd, clearCmd} {
		addStorageFlags(sub)
		cmd.AddCommand(sub)
	}
	return cmd
}

func get(ctx context.Context, store *history.Store, id string) (*history.SavedReading, error) {
	saved, err := store.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("saved reading %q not found", id)
		}
		return nil, err
	}
	return saved, nil
}

func (c *savedCommander) list(ctx context.Context, w io.Writer, store *history.Store) error {
	saved, err := store.List(ctx)
	if err != nil {
		return err
	}

	if c.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(saved)
	}

	if len(saved) == 0 {
		fmt.Fprintln(w, cliui.DimStyle.Render("No saved readings. Use \"tarot read --save\"."))
		return nil
	}

	for _, s := range saved {
		fmt.Fprintf(w, "%s  %s  %s\n",
			cliui.KeyStyle.Render(s.ID),
			cliui.ValueStyle.Render(s.Title),
			cliui.DimStyle.Render(s.SavedDate),
		)
	}
	return nil
}

func (c *savedCommander) export(ctx context.Context, w io.Writer, store *history.Store, id string) error {
	saved, err := get(ctx, store, id)
	if err != nil {
		return err
	}

	if c.output == "-" {
		return history.Export(w, saved.ReadingData)
	}

	path := c.output
	if path == "" {
		path = history.ExportFilename(saved.ReadingData, c.now())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := history.Export(f, saved.ReadingData); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s Exported to %s\n", cliui.SuccessMark, path)
	return nil
}
