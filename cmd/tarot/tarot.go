// Package tarotcmder
package tarotcmder

import (
	"os"

	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/tarot/cmd/tarot/config"
	drawcmder "github.com/papercomputeco/tarot/cmd/tarot/draw"
	historycmder "github.com/papercomputeco/tarot/cmd/tarot/history"
	initcmder "github.com/papercomputeco/tarot/cmd/tarot/init"
	readcmder "github.com/papercomputeco/tarot/cmd/tarot/read"
	savedcmder "github.com/papercomputeco/tarot/cmd/tarot/saved"
	servecmder "github.com/papercomputeco/tarot/cmd/tarot/serve"
	versioncmder "github.com/papercomputeco/tarot/cmd/version"
	"github.com/papercomputeco/tarot/pkg/cliui"
	"github.com/papercomputeco/tarot/pkg/config"
)

const tarotLongDesc string = `Tarot draws cards and streams AI tarot readings to your terminal.

Draw and read:
  tarot draw                 Draw three cards
  tarot read daily           Today's reading (one per day)
  tarot read quick           A quick reading of three fresh cards
  tarot read custom "..."    A reading for your own question

Keep track:
  tarot history              Past daily readings
  tarot saved                Saved readings, export to text

Run services using:
  tarot serve                Run the HTTP API and MCP server`

const tarotShortDesc string = "Tarot - streaming tarot readings"

func NewTarotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tarot",
		Short:        tarotShortDesc,
		Long:         tarotLongDesc,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			cliui.Setup(os.Stdout)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .tarot/ config directory")
	transportFlag := config.Flags[config.FlagTransport]
	cmd.PersistentFlags().String(transportFlag.Name, "", transportFlag.Description)

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(drawcmder.NewDrawCmd())
	cmd.AddCommand(readcmder.NewReadCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(savedcmder.NewSavedCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
