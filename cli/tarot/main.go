package main

import (
	"os"

	tarotcmder "github.com/papercomputeco/tarot/cmd/tarot"
)

func main() {
	cmd := tarotcmder.NewTarotCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
