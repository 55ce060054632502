package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/keyclack/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive bank picker",
	Long: `Launch the terminal bank picker for a running keyclackd.

Key bindings:
  j/k, ↑/↓    Navigate banks
  enter       Use the highlighted bank
  p           Preview a sample
  +/-         Volume up/down
  m           Toggle mute
  r           Refresh
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, err := connectDaemon()
	if err != nil {
		return fmt.Errorf("the bank picker needs keyclackd running: %w", err)
	}
	defer func() { _ = client.Close() }()
	return tui.Run(client)
}
