package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/keyclack/internal/dbus"
)

var previewCmd = &cobra.Command{
	Use:   "preview [index]",
	Short: "Play one sample of the active bank",
	Long: `Ask keyclackd to play sample index (default 0) of the active bank at the
base pitch. Indices wrap around the number of loaded samples. Mute does not
apply to previews.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	index := 0
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid sample index %q", args[0])
		}
		index = n
	}

	return withDaemon(func(c *dbus.Client) error { return c.Preview(index) })
}
