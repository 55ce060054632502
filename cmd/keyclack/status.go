package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/keyclack/internal/adapter/output"
	"github.com/jmylchreest/keyclack/internal/model"
)

var statusOpts struct {
	format string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Show the state of keyclackd: active bank, samples loaded, volume, mute,
output availability and key counters.

When the daemon is not running the persisted settings are shown with
state "stopped".`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "table",
		"Output format (table, plain, json, yaml)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewFormatter(statusOpts.format)
	if err != nil {
		return err
	}

	var st model.Status
	if client, cerr := connectDaemon(); cerr == nil {
		defer func() { _ = client.Close() }()
		st, err = client.Status()
	} else {
		st, err = offlineStatus()
	}
	if err != nil {
		return err
	}
	return formatter.FormatStatus(os.Stdout, st)
}
