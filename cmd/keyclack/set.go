package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/keyclack/internal/bank"
	"github.com/jmylchreest/keyclack/internal/core"
	"github.com/jmylchreest/keyclack/internal/dbus"
	"github.com/jmylchreest/keyclack/internal/model"
	"github.com/jmylchreest/keyclack/internal/store"
)

// setCmd represents the set command group.
var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change keyclack settings",
	Long: `Change a setting of the running daemon. When keyclackd cannot be reached
over D-Bus the change is written to the shared state file instead, where the
daemon picks it up on its next start or through its state watcher.

Examples:
  keyclack set volume 40
  keyclack set mute toggle
  keyclack set enabled off
  keyclack set bank typewriter`,
}

var setVolumeCmd = &cobra.Command{
	Use:   "volume <0-100>",
	Short: "Set the volume in percent",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetVolume,
}

var setMuteCmd = &cobra.Command{
	Use:       "mute <on|off|toggle>",
	Short:     "Mute or unmute key sounds",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "toggle"},
	RunE:      runSetMute,
}

var setEnabledCmd = &cobra.Command{
	Use:       "enabled <on|off|toggle>",
	Short:     "Enable or disable key sounds",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "toggle"},
	RunE:      runSetEnabled,
}

var setBankCmd = &cobra.Command{
	Use:   "bank <name|index>",
	Short: "Select the sound bank",
	Long: `Select the sound bank by name, by its position in 'keyclack banks', or by
a unique name prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetBank,
}

func init() {
	setCmd.AddCommand(setVolumeCmd)
	setCmd.AddCommand(setMuteCmd)
	setCmd.AddCommand(setEnabledCmd)
	setCmd.AddCommand(setBankCmd)
	rootCmd.AddCommand(setCmd)
}

func runSetVolume(cmd *cobra.Command, args []string) error {
	pct, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
	if err != nil || pct < 0 || pct > 100 {
		return fmt.Errorf("volume must be a whole number between 0 and 100, got %q", args[0])
	}
	volume := float64(pct) / 100

	return apply(
		func(c *dbus.Client) error { return c.SetVolume(volume) },
		func(s *store.SharedState) { s.SetVolume(volume, store.SourceCLI) },
		fmt.Sprintf("Volume: %d%%", pct),
	)
}

func runSetMute(cmd *cobra.Command, args []string) error {
	current, err := currentStatus()
	if err != nil {
		return err
	}
	muted, err := parseSwitch(args[0], current.Muted)
	if err != nil {
		return err
	}
	return apply(
		func(c *dbus.Client) error { return c.SetMuted(muted) },
		func(s *store.SharedState) { s.SetMuted(muted, store.SourceCLI) },
		"Muted: "+onOff(muted),
	)
}

func runSetEnabled(cmd *cobra.Command, args []string) error {
	current, err := currentStatus()
	if err != nil {
		return err
	}
	enabled, err := parseSwitch(args[0], current.Enabled)
	if err != nil {
		return err
	}
	return apply(
		func(c *dbus.Client) error { return c.SetEnabled(enabled) },
		func(s *store.SharedState) { s.SetEnabled(enabled, store.SourceCLI, "keyclack set enabled") },
		"Enabled: "+onOff(enabled),
	)
}

func runSetBank(cmd *cobra.Command, args []string) error {
	catalog := bank.NewCatalog(cfg.BanksDir(), logger)
	if err := catalog.Reload(); err != nil {
		logger.Warn("failed to load user banks", "error", err)
	}
	entry, err := core.Resolve(catalog.List(), args[0])
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(catalog.Names(), ", "))
	}
	name := entry.Bank.Name

	return apply(
		func(c *dbus.Client) error { return c.SelectBank(name) },
		func(s *store.SharedState) { s.SetBank(name, store.SourceCLI) },
		"Bank: "+name,
	)
}

// apply sends a change to the daemon, or writes it to the state file when
// the daemon is unreachable.
func apply(live func(*dbus.Client) error, offline func(*store.SharedState), done string) error {
	if client, err := connectDaemon(); err == nil {
		defer func() { _ = client.Close() }()
		if err := live(client); err != nil {
			return err
		}
		fmt.Println(done)
		return nil
	}

	if err := updateStateFile(offline); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	fmt.Println(done + " (daemon not running, saved for next start)")
	return nil
}

// currentStatus reads the daemon status, falling back to the state file.
func currentStatus() (model.Status, error) {
	if client, err := connectDaemon(); err == nil {
		defer func() { _ = client.Close() }()
		return client.Status()
	}
	return offlineStatus()
}

// parseSwitch interprets on/off/toggle against the current value.
func parseSwitch(arg string, current bool) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	case "toggle":
		return !current, nil
	}
	return false, fmt.Errorf("expected on, off or toggle, got %q", arg)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
