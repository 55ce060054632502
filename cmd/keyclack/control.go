package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/keyclack/internal/dbus"
	"github.com/jmylchreest/keyclack/internal/model"
)

var keyCmd = &cobra.Command{
	Use:   "key <code|name>...",
	Short: "Send key presses to the daemon",
	Long: `Send one or more key presses to keyclackd as if they had been typed.
Keys are decimal key codes or names such as space, return, backspace or a.

Examples:
  keyclack key space
  keyclack key 36 49 a`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKey,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Suspend audio output",
	Long: `Stop the daemon's audio output until the next key press or 'keyclack resume'.
Loaded samples stay in memory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(c *dbus.Client) error { return c.Pause() })
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Restart audio output",
	Long:  `Restart the daemon's audio output, retrying the device if it had failed.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(c *dbus.Client) error { return c.Resume() })
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print daemon events as they happen",
	Long: `Print bank activations and output failures reported by keyclackd until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(watchCmd)
}

func runKey(cmd *cobra.Command, args []string) error {
	codes := make([]uint16, 0, len(args))
	for _, arg := range args {
		code, err := model.ParseKeyCode(arg)
		if err != nil {
			return err
		}
		codes = append(codes, code)
	}

	return withDaemon(func(c *dbus.Client) error {
		for _, code := range codes {
			if err := c.KeyDown(code); err != nil {
				return fmt.Errorf("key %d: %w", code, err)
			}
		}
		return nil
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := connectDaemon()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := client.Subscribe(ctx, printSignal); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func printSignal(sig dbus.Signal) {
	ts := time.Now().Format(time.TimeOnly)
	switch sig.Name {
	case "BankActivated":
		if sig.Loaded < sig.Requested {
			fmt.Printf("%s bank %s active (%d of %d samples loaded)\n", ts, sig.Bank, sig.Loaded, sig.Requested)
			return
		}
		fmt.Printf("%s bank %s active\n", ts, sig.Bank)
	case "OutputUnavailable":
		fmt.Printf("%s output unavailable: %s\n", ts, sig.Reason)
	default:
		fmt.Printf("%s %s\n", ts, sig.Name)
	}
}

// withDaemon runs fn against the running daemon.
func withDaemon(fn func(*dbus.Client) error) error {
	client, err := connectDaemon()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	return fn(client)
}
