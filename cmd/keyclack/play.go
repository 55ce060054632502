package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/keyclack/internal/bank"
	"github.com/jmylchreest/keyclack/internal/config"
	"github.com/jmylchreest/keyclack/internal/daemon"
	"github.com/jmylchreest/keyclack/internal/keysource"
	"github.com/jmylchreest/keyclack/internal/store"
)

var playOpts struct {
	stdin   bool
	volume  int
	noPitch bool
}

var playCmd = &cobra.Command{
	Use:   "play [bank]",
	Short: "Type with key sounds in this terminal",
	Long: `Start a private sound engine and play a sound for every key typed in this
terminal until Ctrl-C. No daemon is needed.

Without a bank argument the last selected bank is used, then bank.name from
the config, then the first available bank.

With --stdin, key codes or key names are read one per line instead, which
is handy for scripting:
  printf 'a\nspace\nreturn\n' | keyclack play --stdin typewriter`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().BoolVar(&playOpts.stdin, "stdin", false,
		"Read key codes or names from stdin, one per line")
	playCmd.Flags().IntVar(&playOpts.volume, "volume", -1,
		"Volume in percent (default: saved volume)")
	playCmd.Flags().BoolVar(&playOpts.noPitch, "no-pitch-variance", false,
		"Play every keystroke at the base pitch")
}

func runPlay(cmd *cobra.Command, args []string) error {
	if playOpts.volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", playOpts.volume)
	}

	catalog := bank.NewCatalog(cfg.BanksDir(), logger)
	if err := catalog.Reload(); err != nil {
		logger.Warn("failed to load user banks", "error", err)
	}

	entry, err := pickBank(catalog, args)
	if err != nil {
		return err
	}

	engine, err := daemon.NewEngine(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Shutdown()

	if playOpts.volume >= 0 {
		_ = engine.SetVolume(float64(playOpts.volume) / 100)
	} else if state, err := store.LoadSharedStateFrom(config.StatePath()); err == nil {
		_ = engine.SetVolume(state.VolumeOr(cfg.VolumeFraction()))
	}
	if playOpts.noPitch {
		_ = engine.SetPitchVarianceEnabled(false)
	}

	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	report, err := engine.ActivateBankAndWait(loadCtx, entry.Bank, entry.Resolver)
	loadCancel()
	if err != nil {
		return fmt.Errorf("failed to load bank %s: %w", entry.Bank.Name, err)
	}
	if report.Partial() {
		fmt.Fprintf(os.Stderr, "%s: %d of %d samples loaded\n", report.Bank, report.Loaded, report.Requested)
	}

	var src keysource.Source
	if playOpts.stdin {
		src = keysource.NewLineSource(os.Stdin, logger)
	} else {
		term := keysource.NewTerminalSource(os.Stdin)
		term.Echo = func(b []byte) { _, _ = os.Stdout.Write(b) }
		src = term
		fmt.Fprintf(os.Stderr, "Playing %s, press Ctrl-C to stop.\r\n", entry.Bank.Title())
	}

	debouncer := keysource.NewDebouncer(cfg.Input.Debounce.Duration())
	err = src.Run(ctx, debouncer.Filter(func(code uint16) {
		if err := engine.Trigger(code); err != nil {
			logger.Debug("keystroke dropped", "code", code, "error", err)
		}
	}))

	if playOpts.stdin && err == nil {
		// Let the last samples ring out before tearing the output down.
		waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
		_ = engine.Wait(waitCtx)
		waitCancel()
		time.Sleep(300 * time.Millisecond)
	}

	if !playOpts.stdin {
		fmt.Fprint(os.Stderr, "\r\n")
	}
	if err == nil || errors.Is(err, keysource.ErrInterrupted) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pickBank returns the named bank, or the one a fresh daemon would restore.
func pickBank(catalog *bank.Catalog, args []string) (bank.Entry, error) {
	if len(args) == 1 {
		return catalog.Find(args[0])
	}
	last := cfg.Bank.Name
	if state, err := store.LoadSharedStateFrom(config.StatePath()); err == nil && state.Bank != "" {
		last = state.Bank
	}
	if last == "" {
		last = bank.DefaultBankName
	}
	return catalog.Restore(last)
}
