// Package main is the entry point for the keyclackd keyboard sound daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmylchreest/keyclack/internal/bank"
	"github.com/jmylchreest/keyclack/internal/config"
	"github.com/jmylchreest/keyclack/internal/daemon"
	"github.com/jmylchreest/keyclack/internal/dbus"
	"github.com/jmylchreest/keyclack/internal/keysource"
	"github.com/jmylchreest/keyclack/internal/store"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/keyclack/config.toml)")
	input := flag.String("input", "", "Key source: terminal, stdin or dbus (default: from config)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("keyclackd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *input, logger); err != nil {
		logger.Error("keyclackd failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, input string, logger *slog.Logger) error {
	logger.Info("starting keyclackd", "version", version)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if input == "" {
		input = cfg.Input.Source
	}
	input = strings.ToLower(input)

	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	statePath := config.StatePath()
	sharedState, err := store.LoadSharedStateFrom(statePath)
	if err != nil {
		logger.Warn("failed to load shared state", "error", err)
		sharedState = store.DefaultSharedState()
	}
	logger.Info("shared state loaded", "enabled", sharedState.Enabled, "bank", sharedState.Bank)

	catalog := bank.NewCatalog(cfg.BanksDir(), logger)
	if err := catalog.Reload(); err != nil {
		logger.Warn("failed to load sound banks", "error", err)
	}
	logger.Info("sound banks loaded", "count", len(catalog.Names()), "user_dir", catalog.UserDir())

	engine, err := daemon.NewEngine(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	ctrl := daemon.NewController(engine, catalog, cfg, sharedState, statePath, logger)

	var dbusServer *dbus.Server
	if cfg.DBus.Enabled || input == "dbus" {
		dbusServer = dbus.NewServer(ctrl, logger)
		if err := dbusServer.Start(); err != nil {
			if input == "dbus" {
				return fmt.Errorf("D-Bus key source unavailable: %w", err)
			}
			logger.Warn("D-Bus control disabled", "error", err)
			dbusServer = nil
		} else {
			ctrl.SetEventSink(dbusServer)
		}
	}

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	idle := daemon.NewIdleMonitor(engine, cfg.Idle.CheckInterval.Duration(), logger)
	if cfg.Idle.Timeout.Duration() > 0 {
		idle.Start(ctx)
	}

	stateWatcher, err := store.NewStateWatcher(statePath, ctrl.ApplyState, logger)
	if err != nil {
		logger.Warn("failed to create state watcher", "error", err)
	} else if err := stateWatcher.Start(); err != nil {
		logger.Warn("failed to start state watcher", "error", err)
	}

	bankWatcher, err := bank.NewWatcher(catalog, ctrl.OnBanksReloaded, logger)
	if err != nil {
		logger.Warn("failed to create bank watcher", "error", err)
	} else if err := bankWatcher.Start(); err != nil {
		logger.Warn("failed to start bank watcher", "error", err)
	}

	configWatcher := daemon.NewConfigWatcher(configPath, logger)
	configWatcher.SetReloadCallback(ctrl.ApplyConfig)
	configWatcher.SetErrorCallback(func(err error) {
		logger.Warn("keeping previous config", "error", err)
	})
	configWatcher.Start(ctx, cfg)

	logger.Info("keyclackd ready", "input", input, "dbus", dbusServer != nil)

	srcErr := make(chan error, 1)
	if src := keySource(input, logger); src != nil {
		go func() { srcErr <- src.Run(ctx, ctrl.HandleKey) }()
	}

	select {
	case <-ctx.Done():
	case err := <-srcErr:
		switch {
		case errors.Is(err, keysource.ErrInterrupted):
			logger.Info("interrupted")
		case err != nil && !errors.Is(err, context.Canceled):
			logger.Error("key source failed", "error", err)
		default:
			logger.Info("key input ended")
		}
		cancel()
	}

	configWatcher.Stop()
	idle.Stop()
	if bankWatcher != nil {
		_ = bankWatcher.Stop()
	}
	if stateWatcher != nil {
		_ = stateWatcher.Stop()
	}
	if dbusServer != nil {
		_ = dbusServer.Stop()
	}
	ctrl.Shutdown()

	logger.Info("keyclackd stopped")
	return nil
}

// keySource returns the configured source, or nil when keys only arrive
// over D-Bus.
func keySource(input string, logger *slog.Logger) keysource.Source {
	switch input {
	case "terminal":
		src := keysource.NewTerminalSource(os.Stdin)
		src.Echo = func(b []byte) { _, _ = os.Stdout.Write(b) }
		return src
	case "stdin":
		return keysource.NewLineSource(os.Stdin, logger)
	}
	return nil
}
