package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
	"github.com/jamesainslie/sumtree/pkg/sumtree/logging"
	"github.com/jamesainslie/sumtree/pkg/sumtree/types"
)

const defaultLogMaxSize = 10 * types.MiB

// initializeLogging is the root PersistentPreRunE hook. It creates the XDG
// directories and configures file logging, mirroring warnings to stderr.
// The config subcommands still run with a broken config file so it can be
// inspected and repaired.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		if !isConfigCommand(cmd) {
			return err
		}
		cfg = &config.Config{}
	}
	if err := ensureDirectories(); err != nil {
		return err
	}
	return logging.Init(loggingConfig(cfg, false))
}

// initTUILogging switches logging to the ring buffer read by the progress
// view and silences the console.
func initTUILogging() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return logging.Init(loggingConfig(cfg, true))
}

func isConfigCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return true
		}
	}
	return false
}

func loggingConfig(cfg *config.Config, tui bool) logging.Config {
	console := "warn"
	switch {
	case getQuiet():
		console = ""
	case getVerbose():
		console = "debug"
	}

	level := cfg.Logging.Level
	if getVerbose() {
		level = "debug"
	}

	return logging.Config{
		Level:        level,
		Path:         cfg.Logging.Path,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: console,
		TUIMode:      tui,
	}
}

func ensureDirectories() error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	for _, dir := range []string{configDir, config.DataDir(), config.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// parseRotationConfig converts the config file form. An empty or invalid
// max_size falls back to 10 MiB.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	size, err := types.ParseSize(rc.MaxSize)
	if err != nil || size <= 0 {
		size = defaultLogMaxSize
	}
	return logging.RotationConfig{
		MaxSize:    size,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}
