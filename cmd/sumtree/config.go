package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/sumtree/pkg/sumtree/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage sumtree configuration settings.

Configuration is loaded from:
  1. --config, if given
  2. $XDG_CONFIG_HOME/sumtree/config.yaml (if set)
  3. ~/.config/sumtree/config.yaml

Environment variables override config file settings using the SUMTREE_ prefix:
  SUMTREE_ALGORITHM=SHA256
  SUMTREE_RATE_LIMIT=50MB
  SUMTREE_HISTORY_ENABLED=false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration merged from defaults, file, environment and flags.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by $VISUAL, then $EDITOR, then vi.
If the config file doesn't exist, a default one is created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// showConfig prints the merged settings as YAML followed by any SUMTREE_
// variables in env.
func showConfig(w io.Writer, v *viper.Viper, env []string) error {
	if file := v.ConfigFileUsed(); file != "" {
		fmt.Fprintf(w, "# Config file: %s\n", file)
	} else {
		fmt.Fprintln(w, "# Config file: (using defaults, no file found)")
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v.AllSettings()); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	var overrides []string
	for _, kv := range env {
		if strings.HasPrefix(kv, "SUMTREE_") {
			overrides = append(overrides, kv)
		}
	}
	sort.Strings(overrides)

	fmt.Fprintln(w, "\n# Environment overrides:")
	if len(overrides) == 0 {
		fmt.Fprintln(w, "#   (none)")
	}
	for _, kv := range overrides {
		fmt.Fprintf(w, "#   %s\n", kv)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if configErr != nil {
		printError("Failed to load configuration: %v", configErr)
	}
	return showConfig(cmd.OutOrStdout(), viper.GetViper(), os.Environ())
}

func editorCommand() string {
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	return "vi"
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.WriteDefault(false)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := editorCommand()
	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'sumtree config edit' to modify it, or --force to reset it.")
		return nil
	}

	if _, err := config.WriteDefault(configInitForce); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo("Created default config file: %s", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		printInfo("(file does not exist, run 'sumtree config init' to create it)")
	}
	return nil
}
