package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igvision/pkg/config"
)

var initForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igvision configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (IGVISION_*, .env files included)
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Long: `Write the default configuration to igvision.yaml, or to the path given
with --config.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "igvision.yaml"
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	newPrinter(out, !noColor).Success("Configuration file created: " + path)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Store your Apify token with 'igvision auth login'")
	fmt.Fprintln(out, "2. Run 'igvision config validate' to check the configuration")
	fmt.Fprintln(out, "3. Start a run with 'igvision run <username>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(maskConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none)"
	}
	fmt.Fprintf(out, "\nConfiguration file: %s\n", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	var problems []error
	if cfg.Vision.CredentialsFile != "" {
		if _, err := os.Stat(cfg.Vision.CredentialsFile); err != nil {
			problems = append(problems, fmt.Errorf("vision credentials file: %w", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Errorf("cannot create log directory: %w", err))
		}
	}
	if err := errors.Join(problems...); err != nil {
		return fmt.Errorf("configuration has errors: %w", err)
	}

	out := cmd.OutOrStdout()
	printer := newPrinter(out, cfg.UI.Color)
	if cfg.Apify.Token == "" {
		printer.Warning("Apify token not configured; a stored profile will be required")
	}
	printer.Success("Configuration is valid")
	printer.Info("Output directory", cfg.Output.BaseDirectory)
	printer.Info("Download concurrency", fmt.Sprint(cfg.Download.Concurrency))
	printer.Info("Vision concurrency", fmt.Sprint(cfg.Vision.Concurrency))
	printer.Info("Retry attempts", fmt.Sprint(cfg.Retry.MaxAttempts))
	return nil
}

// maskConfig returns a copy of cfg with secrets masked
func maskConfig(cfg *config.Config) *config.Config {
	masked := *cfg
	if t := masked.Apify.Token; t != "" {
		if len(t) > 8 {
			masked.Apify.Token = t[:4] + "..." + t[len(t)-4:]
		} else {
			masked.Apify.Token = "***"
		}
	}
	return &masked
}
