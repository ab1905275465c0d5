package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igvision/pkg/config"
	"igvision/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
)

var rootCmd = &cobra.Command{
	Use:   "igvision",
	Short: "Download an Instagram account's media and annotate its images",
	Long: `igvision scrapes the most recent posts of a public Instagram account
through the Apify instagram-scraper actor, downloads every image and video,
and runs each image through Google Cloud Vision for faces, labels and
safe-search signals.

Results are written to {output}/{username}/:
  metadata.json           raw post records as returned by the scraper
  images/, videos/        downloaded media
  analysis_results.json   one annotation record per image`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./igvision.yaml or ~/.config/igvision/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", false, "send a desktop notification when a run finishes")

	rootCmd.SetVersionTemplate(`igvision {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags into extra and loads the configuration
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{}, len(extra)+3)
	for k, v := range extra {
		flags[k] = v
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if noColor {
		flags["color"] = false
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = notifications
	}
	return config.Load(configFile, flags)
}

// newPrinter returns a printer for w, colored only when w is a terminal
func newPrinter(w io.Writer, color bool) *ui.Printer {
	return ui.NewPrinter(w, color && isTerminal(w))
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
