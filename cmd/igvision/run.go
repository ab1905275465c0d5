package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"igvision/internal/downloader"
	"igvision/pkg/apify"
	"igvision/pkg/auth"
	"igvision/pkg/config"
	"igvision/pkg/logger"
	"igvision/pkg/pipeline"
	"igvision/pkg/ui"
	"igvision/pkg/vision"
)

const defaultPostLimit = 10

var (
	runLimit               int
	runOutput              string
	runProfile             string
	runJSON                bool
	runDownloadConcurrency int
	runVisionConcurrency   int
)

var runCmd = &cobra.Command{
	Use:   "run [username]",
	Short: "Scrape, download and annotate one account",
	Long: `Scrape the most recent posts of an account, download their media and
annotate every downloaded image.

The Apify token and Vision credentials file are taken from the configuration
(IGVISION_APIFY_TOKEN, IGVISION_VISION_CREDENTIALS) or from a stored profile
(see 'igvision auth login'). When the username or limit is missing and stdin
is a terminal, you will be prompted for them.`,
	Example: `  # Interactive
  igvision run

  # Ten most recent posts of natgeo into ./out
  igvision run natgeo --limit 10 --output ./out

  # Use a stored profile and print the summary as JSON
  igvision run natgeo --profile work --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runLimit, "limit", "n", defaultPostLimit, "number of most recent posts to process")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output root directory (default: instagram_downloads)")
	runCmd.Flags().StringVarP(&runProfile, "profile", "p", auth.DefaultProfile, "stored credential profile")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run summary as JSON")
	runCmd.Flags().IntVar(&runDownloadConcurrency, "download-concurrency", 0, "parallel media downloads")
	runCmd.Flags().IntVar(&runVisionConcurrency, "vision-concurrency", 0, "parallel image annotations")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]interface{}{
		"output":               runOutput,
		"download-concurrency": runDownloadConcurrency,
		"vision-concurrency":   runVisionConcurrency,
	})
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	out := cmd.OutOrStdout()
	printer := newPrinter(out, cfg.UI.Color)

	interactive := isTerminal(os.Stdin)
	reader := bufio.NewReader(cmd.InOrStdin())

	var username string
	if len(args) > 0 {
		username = args[0]
	} else if interactive {
		printer.Logo()
		if username, err = promptString(reader, out, "Instagram username"); err != nil {
			return err
		}
	}
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return errors.New("username is required")
	}

	limit := runLimit
	if !cmd.Flags().Changed("limit") && interactive {
		if limit, err = promptLimit(reader, out, defaultPostLimit); err != nil {
			return err
		}
	}

	if err := resolveCredentials(cfg, runProfile, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector, err := vision.NewGoogleDetector(ctx, cfg.Vision.CredentialsFile)
	if err != nil {
		return err
	}
	defer detector.Close()

	fetcher := downloader.NewFetcher(cfg.Download, cfg.Retry, log)
	var observer pipeline.Observer
	if !runJSON {
		observer = ui.NewStageReporter(printer)
	}

	p, err := pipeline.New(pipeline.Options{
		Scraper:    apify.NewClientFromConfig(cfg.Apify, cfg.Retry, log),
		Downloader: downloader.NewWorkerPool(cfg.Download.Concurrency, fetcher, log),
		Annotator:  vision.NewAnnotator(detector, cfg.Vision.Concurrency, log),
		OutputRoot: cfg.Output.BaseDirectory,
		Logger:     log,
		Observer:   observer,
	})
	if err != nil {
		return err
	}

	printer.Info("Target profile", username)
	printer.Info("Post limit", strconv.Itoa(limit))

	summary := p.Run(ctx, username, limit)

	if runJSON {
		if err := printer.SummaryJSON(summary); err != nil {
			return err
		}
	} else {
		printer.Summary(summary)
	}
	ui.NewNotifier(printer, cfg.UI.Notifications).RunFinished(username, summary)

	if !summary.OK() {
		return fmt.Errorf("run failed: %s", summary.Error)
	}
	return nil
}

type credentialSource interface {
	Retrieve(profile string) (*auth.Credentials, error)
}

// resolveCredentials fills the Apify token and Vision credentials file from
// the credential stores when the configuration leaves them empty
func resolveCredentials(cfg *config.Config, profile string, log logger.Logger) error {
	if cfg.Apify.Token != "" && cfg.Vision.CredentialsFile != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("Credential stores unavailable")
		if cfg.Apify.Token == "" {
			return fmt.Errorf("no Apify token configured: %w", err)
		}
		return nil
	}
	return applyStoredCredentials(cfg, manager, profile, log)
}

func applyStoredCredentials(cfg *config.Config, source credentialSource, profile string, log logger.Logger) error {
	creds, err := source.Retrieve(profile)
	if err != nil {
		if cfg.Apify.Token == "" {
			return fmt.Errorf("no Apify token configured; run 'igvision auth login' or set %sAPIFY_TOKEN: %w", config.EnvPrefix, err)
		}
		log.WithField("profile", profile).Debug("No stored credentials, using configuration only")
		return nil
	}

	if cfg.Apify.Token == "" {
		cfg.Apify.Token = creds.ApifyToken
	}
	if cfg.Vision.CredentialsFile == "" {
		cfg.Vision.CredentialsFile = creds.VisionCredentialsFile
	}
	log.WithField("profile", creds.Profile).Debug("Using stored credentials")
	return nil
}

func promptString(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s: ", label)
	input, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(input), nil
}

// promptLimit asks for a positive post count; an empty answer keeps def
func promptLimit(r *bufio.Reader, w io.Writer, def int) (int, error) {
	answer, err := promptString(r, w, fmt.Sprintf("Number of posts [%d]", def))
	if err != nil {
		return 0, err
	}
	if answer == "" {
		return def, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid post count %q: must be a positive integer", answer)
	}
	return n, nil
}

