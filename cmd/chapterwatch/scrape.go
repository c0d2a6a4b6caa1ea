package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ChapterWatch/internal/adapter"
	"github.com/IshaanNene/ChapterWatch/internal/browser"
	"github.com/IshaanNene/ChapterWatch/internal/config"
	"github.com/IshaanNene/ChapterWatch/internal/links"
	"github.com/IshaanNene/ChapterWatch/internal/observability"
	"github.com/IshaanNene/ChapterWatch/internal/scrape"
	"github.com/IshaanNene/ChapterWatch/internal/storage"
)

var (
	siteName     string
	linksFile    string
	storeType    string
	conflict     string
	onError      string
	browserMode  string
	showProgress bool
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Visit every book link and report the latest chapters",
		Long:  "Visit each link in the book links file, extract its title and latest chapter, and store the records if a sink is configured.",
		Args:  cobra.NoArgs,
		RunE:  runScrape,
	}

	cmd.Flags().StringVarP(&siteName, "site", "s", "", "site adapter: asura, genz")
	cmd.Flags().StringVarP(&linksFile, "links", "l", "", "book links file, one URL per line")
	cmd.Flags().StringVar(&storeType, "store", "", "result sink: none, mongodb, json")
	cmd.Flags().StringVar(&conflict, "conflict", "", "when a title is already stored: error, overwrite, skip")
	cmd.Flags().StringVar(&onError, "on-error", "", "when a link fails: abort, skip (default per site)")
	cmd.Flags().StringVar(&browserMode, "mode", "", "page loading: rod, static")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress bar")

	return cmd
}

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	applyScrapeOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	settings, err := adapter.Resolve(cfg.Site)
	if err != nil {
		return err
	}
	extractor, err := adapter.FromSettings(settings, logger)
	if err != nil {
		return err
	}

	bookLinks, err := links.Read(cfg.Site.BookLinksFile)
	if err != nil {
		return fmt.Errorf("read book links: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("starting scrape",
		"site", settings.Site,
		"links", len(bookLinks),
		"mode", cfg.Browser.Mode,
		"storage", cfg.Storage.Type,
		"on_error", settings.OnError,
	)

	session, err := browser.New(&cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("start browser session: %w", err)
	}
	defer closeWithLog(logger, "browser session", session.Close)
	logger.Info("browser session started", "type", session.Type())

	sink, err := storage.Open(ctx, &cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if sink != nil {
		defer closeWithLog(logger, "storage", sink.Close)
	}

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	runner := scrape.NewRunner(session, extractor, sink, settings.OnError, metrics, logger)

	var bar *progressBar
	if showProgress {
		bar = newProgressBar(ctx, string(settings.Site), len(bookLinks))
		runner.OnProgress(bar.Update)
	}

	report, runErr := runner.Run(ctx, bookLinks)
	if bar != nil {
		bar.Wait()
	}

	printReport(report, sink != nil)

	if errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("scrape interrupted after %d of %d links", report.Visited+report.Skipped, report.Total)
	}
	return runErr
}

// applyScrapeOverrides applies command-line flag values to the config.
func applyScrapeOverrides(cfg *config.Config) {
	if siteName != "" {
		cfg.Site.Name = siteName
	}
	if linksFile != "" {
		cfg.Site.BookLinksFile = linksFile
	}
	if onError != "" {
		cfg.Site.OnError = onError
	}
	if storeType != "" {
		cfg.Storage.Type = storeType
	}
	if conflict != "" {
		cfg.Storage.Conflict = conflict
	}
	if browserMode != "" {
		cfg.Browser.Mode = browserMode
	}
}

func closeWithLog(logger *slog.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("close failed", "resource", what, "error", err)
	}
}

func printReport(report *scrape.Report, stored bool) {
	if report == nil {
		return
	}

	if len(report.Records) > 0 {
		fmt.Println()
		renderRecords(report.Records)
	}
	if len(report.Failures) > 0 {
		fmt.Println()
		renderFailures(report.Failures)
	}

	fmt.Printf("\n✅ Scrape finished in %s\n", report.Elapsed.Round(time.Millisecond))
	fmt.Printf("   Links:     %d listed, %d visited, %d skipped\n", report.Total, report.Visited, report.Skipped)
	fmt.Printf("   Books:     %d extracted\n", report.Extracted)
	if stored {
		fmt.Printf("   Storage:   %d written, %d already stored\n", report.Stored, report.Kept)
	}
}
