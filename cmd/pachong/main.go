package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/config"
	"github.com/YaPengJi1/pachong/pkg/extract"
	"github.com/YaPengJi1/pachong/pkg/fetch"
	"github.com/YaPengJi1/pachong/pkg/harvest"
	"github.com/YaPengJi1/pachong/pkg/pipeline"
	"github.com/YaPengJi1/pachong/pkg/probe"
	"github.com/YaPengJi1/pachong/pkg/render"
	"github.com/YaPengJi1/pachong/pkg/seeds"
	"github.com/YaPengJi1/pachong/pkg/stabilize"
	"github.com/YaPengJi1/pachong/pkg/store"
	"github.com/YaPengJi1/pachong/pkg/translate"
)

const version = "2.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "harvest":
		runHarvest(os.Args[2:])
	case "batch":
		runBatch(os.Args[2:])
	case "probe":
		runProbe(os.Args[2:])
	case "combine":
		runCombine(os.Args[2:])
	case "filter":
		runFilter(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("pachong %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stdout, `pachong - event timeline harvester and identifier prober

Usage:
  pachong <command> [options]

Commands:
  harvest   Harvest one timeline page and its comment pages
  batch     Harvest every seed URL listed in a CSV table
  probe     Sweep a record-id range for valid event pages
  combine   Rebuild the combined ledger from saved halves
  filter    Filter and retranslate a prober ledger by date window
  validate  Validate configuration file
  version   Show version info

Run 'pachong <command> -h' for command-specific help.`)
}

// setupLogger configures the shared logrus logger.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// loadAndValidateConfig loads the config file, validates it, and logs warnings.
// A missing file falls back to defaults so the binary works without one.
func loadAndValidateConfig(configFile string, log *logrus.Logger) *config.AppConfig {
	var cfg *config.AppConfig
	if _, err := os.Stat(configFile); err == nil {
		cfg, err = config.LoadConfig(configFile)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
	} else {
		log.Infof("Config file %s not found, using defaults", configFile)
		cfg = &config.AppConfig{}
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}
	return cfg
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext(log *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warnf("Received signal %v, shutting down...", sig)
		cancel()
	}()
	return ctx, cancel
}

func newPipeline(cfg *config.AppConfig, outputDir string, log *logrus.Logger) (*pipeline.Pipeline, render.Browser, error) {
	browser, err := render.NewRodBrowser(render.Options{
		Headless:        cfg.Harvest.HeadlessEnabled(),
		UserAgent:       cfg.UserAgent,
		BodyWaitTimeout: cfg.Harvest.BodyWaitTimeout,
		PageLoadTimeout: cfg.Harvest.PageLoadTimeout,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.NewDataStore(outputDir, log)
	if err != nil {
		browser.Close()
		return nil, nil, err
	}

	stab := stabilize.NewController(stabilize.Config{
		ScrollSettle:    cfg.Harvest.ScrollSettle,
		ClickSettle:     cfg.Harvest.ClickSettle,
		FinalSettle:     cfg.Harvest.FinalSettle,
		StableThreshold: cfg.Harvest.StableThreshold,
		MaxRounds:       cfg.Harvest.MaxRounds,
		ClickSelectors:  extract.LoadMoreSelectors,
	}, log)
	harvester := harvest.NewHarvester(stab, cfg.Harvest, log)
	pacer := fetch.NewPacer(cfg.Harvest.DelayPerSubEvent, log)
	return pipeline.New(browser, harvester, st, pacer, log), browser, nil
}

func runHarvest(args []string) {
	fs := flag.NewFlagSet("harvest", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	url := fs.String("url", "", "Timeline page URL (required)")
	outDir := fs.String("out", "", "Output directory (overrides config)")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pachong harvest [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *url == "" {
		fmt.Fprintln(os.Stderr, "Error: -url is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(levelOrDefault(*logLevel))
	cfg := loadAndValidateConfig(*configFile, log)
	if *logLevel == "" {
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			log.SetLevel(level)
		}
	}
	if *outDir != "" {
		cfg.Harvest.OutputDir = *outDir
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	p, browser, err := newPipeline(cfg, cfg.Harvest.OutputDir, log)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	defer browser.Close()

	result, err := p.Run(ctx, *url)
	if err != nil {
		log.Errorf("Harvest failed in state %s: %v", result.State, err)
		os.Exit(1)
	}
}

func runBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	seedFile := fs.String("seeds", "", "CSV file with seed URLs (required)")
	column := fs.String("column", "url", "Seed column name")
	startRow := fs.Int("start", 1, "First data row to harvest (1-based)")
	endRow := fs.Int("end", 0, "Last data row to harvest (0 = through end)")
	outDir := fs.String("out", "", "Base output directory (overrides config)")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pachong batch [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *seedFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -seeds is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(levelOrDefault(*logLevel))
	cfg := loadAndValidateConfig(*configFile, log)
	if *outDir != "" {
		cfg.Harvest.OutputDir = *outDir
	}

	seedList, err := seeds.Read(*seedFile, *column, *startRow, *endRow, log)
	if err != nil {
		log.Fatalf("Seed file error: %v", err)
	}
	if len(seedList) == 0 {
		log.Warn("No seed URLs to harvest")
		return
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	failures := 0
	for _, seed := range seedList {
		if ctx.Err() != nil {
			log.Warn("Batch interrupted")
			break
		}
		rowDir := filepath.Join(cfg.Harvest.OutputDir, fmt.Sprintf("row_%d", seed.Row))
		log.WithFields(logrus.Fields{"row": seed.Row, "url": seed.URL, "out": rowDir}).
			Info("Starting seed harvest")

		p, browser, err := newPipeline(cfg, rowDir, log)
		if err != nil {
			log.Fatalf("Startup failed: %v", err)
		}
		result, err := p.Run(ctx, seed.URL)
		browser.Close()
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"row": seed.Row, "state": result.State}).
				Error("Seed harvest failed, continuing with next row")
			failures++
		}
	}

	log.WithFields(logrus.Fields{"seeds": len(seedList), "failures": failures}).
		Info("Batch complete")
	if failures == len(seedList) {
		os.Exit(1)
	}
}

func runProbe(args []string) {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	startID := fs.Int("start", 0, "First record id (required)")
	endID := fs.Int("end", 0, "Last record id, inclusive (required)")
	ledgerPath := fs.String("ledger", "", "Results CSV path (overrides config)")
	minDate := fs.String("min-date", "", "Minimum update date YYYY-MM-DD (overrides config)")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pachong probe [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n  pachong probe -start 1 -end 100000\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *startID <= 0 || *endID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -start and -end are required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(levelOrDefault(*logLevel))
	cfg := loadAndValidateConfig(*configFile, log)
	if *ledgerPath != "" {
		cfg.Probe.LedgerPath = *ledgerPath
	}
	if *minDate != "" {
		cfg.Probe.MinDate = *minDate
	}
	cutoff, err := time.Parse("2006-01-02", cfg.Probe.MinDate)
	if err != nil {
		log.Fatalf("Invalid min date %q: %v", cfg.Probe.MinDate, err)
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	client := fetch.NewClient(cfg.HTTPClientSettings, log)
	getter := fetch.NewHTTPGetter(client, cfg.UserAgent)

	translator, closeCache := newTranslator(cfg, log)
	defer closeCache()

	ledger, err := store.OpenCandidateLedger(cfg.Probe.LedgerPath, log)
	if err != nil {
		log.Fatalf("Ledger error: %v", err)
	}

	prober := probe.NewProber(getter, probe.NewClassifier(cutoff), translator, ledger, cfg.Probe, log)
	if _, err := prober.Run(ctx, *startID, *endID); err != nil {
		log.Errorf("Probe run ended early: %v", err)
		os.Exit(1)
	}
}

func runCombine(args []string) {
	fs := flag.NewFlagSet("combine", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	dir := fs.String("dir", "", "Harvest output directory (overrides config)")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pachong combine [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(levelOrDefault(*logLevel))
	cfg := loadAndValidateConfig(*configFile, log)
	if *dir == "" {
		*dir = cfg.Harvest.OutputDir
	}

	st, err := store.NewDataStore(*dir, log)
	if err != nil {
		log.Fatalf("Store error: %v", err)
	}
	root, events, comments, err := st.LoadPriorState()
	if err != nil {
		log.Fatalf("Cannot read harvest ledgers in %s: %v", *dir, err)
	}
	if root.IsEmpty() && len(events) == 0 && len(comments) == 0 {
		log.Fatalf("No harvest ledgers found in %s", *dir)
	}
	log.WithFields(logrus.Fields{
		"sub_events": len(events),
		"comments":   len(comments),
	}).Info("Loaded harvest ledgers")

	combined, err := st.Combine()
	if err != nil {
		log.Fatalf("Combine failed: %v", err)
	}
	log.WithFields(logrus.Fields{
		"sub_events": combined.Statistics.TotalSubEvents,
		"comments":   combined.Statistics.TotalComments,
	}).Info("Combined ledger written")
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	input := fs.String("input", "valid_record_ids.csv", "Input ledger CSV")
	output := fs.String("output", "", "Output CSV path (default: <input>_filtered_translated.csv)")
	startDate := fs.String("start-date", "2025-05-01", "Window start YYYY-MM-DD, inclusive")
	endDate := fs.String("end-date", "2025-09-11", "Window end YYYY-MM-DD, inclusive")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pachong filter [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *output == "" {
		ext := filepath.Ext(*input)
		if ext == "" {
			ext = ".csv"
		}
		*output = (*input)[:len(*input)-len(filepath.Ext(*input))] + "_filtered_translated" + ext
	}

	log := setupLogger(levelOrDefault(*logLevel))
	cfg := loadAndValidateConfig(*configFile, log)

	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		log.Fatalf("Invalid start date %q: %v", *startDate, err)
	}
	end, err := time.Parse("2006-01-02", *endDate)
	if err != nil {
		log.Fatalf("Invalid end date %q: %v", *endDate, err)
	}

	translator, closeCache := newTranslator(cfg, log)
	defer closeCache()

	kept, err := translate.FilterCSV(*input, *output, start, end, translator, log)
	if err != nil {
		log.Fatalf("Filter failed: %v", err)
	}
	fmt.Printf("Wrote %d rows to %s\n", kept, *output)
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pachong validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "OK: configuration is valid")
	return 0
}

// newTranslator builds a translator backed by the persistent cache, falling
// back to memory when the cache is disabled or cannot be opened.
func newTranslator(cfg *config.AppConfig, log *logrus.Logger) (*translate.Translator, func()) {
	if cfg.Translate.DisableCache {
		return translate.NewTranslator(translate.NewMemoryCache(), log), func() {}
	}
	cache, err := translate.NewBadgerCache(cfg.Translate.CacheDir, log)
	if err != nil {
		log.WithError(err).Warn("Could not open translation cache, using in-memory cache")
		return translate.NewTranslator(translate.NewMemoryCache(), log), func() {}
	}
	return translate.NewTranslator(cache, log), func() {
		if err := cache.Close(); err != nil {
			log.WithError(err).Warn("Translation cache close failed")
		}
	}
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}
