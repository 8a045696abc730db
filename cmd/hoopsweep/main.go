package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kmacleod/hoopsweep/internal/config"
	"github.com/kmacleod/hoopsweep/internal/dedup"
	"github.com/kmacleod/hoopsweep/internal/notify"
	"github.com/kmacleod/hoopsweep/internal/observability"
	"github.com/kmacleod/hoopsweep/internal/remote"
	"github.com/kmacleod/hoopsweep/internal/retry"
	"github.com/kmacleod/hoopsweep/internal/scheduler"
	"github.com/kmacleod/hoopsweep/internal/scrape"
	"github.com/kmacleod/hoopsweep/internal/session"
	"github.com/kmacleod/hoopsweep/internal/storage"
	"github.com/kmacleod/hoopsweep/internal/types"
)

var (
	cfgFile       string
	verbose       bool
	dateFlag      string
	endDateFlag   string
	divisionsFlag string
	gendersFlag   string
	outputDir     string
	storageType   string
	mongoURI      string
	forceRescrape bool
	mappingFile   string
	headful       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hoopsweep",
		Short: "hoopsweep - NCAA basketball box-score collector",
		Long: `hoopsweep collects NCAA basketball box scores from the public stats
site through a supervised headless browser session.

It walks every (date, division, gender) scoreboard, extracts both
teams' stat tables for every listed game, and deduplicates games that
appear under multiple divisions by copying the captured record instead
of fetching it twice.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape box scores for a date or date range",
		RunE:  runScrape,
	}
	addRunFlags(cmd)
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for CSV partitions")
	cmd.Flags().StringVar(&storageType, "storage", "", "storage backend: csv or mongo")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI (implies --storage mongo)")
	cmd.Flags().BoolVar(&forceRescrape, "force-rescrape", false, "re-fetch games even when already stored or published")
	cmd.Flags().StringVarP(&mappingFile, "mapping-file", "m", "", "discovery artifact seeding cross-division ownership")
	return cmd
}

// discoverCmd creates the "discover" subcommand.
func discoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Map game links to divisions without fetching box scores",
		Long: `Discovery walks the scoreboard listings only and writes a JSON
artifact mapping every game link to the divisions it appears under.
Useful for measuring cross-division duplication before a full scrape.`,
		RunE: runDiscover,
	}
	addRunFlags(cmd)
	cmd.Flags().StringVarP(&mappingFile, "mapping-file", "m", "", "path for the discovery JSON artifact")
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&dateFlag, "date", "d", "", "game date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&endDateFlag, "end-date", "", "inclusive end of the date range (defaults to --date)")
	cmd.Flags().StringVar(&divisionsFlag, "divisions", "", "comma-separated divisions (d1,d2,d3)")
	cmd.Flags().StringVar(&gendersFlag, "genders", "", "comma-separated genders (men,women)")
	cmd.Flags().BoolVar(&headful, "headful", false, "run the browser with a visible window")
}

// runtime bundles everything a run needs, so scrape and discover share
// one wiring path.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   storage.Store
	sched   *scheduler.Scheduler
	metrics *observability.Metrics
	items   []types.WorkItem
}

func setup(needResolver bool) (*runtime, error) {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	items, err := buildItems(cfg)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}

	handle := session.New(cfg.Session, logger)
	policy := retry.NewPolicy(cfg.Retry, logger, metrics.IncRetries)
	scraper := scrape.NewScraper(handle, scrape.NewParser(), policy, metrics, logger)

	var resolver scheduler.LinkResolver
	if needResolver {
		visited := dedup.NewVisitedIndex()
		if mappingFile != "" {
			artifact, err := storage.LoadArtifact(mappingFile)
			if err != nil {
				return nil, fmt.Errorf("load mapping file: %w", err)
			}
			logger.Info("seeded visited index from discovery artifact",
				"path", mappingFile, "links", visited.SeedFromArtifact(artifact))
		}
		resolver = dedup.NewResolver(store, scraper, visited, cfg.Scheduler.ForceRescrape, logger)
	}

	var mirror scheduler.MirrorChecker
	if cfg.Remote.Enabled {
		m, err := remote.NewMirror(cfg.Remote, logger)
		if err != nil {
			return nil, fmt.Errorf("create mirror client: %w", err)
		}
		mirror = m
	}

	var sink notify.Sink = notify.NopSink{}
	if cfg.Notify.WebhookURL != "" {
		sink = notify.NewDiscordSink(cfg.Notify, logger)
	}

	sched := scheduler.New(cfg.Scheduler, handle, scraper, resolver, store, mirror, sink, metrics, logger)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		sched:   sched,
		metrics: metrics,
		items:   items,
	}, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	rt, err := setup(true)
	if err != nil {
		return err
	}
	defer rt.store.Close()

	ctx := signalContext(rt.logger)

	rt.logger.Info("starting scrape run",
		"items", len(rt.items),
		"storage", rt.cfg.Storage.Type,
		"force_rescrape", rt.cfg.Scheduler.ForceRescrape,
	)

	start := time.Now()
	summary, err := rt.sched.RunScrape(ctx, rt.items)
	if err != nil {
		return fmt.Errorf("scrape run: %w", err)
	}
	printSummary(summary, time.Since(start), rt.cfg)
	return nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	rt, err := setup(false)
	if err != nil {
		return err
	}
	defer rt.store.Close()

	ctx := signalContext(rt.logger)

	path := rt.cfg.Storage.ArtifactPath
	if mappingFile != "" {
		path = mappingFile
	}

	start := time.Now()
	artifact, err := rt.sched.RunDiscovery(ctx, rt.items)
	if err != nil {
		return fmt.Errorf("discovery run: %w", err)
	}
	if err := storage.SaveArtifact(path, artifact); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}

	elapsed := time.Since(start)
	bold := color.New(color.Bold)
	bold.Printf("\nDiscovery complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Links:           %d\n", len(artifact.Entries))
	fmt.Printf("   Cross-division:  %d\n", len(artifact.Duplicates()))
	fmt.Printf("   Artifact:        %s\n", path)
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hoopsweep %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Session:\n")
			fmt.Printf("  Headless:           %v\n", cfg.Session.Headless)
			fmt.Printf("  Stealth:            %v\n", cfg.Session.Stealth)
			fmt.Printf("  Page Load Timeout:  %s\n", cfg.Session.PageLoadTimeout)
			fmt.Printf("  Op Timeout:         %s\n", cfg.Session.OpTimeout)
			fmt.Printf("  Creation Attempts:  %d\n", cfg.Session.CreationAttempts)
			fmt.Printf("\nRetry:\n")
			fmt.Printf("  Max Attempts:       %d\n", cfg.Retry.MaxAttempts)
			fmt.Printf("  Backoff:            %s\n", cfg.Retry.Backoff)
			fmt.Printf("\nScheduler:\n")
			fmt.Printf("  Recycle Every:      %d games\n", cfg.Scheduler.RecycleEvery)
			fmt.Printf("  Teardown Items:     %v\n", cfg.Scheduler.TeardownBetweenItems)
			fmt.Printf("  Divisions:          %s\n", strings.Join(cfg.Scheduler.Divisions, ", "))
			fmt.Printf("  Genders:            %s\n", strings.Join(cfg.Scheduler.Genders, ", "))
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:               %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Dir:         %s\n", cfg.Storage.OutputDir)
			fmt.Printf("\nRemote Mirror:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Remote.Enabled)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:               %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// buildItems expands the CLI date flags into the run's work items.
func buildItems(cfg *config.Config) ([]types.WorkItem, error) {
	if dateFlag == "" {
		return nil, fmt.Errorf("--date is required (YYYY-MM-DD)")
	}
	start, err := time.Parse("2006-01-02", dateFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q: %w", dateFlag, err)
	}
	end := start
	if endDateFlag != "" {
		end, err = time.Parse("2006-01-02", endDateFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid --end-date %q: %w", endDateFlag, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("--end-date is before --date")
		}
	}

	divisions := make([]types.Division, 0, len(cfg.Scheduler.Divisions))
	for _, d := range cfg.Scheduler.Divisions {
		division, err := types.ParseDivision(d)
		if err != nil {
			return nil, err
		}
		divisions = append(divisions, division)
	}
	genders := make([]types.Gender, 0, len(cfg.Scheduler.Genders))
	for _, g := range cfg.Scheduler.Genders {
		gender, err := types.ParseGender(g)
		if err != nil {
			return nil, err
		}
		genders = append(genders, gender)
	}

	return scheduler.GenerateWorkItems(scheduler.DateRange(start, end), genders, divisions), nil
}

// signalContext cancels on SIGINT/SIGTERM so the run winds down at the
// next item boundary.
func signalContext(logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, finishing current game then stopping", "signal", sig)
		cancel()
	}()
	return ctx
}

func printSummary(summary *types.RunSummary, elapsed time.Duration, cfg *config.Config) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Printf("\nScrape complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Items:    %d processed, %d skipped\n", summary.ItemsProcessed, summary.ItemsSkipped)
	green.Printf("   Captured: %d games\n", summary.GamesCaptured)
	if summary.GamesSkipped > 0 {
		yellow.Printf("   Skipped:  %d games\n", summary.GamesSkipped)
	}
	if summary.GamesFailed > 0 {
		red.Printf("   Failed:   %d games\n", summary.GamesFailed)
	}
	if cfg.Storage.Type == "csv" {
		fmt.Printf("   Output:   %s\n", cfg.Storage.OutputDir)
	}
}

// setupLogger creates a structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if divisionsFlag != "" {
		cfg.Scheduler.Divisions = splitCSV(divisionsFlag)
	}
	if gendersFlag != "" {
		cfg.Scheduler.Genders = splitCSV(gendersFlag)
	}
	if outputDir != "" {
		cfg.Storage.OutputDir = outputDir
	}
	if storageType != "" {
		cfg.Storage.Type = strings.ToLower(storageType)
	}
	if mongoURI != "" {
		cfg.Storage.MongoURI = mongoURI
		cfg.Storage.Type = "mongo"
	}
	if forceRescrape {
		cfg.Scheduler.ForceRescrape = true
	}
	if headful {
		cfg.Session.Headless = false
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
