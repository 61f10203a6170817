package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/consentio/gdprscan/analyze"
	"github.com/consentio/gdprscan/audit"
	"github.com/consentio/gdprscan/cache"
	"github.com/consentio/gdprscan/config"
	"github.com/consentio/gdprscan/llm"
	"github.com/consentio/gdprscan/log"
	"github.com/consentio/gdprscan/report"
	"github.com/consentio/gdprscan/scrape"
	"github.com/consentio/gdprscan/sitemap"
	"github.com/consentio/gdprscan/status"
	"github.com/consentio/gdprscan/store"
	"github.com/consentio/gdprscan/supervise"
	"github.com/consentio/gdprscan/util"
)

var (
	configPath = flag.String("config", "", "Path to the YAML config file. Defaults apply when omitted.")
	outputDir  = flag.String("output-dir", "", "Override the output directory from the config.")
	sitesPath  = flag.String("sites", "", "Override the sites CSV file from the config.")
	engine     = flag.String("engine", "chrome", "Scrape engine: chrome (headless browser) or http (plain fetch, no banner clicks).")
	listenAddr = flag.String("listen", "", "Serve /health, /ready and /status on this address (e.g. :8080).")
	resume     = flag.Bool("resume", false, "Skip site/scenario pairs already recorded in the audit cache.")
	sitemapFor = flag.String("sitemap", "", "List the sitemap page URLs for the given site and exit.")
	execMode   = flag.Bool("exec", false, "Boot the daemon, wait for readiness, then run the remaining arguments as the workload and relay its exit code.")
	noDaemon   = flag.Bool("no-daemon", false, "Assume the model daemon is already running; do not start or stop one.")
)

func main() {
	flag.Parse()

	logger := log.NewLogger("main")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
		}
		cfg = loaded
	}
	if *outputDir != "" {
		cfg.Scan.OutputDir = *outputDir
	}
	if *sitesPath != "" {
		cfg.Scan.SitesFile = *sitesPath
	}

	if *sitemapFor != "" {
		listSitemap(logger, *sitemapFor)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer cancel()

	// Monitored-child mode: everything after the flags is the workload
	// argv, run once the daemon answers its readiness probe. The signal
	// context covers the boot window too, so an interrupt during
	// readiness polling still tears the daemon down.
	if *execMode {
		sup := supervise.New(daemonConfig(cfg))
		code, err := sup.Run(ctx, flag.Args())
		if err != nil {
			logger.Error().Err(err).Msg("Workload run failed")
			if code < 0 {
				code = 1
			}
		}
		os.Exit(code)
	}

	if err := os.MkdirAll(cfg.Scan.OutputDir, os.ModePerm); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Scan.OutputDir).Msg("Failed to create output directory")
	}

	// Tee the run log into the output directory next to the results.
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(cfg.Scan.OutputDir, fmt.Sprintf("gdpr_analysis_%s.log", timestamp))
	logFile, err := os.Create(logPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", logPath).Msg("Failed to create run log")
	}
	defer logFile.Close()
	logger = log.NewTeeLogger("main", logFile)

	daemonReady := func() bool { return true }
	if !*noDaemon {
		sup := supervise.New(daemonConfig(cfg))
		if err := sup.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start model daemon")
		}
		defer func() {
			if err := sup.Stop(); err != nil {
				logger.Error().Err(err).Msg("Failed to stop model daemon")
			}
		}()

		if err := sup.AwaitReady(ctx); err != nil {
			logger.Error().Err(err).Msg("Model daemon never became ready")
			return
		}
		daemonReady = sup.Ready
	}

	sites, err := loadSites(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load sites")
		return
	}
	if len(sites) == 0 {
		logger.Error().Str("file", cfg.Scan.SitesFile).Msg("No sites to audit")
		return
	}

	logger.Info().Int("sites", len(sites)).Str("model", cfg.Scan.Model).Str("engine", *engine).Msg("Starting GDPR audit")

	scraper, closeScraper, err := newScraper(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to set up scrape engine")
		return
	}
	defer closeScraper()

	pageStore, err := store.NewFileStore(filepath.Join(cfg.Scan.OutputDir, "pages"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create page store")
		return
	}

	auditCache, err := cache.NewScanCache(filepath.Join(cfg.Scan.OutputDir, "audits.db"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open audit cache")
		return
	}
	defer auditCache.Close()

	analyzer := analyze.New(llm.NewClient(cfg.Scan.BaseURL, cfg.Scan.Model))
	auditor := audit.New(scraper, analyzer, pageStore, auditCache, *resume)

	tracker := status.NewTracker(daemonReady)
	tracker.SetTotal(len(sites))
	if *listenAddr != "" {
		srv := status.Serve(*listenAddr, tracker)
		defer srv.Close()
	}

	var (
		mu      sync.Mutex
		results []report.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Scan.Concurrency)
	for _, site := range sites {
		site := site
		g.Go(func() error {
			rows := auditor.AuditSite(gctx, site)

			failed := false
			for _, row := range rows {
				if row.Error != "" {
					failed = true
				}
			}
			tracker.Done(failed)

			mu.Lock()
			results = append(results, rows...)
			mu.Unlock()

			return nil
		})
	}
	_ = g.Wait()

	if len(results) == 0 {
		logger.Warn().Msg("Nothing audited, no results to write")
		return
	}

	path, err := report.Write(cfg.Scan.OutputDir, results)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write results")
		return
	}

	logger.Info().Str("path", path).Int("results", len(results)).Msg("Audit complete")
}

func daemonConfig(cfg *config.Config) supervise.Config {
	logPath := cfg.Daemon.LogFile
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(cfg.Scan.OutputDir, logPath)
	}

	return supervise.Config{
		Command:      cfg.Daemon.Command,
		Args:         cfg.Daemon.Args,
		LogPath:      logPath,
		ReadyURL:     cfg.Daemon.ReadyURL,
		PollInterval: time.Duration(cfg.Daemon.PollMillis) * time.Millisecond,
		ReadyTimeout: time.Duration(cfg.Daemon.ReadySecs) * time.Second,
		Warmup:       time.Duration(cfg.Daemon.WarmupSecs) * time.Second,
		StopTimeout:  time.Duration(cfg.Daemon.StopSecs) * time.Second,
	}
}

// loadSites takes sites from the command line when given, otherwise from
// the configured CSV file.
func loadSites(cfg *config.Config) ([]string, error) {
	if args := flag.Args(); len(args) > 0 {
		sites := make([]string, 0, len(args))
		for _, arg := range args {
			sites = append(sites, util.NormalizeSiteURL(arg))
		}
		return sites, nil
	}

	return report.LoadSites(cfg.Scan.SitesFile)
}

func newScraper(cfg *config.Config, logger zerolog.Logger) (scrape.Scraper, func(), error) {
	settle := time.Duration(cfg.Scan.SettleMillis) * time.Millisecond
	navTimeout := time.Duration(cfg.Scan.NavSecs) * time.Second

	switch *engine {
	case "chrome":
		s := scrape.NewChromeScraper(settle, navTimeout)
		return s, s.Close, nil
	case "http":
		logger.Warn().Msg("HTTP engine cannot interact with consent banners; accept/reject scenarios will see the same page")
		return scrape.NewHTTPScraper(navTimeout), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown scrape engine: %s", *engine)
	}
}

func listSitemap(logger zerolog.Logger, site string) {
	finder := sitemap.NewFinder()
	urls, err := finder.PageURLs(context.Background(), util.NormalizeSiteURL(site))
	if err != nil {
		logger.Fatal().Err(err).Str("site", site).Msg("Failed to discover sitemap")
	}

	for _, u := range urls {
		fmt.Println(u)
	}
}
