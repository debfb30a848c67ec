package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/levijay/huntarr/internal/api"
	"github.com/levijay/huntarr/internal/config"
	"github.com/levijay/huntarr/internal/controllers"
	"github.com/levijay/huntarr/internal/downloader"
	"github.com/levijay/huntarr/internal/formats"
	"github.com/levijay/huntarr/internal/gate"
	"github.com/levijay/huntarr/internal/indexer"
	"github.com/levijay/huntarr/internal/library"
	"github.com/levijay/huntarr/internal/matcher"
	"github.com/levijay/huntarr/internal/models"
	"github.com/levijay/huntarr/internal/profiles"
	"github.com/levijay/huntarr/internal/scheduler"
	"github.com/levijay/huntarr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat == "json")
	logger.Info("Starting Huntarr")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Download client drivers
	drivers := downloader.Registry{}
	if cfg.QBittorrentURL != "" {
		drivers[models.ProtocolTorrent] = downloader.NewQBittorrent(cfg.QBittorrentURL, cfg.QBittorrentUser, cfg.QBittorrentPassword, cfg.DownloadCategory)
		logger.Info("qBittorrent client configured")
	}
	if cfg.SABnzbdURL != "" {
		drivers[models.ProtocolUsenet] = downloader.NewSABnzbd(cfg.SABnzbdURL, cfg.SABnzbdKey, cfg.DownloadCategory)
		logger.Info("SABnzbd client configured")
	}

	// 5. Core collaborators
	limiter := gate.NewLimiter(cfg.GlobalRateLimit, cfg.IndexerRateLimit)
	queue := gate.NewSearchQueue(cfg.SearchGap)
	gateway := indexer.NewGateway(db, limiter, logger)
	lib := library.NewService(db)
	importer := library.NewFileImporter(cfg.LibraryPath, logger)
	notifier := library.NewLogNotifier(logger)
	oracle := profiles.NewService(db)
	engine := formats.NewEngine(db, logger)
	titleMatcher := matcher.New()

	// 6. Controllers
	grabCtrl := controllers.NewGrabController(db, drivers, notifier, cfg.HandleWaitTimeout, logger)
	tolerances := controllers.MatchTolerances{
		Auto:        cfg.MatchExtraAuto,
		Interactive: cfg.MatchExtraInteractive,
	}
	searchCtrl := controllers.NewSearchController(db, gateway, queue, titleMatcher, oracle, engine, grabCtrl, lib, tolerances, logger)
	syncCtrl := controllers.NewSyncController(db, drivers, lib, importer, notifier, logger)
	if cfg.RedownloadOnFailure {
		syncCtrl.Redownload = searchCtrl.SearchTarget
	}
	rssCtrl := controllers.NewRSSController(db, gateway, titleMatcher, oracle, engine, grabCtrl, lib, cfg.RSSCacheRetention, cfg.MatchExtraRSS, logger)
	logger.Info("Controllers initialized")

	// 7. Scheduler
	sched := scheduler.NewScheduler(syncCtrl, rssCtrl, searchCtrl, scheduler.Config{
		DownloadSyncInterval: cfg.DownloadSyncInterval,
		RSSSyncInterval:      cfg.RSSSyncInterval,
		MissingSearchSpec:    cfg.MissingSearchSpec,
		CutoffSearchSpec:     cfg.CutoffSearchSpec,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. HTTP server
	server := api.NewServer(cfg, db, searchCtrl, syncCtrl, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Huntarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Huntarr stopped")
	return nil
}
