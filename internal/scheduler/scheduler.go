package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/controllers"
)

// Config carries the task cadences
type Config struct {
	DownloadSyncInterval time.Duration
	RSSSyncInterval      time.Duration
	MissingSearchSpec    string
	CutoffSearchSpec     string
}

// Scheduler manages the background acquisition tasks
type Scheduler struct {
	cron       *cron.Cron
	syncCtrl   *controllers.SyncController
	rssCtrl    *controllers.RSSController
	searchCtrl *controllers.SearchController
	config     Config
	logger     *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(syncCtrl *controllers.SyncController, rssCtrl *controllers.RSSController, searchCtrl *controllers.SearchController, config Config, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		syncCtrl:   syncCtrl,
		rssCtrl:    rssCtrl,
		searchCtrl: searchCtrl,
		config:     config,
		logger:     logger,
	}
}

// Start registers and starts all background tasks
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.config.DownloadSyncInterval), func() {
		s.runDownloadSync()
	})
	if err != nil {
		return fmt.Errorf("failed to add download sync job: %w", err)
	}

	_, err = s.cron.AddFunc(fmt.Sprintf("@every %s", s.config.RSSSyncInterval), func() {
		s.runRSSSync()
	})
	if err != nil {
		return fmt.Errorf("failed to add rss sync job: %w", err)
	}

	_, err = s.cron.AddFunc(s.config.MissingSearchSpec, func() {
		s.runMissingSearch()
	})
	if err != nil {
		return fmt.Errorf("failed to add missing search job: %w", err)
	}

	_, err = s.cron.AddFunc(s.config.CutoffSearchSpec, func() {
		s.runCutoffSearch()
	})
	if err != nil {
		return fmt.Errorf("failed to add cutoff search job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Prime the RSS cache right away so the first real cycle only
	// processes genuinely new items
	go s.runRSSSync()

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDownloadSync() {
	if err := s.syncCtrl.SyncDownloads(context.Background()); err != nil {
		s.logger.WithError(err).Error("Download sync failed")
	}
}

func (s *Scheduler) runRSSSync() {
	s.logger.Info("Running RSS sync")
	if err := s.rssCtrl.SyncRSS(context.Background()); err != nil {
		s.logger.WithError(err).Error("RSS sync failed")
	} else {
		s.logger.Info("RSS sync completed")
	}
}

func (s *Scheduler) runMissingSearch() {
	s.logger.Info("Running missing-content search")
	if err := s.searchCtrl.SearchMissing(context.Background()); err != nil {
		s.logger.WithError(err).Error("Missing-content search failed")
	} else {
		s.logger.Info("Missing-content search completed")
	}
}

func (s *Scheduler) runCutoffSearch() {
	s.logger.Info("Running cutoff upgrade search")
	if err := s.searchCtrl.SearchCutoff(context.Background()); err != nil {
		s.logger.WithError(err).Error("Cutoff search failed")
	} else {
		s.logger.Info("Cutoff search completed")
	}
}
