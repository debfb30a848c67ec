package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/downloader"
	"github.com/levijay/huntarr/internal/library"
	"github.com/levijay/huntarr/internal/metrics"
	"github.com/levijay/huntarr/internal/models"
	"github.com/levijay/huntarr/internal/parser"
)

// SyncController reconciles persisted downloads against the download
// clients: progress, completion, import, and failure handling.
type SyncController struct {
	db       *models.Database
	drivers  downloader.Registry
	library  library.Library
	importer library.Importer
	notifier library.Notifier
	logger   *logrus.Logger

	// Redownload, when set, triggers a replacement search after a failed
	// download has been blacklisted.
	Redownload func(ctx context.Context, target models.Target)
}

// NewSyncController creates a download sync controller
func NewSyncController(db *models.Database, drivers downloader.Registry, lib library.Library, importer library.Importer, notifier library.Notifier, logger *logrus.Logger) *SyncController {
	return &SyncController{
		db:       db,
		drivers:  drivers,
		library:  lib,
		importer: importer,
		notifier: notifier,
		logger:   logger,
	}
}

// SyncDownloads advances every non-terminal download one step. Errors on
// one download are logged and do not stop the batch.
func (c *SyncController) SyncDownloads(ctx context.Context) error {
	downloads, err := c.db.GetActiveDownloads()
	if err != nil {
		return fmt.Errorf("failed to load active downloads: %w", err)
	}
	if len(downloads) == 0 {
		return nil
	}

	transfers := c.collectTransfers(ctx)

	for _, download := range downloads {
		if err := c.syncOne(ctx, download, transfers); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"download_id": download.ID,
				"title":       download.Title,
			}).Error("Failed to sync download")
		}
	}
	return nil
}

// collectTransfers lists every configured client once per cycle
func (c *SyncController) collectTransfers(ctx context.Context) map[string]downloader.Transfer {
	transfers := make(map[string]downloader.Transfer)
	for protocol, driver := range c.drivers {
		list, err := driver.ListActive(ctx)
		if err != nil {
			c.logger.WithError(err).WithField("protocol", protocol).Warn("Failed to list download client")
			continue
		}
		for _, t := range list {
			transfers[t.Handle] = t
		}
	}
	return transfers
}

func (c *SyncController) syncOne(ctx context.Context, download *models.Download, transfers map[string]downloader.Transfer) error {
	if download.Handle == "" {
		// Hash still being discovered; give up after the status has
		// been stuck long enough that discovery must have timed out.
		if time.Since(download.UpdatedAt) > 10*time.Minute {
			return c.fail(ctx, download, "download client never reported the transfer")
		}
		return nil
	}

	transfer, ok := transfers[download.Handle]
	if !ok {
		if download.Status == models.DownloadStatusQueued {
			return nil // not visible in the client yet
		}
		return c.fail(ctx, download, "transfer disappeared from download client")
	}

	switch transfer.State {
	case downloader.TransferFailed:
		return c.fail(ctx, download, failureReason(transfer))
	case downloader.TransferCompleted:
		return c.complete(ctx, download, transfer)
	default:
		if download.Status != models.DownloadStatusDownloading || transfer.Progress != download.Progress {
			download.Status = models.DownloadStatusDownloading
			download.Progress = transfer.Progress
			return c.db.UpdateDownload(download)
		}
		return nil
	}
}

func failureReason(t downloader.Transfer) string {
	if t.Message != "" {
		return t.Message
	}
	return "download client reported failure"
}

// complete moves a finished transfer through completed and importing to
// the imported terminal state. The completed row is persisted before the
// import starts so an interrupted import resumes from it on the next
// cycle.
func (c *SyncController) complete(ctx context.Context, download *models.Download, transfer downloader.Transfer) error {
	if download.Status != models.DownloadStatusCompleted {
		download.Status = models.DownloadStatusCompleted
		download.Progress = 1.0
		download.SavePath = transfer.Path
		if err := c.db.UpdateDownload(download); err != nil {
			return fmt.Errorf("failed to mark completed: %w", err)
		}
	}

	download.Status = models.DownloadStatusImporting
	if err := c.db.UpdateDownload(download); err != nil {
		return fmt.Errorf("failed to mark importing: %w", err)
	}

	if err := c.importTarget(ctx, download, transfer.Path); err != nil {
		return c.fail(ctx, download, fmt.Sprintf("import failed: %v", err))
	}

	now := time.Now()
	download.Status = models.DownloadStatusImported
	download.CompletedAt = &now
	if err := c.db.UpdateDownload(download); err != nil {
		return fmt.Errorf("failed to mark imported: %w", err)
	}

	metrics.DownloadsCompleted.Inc()
	c.notifier.Notify("import", map[string]interface{}{
		"title":   download.Title,
		"quality": download.Quality,
	})
	c.logger.WithFields(logrus.Fields{
		"title":   download.Title,
		"quality": download.Quality,
	}).Info("Download imported")
	return nil
}

// importTarget imports the payload for the download's target. Season
// packs import every monitored episode of the season that has a file in
// the payload.
func (c *SyncController) importTarget(ctx context.Context, download *models.Download, path string) error {
	proper := parser.IsProper(download.Title)
	repack := parser.IsRepack(download.Title)

	if download.Target.MediaType == models.MediaTypeMovie {
		item, err := c.library.ItemByID(download.Target.MediaID)
		if err != nil {
			return fmt.Errorf("wanted item lookup failed: %w", err)
		}
		if _, err := c.importer.Import(ctx, item, path); err != nil {
			return err
		}
		return c.library.RecordImport(item.ID, download.Quality, proper, repack)
	}

	episodes, err := c.library.SeasonEpisodes(download.Target.MediaID, download.Target.Season)
	if err != nil {
		return fmt.Errorf("season lookup failed: %w", err)
	}

	var imported int
	for _, ep := range episodes {
		if download.Target.Episode != 0 && ep.Episode != download.Target.Episode {
			continue
		}
		if _, err := c.importer.Import(ctx, ep, path); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"series":  ep.Title,
				"episode": fmt.Sprintf("S%02dE%02d", ep.Season, ep.Episode),
			}).Warn("Episode import failed")
			continue
		}
		if err := c.library.RecordImport(ep.ID, download.Quality, proper, repack); err != nil {
			return err
		}
		imported++
	}
	if imported == 0 {
		return errors.New("no episodes could be imported from payload")
	}
	return nil
}

// fail blacklists the release, records the terminal failure, removes the
// payload from the client and optionally searches for a replacement.
func (c *SyncController) fail(ctx context.Context, download *models.Download, reason string) error {
	c.logger.WithFields(logrus.Fields{
		"title":  download.Title,
		"reason": reason,
	}).Warn("Download failed")

	err := c.db.CreateBlacklistEntry(&models.BlacklistEntry{
		Target:  download.Target,
		Title:   download.Title,
		Indexer: download.Indexer,
		Reason:  reason,
	})
	if err != nil {
		return fmt.Errorf("failed to blacklist: %w", err)
	}

	download.Status = models.DownloadStatusFailed
	download.ErrorMessage = reason
	if err := c.db.UpdateDownload(download); err != nil {
		return fmt.Errorf("failed to mark failed: %w", err)
	}

	if download.Handle != "" {
		driver, err := c.drivers.ForProtocol(download.Protocol)
		if err == nil {
			if err := driver.Remove(ctx, download.Handle, true); err != nil && !errors.Is(err, downloader.ErrNotFound) {
				c.logger.WithError(err).Warn("Failed to remove failed transfer from client")
			}
		}
	}

	metrics.DownloadsFailed.Inc()
	c.notifier.Notify("download_failed", map[string]interface{}{
		"title":  download.Title,
		"reason": reason,
	})

	if c.Redownload != nil {
		c.Redownload(ctx, download.Target)
	}
	return nil
}

// Cancel removes a download from its client and deletes the record. A
// transfer already gone from the client counts as cancelled.
func (c *SyncController) Cancel(ctx context.Context, downloadID uint64) error {
	download, err := c.db.GetDownloadByID(downloadID)
	if err != nil {
		return fmt.Errorf("download not found: %w", err)
	}

	if download.Handle != "" {
		driver, err := c.drivers.ForProtocol(download.Protocol)
		if err != nil {
			return err
		}
		if err := driver.Remove(ctx, download.Handle, true); err != nil && !errors.Is(err, downloader.ErrNotFound) {
			return fmt.Errorf("failed to remove from client: %w", err)
		}
	}

	if err := c.db.DeleteDownload(download.ID); err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	c.logger.WithField("title", download.Title).Info("Download cancelled")
	return nil
}
