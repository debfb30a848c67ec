package controllers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"

	"github.com/levijay/huntarr/internal/downloader"
	"github.com/levijay/huntarr/internal/library"
	"github.com/levijay/huntarr/internal/metrics"
	"github.com/levijay/huntarr/internal/models"
)

// ErrDuplicateAcquisition is returned when the target already has a
// non-terminal download or an identical source URL is already queued.
var ErrDuplicateAcquisition = errors.New("target already has an active download")

// ErrBlacklisted is returned when the release title is blacklisted for
// the target.
var ErrBlacklisted = errors.New("release is blacklisted for this target")

// GrabController turns a chosen release into a persisted download and
// submits it to the matching download client.
type GrabController struct {
	db         *models.Database
	drivers    downloader.Registry
	notifier   library.Notifier
	handleWait time.Duration
	logger     *logrus.Logger

	// Serializes the pre-grab checks with download creation so two
	// concurrent grabs cannot both pass the one-active-download check.
	mu sync.Mutex
}

// NewGrabController creates a grab controller
func NewGrabController(db *models.Database, drivers downloader.Registry, notifier library.Notifier, handleWait time.Duration, logger *logrus.Logger) *GrabController {
	return &GrabController{
		db:         db,
		drivers:    drivers,
		notifier:   notifier,
		handleWait: handleWait,
		logger:     logger,
	}
}

// Grab persists and submits the release for the target. Returns
// ErrBlacklisted or ErrDuplicateAcquisition when a pre-grab check fails;
// callers on automatic paths treat those as silent skips.
func (c *GrabController) Grab(ctx context.Context, target models.Target, release models.Release) (*models.Download, error) {
	driver, err := c.drivers.ForProtocol(release.Protocol)
	if err != nil {
		metrics.GrabsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	download, err := c.createDownload(target, release)
	if err != nil {
		if errors.Is(err, ErrDuplicateAcquisition) || errors.Is(err, ErrBlacklisted) {
			metrics.GrabsTotal.WithLabelValues("conflict").Inc()
		} else {
			metrics.GrabsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	handle, err := c.submit(ctx, driver, release)
	if err != nil {
		download.Status = models.DownloadStatusFailed
		download.ErrorMessage = err.Error()
		if updateErr := c.db.UpdateDownload(download); updateErr != nil {
			c.logger.WithError(updateErr).Error("Failed to record submission failure")
		}
		metrics.GrabsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to submit to download client: %w", err)
	}

	download.Status = models.DownloadStatusDownloading
	download.Handle = handle
	if err := c.db.UpdateDownload(download); err != nil {
		return nil, fmt.Errorf("failed to update download: %w", err)
	}

	if handle == "" {
		go c.discoverHandle(download.ID, release.Title)
	}

	c.logger.WithFields(logrus.Fields{
		"title":    release.Title,
		"indexer":  release.Indexer,
		"protocol": release.Protocol,
		"target":   target.Key(),
	}).Info("Grabbed release")

	metrics.GrabsTotal.WithLabelValues("success").Inc()
	c.notifier.Notify("grab", map[string]interface{}{
		"title":   release.Title,
		"indexer": release.Indexer,
	})
	return download, nil
}

// createDownload runs the pre-grab checks and inserts the queued row in
// one critical section.
func (c *GrabController) createDownload(target models.Target, release models.Release) (*models.Download, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blacklisted, err := c.db.IsBlacklisted(target, release.Title)
	if err != nil {
		return nil, fmt.Errorf("blacklist check failed: %w", err)
	}
	if blacklisted {
		return nil, fmt.Errorf("%w: %s", ErrBlacklisted, release.Title)
	}

	if _, err := c.db.GetActiveDownloadByTarget(target); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAcquisition, target.Key())
	} else if !errors.Is(err, bolthold.ErrNotFound) {
		return nil, fmt.Errorf("active download check failed: %w", err)
	}

	if _, err := c.db.GetActiveDownloadBySourceURL(release.DownloadURL); err == nil {
		return nil, fmt.Errorf("%w: identical source url", ErrDuplicateAcquisition)
	} else if !errors.Is(err, bolthold.ErrNotFound) {
		return nil, fmt.Errorf("source url check failed: %w", err)
	}

	download := &models.Download{
		Target:    target,
		MediaType: target.MediaType,
		Title:     release.Title,
		SourceURL: release.DownloadURL,
		Status:    models.DownloadStatusQueued,
		Size:      release.Size,
		Seeders:   release.Seeders,
		Indexer:   release.Indexer,
		Quality:   release.Quality,
		Protocol:  release.Protocol,
	}
	if err := c.db.CreateDownload(download); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}
	return download, nil
}

// submit retries the client submission with exponential backoff
func (c *GrabController) submit(ctx context.Context, driver downloader.Driver, release models.Release) (string, error) {
	var handle string
	operation := func() error {
		var err error
		handle, err = driver.Add(ctx, release.DownloadURL, release.Title)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return "", err
	}
	return handle, nil
}

// discoverHandle polls the torrent client until the new transfer shows up
// and records its hash. Runs detached from the grab request.
func (c *GrabController) discoverHandle(downloadID uint64, releaseTitle string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.handleWait)
	defer cancel()

	operation := func() error {
		download, err := c.db.GetDownloadByID(downloadID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !download.Status.Active() {
			return backoff.Permanent(errors.New("download no longer active"))
		}

		driver, err := c.drivers.ForProtocol(download.Protocol)
		if err != nil {
			return backoff.Permanent(err)
		}
		transfers, err := driver.ListActive(ctx)
		if err != nil {
			return err
		}

		for _, t := range transfers {
			if !transferNameMatches(t.Name, releaseTitle) {
				continue
			}
			if _, err := c.db.GetDownloadByHandle(t.Handle); err == nil {
				continue // hash already claimed by another download
			}
			download.Handle = t.Handle
			return c.db.UpdateDownload(download)
		}
		return errors.New("transfer not visible yet")
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxElapsedTime = c.handleWait
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		c.logger.WithError(err).WithField("download_id", downloadID).Warn("Handle discovery gave up")
	}
}

var nameJunkRegex = regexp.MustCompile(`[^a-z0-9]+`)

// transferNameMatches compares client-reported and release names after
// stripping separators, since clients normalize names on add.
func transferNameMatches(transferName, releaseTitle string) bool {
	a := nameJunkRegex.ReplaceAllString(strings.ToLower(transferName), "")
	b := nameJunkRegex.ReplaceAllString(strings.ToLower(releaseTitle), "")
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
