package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/formats"
	"github.com/levijay/huntarr/internal/library"
	"github.com/levijay/huntarr/internal/matcher"
	"github.com/levijay/huntarr/internal/metrics"
	"github.com/levijay/huntarr/internal/models"
	"github.com/levijay/huntarr/internal/parser"
	"github.com/levijay/huntarr/internal/profiles"
)

// FeedFetcher is the indexer surface the RSS loop consumes
type FeedFetcher interface {
	FetchRSS(ctx context.Context, idx *models.IndexerConfig) ([]models.Release, error)
}

// RSSController ingests indexer RSS feeds, de-duplicates items through
// the persistent cache, and grabs anything a monitored item wants.
type RSSController struct {
	db        *models.Database
	fetcher   FeedFetcher
	matcher   *matcher.Matcher
	oracle    profiles.Oracle
	engine    *formats.Engine
	grab      *GrabController
	library   library.Library
	retention time.Duration
	tolerance float64
	logger    *logrus.Logger
}

// NewRSSController creates an RSS ingestion controller
func NewRSSController(db *models.Database, fetcher FeedFetcher, m *matcher.Matcher, oracle profiles.Oracle, engine *formats.Engine, grab *GrabController, lib library.Library, retention time.Duration, tolerance float64, logger *logrus.Logger) *RSSController {
	return &RSSController{
		db:        db,
		fetcher:   fetcher,
		matcher:   m,
		oracle:    oracle,
		engine:    engine,
		grab:      grab,
		library:   lib,
		retention: retention,
		tolerance: tolerance,
		logger:    logger,
	}
}

// SyncRSS runs one ingestion cycle over every RSS-enabled indexer
func (c *RSSController) SyncRSS(ctx context.Context) error {
	indexers, err := c.db.GetEnabledIndexers()
	if err != nil {
		return fmt.Errorf("failed to load indexers: %w", err)
	}

	movies, err := c.library.MonitoredMovies()
	if err != nil {
		return fmt.Errorf("failed to load monitored movies: %w", err)
	}
	episodes, err := c.library.MonitoredEpisodes()
	if err != nil {
		return fmt.Errorf("failed to load monitored episodes: %w", err)
	}

	for _, idx := range indexers {
		if !idx.EnableRSS {
			continue
		}
		if err := c.ingestFeed(ctx, idx, movies, episodes); err != nil {
			metrics.IndexerErrors.WithLabelValues(idx.Name).Inc()
			c.logger.WithError(err).WithField("indexer", idx.Name).Warn("RSS ingestion failed")
		}
	}

	purged, err := c.db.PurgeRSSCacheBefore(time.Now().Add(-c.retention))
	if err != nil {
		return fmt.Errorf("failed to purge rss cache: %w", err)
	}
	if purged > 0 {
		c.logger.WithField("count", purged).Debug("Purged stale RSS cache entries")
	}
	return nil
}

// ingestFeed pulls one feed and processes only the items not seen before
func (c *RSSController) ingestFeed(ctx context.Context, idx *models.IndexerConfig, movies, episodes []*models.WantedItem) error {
	releases, err := c.fetcher.FetchRSS(ctx, idx)
	if err != nil {
		return err
	}

	for _, release := range releases {
		inserted, err := c.db.InsertRSSCacheEntry(&models.RSSCacheEntry{
			IndexerID:   idx.ID,
			GUID:        release.GUID,
			Title:       release.Title,
			DownloadURL: release.DownloadURL,
			Size:        release.Size,
			PublishDate: release.PublishDate,
			Categories:  release.Categories,
		})
		if err != nil {
			c.logger.WithError(err).WithField("guid", release.GUID).Error("Failed to cache RSS item")
			continue
		}
		if !inserted {
			metrics.RSSItemsSeen.WithLabelValues("duplicate").Inc()
			continue
		}
		metrics.RSSItemsSeen.WithLabelValues("new").Inc()

		grabbed := c.processItem(ctx, release, movies, episodes)
		if grabbed {
			metrics.RSSItemsSeen.WithLabelValues("grabbed").Inc()
		}
		if err := c.db.MarkRSSCacheProcessed(idx.ID, release.GUID, grabbed); err != nil {
			c.logger.WithError(err).WithField("guid", release.GUID).Error("Failed to mark RSS item processed")
		}
	}
	return nil
}

// processItem matches one new feed item against the monitored library:
// movie first, then numbered episode, then bare season pack.
func (c *RSSController) processItem(ctx context.Context, release models.Release, movies, episodes []*models.WantedItem) bool {
	for _, movie := range movies {
		if !c.matcher.Matches(release.Title, movie.Title, movie.Year, c.tolerance) {
			continue
		}
		if !c.wants(movie, release) {
			continue
		}
		if c.tryGrab(ctx, movie.Target(), release) {
			return true
		}
	}

	if ep := parser.ParseEpisode(release.Title); ep != nil {
		for _, item := range episodes {
			if item.Season != ep.Season || item.Episode != ep.Episode {
				continue
			}
			if !c.matcher.Matches(release.Title, item.Title, 0, c.tolerance) {
				continue
			}
			if !c.wants(item, release) {
				continue
			}
			if c.tryGrab(ctx, item.Target(), release) {
				return true
			}
		}
		return false
	}

	if season, ok := parser.ParseSeasonPack(release.Title); ok {
		return c.processSeasonPack(ctx, release, season, episodes)
	}
	return false
}

// processSeasonPack grabs a bare-season release when any monitored
// episode of that season still wants content.
func (c *RSSController) processSeasonPack(ctx context.Context, release models.Release, season int, episodes []*models.WantedItem) bool {
	claimed := make(map[uint64]bool)
	for _, item := range episodes {
		if item.Season != season || claimed[item.SeriesID] {
			continue
		}
		if !c.matcher.Matches(release.Title, item.Title, 0, c.tolerance) {
			continue
		}
		claimed[item.SeriesID] = true

		if !c.seasonWants(item.SeriesID, season, release) {
			continue
		}
		target := models.Target{MediaType: models.MediaTypeTV, MediaID: item.SeriesID, Season: season}
		if c.tryGrab(ctx, target, release) {
			return true
		}
	}
	return false
}

// seasonWants reports whether any monitored episode of the season lacks
// a file or may still upgrade.
func (c *RSSController) seasonWants(seriesID uint64, season int, release models.Release) bool {
	items, err := c.library.SeasonEpisodes(seriesID, season)
	if err != nil {
		c.logger.WithError(err).Warn("Season lookup failed")
		return false
	}
	for _, item := range items {
		if c.wants(item, release) {
			return true
		}
	}
	return false
}

// wants applies quality policy and custom-format scoring for one item
func (c *RSSController) wants(item *models.WantedItem, release models.Release) bool {
	ok, err := c.oracle.MeetsProfile(item.QualityProfileID, release.Quality)
	if err != nil || !ok {
		return false
	}

	if item.HasFile {
		upgrade, err := c.oracle.ShouldUpgrade(item.QualityProfileID, item.CurrentQuality, release.Quality, profiles.ProperRepackFlags{
			CurrentIsProper: item.CurrentProper,
			CurrentIsRepack: item.CurrentRepack,
			NewIsProper:     parser.IsProper(release.Title),
			NewIsRepack:     parser.IsRepack(release.Title),
		})
		if err != nil || !upgrade {
			return false
		}
	}

	minScore, err := c.oracle.MinCustomFormatScore(item.QualityProfileID)
	if err != nil {
		return false
	}
	score, err := c.engine.CalculateReleaseScore(release.Title, item.MediaType, item.QualityProfileID, release.Size)
	if err != nil {
		return false
	}
	return score >= minScore
}

// tryGrab grabs silently: blacklist hits and duplicate acquisitions are
// expected on the RSS path and skipped without noise.
func (c *RSSController) tryGrab(ctx context.Context, target models.Target, release models.Release) bool {
	_, err := c.grab.Grab(ctx, target, release)
	if err == nil {
		return true
	}
	if errors.Is(err, ErrBlacklisted) || errors.Is(err, ErrDuplicateAcquisition) {
		c.logger.WithFields(logrus.Fields{
			"title":  release.Title,
			"target": target.Key(),
		}).Debug("RSS grab skipped")
		return false
	}
	c.logger.WithError(err).WithField("title", release.Title).Warn("RSS grab failed")
	return false
}
