package controllers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/formats"
	"github.com/levijay/huntarr/internal/gate"
	"github.com/levijay/huntarr/internal/indexer"
	"github.com/levijay/huntarr/internal/library"
	"github.com/levijay/huntarr/internal/matcher"
	"github.com/levijay/huntarr/internal/metrics"
	"github.com/levijay/huntarr/internal/models"
	"github.com/levijay/huntarr/internal/parser"
	"github.com/levijay/huntarr/internal/profiles"
)

// ErrNoReleaseFound is returned when a search produced no acceptable
// candidate.
var ErrNoReleaseFound = errors.New("no acceptable release found")

// ReleaseSearcher is the indexer surface the search controller consumes
type ReleaseSearcher interface {
	SearchMovies(ctx context.Context, title string, year int, mode indexer.SearchMode) []models.Release
	SearchTV(ctx context.Context, title string, season, episode int, mode indexer.SearchMode) []models.Release
}

// MatchTolerances are the extra-word multipliers per search context
type MatchTolerances struct {
	Auto        float64
	Interactive float64
}

// SearchController runs content searches: find releases, filter them
// against the matcher and quality policy, rank, and grab the best.
type SearchController struct {
	db         *models.Database
	searcher   ReleaseSearcher
	queue      *gate.SearchQueue
	matcher    *matcher.Matcher
	oracle     profiles.Oracle
	engine     *formats.Engine
	grab       *GrabController
	library    library.Library
	tolerances MatchTolerances
	logger     *logrus.Logger
}

// NewSearchController creates a search controller
func NewSearchController(db *models.Database, searcher ReleaseSearcher, queue *gate.SearchQueue, m *matcher.Matcher, oracle profiles.Oracle, engine *formats.Engine, grab *GrabController, lib library.Library, tolerances MatchTolerances, logger *logrus.Logger) *SearchController {
	return &SearchController{
		db:         db,
		searcher:   searcher,
		queue:      queue,
		matcher:    m,
		oracle:     oracle,
		engine:     engine,
		grab:       grab,
		library:    lib,
		tolerances: tolerances,
		logger:     logger,
	}
}

// SearchMissing searches for every monitored item without a file
func (c *SearchController) SearchMissing(ctx context.Context) error {
	metrics.SearchesTotal.WithLabelValues("missing").Inc()
	items, err := c.monitoredItems()
	if err != nil {
		return err
	}

	for _, item := range items {
		if item.HasFile {
			continue
		}
		if _, err := c.searchAndGrab(ctx, item, false); err != nil && !silentSkip(err) {
			c.logger.WithError(err).WithField("title", item.Title).Warn("Missing-content search failed")
		}
	}
	return nil
}

// SearchCutoff searches for an upgrade of every item below its cutoff
func (c *SearchController) SearchCutoff(ctx context.Context) error {
	metrics.SearchesTotal.WithLabelValues("cutoff").Inc()
	items, err := c.monitoredItems()
	if err != nil {
		return err
	}

	for _, item := range items {
		if !item.HasFile {
			continue
		}
		allowed, err := c.oracle.UpgradeAllowed(item.QualityProfileID)
		if err != nil || !allowed {
			continue
		}
		if _, err := c.searchAndGrab(ctx, item, false); err != nil && !silentSkip(err) {
			c.logger.WithError(err).WithField("title", item.Title).Warn("Cutoff search failed")
		}
	}
	return nil
}

// SearchItem searches for one wanted item. Interactive searches surface
// duplicate-acquisition conflicts to the caller instead of skipping.
func (c *SearchController) SearchItem(ctx context.Context, itemID uint64, interactive bool) (*models.Download, error) {
	kind := "auto"
	if interactive {
		kind = "interactive"
	}
	metrics.SearchesTotal.WithLabelValues(kind).Inc()

	item, err := c.library.ItemByID(itemID)
	if err != nil {
		return nil, fmt.Errorf("wanted item not found: %w", err)
	}
	return c.searchAndGrab(ctx, item, interactive)
}

// SearchTarget searches for a replacement of a failed download's target.
// Used by the sync engine's redownload path; errors are swallowed there.
func (c *SearchController) SearchTarget(ctx context.Context, target models.Target) {
	item, err := c.itemForTarget(target)
	if err != nil {
		c.logger.WithError(err).WithField("target", target.Key()).Warn("No wanted item for redownload")
		return
	}
	if _, err := c.searchAndGrab(ctx, item, false); err != nil && !silentSkip(err) {
		c.logger.WithError(err).WithField("title", item.Title).Warn("Redownload search failed")
	}
}

func (c *SearchController) monitoredItems() ([]*models.WantedItem, error) {
	movies, err := c.library.MonitoredMovies()
	if err != nil {
		return nil, fmt.Errorf("failed to load monitored movies: %w", err)
	}
	episodes, err := c.library.MonitoredEpisodes()
	if err != nil {
		return nil, fmt.Errorf("failed to load monitored episodes: %w", err)
	}
	return append(movies, episodes...), nil
}

func (c *SearchController) itemForTarget(target models.Target) (*models.WantedItem, error) {
	if target.MediaType == models.MediaTypeMovie {
		return c.library.ItemByID(target.MediaID)
	}
	episodes, err := c.library.SeasonEpisodes(target.MediaID, target.Season)
	if err != nil {
		return nil, err
	}
	for _, ep := range episodes {
		if ep.Episode == target.Episode {
			return ep, nil
		}
	}
	return nil, errors.New("episode not monitored")
}

func silentSkip(err error) bool {
	return errors.Is(err, ErrNoReleaseFound) || errors.Is(err, ErrDuplicateAcquisition)
}

type scoredRelease struct {
	release models.Release
	score   int
	rank    int
}

// searchAndGrab runs one search through the serialized search queue,
// filters and ranks the results, and grabs the best candidate.
func (c *SearchController) searchAndGrab(ctx context.Context, item *models.WantedItem, interactive bool) (*models.Download, error) {
	if excluded, err := c.library.IsExcluded(item.ExternalID); err == nil && excluded {
		return nil, fmt.Errorf("%w: externally excluded", ErrNoReleaseFound)
	}

	mode := indexer.ModeAutomatic
	if interactive {
		mode = indexer.ModeInteractive
	}

	var releases []models.Release
	err := c.queue.Do(ctx, func(ctx context.Context) error {
		if item.MediaType == models.MediaTypeMovie {
			releases = c.searcher.SearchMovies(ctx, item.Title, item.Year, mode)
		} else {
			releases = c.searcher.SearchTV(ctx, item.Title, item.Season, item.Episode, mode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	candidates := c.filterCandidates(item, releases, interactive)
	if len(candidates) == 0 {
		return nil, ErrNoReleaseFound
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank > candidates[j].rank
		}
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].release.Seeders != candidates[j].release.Seeders {
			return candidates[i].release.Seeders > candidates[j].release.Seeders
		}
		return candidates[i].release.Size > candidates[j].release.Size
	})

	target := item.Target()
	for _, candidate := range candidates {
		download, err := c.grab.Grab(ctx, target, candidate.release)
		if err == nil {
			return download, nil
		}
		if errors.Is(err, ErrBlacklisted) {
			continue
		}
		if errors.Is(err, ErrDuplicateAcquisition) {
			if interactive {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s", ErrNoReleaseFound, err)
		}
		c.logger.WithError(err).WithField("title", candidate.release.Title).Warn("Grab failed, trying next candidate")
	}
	return nil, ErrNoReleaseFound
}

// filterCandidates applies title matching, episode numbering, quality
// policy and custom-format scoring.
func (c *SearchController) filterCandidates(item *models.WantedItem, releases []models.Release, interactive bool) []scoredRelease {
	k := c.tolerances.Auto
	if interactive {
		k = c.tolerances.Interactive
	}

	expectedYear := 0
	if item.MediaType == models.MediaTypeMovie {
		expectedYear = item.Year
	}

	minScore, err := c.oracle.MinCustomFormatScore(item.QualityProfileID)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to load profile, skipping search")
		return nil
	}

	var candidates []scoredRelease
	for _, release := range releases {
		if !c.matcher.Matches(release.Title, item.Title, expectedYear, k) {
			continue
		}
		if item.MediaType == models.MediaTypeTV {
			ep := parser.ParseEpisode(release.Title)
			if ep == nil || ep.Season != item.Season || ep.Episode != item.Episode {
				continue
			}
		}

		ok, err := c.oracle.MeetsProfile(item.QualityProfileID, release.Quality)
		if err != nil || !ok {
			continue
		}

		if item.HasFile {
			upgrade, err := c.oracle.ShouldUpgrade(item.QualityProfileID, item.CurrentQuality, release.Quality, profiles.ProperRepackFlags{
				CurrentIsProper: item.CurrentProper,
				CurrentIsRepack: item.CurrentRepack,
				NewIsProper:     parser.IsProper(release.Title),
				NewIsRepack:     parser.IsRepack(release.Title),
			})
			if err != nil || !upgrade {
				continue
			}
		}

		score, err := c.engine.CalculateReleaseScore(release.Title, item.MediaType, item.QualityProfileID, release.Size)
		if err != nil {
			c.logger.WithError(err).Warn("Custom format scoring failed")
			continue
		}
		if score < minScore {
			continue
		}

		candidates = append(candidates, scoredRelease{
			release: release,
			score:   score,
			rank:    profiles.QualityRank(release.Quality),
		})
	}
	return candidates
}
