package indexer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/gate"
	"github.com/levijay/huntarr/internal/metrics"
	"github.com/levijay/huntarr/internal/models"
	"github.com/levijay/huntarr/internal/parser"
)

// SearchMode selects which indexer capability flag gates a query
type SearchMode int

const (
	ModeAutomatic SearchMode = iota
	ModeInteractive
)

// Gateway issues search and RSS queries to all configured indexers and
// normalizes their heterogeneous responses into Release values. Errors
// from one indexer degrade to zero results for that indexer; they never
// abort the batch.
type Gateway struct {
	db      *models.Database
	limiter *gate.Limiter
	client  *client
	logger  *logrus.Logger
}

// NewGateway creates an indexer gateway
func NewGateway(db *models.Database, limiter *gate.Limiter, logger *logrus.Logger) *Gateway {
	return &Gateway{
		db:      db,
		limiter: limiter,
		client:  newClient(30 * time.Second),
		logger:  logger,
	}
}

// SearchMovies searches all search-capable indexers for a movie
func (g *Gateway) SearchMovies(ctx context.Context, title string, year int, mode SearchMode) []models.Release {
	primary := url.Values{}
	primary.Set("t", "movie")
	primary.Set("q", title)
	if year > 0 {
		primary.Set("year", strconv.Itoa(year))
	}

	fallbackQuery := title
	if year > 0 {
		fallbackQuery = fmt.Sprintf("%s %d", title, year)
	}
	fallback := url.Values{}
	fallback.Set("t", "search")
	fallback.Set("q", fallbackQuery)

	return g.fanOut(ctx, mode, primary, fallback)
}

// SearchTV searches all search-capable indexers for an episode or season.
// season and episode are optional; zero means unset.
func (g *Gateway) SearchTV(ctx context.Context, title string, season, episode int, mode SearchMode) []models.Release {
	primary := url.Values{}
	primary.Set("t", "tvsearch")
	primary.Set("q", title)
	if season > 0 {
		primary.Set("season", strconv.Itoa(season))
	}
	if episode > 0 {
		primary.Set("ep", strconv.Itoa(episode))
	}

	fallbackQuery := title
	switch {
	case season > 0 && episode > 0:
		fallbackQuery = fmt.Sprintf("%s S%02dE%02d", title, season, episode)
	case season > 0:
		fallbackQuery = fmt.Sprintf("%s S%02d", title, season)
	}
	fallback := url.Values{}
	fallback.Set("t", "search")
	fallback.Set("q", fallbackQuery)

	return g.fanOut(ctx, mode, primary, fallback)
}

// FetchRSS pulls the latest feed items from one RSS-enabled indexer
func (g *Gateway) FetchRSS(ctx context.Context, idx *models.IndexerConfig) ([]models.Release, error) {
	if err := g.limiter.AcquireSlot(ctx, idx.ID); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("t", "search")

	releases, err := g.client.query(ctx, idx, params)
	if err != nil {
		return nil, fmt.Errorf("rss fetch failed: %w", err)
	}
	return finishReleases(releases), nil
}

// fanOut queries every capable indexer in priority order and accumulates
// partial results.
func (g *Gateway) fanOut(ctx context.Context, mode SearchMode, primary, fallback url.Values) []models.Release {
	indexers, err := g.db.GetEnabledIndexers()
	if err != nil {
		g.logger.WithError(err).Error("Failed to load indexers")
		return nil
	}

	var all []models.Release
	for _, idx := range indexers {
		if mode == ModeInteractive && !idx.EnableInteractiveSearch {
			continue
		}
		if mode == ModeAutomatic && !idx.EnableAutomaticSearch {
			continue
		}

		releases, err := g.searchIndexer(ctx, idx, primary, fallback)
		if err != nil {
			metrics.IndexerErrors.WithLabelValues(idx.Name).Inc()
			g.logger.WithError(err).WithField("indexer", idx.Name).Warn("Indexer search failed")
			continue
		}
		all = append(all, releases...)
	}
	metrics.ReleasesFound.Add(float64(len(all)))
	return finishReleases(all)
}

// searchIndexer runs the specialized search verb against one indexer and
// falls back to the generic verb on zero results.
func (g *Gateway) searchIndexer(ctx context.Context, idx *models.IndexerConfig, primary, fallback url.Values) ([]models.Release, error) {
	if err := g.limiter.AcquireSlot(ctx, idx.ID); err != nil {
		return nil, err
	}

	releases, err := g.client.query(ctx, idx, clone(primary))
	if err != nil {
		return nil, err
	}
	if len(releases) > 0 {
		return releases, nil
	}

	g.logger.WithFields(logrus.Fields{
		"indexer": idx.Name,
		"verb":    primary.Get("t"),
	}).Debug("No results from specialized verb, trying generic search")

	if err := g.limiter.AcquireSlot(ctx, idx.ID); err != nil {
		return nil, err
	}
	return g.client.query(ctx, idx, clone(fallback))
}

// finishReleases infers the quality label for each normalized release
func finishReleases(releases []models.Release) []models.Release {
	for i := range releases {
		releases[i].Quality = parser.DetectQuality(releases[i].Title)
	}
	return releases
}

func clone(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		for _, val := range vals {
			out.Add(k, val)
		}
	}
	return out
}
