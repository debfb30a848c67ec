package controllers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levijay/huntarr/internal/models"
)

type fakeFetcher struct {
	releases []models.Release
	calls    int
}

func (f *fakeFetcher) FetchRSS(ctx context.Context, idx *models.IndexerConfig) ([]models.Release, error) {
	f.calls++
	return f.releases, nil
}

func newRSSController(env *testEnv, fetcher FeedFetcher) *RSSController {
	return NewRSSController(env.db, fetcher, env.matcher(), env.oracle(), env.engine(), env.grab, env.library, 7*24*time.Hour, 1.0, env.logger)
}

func addRSSIndexer(t *testing.T, env *testEnv) {
	t.Helper()
	require.NoError(t, env.db.CreateIndexer(&models.IndexerConfig{
		Name:      "feed",
		BaseURL:   "https://feed.example",
		Kind:      models.IndexerKindTorznab,
		Enabled:   true,
		EnableRSS: true,
	}))
}

func TestRSSGrabsWantedMovieOnce(t *testing.T) {
	env := newTestEnv(t)
	env.addMovie(t, "Dune Part Two", 2024, env.openProfile(t))
	addRSSIndexer(t, env)

	fetcher := &fakeFetcher{releases: []models.Release{
		torrentRelease("Dune.Part.Two.2024.1080p.WEB-DL.x264-GRP", "https://t.example/1"),
	}}
	rss := newRSSController(env, fetcher)

	require.NoError(t, rss.SyncRSS(context.Background()))
	assert.Equal(t, 1, env.torrent.addCount())

	// Second cycle sees the same guid; the cache makes it a no-op
	require.NoError(t, rss.SyncRSS(context.Background()))
	assert.Equal(t, 2, fetcher.calls)
	assert.Equal(t, 1, env.torrent.addCount())
}

func TestRSSIgnoresUnwantedItems(t *testing.T) {
	env := newTestEnv(t)
	env.addMovie(t, "Dune Part Two", 2024, env.openProfile(t))
	addRSSIndexer(t, env)

	fetcher := &fakeFetcher{releases: []models.Release{
		torrentRelease("Totally.Different.Film.2023.1080p.WEB-DL-GRP", "https://t.example/other"),
	}}
	rss := newRSSController(env, fetcher)

	require.NoError(t, rss.SyncRSS(context.Background()))
	assert.Zero(t, env.torrent.addCount())
}

func TestRSSMatchesEpisode(t *testing.T) {
	env := newTestEnv(t)
	env.addEpisode(t, "Severance", 9, 2, 3, env.openProfile(t))
	addRSSIndexer(t, env)

	release := torrentRelease("Severance.S02E03.1080p.WEB-DL.x264-GRP", "https://t.example/ep")
	fetcher := &fakeFetcher{releases: []models.Release{release}}
	rss := newRSSController(env, fetcher)

	require.NoError(t, rss.SyncRSS(context.Background()))
	assert.Equal(t, 1, env.torrent.addCount())

	download, err := env.db.GetActiveDownloadByTarget(models.Target{
		MediaType: models.MediaTypeTV, MediaID: 9, Season: 2, Episode: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, release.Title, download.Title)
}

func TestRSSEpisodeNumberMustMatch(t *testing.T) {
	env := newTestEnv(t)
	env.addEpisode(t, "Severance", 9, 2, 3, env.openProfile(t))
	addRSSIndexer(t, env)

	fetcher := &fakeFetcher{releases: []models.Release{
		torrentRelease("Severance.S02E04.1080p.WEB-DL.x264-GRP", "https://t.example/ep"),
	}}
	rss := newRSSController(env, fetcher)

	require.NoError(t, rss.SyncRSS(context.Background()))
	assert.Zero(t, env.torrent.addCount())
}

func TestRSSSeasonPackCoversMissingEpisodes(t *testing.T) {
	env := newTestEnv(t)
	profileID := env.openProfile(t)
	env.addEpisode(t, "Severance", 9, 2, 1, profileID)
	env.addEpisode(t, "Severance", 9, 2, 2, profileID)
	addRSSIndexer(t, env)

	fetcher := &fakeFetcher{releases: []models.Release{
		torrentRelease("Severance.S02.1080p.WEB-DL.x264-GRP", "https://t.example/pack"),
	}}
	rss := newRSSController(env, fetcher)

	require.NoError(t, rss.SyncRSS(context.Background()))
	assert.Equal(t, 1, env.torrent.addCount())

	download, err := env.db.GetActiveDownloadByTarget(models.Target{
		MediaType: models.MediaTypeTV, MediaID: 9, Season: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Severance.S02.1080p.WEB-DL.x264-GRP", download.Title)
}

func TestRSSSeasonPackSkippedWhenSeasonComplete(t *testing.T) {
	env := newTestEnv(t)
	p := &models.QualityProfile{Name: "frozen", UpgradeAllowed: false}
	require.NoError(t, env.db.CreateQualityProfile(p))

	ep := env.addEpisode(t, "Severance", 9, 2, 1, p.ID)
	ep.HasFile = true
	ep.CurrentQuality = "WEBDL-1080p"
	require.NoError(t, env.db.UpdateWantedItem(ep))
	addRSSIndexer(t, env)

	fetcher := &fakeFetcher{releases: []models.Release{
		torrentRelease("Severance.S02.1080p.WEB-DL.x264-GRP", "https://t.example/pack"),
	}}
	rss := newRSSController(env, fetcher)

	require.NoError(t, rss.SyncRSS(context.Background()))
	assert.Zero(t, env.torrent.addCount())
}

func TestRSSPurgesStaleEntries(t *testing.T) {
	env := newTestEnv(t)
	addRSSIndexer(t, env)

	inserted, err := env.db.InsertRSSCacheEntry(&models.RSSCacheEntry{IndexerID: 1, GUID: "old-item"})
	require.NoError(t, err)
	require.True(t, inserted)

	rss := newRSSController(env, &fakeFetcher{})
	// Zero retention purges everything created before this cycle
	rss.retention = 0

	require.NoError(t, rss.SyncRSS(context.Background()))

	inserted, err = env.db.InsertRSSCacheEntry(&models.RSSCacheEntry{IndexerID: 1, GUID: "old-item"})
	require.NoError(t, err)
	assert.True(t, inserted, "purged entry should be insertable again")
}
