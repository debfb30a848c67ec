package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levijay/huntarr/internal/gate"
	"github.com/levijay/huntarr/internal/models"
)

const torznabFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
  <channel>
    <item>
      <title>Dune.Part.Two.2024.1080p.WEB-DL.DDP5.1.x264-FLUX</title>
      <guid>https://tracker.example/details/123</guid>
      <link>https://tracker.example/download/123.torrent</link>
      <pubDate>Mon, 01 Apr 2024 12:00:00 +0000</pubDate>
      <enclosure url="https://tracker.example/download/123.torrent" length="9876543210" type="application/x-bittorrent"/>
      <torznab:attr name="category" value="2000"/>
      <torznab:attr name="seeders" value="42"/>
      <torznab:attr name="peers" value="50"/>
      <torznab:attr name="size" value="9876543210"/>
    </item>
  </channel>
</rss>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel></channel></rss>`

func testGateway(t *testing.T) (*Gateway, *models.Database) {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	limiter := gate.NewLimiter(time.Millisecond, time.Millisecond)
	return NewGateway(db, limiter, logger), db
}

func addIndexer(t *testing.T, db *models.Database, baseURL string, priority int) {
	t.Helper()
	err := db.CreateIndexer(&models.IndexerConfig{
		Name:                    "test-" + baseURL,
		BaseURL:                 baseURL,
		APIKey:                  "secret",
		Kind:                    models.IndexerKindTorznab,
		Enabled:                 true,
		Priority:                priority,
		EnableRSS:               true,
		EnableAutomaticSearch:   true,
		EnableInteractiveSearch: true,
	})
	require.NoError(t, err)
}

func TestSearchMoviesNormalizesResults(t *testing.T) {
	var gotVerbs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVerbs = append(gotVerbs, r.URL.Query().Get("t"))
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		w.Write([]byte(torznabFeed))
	}))
	defer srv.Close()

	gw, db := testGateway(t)
	addIndexer(t, db, srv.URL, 1)

	releases := gw.SearchMovies(context.Background(), "Dune Part Two", 2024, ModeAutomatic)
	require.Len(t, releases, 1)
	require.Equal(t, []string{"movie"}, gotVerbs)

	r := releases[0]
	assert.Equal(t, "Dune.Part.Two.2024.1080p.WEB-DL.DDP5.1.x264-FLUX", r.Title)
	assert.Equal(t, int64(9876543210), r.Size)
	assert.Equal(t, 42, r.Seeders)
	assert.Equal(t, 8, r.Leechers)
	assert.Equal(t, models.ProtocolTorrent, r.Protocol)
	assert.Equal(t, "WEBDL-1080p", r.Quality)
}

func TestSearchFallsBackToGenericVerb(t *testing.T) {
	var gotVerbs []string
	var fallbackQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verb := r.URL.Query().Get("t")
		gotVerbs = append(gotVerbs, verb)
		if verb == "tvsearch" {
			w.Write([]byte(emptyFeed))
			return
		}
		fallbackQuery = r.URL.Query().Get("q")
		w.Write([]byte(torznabFeed))
	}))
	defer srv.Close()

	gw, db := testGateway(t)
	addIndexer(t, db, srv.URL, 1)

	releases := gw.SearchTV(context.Background(), "Dune Prophecy", 1, 3, ModeAutomatic)
	require.Len(t, releases, 1)
	assert.Equal(t, []string{"tvsearch", "search"}, gotVerbs)
	assert.Equal(t, "Dune Prophecy S01E03", fallbackQuery)
}

func TestFanOutIsolatesIndexerFailures(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(torznabFeed))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	gw, db := testGateway(t)
	addIndexer(t, db, bad.URL, 1)
	addIndexer(t, db, good.URL, 2)

	releases := gw.SearchMovies(context.Background(), "Dune Part Two", 2024, ModeAutomatic)
	assert.Len(t, releases, 1)
}

func TestFanOutSkipsIncapableIndexers(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(torznabFeed))
	}))
	defer srv.Close()

	gw, db := testGateway(t)
	err := db.CreateIndexer(&models.IndexerConfig{
		Name:                  "rss-only",
		BaseURL:               srv.URL,
		APIKey:                "secret",
		Kind:                  models.IndexerKindTorznab,
		Enabled:               true,
		EnableRSS:             true,
		EnableAutomaticSearch: false,
	})
	require.NoError(t, err)

	releases := gw.SearchMovies(context.Background(), "Dune Part Two", 2024, ModeAutomatic)
	assert.Empty(t, releases)
	assert.Zero(t, hits)
}

func TestFetchRSS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "search", r.URL.Query().Get("t"))
		w.Write([]byte(torznabFeed))
	}))
	defer srv.Close()

	gw, db := testGateway(t)
	addIndexer(t, db, srv.URL, 1)

	indexers, err := db.GetEnabledIndexers()
	require.NoError(t, err)
	require.Len(t, indexers, 1)

	releases, err := gw.FetchRSS(context.Background(), indexers[0])
	require.NoError(t, err)
	require.Len(t, releases, 1)
	assert.Equal(t, "WEBDL-1080p", releases[0].Quality)
}
