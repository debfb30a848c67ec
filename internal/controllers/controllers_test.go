package controllers

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/levijay/huntarr/internal/downloader"
	"github.com/levijay/huntarr/internal/formats"
	"github.com/levijay/huntarr/internal/library"
	"github.com/levijay/huntarr/internal/matcher"
	"github.com/levijay/huntarr/internal/models"
	"github.com/levijay/huntarr/internal/profiles"
)

// fakeDriver is an in-memory download client
type fakeDriver struct {
	mu        sync.Mutex
	protocol  models.Protocol
	added     []string
	transfers []downloader.Transfer
	removed   []string
}

func newFakeDriver(protocol models.Protocol) *fakeDriver {
	return &fakeDriver{protocol: protocol}
}

func (f *fakeDriver) Add(ctx context.Context, downloadURL, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, downloadURL)
	return "handle-" + name, nil
}

func (f *fakeDriver) ListActive(ctx context.Context) ([]downloader.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]downloader.Transfer(nil), f.transfers...), nil
}

func (f *fakeDriver) Remove(ctx context.Context, handle string, deleteData bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, handle)
	return nil
}

func (f *fakeDriver) Protocol() models.Protocol {
	return f.protocol
}

func (f *fakeDriver) setTransfers(transfers ...downloader.Transfer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = transfers
}

func (f *fakeDriver) addCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

// testEnv wires the controllers over a temp database and fake clients
type testEnv struct {
	db       *models.Database
	torrent  *fakeDriver
	usenet   *fakeDriver
	drivers  downloader.Registry
	library  *library.Service
	notifier *library.LogNotifier
	grab     *GrabController
	logger   *logrus.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	torrent := newFakeDriver(models.ProtocolTorrent)
	usenet := newFakeDriver(models.ProtocolUsenet)
	drivers := downloader.Registry{
		models.ProtocolTorrent: torrent,
		models.ProtocolUsenet:  usenet,
	}
	notifier := library.NewLogNotifier(logger)

	return &testEnv{
		db:       db,
		torrent:  torrent,
		usenet:   usenet,
		drivers:  drivers,
		library:  library.NewService(db),
		notifier: notifier,
		grab:     NewGrabController(db, drivers, notifier, time.Second, logger),
		logger:   logger,
	}
}

// openProfile stores a permissive quality profile and returns its ID
func (e *testEnv) openProfile(t *testing.T) uint64 {
	t.Helper()
	p := &models.QualityProfile{
		Name:           "any",
		Cutoff:         "Remux-2160p",
		UpgradeAllowed: true,
	}
	require.NoError(t, e.db.CreateQualityProfile(p))
	return p.ID
}

func (e *testEnv) addMovie(t *testing.T, title string, year int, profileID uint64) *models.WantedItem {
	t.Helper()
	item := &models.WantedItem{
		MediaType:        models.MediaTypeMovie,
		Title:            title,
		Year:             year,
		Monitored:        true,
		QualityProfileID: profileID,
	}
	require.NoError(t, e.db.CreateWantedItem(item))
	return item
}

func (e *testEnv) addEpisode(t *testing.T, title string, seriesID uint64, season, episode int, profileID uint64) *models.WantedItem {
	t.Helper()
	item := &models.WantedItem{
		MediaType:        models.MediaTypeTV,
		Title:            title,
		SeriesID:         seriesID,
		Season:           season,
		Episode:          episode,
		Monitored:        true,
		QualityProfileID: profileID,
	}
	require.NoError(t, e.db.CreateWantedItem(item))
	return item
}

func (e *testEnv) oracle() profiles.Oracle {
	return profiles.NewService(e.db)
}

func (e *testEnv) engine() *formats.Engine {
	return formats.NewEngine(e.db, e.logger)
}

func (e *testEnv) matcher() *matcher.Matcher {
	return matcher.New()
}

func torrentRelease(title, url string) models.Release {
	return models.Release{
		GUID:        url,
		Title:       title,
		DownloadURL: url,
		Size:        4 << 30,
		Seeders:     25,
		Indexer:     "test-indexer",
		Protocol:    models.ProtocolTorrent,
		Quality:     "WEBDL-1080p",
		PublishDate: time.Now(),
	}
}
