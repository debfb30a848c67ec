package models

import (
	"fmt"
	"time"
)

// Target identifies the piece of media a download or blacklist entry is
// for: a movie, or a specific episode of a series.
type Target struct {
	MediaType MediaType
	MediaID   uint64 // movie id or series id
	Season    int    // 0 for movies
	Episode   int    // 0 for movies and season packs
}

// Key returns the unique index key for the target.
func (t Target) Key() string {
	if t.MediaType == MediaTypeMovie {
		return fmt.Sprintf("movie:%d", t.MediaID)
	}
	return fmt.Sprintf("tv:%d:s%d:e%d", t.MediaID, t.Season, t.Episode)
}

// Download tracks one release through the download-and-import lifecycle.
type Download struct {
	ID        uint64 `boltholdKey:"ID"`
	TargetKey string `boltholdIndex:"TargetKey"`
	Target    Target
	MediaType MediaType

	Title     string
	SourceURL string `boltholdIndex:"SourceURL"`

	// Handle assigned by the download client: torrent hash or NZB id.
	// May be discovered asynchronously for torrent clients.
	Handle   string `boltholdIndex:"Handle"`
	ClientID string

	Status   DownloadStatus `boltholdIndex:"Status"`
	Progress float64
	SavePath string
	Size     int64
	Seeders  int
	Indexer  string
	Quality  string
	Protocol Protocol

	ErrorMessage string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// BlacklistEntry records a release that must not be grabbed again for a
// target. Never auto-expired; removal is an explicit admin action.
type BlacklistEntry struct {
	ID        uint64 `boltholdKey:"ID"`
	TargetKey string `boltholdIndex:"TargetKey"`
	Target    Target

	Title   string `boltholdIndex:"Title"` // normalized (lowercased) release title
	Indexer string
	Reason  string

	CreatedAt time.Time
}

// RSSCacheEntry de-duplicates RSS feed items across polling cycles.
// Keyed by (IndexerID, GUID); purged after the retention window.
type RSSCacheEntry struct {
	Key       string `boltholdKey:"Key"` // "indexerID|guid"
	IndexerID uint64 `boltholdIndex:"IndexerID"`
	GUID      string

	Title       string
	DownloadURL string
	Size        int64
	PublishDate time.Time
	Categories  []string

	Grabbed   bool
	Processed bool

	CreatedAt time.Time `boltholdIndex:"CreatedAt"`
}

// RSSCacheKey builds the unique cache key for an indexer/guid pair.
func RSSCacheKey(indexerID uint64, guid string) string {
	return fmt.Sprintf("%d|%s", indexerID, guid)
}
