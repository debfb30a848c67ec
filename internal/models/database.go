package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Download operations

// CreateDownload creates a new download record
func (db *Database) CreateDownload(d *Download) error {
	d.TargetKey = d.Target.Key()
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), d)
}

// UpdateDownload updates an existing download record
func (db *Database) UpdateDownload(d *Download) error {
	d.UpdatedAt = time.Now()
	return db.store.Update(d.ID, d)
}

// DeleteDownload deletes a download record by ID
func (db *Database) DeleteDownload(id uint64) error {
	return db.store.Delete(id, &Download{})
}

// GetDownloadByID retrieves a download by ID
func (db *Database) GetDownloadByID(id uint64) (*Download, error) {
	var d Download
	if err := db.store.Get(id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetActiveDownloadByTarget retrieves the non-terminal download for a
// target, or bolthold.ErrNotFound if none exists.
func (db *Database) GetActiveDownloadByTarget(target Target) (*Download, error) {
	var downloads []*Download
	err := db.store.Find(&downloads, bolthold.Where("TargetKey").Eq(target.Key()))
	if err != nil {
		return nil, err
	}
	for _, d := range downloads {
		if d.Status.Active() {
			return d, nil
		}
	}
	return nil, bolthold.ErrNotFound
}

// GetActiveDownloadBySourceURL retrieves a non-terminal download with the
// identical source URL, or bolthold.ErrNotFound.
func (db *Database) GetActiveDownloadBySourceURL(url string) (*Download, error) {
	var downloads []*Download
	err := db.store.Find(&downloads, bolthold.Where("SourceURL").Eq(url))
	if err != nil {
		return nil, err
	}
	for _, d := range downloads {
		if d.Status.Active() {
			return d, nil
		}
	}
	return nil, bolthold.ErrNotFound
}

// GetActiveDownloads retrieves all non-terminal downloads
func (db *Database) GetActiveDownloads() ([]*Download, error) {
	var downloads []*Download
	err := db.store.Find(&downloads, bolthold.Where("Status").In(
		DownloadStatusQueued, DownloadStatusDownloading,
		DownloadStatusCompleted, DownloadStatusImporting))
	return downloads, err
}

// GetAllDownloads retrieves every download record
func (db *Database) GetAllDownloads() ([]*Download, error) {
	var downloads []*Download
	err := db.store.Find(&downloads, nil)
	return downloads, err
}

// GetDownloadByHandle retrieves a download by its client-assigned handle
func (db *Database) GetDownloadByHandle(handle string) (*Download, error) {
	var d Download
	err := db.store.FindOne(&d, bolthold.Where("Handle").Eq(handle))
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Blacklist operations

// CreateBlacklistEntry records a release title as blacklisted for a target.
// Titles are stored lowercased so lookups are case-insensitive.
func (db *Database) CreateBlacklistEntry(e *BlacklistEntry) error {
	e.TargetKey = e.Target.Key()
	e.Title = strings.ToLower(strings.TrimSpace(e.Title))
	e.CreatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), e)
}

// IsBlacklisted reports whether the exact title (case-insensitive) is
// blacklisted for the target.
func (db *Database) IsBlacklisted(target Target, title string) (bool, error) {
	var entries []*BlacklistEntry
	err := db.store.Find(&entries, bolthold.Where("TargetKey").Eq(target.Key()))
	if err != nil {
		return false, err
	}
	normalized := strings.ToLower(strings.TrimSpace(title))
	for _, e := range entries {
		if e.Title == normalized {
			return true, nil
		}
	}
	return false, nil
}

// GetBlacklistByTarget retrieves all blacklist entries for a target
func (db *Database) GetBlacklistByTarget(target Target) ([]*BlacklistEntry, error) {
	var entries []*BlacklistEntry
	err := db.store.Find(&entries, bolthold.Where("TargetKey").Eq(target.Key()))
	return entries, err
}

// DeleteBlacklistEntry deletes a blacklist entry by ID
func (db *Database) DeleteBlacklistEntry(id uint64) error {
	return db.store.Delete(id, &BlacklistEntry{})
}

// RSS cache operations

// InsertRSSCacheEntry inserts a feed item keyed by (indexer, guid).
// The insert is idempotent: if the key already exists the entry is left
// untouched and false is returned.
func (db *Database) InsertRSSCacheEntry(e *RSSCacheEntry) (bool, error) {
	e.Key = RSSCacheKey(e.IndexerID, e.GUID)
	e.CreatedAt = time.Now()
	err := db.store.Insert(e.Key, e)
	if err == bolthold.ErrKeyExists {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkRSSCacheProcessed sets the grabbed/processed flags on a cache entry
func (db *Database) MarkRSSCacheProcessed(indexerID uint64, guid string, grabbed bool) error {
	key := RSSCacheKey(indexerID, guid)
	var e RSSCacheEntry
	if err := db.store.Get(key, &e); err != nil {
		return err
	}
	e.Grabbed = grabbed
	e.Processed = true
	return db.store.Update(key, &e)
}

// PurgeRSSCacheBefore deletes cache entries created before the cutoff
func (db *Database) PurgeRSSCacheBefore(cutoff time.Time) (int, error) {
	var entries []*RSSCacheEntry
	err := db.store.Find(&entries, bolthold.Where("CreatedAt").Lt(cutoff))
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := db.store.Delete(e.Key, &RSSCacheEntry{}); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

// Indexer operations

// CreateIndexer creates a new indexer configuration
func (db *Database) CreateIndexer(idx *IndexerConfig) error {
	idx.CreatedAt = time.Now()
	idx.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), idx)
}

// UpdateIndexer updates an existing indexer configuration
func (db *Database) UpdateIndexer(idx *IndexerConfig) error {
	idx.UpdatedAt = time.Now()
	return db.store.Update(idx.ID, idx)
}

// DeleteIndexer deletes an indexer configuration by ID
func (db *Database) DeleteIndexer(id uint64) error {
	return db.store.Delete(id, &IndexerConfig{})
}

// GetEnabledIndexers retrieves enabled indexers sorted by priority
// (lower priority is queried first).
func (db *Database) GetEnabledIndexers() ([]*IndexerConfig, error) {
	var indexers []*IndexerConfig
	err := db.store.Find(&indexers, bolthold.Where("Enabled").Eq(true))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(indexers, func(i, j int) bool {
		return indexers[i].Priority < indexers[j].Priority
	})
	return indexers, nil
}

// Custom format operations

// CreateCustomFormat creates a new custom format
func (db *Database) CreateCustomFormat(f *CustomFormat) error {
	f.CreatedAt = time.Now()
	f.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), f)
}

// GetCustomFormats retrieves all custom formats applicable to a media type
func (db *Database) GetCustomFormats(mt MediaType) ([]*CustomFormat, error) {
	var formats []*CustomFormat
	if err := db.store.Find(&formats, nil); err != nil {
		return nil, err
	}
	applicable := formats[:0]
	for _, f := range formats {
		if f.AppliesTo(mt) {
			applicable = append(applicable, f)
		}
	}
	return applicable, nil
}

// SetFormatScore assigns a profile-specific score to a custom format
func (db *Database) SetFormatScore(profileID, formatID uint64, score int) error {
	fs := &FormatScore{
		Key:       FormatScoreKey(profileID, formatID),
		ProfileID: profileID,
		FormatID:  formatID,
		Score:     score,
	}
	return db.store.Upsert(fs.Key, fs)
}

// GetFormatScores retrieves the format -> score mapping for a profile.
// Formats without an assignment score zero.
func (db *Database) GetFormatScores(profileID uint64) (map[uint64]int, error) {
	var scores []*FormatScore
	err := db.store.Find(&scores, bolthold.Where("ProfileID").Eq(profileID))
	if err != nil {
		return nil, err
	}
	mapping := make(map[uint64]int, len(scores))
	for _, s := range scores {
		mapping[s.FormatID] = s.Score
	}
	return mapping, nil
}

// Quality profile operations

// CreateQualityProfile creates a new quality profile
func (db *Database) CreateQualityProfile(p *QualityProfile) error {
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), p)
}

// UpdateQualityProfile updates an existing quality profile
func (db *Database) UpdateQualityProfile(p *QualityProfile) error {
	p.UpdatedAt = time.Now()
	return db.store.Update(p.ID, p)
}

// GetQualityProfileByID retrieves a quality profile by ID
func (db *Database) GetQualityProfileByID(id uint64) (*QualityProfile, error) {
	var p QualityProfile
	if err := db.store.Get(id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Wanted item operations

// CreateWantedItem creates a new wanted item snapshot
func (db *Database) CreateWantedItem(w *WantedItem) error {
	w.CreatedAt = time.Now()
	w.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), w)
}

// UpdateWantedItem updates an existing wanted item
func (db *Database) UpdateWantedItem(w *WantedItem) error {
	w.UpdatedAt = time.Now()
	return db.store.Update(w.ID, w)
}

// DeleteWantedItem deletes a wanted item by ID
func (db *Database) DeleteWantedItem(id uint64) error {
	return db.store.Delete(id, &WantedItem{})
}

// GetWantedItemByID retrieves a wanted item by ID
func (db *Database) GetWantedItemByID(id uint64) (*WantedItem, error) {
	var w WantedItem
	if err := db.store.Get(id, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// GetMonitoredWanted retrieves monitored wanted items of a media type
func (db *Database) GetMonitoredWanted(mt MediaType) ([]*WantedItem, error) {
	var items []*WantedItem
	err := db.store.Find(&items,
		bolthold.Where("MediaType").Eq(mt).And("Monitored").Eq(true))
	return items, err
}

// GetSeasonEpisodes retrieves monitored episodes of one season of a series
func (db *Database) GetSeasonEpisodes(seriesID uint64, season int) ([]*WantedItem, error) {
	var items []*WantedItem
	err := db.store.Find(&items,
		bolthold.Where("MediaType").Eq(MediaTypeTV).And("Monitored").Eq(true))
	if err != nil {
		return nil, err
	}
	episodes := items[:0]
	for _, it := range items {
		if it.SeriesID == seriesID && it.Season == season {
			episodes = append(episodes, it)
		}
	}
	return episodes, nil
}

// Exclusion operations

// CreateExclusion records an external ID that must never be acquired
func (db *Database) CreateExclusion(e *Exclusion) error {
	e.CreatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), e)
}

// IsExcluded reports whether the external ID has an exclusion record
func (db *Database) IsExcluded(externalID string) (bool, error) {
	var entries []*Exclusion
	err := db.store.Find(&entries, bolthold.Where("ExternalID").Eq(externalID).Index("ExternalID"))
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// DeleteExclusion removes an exclusion record by ID
func (db *Database) DeleteExclusion(id uint64) error {
	return db.store.Delete(id, &Exclusion{})
}
