package models

import "time"

// Release is a single candidate result from an indexer. Immutable once fetched.
type Release struct {
	GUID        string
	Title       string
	Size        int64
	Seeders     int
	Leechers    int
	Grabs       int
	DownloadURL string
	InfoURL     string
	Indexer     string
	IndexerID   uint64
	IndexerKind IndexerKind
	Protocol    Protocol
	Quality     string // composite label inferred from the title, e.g. "WEBDL-1080p"
	PublishDate time.Time
	Categories  []string
}

// IndexerConfig describes one configured search endpoint. Read-only to the
// core except for priority-based ordering (lower priority queried first).
type IndexerConfig struct {
	ID       uint64 `boltholdKey:"ID"`
	Name     string
	BaseURL  string
	APIKey   string
	Kind     IndexerKind
	Enabled  bool `boltholdIndex:"Enabled"`
	Priority int

	// Independent capability flags
	EnableRSS               bool
	EnableAutomaticSearch   bool
	EnableInteractiveSearch bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
