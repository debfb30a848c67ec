package models

// MediaType represents the type of media an entity targets
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// IndexerKind identifies the indexer API dialect
type IndexerKind string

const (
	IndexerKindTorznab IndexerKind = "torznab"
	IndexerKindNewznab IndexerKind = "newznab"
)

// Protocol is the transport a release is delivered over
type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolUsenet  Protocol = "usenet"
)

// DownloadStatus represents the lifecycle state of a Download
type DownloadStatus string

const (
	DownloadStatusQueued      DownloadStatus = "queued"
	DownloadStatusDownloading DownloadStatus = "downloading"
	DownloadStatusCompleted   DownloadStatus = "completed"
	DownloadStatusImporting   DownloadStatus = "importing"
	DownloadStatusImported    DownloadStatus = "imported"
	DownloadStatusFailed      DownloadStatus = "failed"
)

// Active reports whether the status is non-terminal. At most one active
// Download may exist per target at any time.
func (s DownloadStatus) Active() bool {
	switch s {
	case DownloadStatusQueued, DownloadStatusDownloading, DownloadStatusCompleted, DownloadStatusImporting:
		return true
	}
	return false
}

// SpecKind identifies a custom-format specification implementation
type SpecKind string

const (
	SpecKindReleaseTitle    SpecKind = "release-title"
	SpecKindSource          SpecKind = "source"
	SpecKindResolution      SpecKind = "resolution"
	SpecKindReleaseGroup    SpecKind = "release-group"
	SpecKindLanguage        SpecKind = "language"
	SpecKindIndexerFlag     SpecKind = "indexer-flag"
	SpecKindSize            SpecKind = "size"
	SpecKindQualityModifier SpecKind = "quality-modifier"
)
