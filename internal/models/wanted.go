package models

import "time"

// WantedItem is a movie or series-episode needing content. The library
// collaborator is the source of truth; the core reads snapshots per cycle.
type WantedItem struct {
	ID        uint64 `boltholdKey:"ID"`
	MediaType MediaType `boltholdIndex:"MediaType"`

	Title string
	Year  int // movies only

	// Episode fields, zero for movies
	SeriesID uint64
	Season   int
	Episode  int

	Monitored        bool `boltholdIndex:"Monitored"`
	QualityProfileID uint64

	HasFile        bool
	CurrentQuality string
	CurrentProper  bool
	CurrentRepack  bool

	ExternalID string // catalog id used for exclusion checks

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Target returns the download/blacklist target for the wanted item.
func (w *WantedItem) Target() Target {
	if w.MediaType == MediaTypeMovie {
		return Target{MediaType: MediaTypeMovie, MediaID: w.ID}
	}
	return Target{MediaType: MediaTypeTV, MediaID: w.SeriesID, Season: w.Season, Episode: w.Episode}
}
