package library

import (
	"context"
	"fmt"

	"github.com/levijay/huntarr/internal/models"
)

// Library exposes the media catalog to the acquisition loops. The core
// only reads wanted-item snapshots and writes back import results.
type Library interface {
	MonitoredMovies() ([]*models.WantedItem, error)
	MonitoredEpisodes() ([]*models.WantedItem, error)
	SeasonEpisodes(seriesID uint64, season int) ([]*models.WantedItem, error)
	ItemByID(id uint64) (*models.WantedItem, error)
	IsExcluded(externalID string) (bool, error)
	RecordImport(itemID uint64, quality string, proper, repack bool) error
}

// Importer moves completed download payloads into the library
type Importer interface {
	Import(ctx context.Context, item *models.WantedItem, sourcePath string) (string, error)
}

// Notifier receives fire-and-forget lifecycle events. Implementations
// must not block the caller.
type Notifier interface {
	Notify(event string, fields map[string]interface{})
}

// Service is the bolthold-backed Library implementation
type Service struct {
	db *models.Database
}

// NewService creates a library service over the shared database
func NewService(db *models.Database) *Service {
	return &Service{db: db}
}

// MonitoredMovies returns all monitored movie snapshots
func (s *Service) MonitoredMovies() ([]*models.WantedItem, error) {
	return s.db.GetMonitoredWanted(models.MediaTypeMovie)
}

// MonitoredEpisodes returns all monitored episode snapshots
func (s *Service) MonitoredEpisodes() ([]*models.WantedItem, error) {
	return s.db.GetMonitoredWanted(models.MediaTypeTV)
}

// SeasonEpisodes returns the monitored episodes of one season
func (s *Service) SeasonEpisodes(seriesID uint64, season int) ([]*models.WantedItem, error) {
	return s.db.GetSeasonEpisodes(seriesID, season)
}

// ItemByID returns one wanted item
func (s *Service) ItemByID(id uint64) (*models.WantedItem, error) {
	return s.db.GetWantedItemByID(id)
}

// IsExcluded reports whether the external catalog ID is excluded
func (s *Service) IsExcluded(externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	return s.db.IsExcluded(externalID)
}

// RecordImport marks a wanted item as having a file at the given quality
func (s *Service) RecordImport(itemID uint64, quality string, proper, repack bool) error {
	item, err := s.db.GetWantedItemByID(itemID)
	if err != nil {
		return fmt.Errorf("failed to load wanted item %d: %w", itemID, err)
	}
	item.HasFile = true
	item.CurrentQuality = quality
	item.CurrentProper = proper
	item.CurrentRepack = repack
	if err := s.db.UpdateWantedItem(item); err != nil {
		return fmt.Errorf("failed to update wanted item %d: %w", itemID, err)
	}
	return nil
}
