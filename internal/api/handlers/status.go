package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/models"
)

// StatusHandler reports entity counts and download states
type StatusHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalDownloads int            `json:"total_downloads"`
	Queued         int            `json:"queued"`
	Downloading    int            `json:"downloading"`
	Importing      int            `json:"importing"`
	Imported       int            `json:"imported"`
	Failed         int            `json:"failed"`
	ByProtocol     map[string]int `json:"by_protocol"`
	Indexers       int            `json:"indexers"`
	MonitoredItems int            `json:"monitored_items"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	downloads, err := h.db.GetAllDownloads()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get downloads")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalDownloads: len(downloads),
		ByProtocol:     make(map[string]int),
	}

	for _, d := range downloads {
		switch d.Status {
		case models.DownloadStatusQueued:
			response.Queued++
		case models.DownloadStatusDownloading, models.DownloadStatusCompleted:
			response.Downloading++
		case models.DownloadStatusImporting:
			response.Importing++
		case models.DownloadStatusImported:
			response.Imported++
		case models.DownloadStatusFailed:
			response.Failed++
		}
		response.ByProtocol[string(d.Protocol)]++
	}

	if indexers, err := h.db.GetEnabledIndexers(); err == nil {
		response.Indexers = len(indexers)
	}

	movies, errMovies := h.db.GetMonitoredWanted(models.MediaTypeMovie)
	episodes, errEpisodes := h.db.GetMonitoredWanted(models.MediaTypeTV)
	if errMovies == nil && errEpisodes == nil {
		response.MonitoredItems = len(movies) + len(episodes)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
