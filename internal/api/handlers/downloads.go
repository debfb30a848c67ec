package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/controllers"
	"github.com/levijay/huntarr/internal/models"
)

// DownloadsHandler lists active downloads and cancels them
type DownloadsHandler struct {
	db       *models.Database
	syncCtrl *controllers.SyncController
	logger   *logrus.Logger
}

// NewDownloadsHandler creates a new downloads handler
func NewDownloadsHandler(db *models.Database, syncCtrl *controllers.SyncController, logger *logrus.Logger) *DownloadsHandler {
	return &DownloadsHandler{
		db:       db,
		syncCtrl: syncCtrl,
		logger:   logger,
	}
}

// ServeHTTP handles GET /api/downloads and DELETE /api/downloads/{id}
func (h *DownloadsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w)
	case http.MethodDelete:
		h.cancel(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DownloadsHandler) list(w http.ResponseWriter) {
	downloads, err := h.db.GetActiveDownloads()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get active downloads")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(downloads)
}

func (h *DownloadsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/downloads/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid download id")
		return
	}

	if err := h.syncCtrl.Cancel(r.Context(), id); err != nil {
		h.logger.WithError(err).WithField("download_id", id).Error("Cancel failed")
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
