package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/levijay/huntarr/internal/controllers"
)

// SearchHandler triggers an interactive search-and-grab for one item
type SearchHandler struct {
	searchCtrl *controllers.SearchController
	logger     *logrus.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchCtrl *controllers.SearchController, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		searchCtrl: searchCtrl,
		logger:     logger,
	}
}

// SearchRequest is the POST body for a search trigger
type SearchRequest struct {
	ItemID uint64 `json:"item_id"`
}

// SearchResponse reports the grabbed release
type SearchResponse struct {
	DownloadID uint64 `json:"download_id"`
	Title      string `json:"title"`
	Quality    string `json:"quality"`
	Indexer    string `json:"indexer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles POST /api/search
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID == 0 {
		writeJSONError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	download, err := h.searchCtrl.SearchItem(r.Context(), req.ItemID, true)
	switch {
	case err == nil:
	case errors.Is(err, controllers.ErrDuplicateAcquisition):
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, controllers.ErrNoReleaseFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	default:
		h.logger.WithError(err).Error("Interactive search failed")
		writeJSONError(w, http.StatusInternalServerError, "search failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SearchResponse{
		DownloadID: download.ID,
		Title:      download.Title,
		Quality:    download.Quality,
		Indexer:    download.Indexer,
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}
