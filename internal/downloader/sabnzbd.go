package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/levijay/huntarr/internal/models"
)

// SABnzbd talks to the SABnzbd JSON API
type SABnzbd struct {
	baseURL    string
	apiKey     string
	category   string
	httpClient *http.Client
}

// NewSABnzbd creates a SABnzbd driver
func NewSABnzbd(baseURL, apiKey, category string) *SABnzbd {
	return &SABnzbd{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		category:   category,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Protocol returns the protocol this driver handles
func (s *SABnzbd) Protocol() models.Protocol {
	return models.ProtocolUsenet
}

func (s *SABnzbd) call(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("apikey", s.apiKey)
	params.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sabnzbd request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sabnzbd returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse sabnzbd response: %w", err)
	}
	return nil
}

type sabAddResponse struct {
	Status bool     `json:"status"`
	NzoIDs []string `json:"nzo_ids"`
	Error  string   `json:"error"`
}

// Add submits an NZB by URL. SABnzbd reports the queue ID synchronously.
func (s *SABnzbd) Add(ctx context.Context, downloadURL, name string) (string, error) {
	params := url.Values{}
	params.Set("mode", "addurl")
	params.Set("name", downloadURL)
	params.Set("nzbname", name)
	params.Set("cat", s.category)

	var resp sabAddResponse
	if err := s.call(ctx, params, &resp); err != nil {
		return "", err
	}
	if !resp.Status {
		return "", fmt.Errorf("sabnzbd rejected nzb: %s", resp.Error)
	}
	if len(resp.NzoIDs) == 0 {
		return "", nil
	}
	return resp.NzoIDs[0], nil
}

type sabQueueResponse struct {
	Queue struct {
		Slots []struct {
			NzoID      string `json:"nzo_id"`
			Filename   string `json:"filename"`
			Percentage string `json:"percentage"`
			Status     string `json:"status"`
		} `json:"slots"`
	} `json:"queue"`
}

type sabHistoryResponse struct {
	History struct {
		Slots []struct {
			NzoID       string `json:"nzo_id"`
			Name        string `json:"name"`
			Status      string `json:"status"`
			Storage     string `json:"storage"`
			FailMessage string `json:"fail_message"`
		} `json:"slots"`
	} `json:"history"`
}

// ListActive merges the live queue with recent history so completed and
// failed jobs stay visible to the sync loop.
func (s *SABnzbd) ListActive(ctx context.Context) ([]Transfer, error) {
	queueParams := url.Values{}
	queueParams.Set("mode", "queue")

	var queue sabQueueResponse
	if err := s.call(ctx, queueParams, &queue); err != nil {
		return nil, fmt.Errorf("failed to fetch queue: %w", err)
	}

	historyParams := url.Values{}
	historyParams.Set("mode", "history")
	historyParams.Set("limit", "50")
	historyParams.Set("cat", s.category)

	var history sabHistoryResponse
	if err := s.call(ctx, historyParams, &history); err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	var transfers []Transfer
	for _, slot := range queue.Queue.Slots {
		progress := 0.0
		if pct, err := strconv.ParseFloat(slot.Percentage, 64); err == nil {
			progress = pct / 100
		}
		transfers = append(transfers, Transfer{
			Handle:   slot.NzoID,
			Name:     slot.Filename,
			State:    TransferDownloading,
			Progress: progress,
			Message:  slot.Status,
		})
	}
	for _, slot := range history.History.Slots {
		state := TransferCompleted
		if strings.EqualFold(slot.Status, "Failed") {
			state = TransferFailed
		}
		transfers = append(transfers, Transfer{
			Handle:   slot.NzoID,
			Name:     slot.Name,
			State:    state,
			Progress: 1.0,
			Path:     slot.Storage,
			Message:  slot.FailMessage,
		})
	}
	return transfers, nil
}

// Remove deletes a job from the queue, falling back to history
func (s *SABnzbd) Remove(ctx context.Context, handle string, deleteData bool) error {
	params := url.Values{}
	params.Set("mode", "queue")
	params.Set("name", "delete")
	params.Set("value", handle)
	if deleteData {
		params.Set("del_files", "1")
	}

	var resp struct {
		Status bool `json:"status"`
	}
	if err := s.call(ctx, params, &resp); err != nil {
		return err
	}
	if resp.Status {
		return nil
	}

	params.Set("mode", "history")
	if err := s.call(ctx, params, &resp); err != nil {
		return err
	}
	if !resp.Status {
		return ErrNotFound
	}
	return nil
}
