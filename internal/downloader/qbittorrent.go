package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/levijay/huntarr/internal/models"
)

// QBittorrent talks to the qBittorrent WebUI API v2
type QBittorrent struct {
	baseURL    string
	username   string
	password   string
	category   string
	httpClient *http.Client

	mu       sync.Mutex // guards loggedIn; the driver is shared across goroutines
	loggedIn bool
}

// NewQBittorrent creates a qBittorrent driver
func NewQBittorrent(baseURL, username, password, category string) *QBittorrent {
	jar, _ := cookiejar.New(nil)
	return &QBittorrent{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		category: category,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// Protocol returns the protocol this driver handles
func (q *QBittorrent) Protocol() models.Protocol {
	return models.ProtocolTorrent
}

// login establishes a session if none exists. Holding the lock across the
// auth call serializes concurrent re-logins to a single request.
func (q *QBittorrent) login(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.loggedIn {
		return nil
	}

	data := url.Values{}
	data.Set("username", q.username)
	data.Set("password", q.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL+"/api/v2/auth/login", strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	result := strings.TrimSpace(string(body))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d: %s", resp.StatusCode, result)
	}
	if result != "Ok." {
		return fmt.Errorf("login rejected: %s", result)
	}

	q.loggedIn = true
	return nil
}

// request makes an authenticated call, re-logging in once on an expired
// session.
func (q *QBittorrent) request(ctx context.Context, method, endpoint string, data url.Values) ([]byte, error) {
	if err := q.login(ctx); err != nil {
		return nil, err
	}

	do := func() (*http.Response, error) {
		var body io.Reader
		if data != nil {
			body = strings.NewReader(data.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, q.baseURL+endpoint, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		return q.httpClient.Do(req)
	}

	resp, err := do()
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		q.mu.Lock()
		q.loggedIn = false
		q.mu.Unlock()
		if err := q.login(ctx); err != nil {
			return nil, fmt.Errorf("re-login failed: %w", err)
		}
		resp, err = do()
		if err != nil {
			return nil, fmt.Errorf("retry request failed: %w", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("qbittorrent returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return io.ReadAll(resp.Body)
}

// Add submits a torrent by URL. qBittorrent does not report the hash on
// add, so the handle comes back empty and callers discover it by listing.
func (q *QBittorrent) Add(ctx context.Context, downloadURL, name string) (string, error) {
	data := url.Values{}
	data.Set("urls", downloadURL)
	data.Set("category", q.category)

	body, err := q.request(ctx, http.MethodPost, "/api/v2/torrents/add", data)
	if err != nil {
		return "", fmt.Errorf("failed to add torrent: %w", err)
	}
	if result := strings.TrimSpace(string(body)); result != "" && result != "Ok." {
		return "", fmt.Errorf("torrent add rejected: %s", result)
	}
	return "", nil
}

type qbTorrent struct {
	Hash        string  `json:"hash"`
	Name        string  `json:"name"`
	Progress    float64 `json:"progress"`
	State       string  `json:"state"`
	ContentPath string  `json:"content_path"`
	SavePath    string  `json:"save_path"`
}

// ListActive returns all torrents in this application's category
func (q *QBittorrent) ListActive(ctx context.Context) ([]Transfer, error) {
	endpoint := "/api/v2/torrents/info?category=" + url.QueryEscape(q.category)
	body, err := q.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list torrents: %w", err)
	}

	var torrents []qbTorrent
	if err := json.Unmarshal(body, &torrents); err != nil {
		return nil, fmt.Errorf("failed to parse torrent list: %w", err)
	}

	transfers := make([]Transfer, 0, len(torrents))
	for _, t := range torrents {
		path := t.ContentPath
		if path == "" {
			path = t.SavePath
		}
		transfers = append(transfers, Transfer{
			Handle:   t.Hash,
			Name:     t.Name,
			State:    qbState(t.State, t.Progress),
			Progress: t.Progress,
			Path:     path,
			Message:  t.State,
		})
	}
	return transfers, nil
}

func qbState(state string, progress float64) TransferState {
	switch state {
	case "error", "missingFiles":
		return TransferFailed
	case "uploading", "stalledUP", "pausedUP", "stoppedUP", "queuedUP", "checkingUP", "forcedUP":
		return TransferCompleted
	}
	if progress >= 1.0 {
		return TransferCompleted
	}
	return TransferDownloading
}

// Remove deletes a torrent by hash
func (q *QBittorrent) Remove(ctx context.Context, handle string, deleteData bool) error {
	data := url.Values{}
	data.Set("hashes", handle)
	data.Set("deleteFiles", fmt.Sprintf("%t", deleteData))

	if _, err := q.request(ctx, http.MethodPost, "/api/v2/torrents/delete", data); err != nil {
		return fmt.Errorf("failed to delete torrent: %w", err)
	}
	return nil
}
