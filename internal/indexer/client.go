package indexer

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/levijay/huntarr/internal/models"
)

// feedResponse represents the XML RSS response from a Torznab or Newznab
// API. Namespaced torznab:attr and newznab:attr elements both decode into
// Attributes.
type feedResponse struct {
	XMLName xml.Name    `xml:"rss"`
	Channel feedChannel `xml:"channel"`
}

type feedChannel struct {
	Title string     `xml:"title"`
	Items []feedItem `xml:"item"`
}

type feedItem struct {
	Title      string          `xml:"title"`
	Link       string          `xml:"link"`
	GUID       string          `xml:"guid"`
	Comments   string          `xml:"comments"`
	PubDate    string          `xml:"pubDate"`
	Size       int64           `xml:"size"`
	Categories []string        `xml:"category"`
	Enclosure  feedEnclosure   `xml:"enclosure"`
	Attributes []feedAttribute `xml:"attr"`
}

type feedEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type feedAttribute struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// attrValue extracts an attribute value by name from an item
func (it feedItem) attrValue(name string) (string, bool) {
	for _, attr := range it.Attributes {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

func (it feedItem) attrInt(name string) (int, bool) {
	v, ok := it.attrValue(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// jsonResponse is the Jackett-style JSON payload some indexers return
// instead of XML.
type jsonResponse struct {
	Results []jsonResult `json:"Results"`
}

type jsonResult struct {
	Title        string  `json:"Title"`
	GUID         string  `json:"Guid"`
	Link         string  `json:"Link"`
	Details      string  `json:"Details"`
	Size         int64   `json:"Size"`
	Seeders      *int    `json:"Seeders"`
	Peers        *int    `json:"Peers"`
	Grabs        int     `json:"Grabs"`
	PublishDate  string  `json:"PublishDate"`
	CategoryDesc string  `json:"CategoryDesc"`
	Category     []int   `json:"Category"`
	Factor       *float64 `json:"DownloadVolumeFactor"`
}

// client issues one API query against one indexer and normalizes the
// response into Release values.
type client struct {
	httpClient *http.Client
}

func newClient(timeout time.Duration) *client {
	return &client{httpClient: &http.Client{Timeout: timeout}}
}

// query performs one API call with the given parameters and returns the
// normalized releases. Both XML and JSON payloads are tolerated.
func (c *client) query(ctx context.Context, idx *models.IndexerConfig, params url.Values) ([]models.Release, error) {
	apiURL, err := url.Parse(idx.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid indexer URL: %w", err)
	}
	if apiURL.Path == "" || apiURL.Path == "/" {
		apiURL.Path = "/api"
	}
	params.Set("apikey", idx.APIKey)
	apiURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "huntarr/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "json") || (len(body) > 0 && body[0] == '{') {
		return c.parseJSON(idx, body)
	}
	return c.parseXML(idx, body)
}

func (c *client) parseXML(idx *models.IndexerConfig, body []byte) ([]models.Release, error) {
	var feed feedResponse
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	releases := make([]models.Release, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		releases = append(releases, c.convertItem(idx, item))
	}
	return releases, nil
}

func (c *client) convertItem(idx *models.IndexerConfig, item feedItem) models.Release {
	r := models.Release{
		GUID:        item.GUID,
		Title:       item.Title,
		DownloadURL: item.Enclosure.URL,
		InfoURL:     item.Comments,
		Indexer:     idx.Name,
		IndexerID:   idx.ID,
		IndexerKind: idx.Kind,
	}
	if r.DownloadURL == "" {
		r.DownloadURL = item.Link
	}
	if r.InfoURL == "" {
		r.InfoURL = item.Link
	}

	r.Size = item.Size
	if r.Size == 0 {
		if v, ok := item.attrValue("size"); ok {
			r.Size, _ = strconv.ParseInt(v, 10, 64)
		}
	}
	if r.Size == 0 {
		r.Size = item.Enclosure.Length
	}

	seeders, hasSeeders := item.attrInt("seeders")
	r.Seeders = seeders
	if peers, ok := item.attrInt("peers"); ok {
		r.Leechers = peers - seeders
		if r.Leechers < 0 {
			r.Leechers = 0
		}
	}
	r.Grabs, _ = item.attrInt("grabs")

	if t, err := time.Parse(time.RFC1123Z, item.PubDate); err == nil {
		r.PublishDate = t
	}

	for _, cat := range item.Categories {
		r.Categories = append(r.Categories, categoryLabelFromString(cat))
	}
	for _, attr := range item.Attributes {
		if attr.Name == "category" {
			r.Categories = append(r.Categories, categoryLabelFromString(attr.Value))
		}
	}

	_, hasFactor := item.attrValue("downloadvolumefactor")
	r.Protocol = inferProtocol(idx.Kind, r.DownloadURL, hasSeeders || hasFactor)

	return r
}

func (c *client) parseJSON(idx *models.IndexerConfig, body []byte) ([]models.Release, error) {
	var payload jsonResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	releases := make([]models.Release, 0, len(payload.Results))
	for _, res := range payload.Results {
		r := models.Release{
			GUID:        res.GUID,
			Title:       res.Title,
			DownloadURL: res.Link,
			InfoURL:     res.Details,
			Size:        res.Size,
			Grabs:       res.Grabs,
			Indexer:     idx.Name,
			IndexerID:   idx.ID,
			IndexerKind: idx.Kind,
		}
		if res.Seeders != nil {
			r.Seeders = *res.Seeders
		}
		if res.Peers != nil {
			r.Leechers = *res.Peers - r.Seeders
			if r.Leechers < 0 {
				r.Leechers = 0
			}
		}
		if t, err := time.Parse(time.RFC3339, res.PublishDate); err == nil {
			r.PublishDate = t
		}
		if res.CategoryDesc != "" {
			r.Categories = append(r.Categories, res.CategoryDesc)
		}
		for _, code := range res.Category {
			r.Categories = append(r.Categories, CategoryLabel(code))
		}

		r.Protocol = inferProtocol(idx.Kind, r.DownloadURL, res.Seeders != nil || res.Factor != nil)
		releases = append(releases, r)
	}
	return releases, nil
}

// inferProtocol determines the transport when the response does not state
// it: usenet for newznab indexers, .nzb download URLs, or responses that
// carry neither seeder nor download-factor fields; torrent otherwise.
func inferProtocol(kind models.IndexerKind, downloadURL string, hasTorrentFields bool) models.Protocol {
	if kind == models.IndexerKindNewznab {
		return models.ProtocolUsenet
	}
	if u, err := url.Parse(downloadURL); err == nil && strings.HasSuffix(strings.ToLower(u.Path), ".nzb") {
		return models.ProtocolUsenet
	}
	if !hasTorrentFields {
		return models.ProtocolUsenet
	}
	return models.ProtocolTorrent
}
