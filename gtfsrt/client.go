package gtfsrt

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a simple HTTP client for fetching GTFS-RT protobuf data.
// This is a polling helper - library users may fetch data themselves.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new GTFS-RT HTTP client with the given timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch fetches a single GTFS-RT feed from a URL and returns raw protobuf bytes.
// Returns nil if url is empty (allows optional feeds).
func (c *Client) Fetch(url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// FetchMinute fetches and decodes both feeds into one snapshot minute.
// Empty URLs are skipped (allows running on trip updates alone).
func (c *Client) FetchMinute(tripUpdatesURL, vehiclePositionsURL string) (Minute, error) {
	tu, err := c.Fetch(tripUpdatesURL)
	if err != nil {
		return Minute{}, fmt.Errorf("trip updates: %w", err)
	}
	vp, err := c.Fetch(vehiclePositionsURL)
	if err != nil {
		return Minute{}, fmt.Errorf("vehicle positions: %w", err)
	}
	return DecodeMinute(tu, vp)
}
