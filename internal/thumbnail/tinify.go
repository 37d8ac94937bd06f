package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TinifyClient compresses encoded PNG/JPEG bytes through the Tinify API
// (tinypng.com). The service is optional: it only runs when an API key is
// configured, and callers fall back to their local bytes on any failure.
type TinifyClient struct {
	APIKey  string
	BaseURL string // overridable for testing
	Timeout time.Duration
	client  *http.Client
}

func NewTinifyClient(apiKey string, timeout time.Duration) *TinifyClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TinifyClient{
		APIKey:  apiKey,
		BaseURL: "https://api.tinify.com/shrink",
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Available reports whether the service credential is configured.
func (t *TinifyClient) Available() bool {
	return t.APIKey != ""
}

// Compress uploads the encoded image and downloads the compressed result.
// The ext argument is informational; Tinify detects the format itself.
func (t *TinifyClient) Compress(ctx context.Context, ext string, data []byte) ([]byte, error) {
	if !t.Available() {
		return nil, fmt.Errorf("tinify: API key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("tinify: create request: %w", err)
	}
	req.SetBasicAuth("api", t.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tinify: shrink request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tinify: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("tinify: shrink response missing Location header")
	}

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("tinify: create download request: %w", err)
	}
	dlReq.SetBasicAuth("api", t.APIKey)

	dlResp, err := t.client.Do(dlReq)
	if err != nil {
		return nil, fmt.Errorf("tinify: download failed: %w", err)
	}
	defer dlResp.Body.Close()

	if dlResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tinify: download HTTP %d", dlResp.StatusCode)
	}

	compressed, err := io.ReadAll(dlResp.Body)
	if err != nil {
		return nil, fmt.Errorf("tinify: read compressed image: %w", err)
	}
	if len(compressed) == 0 {
		return nil, fmt.Errorf("tinify: empty compressed image")
	}
	return compressed, nil
}
