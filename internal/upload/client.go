package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/claude/setlog/internal/training"
)

const (
	importPath      = "/api/v1/records/import"
	sendMaxElapsed  = 30 * time.Second
	sendMaxAttempts = 5
)

// importRequest mirrors the server's import body without importing the
// server package.
type importRequest struct {
	Items []training.EntryFields `json:"items"`
}

// ImportResult is the server's answer to one import batch.
type ImportResult struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
}

// Client sends record batches to the SetLog server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

// NewClient creates a new HTTP client for the SetLog server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxElapsedTime = sendMaxElapsed
	return backoff.WithMaxRetries(bo, sendMaxAttempts-1)
}

// SendBatch POSTs one batch to the import endpoint. Network errors and 5xx
// responses are retried with exponential backoff; 4xx responses are not.
func (c *Client) SendBatch(ctx context.Context, items []training.EntryFields) (ImportResult, error) {
	data, err := json.Marshal(importRequest{Items: items})
	if err != nil {
		return ImportResult{}, fmt.Errorf("marshaling batch: %w", err)
	}

	var result ImportResult
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+importPath, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, &result); err != nil {
				return backoff.Permanent(fmt.Errorf("decoding import result: %w", err))
			}
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("import failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
		default:
			return backoff.Permanent(fmt.Errorf("import rejected (status %d): %s", resp.StatusCode, bytes.TrimSpace(body)))
		}
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return ImportResult{}, err
	}
	return result, nil
}
