package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	apiVersion  = "2024-02-29-preview"
	layoutModel = "prebuilt-layout"
)

// AzureClient calls Azure Document Intelligence's layout model: submit
// the document bytes, then poll the returned operation until it settles.
type AzureClient struct {
	endpoint     string
	key          string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
}

type analyzeOperation struct {
	Status        string         `json:"status"` // notStarted, running, succeeded, failed
	Error         *azureError    `json:"error,omitempty"`
	AnalyzeResult *AnalyzeResult `json:"analyzeResult,omitempty"`
}

type azureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewAzureClient(endpoint, key string) *AzureClient {
	return &AzureClient{
		endpoint:     endpoint,
		key:          key,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: 2 * time.Second,
		maxPolls:     90,
	}
}

// Analyze submits the document and polls until the layout analysis is done.
func (c *AzureClient) Analyze(ctx context.Context, data []byte) (*AnalyzeResult, error) {
	if c.endpoint == "" || c.key == "" {
		return nil, fmt.Errorf("azure document intelligence credentials not configured")
	}

	opURL, err := c.submit(ctx, data)
	if err != nil {
		return nil, err
	}

	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		op, err := c.pollOnce(ctx, opURL)
		if err != nil {
			return nil, err
		}

		switch op.Status {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return nil, fmt.Errorf("azure layout analysis succeeded without a result")
			}
			return op.AnalyzeResult, nil
		case "failed":
			if op.Error != nil {
				return nil, fmt.Errorf("azure layout analysis failed: %s: %s", op.Error.Code, op.Error.Message)
			}
			return nil, fmt.Errorf("azure layout analysis failed")
		default:
			slog.Debug("azure layout analysis in progress", "status", op.Status)
		}
	}
	return nil, fmt.Errorf("azure layout analysis timed out after %d polls", c.maxPolls)
}

func (c *AzureClient) submit(ctx context.Context, data []byte) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		c.endpoint, layoutModel, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("analyze request rejected with status %d: %s", resp.StatusCode, string(body))
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("analyze response missing Operation-Location header")
	}
	return opURL, nil
}

func (c *AzureClient) pollOnce(ctx context.Context, opURL string) (*analyzeOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll analyze operation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("poll returned status %d: %s", resp.StatusCode, string(body))
	}

	var op analyzeOperation
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return &op, nil
}
