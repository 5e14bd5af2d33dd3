package parseservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/markdave123-py/ParseBench/internal/core"
)

// DoclingClient talks to the local parsing service. The service parses
// the document and returns pre-chunked, pre-paginated output, so the
// response is persisted as-is.
type DoclingClient struct {
	baseURL    string
	httpClient *http.Client
}

type parseRequest struct {
	DocumentID string `json:"documentId"`
	FilePath   string `json:"filePath"`
}

type parseResponse struct {
	DocumentID string            `json:"documentId"`
	Chunks     []core.ChunkDraft `json:"chunks"`
	ChunkCount int               `json:"chunkCount"`
}

func NewDoclingClient(baseURL string) *DoclingClient {
	return &DoclingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

var _ core.ParseService = (*DoclingClient)(nil)

func (c *DoclingClient) Parse(ctx context.Context, documentID, storageKey string) ([]core.ChunkDraft, error) {
	body, err := json.Marshal(parseRequest{DocumentID: documentID, FilePath: storageKey})
	if err != nil {
		return nil, fmt.Errorf("marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call parsing service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("parsing service error: %s", string(errBody))
	}

	var out parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode parsing service response: %w", err)
	}
	return out.Chunks, nil
}
