// Package importer hands downloaded files to the document-processing
// pipeline service.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Ensure Client implements ImportPipeline
var _ driven.ImportPipeline = (*Client)(nil)

// Client is an HTTP client for the import pipeline service.
// Files are posted as multipart uploads; the pipeline validates,
// stores and indexes them and returns the created document id.
type Client struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewClient creates a new import pipeline client.
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client: &http.Client{
			// Uploads can be large; give them room.
			Timeout: 2 * time.Minute,
		},
	}
}

type importResponse struct {
	DocumentID string `json:"document_id"`
	Error      string `json:"error,omitempty"`
}

// Import uploads one file and returns the created document id.
func (c *Client) Import(ctx context.Context, tenantID, filename string, data []byte, cfg domain.SourceConfig) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.WriteField("tenant_id", tenantID); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/internal/v1/documents/import"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Service-Key", c.serviceKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("import request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read import response: %w", err)
	}

	var parsed importResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("import pipeline returned %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if parsed.Error != "" {
			return "", fmt.Errorf("import rejected: %s", parsed.Error)
		}
		return "", fmt.Errorf("import pipeline returned %d", resp.StatusCode)
	}
	if parsed.DocumentID == "" {
		return "", fmt.Errorf("import pipeline returned no document id")
	}
	return parsed.DocumentID, nil
}
