package onedrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Connector = (*Connector)(nil)

const graphBase = "https://graph.microsoft.com/v1.0"

// Connector implements driven.Connector against Microsoft Graph with a
// short-lived access token obtained by the factory.
type Connector struct {
	accessToken string
	client      *http.Client
}

// New creates a OneDrive connector with an access token.
func New(accessToken string) *Connector {
	return &Connector{
		accessToken: accessToken,
		client:      &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Connector) Type() domain.ProviderType {
	return domain.ProviderTypeOneDrive
}

type driveItem struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Size                 int64     `json:"size"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
	Folder               *struct{} `json:"folder"`
}

type childrenResponse struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// List returns the files in the configured drive location, following
// @odata.nextLink pagination to the end. Folders are skipped; the sync
// does not recurse.
func (c *Connector) List(ctx context.Context, cfg domain.SourceConfig) ([]domain.RemoteFile, error) {
	endpoint := c.childrenURL(cfg)

	var files []domain.RemoteFile
	for endpoint != "" {
		var page childrenResponse
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Value {
			if item.Folder != nil {
				continue
			}
			files = append(files, domain.RemoteFile{
				ID:         item.ID,
				Name:       item.Name,
				ModifiedAt: item.LastModifiedDateTime,
				SizeBytes:  item.Size,
			})
		}
		endpoint = page.NextLink
	}
	return files, nil
}

// Download fetches one file's content. Graph answers the content
// endpoint with a 302 to a pre-authenticated download URL, which the
// default client follows automatically.
func (c *Connector) Download(ctx context.Context, cfg domain.SourceConfig, remoteID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/drives/%s/items/%s/content",
		graphBase, url.PathEscape(cfg.DriveID), url.PathEscape(remoteID))

	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "download"); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError("download", "transfer was interrupted, retry the import", err)
	}
	return data, nil
}

// childrenURL builds the listing endpoint: the drive root by default,
// or a path below it when the source config names one.
func (c *Connector) childrenURL(cfg domain.SourceConfig) string {
	base := graphBase + "/drives/" + url.PathEscape(cfg.DriveID)
	if p := strings.Trim(cfg.Path, "/"); p != "" {
		return base + "/root:/" + p + ":/children"
	}
	return base + "/root/children"
}

func (c *Connector) do(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request: %w", err)
	}
	return resp, nil
}

func (c *Connector) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.do(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "list"); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

func (c *Connector) checkStatus(resp *http.Response, op string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewProviderError(op, "reconnect the source to refresh its authorization", domain.ErrProviderAuth)
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewProviderError(op, "check that the drive or item still exists", fmt.Errorf("graph returned 404"))
	default:
		return domain.NewProviderError(op, "", fmt.Errorf("graph returned %d", resp.StatusCode))
	}
}
