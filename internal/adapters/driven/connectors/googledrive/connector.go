package googledrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Connector = (*Connector)(nil)

const (
	filesURL = "https://www.googleapis.com/drive/v3/files"

	pageSize = 100
)

// Connector implements driven.Connector against the Drive v3 API with a
// short-lived access token obtained by the factory.
type Connector struct {
	accessToken string
	client      *http.Client
}

// New creates a Drive connector with an access token.
func New(accessToken string) *Connector {
	return &Connector{
		accessToken: accessToken,
		client:      &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Connector) Type() domain.ProviderType {
	return domain.ProviderTypeGoogleDrive
}

type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime"`
	Size         string `json:"size"`
}

type fileListResponse struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken"`
}

// List returns the non-trashed files directly inside the configured
// folder, following pagination to the end.
func (c *Connector) List(ctx context.Context, cfg domain.SourceConfig) ([]domain.RemoteFile, error) {
	var files []domain.RemoteFile
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", cfg.FolderID))
		q.Set("fields", "nextPageToken, files(id, name, modifiedTime, size)")
		q.Set("pageSize", fmt.Sprint(pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page fileListResponse
		if err := c.getJSON(ctx, filesURL+"?"+q.Encode(), &page); err != nil {
			return nil, err
		}

		for _, f := range page.Files {
			rf := domain.RemoteFile{ID: f.ID, Name: f.Name}
			if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
				rf.ModifiedAt = t
			}
			// Size is a string in the Drive API and absent for Google-native
			// document types; zero is fine for those.
			rf.SizeBytes, _ = strconv.ParseInt(f.Size, 10, 64)
			files = append(files, rf)
		}

		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// Download fetches one file's content.
func (c *Connector) Download(ctx context.Context, cfg domain.SourceConfig, remoteID string) ([]byte, error) {
	endpoint := filesURL + "/" + url.PathEscape(remoteID) + "?alt=media"

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

func (c *Connector) do(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive request: %w", err)
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
		return fmt.Errorf("decode drive response: %w", err)
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
		return domain.NewProviderError(op, "check that the folder or file still exists and is shared with the connected account", fmt.Errorf("drive returned 404"))
	default:
		return domain.NewProviderError(op, "", fmt.Errorf("drive returned %d", resp.StatusCode))
	}
}
