// Package membership talks to the platform's membership service for
// role and plan lookups.
package membership

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Ensure Client implements both collaborator ports
var (
	_ driven.Authorizer   = (*Client)(nil)
	_ driven.Entitlements = (*Client)(nil)
)

// Client is an HTTP client for the membership service.
type Client struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewClient creates a new membership client.
// serviceKey authenticates this service to the membership API.
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type roleResponse struct {
	Role string `json:"role"`
}

// IsTenantAdmin reports whether the user administers the tenant.
func (c *Client) IsTenantAdmin(ctx context.Context, userID, tenantID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/internal/v1/tenants/%s/members/%s",
		c.baseURL, url.PathEscape(tenantID), url.PathEscape(userID))

	var resp roleResponse
	found, err := c.getJSON(ctx, endpoint, &resp)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return resp.Role == "admin" || resp.Role == "owner", nil
}

type capabilitiesResponse struct {
	Capabilities []string `json:"capabilities"`
}

// TenantHasCapability reports whether the tenant's plan includes the
// named capability.
func (c *Client) TenantHasCapability(ctx context.Context, tenantID, capability string) (bool, error) {
	endpoint := fmt.Sprintf("%s/internal/v1/tenants/%s/capabilities",
		c.baseURL, url.PathEscape(tenantID))

	var resp capabilitiesResponse
	found, err := c.getJSON(ctx, endpoint, &resp)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	for _, cap := range resp.Capabilities {
		if cap == capability {
			return true, nil
		}
	}
	return false, nil
}

// getJSON performs an authenticated GET. The second return value is
// false on 404, which callers treat as "no" rather than an error.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("X-Service-Key", c.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("membership request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode membership response: %w", err)
		}
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("membership service returned %d", resp.StatusCode)
	}
}
