package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tallybooks/docfeed-core/internal/adapters/driven/auth"
	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

func signedToken(t *testing.T, adapter *auth.Adapter, role domain.Role) string {
	t.Helper()
	token, err := adapter.GenerateToken(&domain.TokenClaims{
		UserID:    "user-1",
		TenantID:  "tenant-1",
		Role:      role,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	adapter := auth.NewAdapter("test-secret")
	m := NewAuthMiddleware(adapter)

	var gotClaims *domain.TokenClaims
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Valid token
	req := httptest.NewRequest("GET", "/api/v1/sources", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, adapter, domain.RoleMember))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if gotClaims == nil || gotClaims.TenantID != "tenant-1" {
		t.Errorf("expected claims in context, got %+v", gotClaims)
	}

	// Missing token
	req = httptest.NewRequest("GET", "/api/v1/sources", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for missing token, got %d", rec.Code)
	}

	// Token signed with a different secret
	other := auth.NewAdapter("other-secret")
	req = httptest.NewRequest("GET", "/api/v1/sources", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, other, domain.RoleAdmin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for foreign signature, got %d", rec.Code)
	}
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	adapter := auth.NewAdapter("test-secret")
	m := NewAuthMiddleware(adapter)
	handler := m.Authenticate(m.RequireAdmin(okHandler()))

	req := httptest.NewRequest("POST", "/api/v1/sources", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, adapter, domain.RoleAdmin))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/api/v1/sources", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, adapter, domain.RoleMember))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for member, got %d", rec.Code)
	}
}

// stubCronAuth accepts a single secret for a single tenant.
type stubCronAuth struct {
	tenantID string
	secret   string
}

func (s *stubCronAuth) Authenticate(ctx context.Context, tenantID, supplied string) error {
	if tenantID == s.tenantID && supplied == s.secret {
		return nil
	}
	return domain.ErrUnauthorized
}

func cronRequest(tenant string) *http.Request {
	req := httptest.NewRequest("POST", "/api/v1/cron/"+tenant+"/run", nil)
	req.SetPathValue("tenant", tenant)
	return req
}

func TestCronAuthMiddleware(t *testing.T) {
	m := NewCronAuthMiddleware(&stubCronAuth{tenantID: "tenant-1", secret: "dfc_valid"}, "deploy-key")
	handler := m.Authenticate(okHandler())

	tests := []struct {
		name       string
		tenant     string
		cronKey    string
		serviceKey string
		want       int
	}{
		{"valid cron secret", "tenant-1", "dfc_valid", "", http.StatusOK},
		{"valid service key", "tenant-1", "", "deploy-key", http.StatusOK},
		{"wrong cron secret", "tenant-1", "dfc_wrong", "", http.StatusUnauthorized},
		{"wrong service key", "tenant-1", "", "bad-key", http.StatusUnauthorized},
		{"secret for another tenant", "tenant-2", "dfc_valid", "", http.StatusUnauthorized},
		{"no credentials", "tenant-1", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := cronRequest(tt.tenant)
			if tt.cronKey != "" {
				req.Header.Set("X-Cron-Key", tt.cronKey)
			}
			if tt.serviceKey != "" {
				req.Header.Set("X-Service-Key", tt.serviceKey)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestCronAuthMiddleware_ServiceKeyDisabled(t *testing.T) {
	// Empty deployment key must not admit an empty header match
	m := NewCronAuthMiddleware(&stubCronAuth{tenantID: "tenant-1", secret: "dfc_valid"}, "")
	handler := m.Authenticate(okHandler())

	req := cronRequest("tenant-1")
	req.Header.Set("X-Service-Key", "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
