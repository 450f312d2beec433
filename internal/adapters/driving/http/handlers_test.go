package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/tallybooks/docfeed-core/internal/adapters/driven/auth"
	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven/mocks"
	"github.com/tallybooks/docfeed-core/internal/core/services"
)

// testServer wires real services over in-memory stores so handler
// tests cover routing, auth and error mapping end to end.
type testServer struct {
	server      *Server
	adapter     *auth.Adapter
	sourceStore *mocks.MockSourceStore
	secretStore *mocks.MockSecretStore
	queue       *mocks.MockTaskQueue
	hasher      *mocks.MockCronHasher
	cronStore   *mocks.MockCronSecretStore
	factory     *mocks.MockConnectorFactory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	adapter := auth.NewAdapter("test-secret")
	sourceStore := mocks.NewMockSourceStore()
	secretStore := mocks.NewMockSecretStore()
	itemStore := mocks.NewMockItemStore()
	queue := mocks.NewMockTaskQueue()
	cronStore := mocks.NewMockCronSecretStore()
	hasher := mocks.NewMockCronHasher()
	factory := mocks.NewMockConnectorFactory()
	authorizer := mocks.NewMockAuthorizer()
	entitlements := mocks.NewMockEntitlements()

	sourceService := services.NewSourceService(sourceStore, secretStore, authorizer, entitlements)
	syncService := services.NewSyncService(services.SyncServiceConfig{
		SourceStore:      sourceStore,
		ItemStore:        itemStore,
		ConnectorFactory: factory,
		Importer:         mocks.NewMockImportPipeline(),
		Entitlements:     entitlements,
		Lock:             mocks.NewMockDistributedLock(),
	})
	cronService := services.NewCronService(services.CronServiceConfig{
		CronSecretStore: cronStore,
		SourceStore:     sourceStore,
		Queue:           queue,
		Hasher:          hasher,
		Authorizer:      authorizer,
	})
	oauthService := services.NewOAuthService(services.OAuthServiceConfig{
		SourceStore: sourceStore,
		SecretStore: secretStore,
		StateCodec:  mocks.NewMockStateCodec(),
		Authorizer:  authorizer,
		Handlers: map[domain.ProviderType]driven.OAuthHandler{
			domain.ProviderTypeGoogleDrive: mocks.NewMockOAuthHandler(),
		},
		BaseURL: "https://docfeed.example.com",
	})

	cfg := DefaultConfig()
	cfg.ServiceKey = "deploy-key"
	srv := NewServer(cfg, ServerDeps{
		SourceService: sourceService,
		OAuthService:  oauthService,
		SyncService:   syncService,
		CronService:   cronService,
		TokenParser:   adapter,
	})

	return &testServer{
		server:      srv,
		adapter:     adapter,
		sourceStore: sourceStore,
		secretStore: secretStore,
		queue:       queue,
		hasher:      hasher,
		cronStore:   cronStore,
		factory:     factory,
	}
}

func (ts *testServer) request(t *testing.T, method, path string, body any, role domain.Role) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+signedToken(t, ts.adapter, role))
	}
	rec := httptest.NewRecorder()
	ts.server.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHandleUpsertSource(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]any{
		"name":             "Monthly statements",
		"provider_type":    "SFTP",
		"schedule_minutes": 60,
		"config":           map[string]any{"host": "sftp.example.com", "username": "feeds"},
		"secret":           "hunter2",
	}

	rec := ts.request(t, "POST", "/api/v1/sources", body, domain.RoleAdmin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	source := decodeBody[domain.Source](t, rec)
	if source.ID == "" {
		t.Error("expected generated source id")
	}

	// The response never echoes the secret
	if bytes.Contains(rec.Body.Bytes(), []byte("hunter2")) {
		t.Error("secret leaked into response")
	}

	// But it landed in the vault
	got, err := ts.secretStore.Get(context.Background(), source.ID)
	if err != nil || string(got) != "hunter2" {
		t.Errorf("expected secret in vault, got %q err %v", got, err)
	}
}

func TestHandleUpsertSource_RequiresAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, "POST", "/api/v1/sources", map[string]any{"name": "x"}, domain.RoleMember)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for member, got %d", rec.Code)
	}

	rec = ts.request(t, "POST", "/api/v1/sources", map[string]any{"name": "x"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestHandleGetSource_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, "GET", "/api/v1/sources/missing", nil, domain.RoleMember)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleSourceStatus(t *testing.T) {
	ts := newTestServer(t)

	ts.sourceStore.Save(context.Background(), &domain.Source{
		ID: "src-1", TenantID: "tenant-1", Name: "Feed",
		ProviderType: domain.ProviderTypeSFTP,
		Config:       domain.SourceConfig{Host: "h", Username: "u"},
	})

	rec := ts.request(t, "GET", "/api/v1/sources/src-1/status", nil, domain.RoleMember)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	status := decodeBody[domain.SourceStatus](t, rec)
	if status.Connected {
		t.Error("expected not connected before a credential is stored")
	}

	ts.secretStore.Put(context.Background(), "src-1", []byte("key"))
	rec = ts.request(t, "GET", "/api/v1/sources/src-1/status", nil, domain.RoleMember)
	status = decodeBody[domain.SourceStatus](t, rec)
	if !status.Connected {
		t.Error("expected connected after credential stored")
	}
}

func TestHandleTestSource(t *testing.T) {
	ts := newTestServer(t)

	ts.sourceStore.Save(context.Background(), &domain.Source{
		ID: "src-1", TenantID: "tenant-1", Name: "Feed", Enabled: true,
		ProviderType: domain.ProviderTypeSFTP,
		Config:       domain.SourceConfig{Host: "h", Username: "u"},
	})
	ts.factory.Connector().ListFn = func(ctx context.Context, cfg domain.SourceConfig) ([]domain.RemoteFile, error) {
		return []domain.RemoteFile{{ID: "a.pdf", Name: "a.pdf"}}, nil
	}

	rec := ts.request(t, "POST", "/api/v1/sources/src-1/test", nil, domain.RoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCronRotateAndRun(t *testing.T) {
	ts := newTestServer(t)

	// Rotate over the session-authenticated route
	rec := ts.request(t, "POST", "/api/v1/cron/rotate", nil, domain.RoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rotated := decodeBody[map[string]string](t, rec)
	secret := rotated["secret"]
	if secret == "" {
		t.Fatal("expected raw secret in rotate response")
	}

	// A due source for the tenant
	ts.sourceStore.Save(context.Background(), &domain.Source{
		ID: "src-1", TenantID: "tenant-1", Name: "Feed", Enabled: true,
		ScheduleMinutes: 5,
		ProviderType:    domain.ProviderTypeSFTP,
		Config:          domain.SourceConfig{Host: "h", Username: "u"},
	})

	// Unattended run with the rotated secret
	req := httptest.NewRequest("POST", "/api/v1/cron/tenant-1/run", nil)
	req.Header.Set("X-Cron-Key", secret)
	runRec := httptest.NewRecorder()
	ts.server.router.ServeHTTP(runRec, req)
	if runRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", runRec.Code, runRec.Body.String())
	}
	run := decodeBody[map[string]int](t, runRec)
	if run["enqueued"] != 1 {
		t.Errorf("expected 1 enqueued, got %d", run["enqueued"])
	}

	// Wrong secret is rejected uniformly
	req = httptest.NewRequest("POST", "/api/v1/cron/tenant-1/run", nil)
	req.Header.Set("X-Cron-Key", "dfc_wrong")
	runRec = httptest.NewRecorder()
	ts.server.router.ServeHTTP(runRec, req)
	if runRec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", runRec.Code)
	}
}

func TestHandleOAuthStartAndCallback(t *testing.T) {
	ts := newTestServer(t)

	ts.sourceStore.Save(context.Background(), &domain.Source{
		ID: "src-1", TenantID: "tenant-1", Name: "Drive feed", Enabled: true,
		ProviderType: domain.ProviderTypeGoogleDrive,
		Config:       domain.SourceConfig{FolderID: "folder-1"},
	})

	rec := ts.request(t, "POST", "/api/v1/oauth/start",
		map[string]any{"source_id": "src-1", "return_to": "/after"}, domain.RoleAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	start := decodeBody[map[string]string](t, rec)
	authURL := start["authorization_url"]
	if authURL == "" {
		t.Fatal("expected authorization url")
	}

	// Pull the state out of the consent URL and complete the round trip
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("expected state in consent url")
	}

	cbRec := ts.request(t, "GET", "/api/v1/oauth/callback?code=auth-code&state="+state, nil, domain.RoleAdmin)
	if cbRec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", cbRec.Code, cbRec.Body.String())
	}
	if loc := cbRec.Header().Get("Location"); loc != "/after" {
		t.Errorf("expected redirect to /after, got %s", loc)
	}

	// The refresh token from the exchange is in the vault now
	got, err := ts.secretStore.Get(context.Background(), "src-1")
	if err != nil || len(got) == 0 {
		t.Errorf("expected refresh credential in vault, got %q err %v", got, err)
	}
}

func TestHandleOAuthCallback_ProviderDenied(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, "GET",
		"/api/v1/oauth/callback?error=access_denied&error_description=user+declined", nil, domain.RoleAdmin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody[ErrorResponse](t, rec)
	if body.Error != "access_denied" {
		t.Errorf("expected access_denied, got %q", body.Error)
	}
	if body.Hint != "user declined" {
		t.Errorf("expected the provider description as hint, got %q", body.Hint)
	}
}
