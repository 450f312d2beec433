package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven/mocks"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driving"
)

func newSourceService() (driving.SourceService, *mocks.MockSourceStore, *mocks.MockSecretStore, *mocks.MockAuthorizer, *mocks.MockEntitlements) {
	sourceStore := mocks.NewMockSourceStore()
	secretStore := mocks.NewMockSecretStore()
	authorizer := mocks.NewMockAuthorizer()
	entitlements := mocks.NewMockEntitlements()
	svc := NewSourceService(sourceStore, secretStore, authorizer, entitlements)
	return svc, sourceStore, secretStore, authorizer, entitlements
}

func TestSourceService_Upsert(t *testing.T) {
	tests := []struct {
		name    string
		req     driving.UpsertSourceRequest
		wantErr error
	}{
		{
			name: "valid sftp source",
			req: driving.UpsertSourceRequest{
				Name:            "Bank drop",
				ProviderType:    domain.ProviderTypeSFTP,
				ScheduleMinutes: 30,
				Config: domain.SourceConfig{
					Host:     "sftp.bank.example.com",
					Username: "feeds",
					Path:     "/outgoing",
				},
				Secret: "hunter2",
			},
		},
		{
			name: "missing name",
			req: driving.UpsertSourceRequest{
				ProviderType: domain.ProviderTypeSFTP,
				Config:       domain.SourceConfig{Host: "h", Username: "u"},
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "unknown provider",
			req: driving.UpsertSourceRequest{
				Name:         "x",
				ProviderType: domain.ProviderType("DROPBOX"),
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "sftp without host",
			req: driving.UpsertSourceRequest{
				Name:         "x",
				ProviderType: domain.ProviderTypeSFTP,
				Config:       domain.SourceConfig{Username: "u"},
			},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, secretStore, _, _ := newSourceService()
			source, err := svc.Upsert(context.Background(), "tenant-1", "user-1", tt.req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if source.ID == "" {
				t.Error("expected generated id")
			}
			if source.TenantID != "tenant-1" {
				t.Errorf("expected tenant-1, got %s", source.TenantID)
			}
			if !source.Enabled {
				t.Error("expected source enabled by default")
			}
			if source.CreatedBy != "user-1" {
				t.Errorf("expected created by user-1, got %s", source.CreatedBy)
			}

			if tt.req.Secret != "" {
				has, _ := secretStore.HasSecret(context.Background(), source.ID)
				if !has {
					t.Error("expected secret stored in vault")
				}
			}
		})
	}
}

func TestSourceService_Upsert_ClampsSchedule(t *testing.T) {
	svc, _, _, _, _ := newSourceService()

	source, err := svc.Upsert(context.Background(), "tenant-1", "user-1", driving.UpsertSourceRequest{
		Name:            "fast",
		ProviderType:    domain.ProviderTypeSFTP,
		ScheduleMinutes: 1,
		Config:          domain.SourceConfig{Host: "h", Username: "u"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.ScheduleMinutes != domain.MinScheduleMinutes {
		t.Errorf("expected schedule clamped to %d, got %d", domain.MinScheduleMinutes, source.ScheduleMinutes)
	}
}

func TestSourceService_Upsert_Update(t *testing.T) {
	svc, _, _, _, _ := newSourceService()
	ctx := context.Background()

	created, err := svc.Upsert(ctx, "tenant-1", "user-1", driving.UpsertSourceRequest{
		Name:            "original",
		ProviderType:    domain.ProviderTypeSFTP,
		ScheduleMinutes: 60,
		Config:          domain.SourceConfig{Host: "h", Username: "u"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Upsert(ctx, "tenant-1", "user-1", driving.UpsertSourceRequest{
		ID:              created.ID,
		Name:            "renamed",
		ProviderType:    domain.ProviderTypeSFTP,
		ScheduleMinutes: 15,
		Config:          domain.SourceConfig{Host: "h2", Username: "u"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID {
		t.Error("expected same id after update")
	}
	if updated.Name != "renamed" {
		t.Errorf("expected renamed, got %s", updated.Name)
	}
	if updated.Config.Host != "h2" {
		t.Errorf("expected host h2, got %s", updated.Config.Host)
	}

	// Provider type is immutable
	_, err = svc.Upsert(ctx, "tenant-1", "user-1", driving.UpsertSourceRequest{
		ID:           created.ID,
		Name:         "renamed",
		ProviderType: domain.ProviderTypeFTPS,
		Config:       domain.SourceConfig{Host: "h2", Username: "u"},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput on provider change, got %v", err)
	}
}

func TestSourceService_Upsert_AccessDenied(t *testing.T) {
	svc, _, _, authorizer, entitlements := newSourceService()
	ctx := context.Background()
	req := driving.UpsertSourceRequest{
		Name:         "x",
		ProviderType: domain.ProviderTypeSFTP,
		Config:       domain.SourceConfig{Host: "h", Username: "u"},
	}

	authorizer.IsTenantAdminFn = func(ctx context.Context, userID, tenantID string) (bool, error) {
		return false, nil
	}
	if _, err := svc.Upsert(ctx, "tenant-1", "user-1", req); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	authorizer.IsTenantAdminFn = nil
	entitlements.TenantHasCapabilityFn = func(ctx context.Context, tenantID, capability string) (bool, error) {
		return false, nil
	}
	if _, err := svc.Upsert(ctx, "tenant-1", "user-1", req); !errors.Is(err, domain.ErrNotEntitled) {
		t.Errorf("expected ErrNotEntitled, got %v", err)
	}
}

func TestSourceService_TenantIsolation(t *testing.T) {
	svc, _, _, _, _ := newSourceService()
	ctx := context.Background()

	source, err := svc.Upsert(ctx, "tenant-1", "user-1", driving.UpsertSourceRequest{
		Name:         "mine",
		ProviderType: domain.ProviderTypeSFTP,
		Config:       domain.SourceConfig{Host: "h", Username: "u"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Another tenant sees ErrNotFound, not ErrForbidden
	if _, err := svc.Get(ctx, "tenant-2", source.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign tenant, got %v", err)
	}
	if err := svc.SetEnabled(ctx, "tenant-2", source.ID, false); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign tenant, got %v", err)
	}
}

func TestSourceService_Status(t *testing.T) {
	svc, _, secretStore, _, _ := newSourceService()
	ctx := context.Background()

	source, err := svc.Upsert(ctx, "tenant-1", "user-1", driving.UpsertSourceRequest{
		Name:         "drive",
		ProviderType: domain.ProviderTypeGoogleDrive,
		Config:       domain.SourceConfig{FolderID: "folder-1"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status, err := svc.Status(ctx, "tenant-1", source.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Connected {
		t.Error("expected not connected before oauth")
	}

	_ = secretStore.Put(ctx, source.ID, []byte("refresh-token"))

	status, err = svc.Status(ctx, "tenant-1", source.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Connected {
		t.Error("expected connected after credential stored")
	}
}
