package domain

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	return uuid.New().String()
}

// ProviderType identifies a document feed provider.
// The provider set is closed: these four are the only variants.
type ProviderType string

const (
	ProviderTypeSFTP        ProviderType = "SFTP"
	ProviderTypeFTPS        ProviderType = "FTPS"
	ProviderTypeGoogleDrive ProviderType = "GOOGLE_DRIVE"
	ProviderTypeOneDrive    ProviderType = "ONEDRIVE"
)

// IsValid reports whether pt is one of the known providers.
func (pt ProviderType) IsValid() bool {
	switch pt {
	case ProviderTypeSFTP, ProviderTypeFTPS, ProviderTypeGoogleDrive, ProviderTypeOneDrive:
		return true
	}
	return false
}

// UsesOAuth reports whether the provider authenticates via OAuth2
// (refresh credential in the vault) rather than a stored password/key.
func (pt ProviderType) UsesOAuth() bool {
	return pt == ProviderTypeGoogleDrive || pt == ProviderTypeOneDrive
}

// MinScheduleMinutes is the floor applied to a source's sync interval.
const MinScheduleMinutes = 5

// ClampSchedule applies the schedule floor to a requested interval.
func ClampSchedule(minutes int) int {
	if minutes < MinScheduleMinutes {
		return MinScheduleMinutes
	}
	return minutes
}

// Source is a configured recurring document feed owned by a tenant.
type Source struct {
	ID              string       `json:"id"`
	TenantID        string       `json:"tenant_id"`
	Name            string       `json:"name"`
	ProviderType    ProviderType `json:"provider_type"`
	Enabled         bool         `json:"enabled"`
	ScheduleMinutes int          `json:"schedule_minutes"`
	Config          SourceConfig `json:"config"`

	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastError     *string    `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"`
}

// SourceConfig holds provider-specific connection settings.
// Secrets never live here; they belong to the vault.
type SourceConfig struct {
	// SFTP / FTPS
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Path     string `json:"path,omitempty"`

	// Google Drive
	FolderID string `json:"folder_id,omitempty"`

	// OneDrive
	DriveID string `json:"drive_id,omitempty"`

	// Glob restricts listing to matching file names, e.g. "*.pdf".
	// Empty means no filter. Matching is case-insensitive.
	Glob string `json:"glob,omitempty"`
}

// Validate checks that the config carries what the provider needs.
func (c SourceConfig) Validate(pt ProviderType) error {
	switch pt {
	case ProviderTypeSFTP, ProviderTypeFTPS:
		if c.Host == "" || c.Username == "" {
			return ErrInvalidInput
		}
	case ProviderTypeGoogleDrive:
		if c.FolderID == "" {
			return ErrInvalidInput
		}
	case ProviderTypeOneDrive:
		if c.DriveID == "" {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	return nil
}

// MatchesGlob reports whether a file name passes the config's glob filter.
// The match is against the base name only and is case-insensitive.
func (c SourceConfig) MatchesGlob(name string) bool {
	if c.Glob == "" {
		return true
	}
	ok, err := path.Match(strings.ToLower(c.Glob), strings.ToLower(path.Base(name)))
	if err != nil {
		// A malformed pattern filters nothing out.
		return true
	}
	return ok
}

// NextRunAt returns when the source is next due. A source that has never
// run is due immediately.
func (s *Source) NextRunAt() time.Time {
	if s.LastRunAt == nil {
		return time.Time{}
	}
	interval := time.Duration(ClampSchedule(s.ScheduleMinutes)) * time.Minute
	return s.LastRunAt.Add(interval)
}

// IsDue reports whether a scheduled sync should run now.
func (s *Source) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	return !s.NextRunAt().After(now)
}

// SourceStatus is the non-secret connection view exposed to callers.
type SourceStatus struct {
	Connected bool `json:"connected"`
}
