package domain

import "time"

// CronSecret authorizes unattended sync calls for one tenant.
// Only the hash of the secret is stored; the raw value is shown to the
// admin exactly once, at rotation time.
type CronSecret struct {
	TenantID        string     `json:"tenant_id"`
	KeyPrefix       string     `json:"key_prefix"`
	SecretHash      string     `json:"-"`
	Enabled         bool       `json:"enabled"`
	DefaultRunLimit int        `json:"default_run_limit"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CronStatus is the non-secret view returned to automation callers.
type CronStatus struct {
	Configured      bool   `json:"configured"`
	Enabled         bool   `json:"enabled"`
	KeyPrefix       string `json:"key_prefix"`
	DefaultRunLimit int    `json:"default_run_limit"`
}

// StateClaims are the contents of the signed OAuth state token carried
// across the two legs of an authorization round trip. The token itself
// is ephemeral and never persisted.
type StateClaims struct {
	SourceID string
	UserID   string
	ReturnTo string
	IssuedAt time.Time
}

// DefaultStateTTL is how long a state token remains valid.
const DefaultStateTTL = 10 * time.Minute
