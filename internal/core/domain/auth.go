package domain

// Role is the caller's role within a tenant, as asserted by the
// platform-issued access token.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// TokenClaims are the verified contents of a platform access token.
type TokenClaims struct {
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// IsAdmin reports whether the claims carry the admin role.
func (c *TokenClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
