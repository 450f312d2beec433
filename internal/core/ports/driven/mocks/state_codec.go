package mocks

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// MockStateCodec is a reversible, unsigned StateCodec for testing. It
// still enforces the expiry window so flows can be tested end to end.
type MockStateCodec struct {
	TTL time.Duration
}

// NewMockStateCodec creates a new MockStateCodec
func NewMockStateCodec() *MockStateCodec {
	return &MockStateCodec{TTL: domain.DefaultStateTTL}
}

func (m *MockStateCodec) Encode(claims domain.StateClaims) (string, error) {
	b, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (m *MockStateCodec) Decode(token string) (*domain.StateClaims, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrStateInvalid
	}
	var claims domain.StateClaims
	if err := json.Unmarshal(b, &claims); err != nil {
		return nil, domain.ErrStateInvalid
	}
	if time.Since(claims.IssuedAt) > m.TTL {
		return nil, domain.ErrStateExpired
	}
	return &claims, nil
}

// MockCronHasher is a CronHasher with a transparent hash for testing.
type MockCronHasher struct{}

// NewMockCronHasher creates a new MockCronHasher
func NewMockCronHasher() *MockCronHasher {
	return &MockCronHasher{}
}

func (m *MockCronHasher) Hash(secret string) (string, error) {
	return "hashed:" + secret, nil
}

func (m *MockCronHasher) Verify(secret, hash string) bool {
	return hash == "hashed:"+secret
}
