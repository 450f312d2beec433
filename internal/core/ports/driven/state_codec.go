package driven

import (
	"github.com/tallybooks/docfeed-core/internal/core/domain"
)

// StateCodec signs and verifies the OAuth state token. The token is
// self-contained: no server-side row backs it. Implementations must
// guarantee tamper-evidence, an expiry window, and preservation of the
// embedded user binding.
type StateCodec interface {
	// Encode signs the claims into an opaque token string.
	Encode(claims domain.StateClaims) (string, error)

	// Decode verifies the token and returns its claims. Returns
	// domain.ErrStateInvalid on a bad signature or malformed token and
	// domain.ErrStateExpired when past the expiry window.
	Decode(token string) (*domain.StateClaims, error)
}

// CronHasher derives and verifies the peppered hash of a cron secret.
type CronHasher interface {
	// Hash derives the stored form of a raw secret.
	Hash(secret string) (string, error)

	// Verify compares a supplied secret against the stored hash in
	// constant time. Returns true only on an exact match.
	Verify(secret, hash string) bool
}
