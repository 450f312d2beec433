package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"

	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CronHasher = (*CronHasher)(nil)

// CronHasher derives the stored form of a cron secret.
// The secret is first HMAC'd with a deployment-wide pepper, then
// bcrypt'd. The pepper means a leaked database alone is not enough to
// brute-force secrets; bcrypt's comparison is constant time.
type CronHasher struct {
	pepper     []byte
	bcryptCost int
}

// NewCronHasher creates a new CronHasher with the given pepper.
func NewCronHasher(pepper string) *CronHasher {
	return &CronHasher{
		pepper:     []byte(pepper),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// NewCronHasherWithCost creates a CronHasher with a custom bcrypt cost.
// Lower costs are for tests only.
func NewCronHasherWithCost(pepper string, cost int) *CronHasher {
	return &CronHasher{
		pepper:     []byte(pepper),
		bcryptCost: cost,
	}
}

// pepperedDigest compresses the secret through HMAC-SHA256 before
// bcrypt, which also sidesteps bcrypt's 72-byte input limit.
func (h *CronHasher) pepperedDigest(secret string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(secret))
	digest := mac.Sum(nil)
	out := make([]byte, base64.RawStdEncoding.EncodedLen(len(digest)))
	base64.RawStdEncoding.Encode(out, digest)
	return out
}

// Hash derives the stored form of a raw secret.
func (h *CronHasher) Hash(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(h.pepperedDigest(secret), h.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares a supplied secret against the stored hash in
// constant time.
func (h *CronHasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), h.pepperedDigest(secret)) == nil
}
