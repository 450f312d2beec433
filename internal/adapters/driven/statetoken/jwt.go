// Package statetoken signs the OAuth state parameter so the callback
// leg can verify it without any server-side session.
package statetoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StateCodec = (*Codec)(nil)

// stateClaims is the JWT shape of domain.StateClaims.
type stateClaims struct {
	SourceID string `json:"source_id"`
	ReturnTo string `json:"return_to,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies state tokens with HS256. The initiating
// user's id rides in the audience claim, binding the callback to the
// same user who started the flow.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a codec with the given signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    domain.DefaultStateTTL,
	}
}

// NewCodecWithTTL creates a codec with a custom expiry window.
func NewCodecWithTTL(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Encode signs the claims into an opaque token string.
func (c *Codec) Encode(claims domain.StateClaims) (string, error) {
	issuedAt := claims.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	jc := stateClaims{
		SourceID: claims.SourceID,
		ReturnTo: claims.ReturnTo,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{claims.UserID},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign state token: %w", err)
	}
	return signed, nil
}

// Decode verifies the token and returns its claims.
func (c *Codec) Decode(tokenString string) (*domain.StateClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &stateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrStateExpired
		}
		return nil, domain.ErrStateInvalid
	}

	claims, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrStateInvalid
	}

	out := &domain.StateClaims{
		SourceID: claims.SourceID,
		ReturnTo: claims.ReturnTo,
	}
	if len(claims.Audience) > 0 {
		out.UserID = claims.Audience[0]
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
