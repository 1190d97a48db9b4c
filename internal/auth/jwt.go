// Package auth resolves the caller of each request.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/unclebandit/leadflow-backend/internal/model"
)

// Verifier checks HS256 access tokens issued by the identity provider.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Verifier{secret: []byte(secret), now: time.Now}, nil
}

type userMetadata struct {
	FirstName string `json:"first_name"`
}

type accessClaims struct {
	Email        string       `json:"email"`
	UserMetadata userMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Verify returns the identity carried by raw. The subject claim is required.
func (v *Verifier) Verify(raw string) (model.Identity, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return model.Identity{}, errors.New("invalid token claims")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return model.Identity{}, errors.New("token has no subject")
	}
	return model.Identity{
		ExternalID: claims.Subject,
		Email:      claims.Email,
		FirstName:  claims.UserMetadata.FirstName,
	}, nil
}

// Sign issues a token in the shape Verify expects. Used by tests and local tooling.
func (v *Verifier) Sign(identity model.Identity, ttl time.Duration) (string, error) {
	now := v.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Email:        identity.Email,
		UserMetadata: userMetadata{FirstName: identity.FirstName},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ExternalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}
