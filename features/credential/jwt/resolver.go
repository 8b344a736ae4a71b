// Package jwt resolves environment.CredentialRef values whose Source is
// "jwt" by minting short-lived signed tokens with
// github.com/golang-jwt/jwt/v5, rather than reading a long-lived secret out
// of a vault: the tool process gets a token scoped to one name and a small
// expiry window instead of a standing credential.
package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/relayforge/agentrt/runtime/environment"
)

// Claims is the token body minted for a resolved credential. Subject
// carries the CredentialRef.Name so the relying party can scope
// authorization to the specific credential that was requested.
type Claims struct {
	jwt.RegisteredClaims
}

// Resolver implements environment.CredentialResolver for
// environment.SourceJWT refs, signing each minted token with a fixed HMAC
// key and a fixed TTL.
type Resolver struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// Options configures a Resolver. TTL defaults to 5 minutes when zero.
type Options struct {
	SigningKey []byte
	Issuer     string
	TTL        time.Duration
}

// New builds a Resolver from opts. SigningKey must be non-empty.
func New(opts Options) (*Resolver, error) {
	if len(opts.SigningKey) == 0 {
		return nil, fmt.Errorf("jwt: Options.SigningKey must not be empty")
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{signingKey: opts.SigningKey, issuer: opts.Issuer, ttl: ttl}, nil
}

// Resolve implements environment.CredentialResolver. It ignores refs whose
// Source is not environment.SourceJWT, returning
// environment.ErrUnsupportedSource so callers can chain resolvers per
// source.
func (r *Resolver) Resolve(ctx context.Context, ref environment.CredentialRef) (string, error) {
	if ref.Source != environment.SourceJWT {
		return "", environment.ErrUnsupportedSource
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ref.Name,
			Issuer:    r.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.signingKey)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token minted by Resolve, returning its
// claims. Relying parties that receive an injected JWT credential use this
// to confirm the token is unexpired and correctly signed before trusting
// its subject.
func (r *Resolver) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("jwt: unexpected signing method %v", t.Header["alg"])
		}
		return r.signingKey, nil
	}, jwt.WithIssuer(r.issuer))
	if err != nil {
		return nil, fmt.Errorf("jwt: parse: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("jwt: invalid token")
	}
	return claims, nil
}
