// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. Tokens carry nothing but a session identifier; the
// session row in the database is the single source of truth for who the
// caller is and whether the session is still alive.
package sec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidToken is returned for every decoding failure: bad signature,
// wrong secret, expiry, wrong issuer or a missing session claim.
var ErrInvalidToken = errors.New("sec: invalid token")

// SessionClaims represents the payload embedded inside both access and refresh tokens.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Session is the id of the server-side session row this token is bound to.
	Session string `json:"session"`
}

// TokenPair is the credential bundle returned to clients after login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// AccessTokenExpiresAt is the access-token expiry in epoch milliseconds.
	AccessTokenExpiresAt int64 `json:"access_token_expires_at"`
}

// KindSecrets holds the signing material and lifetimes of one principal kind.
type KindSecrets struct {
	AccessSecret    []byte
	AccessLifetime  time.Duration
	RefreshSecret   []byte
	RefreshLifetime time.Duration
}

// TokenIssuer signs and verifies HS256 session tokens, keyed by principal kind.
type TokenIssuer struct {
	issuer string
	kinds  map[Kind]KindSecrets
	now    func() time.Time
}

// NewTokenIssuer creates a new TokenIssuer.
//
// Every kind must carry non-empty, distinct access and refresh secrets and
// positive lifetimes; a token signed for one kind or purpose never verifies
// under another.
func NewTokenIssuer(issuer string, kinds map[Kind]KindSecrets) (*TokenIssuer, error) {
	for kind, secrets := range kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("sec: unknown principal kind %q", kind)
		}
		if len(secrets.AccessSecret) == 0 || len(secrets.RefreshSecret) == 0 {
			return nil, fmt.Errorf("sec: empty secret for kind %q", kind)
		}
		if string(secrets.AccessSecret) == string(secrets.RefreshSecret) {
			return nil, fmt.Errorf("sec: access and refresh secrets for kind %q must differ", kind)
		}
		if secrets.AccessLifetime <= 0 || secrets.RefreshLifetime <= 0 {
			return nil, fmt.Errorf("sec: non-positive lifetime for kind %q", kind)
		}
	}

	return &TokenIssuer{issuer: issuer, kinds: kinds, now: time.Now}, nil
}

// WithClock returns a copy of the issuer that reads the current time from now.
func (service *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *service
	clone.now = now
	return &clone
}

// RefreshLifetime returns the refresh-token lifetime of kind, which is also
// the lifetime of the session row.
func (service *TokenIssuer) RefreshLifetime(kind Kind) time.Duration {
	return service.kinds[kind].RefreshLifetime
}

// # Issuing

/*
IssueTokens signs an access and a refresh token bound to sessionID.

Both tokens are signed concurrently; if either signature fails no pair is
returned.

Parameters:
  - context: context.Context
  - sessionID: string (The session row the tokens reference)
  - kind: Kind (Selects secrets and lifetimes)

Returns:
  - *TokenPair: The signed pair with the access expiry in epoch milliseconds
  - error: Unknown kind or signing failures
*/
func (service *TokenIssuer) IssueTokens(context context.Context, sessionID string, kind Kind) (*TokenPair, error) {
	secrets, ok := service.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("sec: unknown principal kind %q", kind)
	}
	if sessionID == "" {
		return nil, errors.New("sec: session id must not be empty")
	}

	issuedAt := service.now()
	accessExpiry := issuedAt.Add(secrets.AccessLifetime)

	var pair TokenPair
	group, _ := errgroup.WithContext(context)

	group.Go(func() error {
		signed, err := service.sign(sessionID, secrets.AccessSecret, issuedAt, accessExpiry)
		pair.AccessToken = signed
		return err
	})

	group.Go(func() error {
		signed, err := service.sign(sessionID, secrets.RefreshSecret, issuedAt, issuedAt.Add(secrets.RefreshLifetime))
		pair.RefreshToken = signed
		return err
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	pair.AccessTokenExpiresAt = accessExpiry.UnixMilli()
	return &pair, nil
}

func (service *TokenIssuer) sign(sessionID string, secret []byte, issuedAt, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Session: sessionID,
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signedToken, nil
}

// # Decoding

// DecodeAccessToken verifies an access token of kind and returns its session id.
func (service *TokenIssuer) DecodeAccessToken(token string, kind Kind) (string, error) {
	secrets, ok := service.kinds[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown principal kind %q", ErrInvalidToken, kind)
	}
	return service.decode(token, secrets.AccessSecret)
}

// DecodeRefreshToken verifies a refresh token of kind and returns its session id.
func (service *TokenIssuer) DecodeRefreshToken(token string, kind Kind) (string, error) {
	secrets, ok := service.kinds[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown principal kind %q", ErrInvalidToken, kind)
	}
	return service.decode(token, secrets.RefreshSecret)
}

func (service *TokenIssuer) decode(tokenString string, secret []byte) (string, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.Session == "" {
		return "", fmt.Errorf("%w: missing session claim", ErrInvalidToken)
	}

	return claims.Session, nil
}
