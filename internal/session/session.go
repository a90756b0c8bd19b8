// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session owns the server-side session records that tokens are bound to.

# Model

A session binds an opaque UUIDv7 identifier to exactly one principal and an
absolute expiry. Each principal holds at most one session of its kind: opening
a new one removes the previous one in the same transaction. Expired rows are
not swept; every read filters on expiry instead.

# Components

  - [Store]: the authoritative PostgreSQL-backed record (store_postgres.go).
  - [Cache]: a Redis read-through copy of resolved end-user sessions (cache_redis.go).
  - [Guard]: HTTP middleware resolving the caller on every protected request (guard.go).

Only the lifecycle manager in the auth package writes through [Store]. The
guard reads it and may populate the cache, nothing more.
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/database/schema"
	"github.com/taibuivan/stella/internal/platform/sec"
)

// # Domain Entities

// Session is one authenticated login of one principal.
type Session struct {
	ID          string    `json:"id"`
	PrincipalID int64     `json:"principal_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (session *Session) Expired(now time.Time) bool {
	return !now.Before(session.ExpiresAt)
}

// CachedUser is the projection of an end-user session that the guard caches.
// SessionExpiresAt lets a cache hit be rejected once the session itself expired.
type CachedUser struct {
	User             identity.User `json:"user"`
	SessionExpiresAt time.Time     `json:"session_expires_at"`
}

// # Descriptors

// Descriptor tells the generic rotate-or-create routine which tables to use
// for one principal kind.
type Descriptor struct {
	Kind sec.Kind

	// Session is the per-kind session table.
	Session schema.SessionTable

	// PrincipalTable and PrincipalID name the owning table and its key,
	// which is locked while a session is replaced.
	PrincipalTable string
	PrincipalID    string
}

var (
	// AdminDescriptor wires administrators to auth.admin_session.
	AdminDescriptor = Descriptor{
		Kind:           sec.KindAdmin,
		Session:        schema.AdminSession,
		PrincipalTable: schema.Admin.Table,
		PrincipalID:    schema.Admin.ID,
	}

	// UserDescriptor wires end-users to auth.user_session.
	UserDescriptor = Descriptor{
		Kind:           sec.KindUser,
		Session:        schema.UserSession,
		PrincipalTable: schema.UserAccount.Table,
		PrincipalID:    schema.UserAccount.ID,
	}
)

// DescriptorFor returns the descriptor of kind.
func DescriptorFor(kind sec.Kind) (Descriptor, error) {
	switch kind {
	case sec.KindAdmin:
		return AdminDescriptor, nil
	case sec.KindUser:
		return UserDescriptor, nil
	default:
		return Descriptor{}, fmt.Errorf("session: unknown principal kind %q", kind)
	}
}

// # Contracts

// Lifetimes supplies the session lifetime of each principal kind.
// [*sec.TokenIssuer] satisfies it, so sessions and refresh tokens expire together.
type Lifetimes interface {
	RefreshLifetime(kind sec.Kind) time.Duration
}

// Store is the authoritative session record.
type Store interface {

	/*
		Create opens a new session for principalID, deleting any session the
		principal already holds (login flow).

		Parameters:
		  - context: context.Context
		  - descriptor: Descriptor (Principal kind)
		  - principalID: int64

		Returns:
		  - *Session: The new session
		  - error: apperr.Unauthorized if the principal vanished, apperr.Retryable on a lost race
	*/
	Create(context context.Context, descriptor Descriptor, principalID int64) (*Session, error)

	/*
		Rotate replaces the live session sessionID with a new one for the same
		principal (refresh flow). Each session can be rotated at most once.

		Parameters:
		  - context: context.Context
		  - descriptor: Descriptor
		  - sessionID: string

		Returns:
		  - *Session: The replacement session
		  - error: apperr.Unauthorized if sessionID is unknown or expired
	*/
	Rotate(context context.Context, descriptor Descriptor, sessionID string) (*Session, error)

	// Delete removes the session and reports whether a row was removed.
	Delete(context context.Context, descriptor Descriptor, sessionID string) (bool, error)

	// DeleteByPrincipal removes whatever session the principal holds.
	DeleteByPrincipal(context context.Context, descriptor Descriptor, principalID int64) (bool, error)

	// Exists reports whether sessionID is present and unexpired.
	Exists(context context.Context, descriptor Descriptor, sessionID string) (bool, error)

	// ResolveAdmin joins an unexpired admin session to its active owner.
	// It returns nil, nil when no such row exists.
	ResolveAdmin(context context.Context, sessionID string, now time.Time) (*identity.Admin, error)

	// ResolveUser joins an unexpired user session to its active owner.
	// It returns nil, nil when no such row exists.
	ResolveUser(context context.Context, sessionID string, now time.Time) (*CachedUser, error)
}

// ErrCacheMiss is returned by [Cache.Get] when the key is absent.
var ErrCacheMiss = errors.New("session: cache miss")

// Cache is a best-effort key-value store for [CachedUser] projections.
type Cache interface {
	Get(context context.Context, key string) ([]byte, error)
	Set(context context.Context, key string, value []byte, ttl time.Duration) error
}
