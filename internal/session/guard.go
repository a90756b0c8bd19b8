// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/ctxutil"
	"github.com/taibuivan/stella/internal/platform/metrics"
	"github.com/taibuivan/stella/internal/platform/middleware"
	"github.com/taibuivan/stella/internal/platform/respond"
	"github.com/taibuivan/stella/internal/platform/sec"
)

// TokenDecoder verifies bearer tokens and yields the bound session id.
// [*sec.TokenIssuer] satisfies it.
type TokenDecoder interface {
	DecodeAccessToken(token string, kind sec.Kind) (string, error)
	DecodeRefreshToken(token string, kind sec.Kind) (string, error)
}

// Guard resolves the calling principal on every protected request.
//
// # Consistency
//
// Administrators are always resolved against the store. End-users go through
// a read-through cache: after logout, an access token keeps working until its
// cache entry expires, at most CacheTTL later. A cached entry is never used
// past the session's own expiry.
type Guard struct {
	store    Store
	cache    Cache
	tokens   TokenDecoder
	metrics  *metrics.Metrics
	cacheTTL time.Duration
	now      func() time.Time
}

// NewGuard creates a Guard. cache may be nil, in which case every end-user
// request reads the store.
func NewGuard(store Store, cache Cache, tokens TokenDecoder, cacheTTL time.Duration, m *metrics.Metrics) *Guard {
	return &Guard{
		store:    store,
		cache:    cache,
		tokens:   tokens,
		metrics:  m,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// WithClock returns a copy of the guard that reads the current time from now.
func (guard *Guard) WithClock(now func() time.Time) *Guard {
	clone := *guard
	clone.now = now
	return &clone
}

// # Administrator Guard

/*
AdminGuard authenticates an administrator access token and enforces the
allowed role set (empty means any role).

Flow:
 1. Decode the bearer token with the admin access secret.
 2. Join the session to an active administrator; no row is 401.
 3. Role outside allowed is 403, never 404.
*/
func (guard *Guard) AdminGuard(allowed ...sec.AdminRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		authorized := middleware.RequireAdminRole(allowed...)(next)

		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			sessionID, err := guard.accessSession(request, sec.KindAdmin)
			if err != nil {
				guard.reject(writer, request, sec.KindAdmin, err)
				return
			}

			admin, err := guard.store.ResolveAdmin(request.Context(), sessionID, guard.now())
			if err != nil {
				respond.Error(writer, request, err)
				return
			}
			if admin == nil {
				guard.reject(writer, request, sec.KindAdmin, apperr.Unauthorized("Session expired or revoked"))
				return
			}

			outcome := "allowed"
			if !admin.Role.Allowed(allowed...) {
				outcome = "forbidden"
			}
			guard.record(sec.KindAdmin, outcome)

			ctx := ctxutil.WithAdmin(request.Context(), admin)
			authorized.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # End-User Guard

/*
UserGuard authenticates an end-user access token through the session cache.

Flow:
 1. Decode the bearer token with the user access secret.
 2. Cache hit with an unexpired session: accept without touching the store.
 3. Otherwise join the session to an active user; no row is 401.
 4. Populate the cache for min(CacheTTL, time left on the session).

Cache failures are logged and fall through to the store.
*/
func (guard *Guard) UserGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			sessionID, err := guard.accessSession(request, sec.KindUser)
			if err != nil {
				guard.reject(writer, request, sec.KindUser, err)
				return
			}

			now := guard.now()
			resolved := guard.readCache(request.Context(), sessionID, now)

			if resolved == nil {
				resolved, err = guard.store.ResolveUser(request.Context(), sessionID, now)
				if err != nil {
					respond.Error(writer, request, err)
					return
				}
				if resolved == nil {
					guard.reject(writer, request, sec.KindUser, apperr.Unauthorized("Session expired or revoked"))
					return
				}
				guard.writeCache(request.Context(), sessionID, resolved, now)
			}

			guard.record(sec.KindUser, "allowed")

			ctx := ctxutil.WithUser(request.Context(), &resolved.User)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func (guard *Guard) readCache(ctx context.Context, sessionID string, now time.Time) *CachedUser {
	if guard.cache == nil {
		return nil
	}

	raw, err := guard.cache.Get(ctx, UserCacheKey(sessionID))
	switch {
	case errors.Is(err, ErrCacheMiss):
		guard.recordCache("miss")
		return nil
	case err != nil:
		guard.recordCache("error")
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_cache_read_failed", slog.String("error", err.Error()))
		return nil
	}

	var cached CachedUser
	if err := json.Unmarshal(raw, &cached); err != nil {
		guard.recordCache("error")
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_cache_decode_failed", slog.String("error", err.Error()))
		return nil
	}

	if !now.Before(cached.SessionExpiresAt) {
		guard.recordCache("stale")
		return nil
	}

	guard.recordCache("hit")
	return &cached
}

func (guard *Guard) writeCache(ctx context.Context, sessionID string, resolved *CachedUser, now time.Time) {
	if guard.cache == nil {
		return
	}

	ttl := min(guard.cacheTTL, resolved.SessionExpiresAt.Sub(now))
	if ttl <= 0 {
		return
	}

	raw, err := json.Marshal(resolved)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_cache_encode_failed", slog.String("error", err.Error()))
		return
	}

	if err := guard.cache.Set(ctx, UserCacheKey(sessionID), raw, ttl); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_cache_write_failed", slog.String("error", err.Error()))
	}
}

// # Refresh Guard

/*
RefreshGuard validates a refresh token of kind and checks that its session is
still live, which rejects tokens replayed after logout or a previous refresh.
The session id is placed in the request context for the handler.
*/
func (guard *Guard) RefreshGuard(kind sec.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			descriptor, err := DescriptorFor(kind)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			token, err := middleware.BearerToken(request)
			if err != nil {
				guard.reject(writer, request, kind, err)
				return
			}

			sessionID, err := guard.tokens.DecodeRefreshToken(token, kind)
			if err != nil {
				guard.reject(writer, request, kind, apperr.Unauthorized("Invalid or expired refresh token"))
				return
			}

			exists, err := guard.store.Exists(request.Context(), descriptor, sessionID)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}
			if !exists {
				guard.reject(writer, request, kind, apperr.Unauthorized("Session expired or revoked"))
				return
			}

			guard.record(kind, "refresh_allowed")

			ctx := ctxutil.WithSessionID(request.Context(), sessionID)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Helpers

func (guard *Guard) accessSession(request *http.Request, kind sec.Kind) (string, error) {
	token, err := middleware.BearerToken(request)
	if err != nil {
		return "", err
	}

	sessionID, err := guard.tokens.DecodeAccessToken(token, kind)
	if err != nil {
		return "", apperr.Unauthorized("Invalid or expired token")
	}

	return sessionID, nil
}

func (guard *Guard) reject(writer http.ResponseWriter, request *http.Request, kind sec.Kind, err error) {
	guard.record(kind, "unauthorized")
	respond.Error(writer, request, err)
}

func (guard *Guard) record(kind sec.Kind, outcome string) {
	if guard.metrics != nil {
		guard.metrics.GuardDecisions.WithLabelValues(string(kind), outcome).Inc()
	}
}

func (guard *Guard) recordCache(result string) {
	if guard.metrics != nil {
		guard.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
