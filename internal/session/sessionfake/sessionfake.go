// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sessionfake provides an in-memory session [session.Store] and
[session.Cache] for unit tests.

The store enforces the same invariants as the PostgreSQL implementation: one
session per principal and kind, single-use rotation, lazy expiry and the
active-principal predicate on resolution. A single mutex plays the role of the
principal row lock.
*/
package sessionfake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/identity/identityfake"
	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/sec"
	"github.com/taibuivan/stella/internal/session"
	"github.com/taibuivan/stella/pkg/uuid"
)

// # Store

// Store is an in-memory [session.Store].
type Store struct {
	mu        sync.Mutex
	sessions  map[sec.Kind]map[string]session.Session
	admins    *identityfake.Admins
	users     *identityfake.Users
	lifetimes session.Lifetimes
	now       func() time.Time

	// Err, when set, is returned by every write instead of touching state.
	Err error
}

// NewStore creates a store resolving principals from the given fakes.
func NewStore(admins *identityfake.Admins, users *identityfake.Users, lifetimes session.Lifetimes) *Store {
	return &Store{
		sessions: map[sec.Kind]map[string]session.Session{
			sec.KindAdmin: {},
			sec.KindUser:  {},
		},
		admins:    admins,
		users:     users,
		lifetimes: lifetimes,
		now:       time.Now,
	}
}

// SetClock replaces the time source used for expiry.
func (store *Store) SetClock(now func() time.Time) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.now = now
}

// Create implements [session.Store].
func (store *Store) Create(_ context.Context, descriptor session.Descriptor, principalID int64) (*session.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.Err != nil {
		return nil, store.Err
	}
	if !store.principalExists(descriptor.Kind, principalID) {
		return nil, apperr.Unauthorized("Account no longer exists")
	}

	store.deletePrincipal(descriptor.Kind, principalID)
	return store.insert(descriptor.Kind, principalID), nil
}

// Rotate implements [session.Store].
func (store *Store) Rotate(_ context.Context, descriptor session.Descriptor, sessionID string) (*session.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.Err != nil {
		return nil, store.Err
	}

	current, ok := store.sessions[descriptor.Kind][sessionID]
	if !ok || current.Expired(store.now()) {
		return nil, apperr.Unauthorized("Session expired or revoked")
	}

	delete(store.sessions[descriptor.Kind], sessionID)
	return store.insert(descriptor.Kind, current.PrincipalID), nil
}

// Delete implements [session.Store].
func (store *Store) Delete(_ context.Context, descriptor session.Descriptor, sessionID string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.Err != nil {
		return false, store.Err
	}

	_, ok := store.sessions[descriptor.Kind][sessionID]
	delete(store.sessions[descriptor.Kind], sessionID)
	return ok, nil
}

// DeleteByPrincipal implements [session.Store].
func (store *Store) DeleteByPrincipal(_ context.Context, descriptor session.Descriptor, principalID int64) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.Err != nil {
		return false, store.Err
	}
	return store.deletePrincipal(descriptor.Kind, principalID), nil
}

// Exists implements [session.Store].
func (store *Store) Exists(_ context.Context, descriptor session.Descriptor, sessionID string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	current, ok := store.sessions[descriptor.Kind][sessionID]
	return ok && !current.Expired(store.now()), nil
}

// ResolveAdmin implements [session.Store].
func (store *Store) ResolveAdmin(_ context.Context, sessionID string, now time.Time) (*identity.Admin, error) {
	store.mu.Lock()
	current, ok := store.sessions[sec.KindAdmin][sessionID]
	store.mu.Unlock()

	if !ok || current.Expired(now) {
		return nil, nil
	}

	admin, found := store.admins.Lookup(current.PrincipalID)
	if !found || !admin.IsActive {
		return nil, nil
	}
	return &identity.Admin{ID: admin.ID, Email: admin.Email, FullName: admin.FullName, Role: admin.Role, IsActive: admin.IsActive}, nil
}

// ResolveUser implements [session.Store].
func (store *Store) ResolveUser(_ context.Context, sessionID string, now time.Time) (*session.CachedUser, error) {
	store.mu.Lock()
	current, ok := store.sessions[sec.KindUser][sessionID]
	store.mu.Unlock()

	if !ok || current.Expired(now) {
		return nil, nil
	}

	user, found := store.users.Lookup(current.PrincipalID)
	if !found || !user.IsActive {
		return nil, nil
	}

	user.PasswordHash = nil
	user.SocialID = nil
	return &session.CachedUser{User: user, SessionExpiresAt: current.ExpiresAt}, nil
}

// # Inspection

// Live returns the unexpired sessions of kind owned by principalID.
func (store *Store) Live(kind sec.Kind, principalID int64) []session.Session {
	store.mu.Lock()
	defer store.mu.Unlock()

	var live []session.Session
	for _, current := range store.sessions[kind] {
		if current.PrincipalID == principalID && !current.Expired(store.now()) {
			live = append(live, current)
		}
	}
	return live
}

// Has reports whether a row with sessionID exists, expired or not.
func (store *Store) Has(kind sec.Kind, sessionID string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()

	_, ok := store.sessions[kind][sessionID]
	return ok
}

// Count returns the number of stored rows of kind.
func (store *Store) Count(kind sec.Kind) int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.sessions[kind])
}

// # Helpers

func (store *Store) principalExists(kind sec.Kind, principalID int64) bool {
	switch kind {
	case sec.KindAdmin:
		_, ok := store.admins.Lookup(principalID)
		return ok
	case sec.KindUser:
		_, ok := store.users.Lookup(principalID)
		return ok
	default:
		return false
	}
}

func (store *Store) deletePrincipal(kind sec.Kind, principalID int64) bool {
	deleted := false
	for id, current := range store.sessions[kind] {
		if current.PrincipalID == principalID {
			delete(store.sessions[kind], id)
			deleted = true
		}
	}
	return deleted
}

func (store *Store) insert(kind sec.Kind, principalID int64) *session.Session {
	created := session.Session{
		ID:          uuid.New(),
		PrincipalID: principalID,
		ExpiresAt:   store.now().Add(store.lifetimes.RefreshLifetime(kind)),
	}
	store.sessions[kind][created.ID] = created
	return &created
}

// # Cache

// ErrUnavailable is returned by a failing [Cache].
var ErrUnavailable = errors.New("sessionfake: cache unavailable")

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is an in-memory [session.Cache] with TTL and failure injection.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
	fail    bool
}

// NewCache creates an empty cache reading time from now.
func NewCache(now func() time.Time) *Cache {
	return &Cache{entries: make(map[string]entry), now: now}
}

// SetFailing makes every subsequent call return [ErrUnavailable].
func (cache *Cache) SetFailing(fail bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.fail = fail
}

// Get implements [session.Cache].
func (cache *Cache) Get(_ context.Context, key string) ([]byte, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if cache.fail {
		return nil, ErrUnavailable
	}

	current, ok := cache.entries[key]
	if !ok || !cache.now().Before(current.expiresAt) {
		delete(cache.entries, key)
		return nil, session.ErrCacheMiss
	}
	return current.value, nil
}

// Set implements [session.Cache].
func (cache *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if cache.fail {
		return ErrUnavailable
	}

	cache.entries[key] = entry{value: value, expiresAt: cache.now().Add(ttl)}
	return nil
}

// Put stores a raw entry regardless of failure mode, for seeding tests.
func (cache *Cache) Put(key string, value []byte, ttl time.Duration) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.entries[key] = entry{value: value, expiresAt: cache.now().Add(ttl)}
}

// TTL returns the remaining lifetime of key, or zero if absent.
func (cache *Cache) TTL(key string) time.Duration {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	current, ok := cache.entries[key]
	if !ok {
		return 0
	}
	return current.expiresAt.Sub(cache.now())
}
