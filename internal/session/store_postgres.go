// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/database/schema"
	"github.com/taibuivan/stella/internal/platform/dberr"
	"github.com/taibuivan/stella/internal/platform/postgres"
	"github.com/taibuivan/stella/pkg/uuid"
)

// errSessionGone is returned when a refresh references a session that was
// deleted, rotated or expired.
var errSessionGone = apperr.Unauthorized("Session expired or revoked")

// PostgresStore implements [Store] using pgx.
//
// # Concurrency
//
// Create and Rotate lock the owning principal row (SELECT ... FOR UPDATE)
// before replacing its session, so concurrent logins and refreshes of one
// principal run one after another. The UNIQUE constraint on each session
// table's principal column is the schema-level backstop; if it ever fires the
// caller receives apperr.Retryable.
type PostgresStore struct {
	pool      *pgxpool.Pool
	lifetimes Lifetimes
	now       func() time.Time
}

// NewPostgresStore creates a new PostgreSQL implementation of Store.
func NewPostgresStore(pool *pgxpool.Pool, lifetimes Lifetimes) *PostgresStore {
	return &PostgresStore{pool: pool, lifetimes: lifetimes, now: time.Now}
}

// # Lifecycle Writes

/*
Create opens a new session for principalID, replacing any existing one.

Description: Locks the principal row, deletes its current session and inserts
the new one in a single transaction.

Parameters:
  - context: context.Context
  - descriptor: Descriptor
  - principalID: int64

Returns:
  - *Session: The new session
  - error: apperr.Unauthorized, apperr.Retryable or database errors
*/
func (store *PostgresStore) Create(context context.Context, descriptor Descriptor, principalID int64) (*Session, error) {
	var created *Session

	err := postgres.WithTx(context, store.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if err := lockPrincipal(context, tx, descriptor, principalID); err != nil {
			return err
		}

		deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", descriptor.Session.Table, descriptor.Session.Principal)
		if _, err := tx.Exec(context, deleteQuery, principalID); err != nil {
			return err
		}

		session, err := store.insert(context, tx, descriptor, principalID)
		created = session
		return err
	})

	if err != nil {
		return nil, classify(err, "create")
	}

	return created, nil
}

/*
Rotate replaces sessionID with a new session for the same principal.

Description: The old row is deleted with a predicate on both id and principal
after the principal lock is held; if a concurrent refresh or login removed it
first, nothing is deleted and the rotation fails. A refresh token therefore
succeeds at most once.

Parameters:
  - context: context.Context
  - descriptor: Descriptor
  - sessionID: string

Returns:
  - *Session: The replacement session
  - error: apperr.Unauthorized when the session is gone or expired
*/
func (store *PostgresStore) Rotate(context context.Context, descriptor Descriptor, sessionID string) (*Session, error) {
	if !uuid.Valid(sessionID) {
		return nil, errSessionGone
	}

	var rotated *Session

	err := postgres.WithTx(context, store.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		var principalID int64

		// 1. Locate the live session and its owner
		findQuery := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 AND %s > $2",
			descriptor.Session.Principal, descriptor.Session.Table, descriptor.Session.ID, descriptor.Session.ExpiresAt)

		if err := tx.QueryRow(context, findQuery, sessionID, store.now()).Scan(&principalID); err != nil {
			if dberr.IsNoRows(err) {
				return errSessionGone
			}
			return err
		}

		// 2. Serialize with other logins/refreshes of the same principal
		if err := lockPrincipal(context, tx, descriptor, principalID); err != nil {
			return err
		}

		// 3. Remove the old session; losing a race leaves nothing to delete
		deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = $2",
			descriptor.Session.Table, descriptor.Session.ID, descriptor.Session.Principal)

		tag, err := tx.Exec(context, deleteQuery, sessionID, principalID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errSessionGone
		}

		// 4. Bind a fresh session to the same principal
		session, err := store.insert(context, tx, descriptor, principalID)
		rotated = session
		return err
	})

	if err != nil {
		return nil, classify(err, "rotate")
	}

	return rotated, nil
}

// Delete removes the session and reports whether a row was removed.
func (store *PostgresStore) Delete(context context.Context, descriptor Descriptor, sessionID string) (bool, error) {
	if !uuid.Valid(sessionID) {
		return false, nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", descriptor.Session.Table, descriptor.Session.ID)

	tag, err := store.pool.Exec(context, query, sessionID)
	if err != nil {
		return false, fmt.Errorf("postgres_session_store_delete_failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// DeleteByPrincipal removes whatever session the principal holds.
func (store *PostgresStore) DeleteByPrincipal(context context.Context, descriptor Descriptor, principalID int64) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", descriptor.Session.Table, descriptor.Session.Principal)

	tag, err := store.pool.Exec(context, query, principalID)
	if err != nil {
		return false, fmt.Errorf("postgres_session_store_delete_by_principal_failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// # Reads

// Exists reports whether sessionID is present and unexpired.
func (store *PostgresStore) Exists(context context.Context, descriptor Descriptor, sessionID string) (bool, error) {
	if !uuid.Valid(sessionID) {
		return false, nil
	}

	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s > $2)",
		descriptor.Session.Table, descriptor.Session.ID, descriptor.Session.ExpiresAt)

	var exists bool
	if err := store.pool.QueryRow(context, query, sessionID, store.now()).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_session_store_exists_failed: %w", err)
	}

	return exists, nil
}

/*
ResolveAdmin joins an unexpired session to its active administrator.

Description: Projects only the fields authorization needs.

Parameters:
  - context: context.Context
  - sessionID: string
  - now: time.Time (Expiry reference)

Returns:
  - *identity.Admin: The owner, or nil when no row matches
  - error: Database errors
*/
func (store *PostgresStore) ResolveAdmin(context context.Context, sessionID string, now time.Time) (*identity.Admin, error) {
	if !uuid.Valid(sessionID) {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT a.%s, a.%s, a.%s, a.%s, a.%s
		FROM %s s
		JOIN %s a ON a.%s = s.%s
		WHERE s.%s = $1 AND s.%s > $2 AND a.%s = TRUE`,
		schema.Admin.ID, schema.Admin.Email, schema.Admin.FullName, schema.Admin.Role, schema.Admin.IsActive,
		schema.AdminSession.Table,
		schema.Admin.Table, schema.Admin.ID, schema.AdminSession.Principal,
		schema.AdminSession.ID, schema.AdminSession.ExpiresAt, schema.Admin.IsActive,
	)

	admin := &identity.Admin{}
	err := store.pool.QueryRow(context, query, sessionID, now).Scan(
		&admin.ID,
		&admin.Email,
		&admin.FullName,
		&admin.Role,
		&admin.IsActive,
	)

	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_session_store_resolve_admin_failed: %w", err)
	}

	return admin, nil
}

// ResolveUser joins an unexpired session to its active end-user.
func (store *PostgresStore) ResolveUser(context context.Context, sessionID string, now time.Time) (*CachedUser, error) {
	if !uuid.Valid(sessionID) {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT u.%s, u.%s, u.%s, u.%s, u.%s, u.%s, s.%s
		FROM %s s
		JOIN %s u ON u.%s = s.%s
		WHERE s.%s = $1 AND s.%s > $2 AND u.%s = TRUE`,
		schema.UserAccount.ID, schema.UserAccount.Email, schema.UserAccount.FullName,
		schema.UserAccount.SocialType, schema.UserAccount.IsActive, schema.UserAccount.CreatedAt,
		schema.UserSession.ExpiresAt,
		schema.UserSession.Table,
		schema.UserAccount.Table, schema.UserAccount.ID, schema.UserSession.Principal,
		schema.UserSession.ID, schema.UserSession.ExpiresAt, schema.UserAccount.IsActive,
	)

	resolved := &CachedUser{}
	err := store.pool.QueryRow(context, query, sessionID, now).Scan(
		&resolved.User.ID,
		&resolved.User.Email,
		&resolved.User.FullName,
		&resolved.User.SocialType,
		&resolved.User.IsActive,
		&resolved.User.CreatedAt,
		&resolved.SessionExpiresAt,
	)

	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_session_store_resolve_user_failed: %w", err)
	}

	return resolved, nil
}

// # Helpers

func (store *PostgresStore) insert(context context.Context, tx pgx.Tx, descriptor Descriptor, principalID int64) (*Session, error) {
	lifetime := store.lifetimes.RefreshLifetime(descriptor.Kind)
	if lifetime <= 0 {
		return nil, fmt.Errorf("session: no lifetime configured for kind %q", descriptor.Kind)
	}

	session := &Session{
		ID:          uuid.New(),
		PrincipalID: principalID,
		ExpiresAt:   store.now().Add(lifetime).UTC(),
	}

	query := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3)",
		descriptor.Session.Table, descriptor.Session.ID, descriptor.Session.Principal, descriptor.Session.ExpiresAt)

	if _, err := tx.Exec(context, query, session.ID, session.PrincipalID, session.ExpiresAt); err != nil {
		return nil, err
	}

	return session, nil
}

func lockPrincipal(context context.Context, tx pgx.Tx, descriptor Descriptor, principalID int64) error {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 FOR UPDATE",
		descriptor.PrincipalID, descriptor.PrincipalTable, descriptor.PrincipalID)

	var locked int64
	if err := tx.QueryRow(context, query, principalID).Scan(&locked); err != nil {
		if dberr.IsNoRows(err) {
			return apperr.Unauthorized("Account no longer exists")
		}
		return err
	}

	return nil
}

// classify maps transaction failures: application errors pass through, lost
// races become retryable, everything else is wrapped for a 500.
func classify(err error, operation string) error {
	switch {
	case apperr.IsAppError(err):
		return err
	case dberr.IsUniqueViolation(err), dberr.IsSerializationConflict(err):
		return apperr.Retryable(err)
	default:
		return fmt.Errorf("postgres_session_store_%s_failed: %w", operation, err)
	}
}
