// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/ctxutil"
	"github.com/taibuivan/stella/internal/platform/events"
	"github.com/taibuivan/stella/internal/platform/metrics"
	"github.com/taibuivan/stella/internal/platform/sec"
	"github.com/taibuivan/stella/internal/session"
)

// TokenMinter signs token pairs bound to a session id.
// [*sec.TokenIssuer] satisfies it.
type TokenMinter interface {
	IssueTokens(context context.Context, sessionID string, kind sec.Kind) (*sec.TokenPair, error)
}

// AdminLogin is the result of a successful administrator login.
type AdminLogin struct {
	Admin  *identity.Admin `json:"admin"`
	Tokens *sec.TokenPair  `json:"tokens"`
}

// UserLogin is the result of a successful user login or registration.
type UserLogin struct {
	User   *identity.User `json:"user"`
	Tokens *sec.TokenPair `json:"tokens"`
}

// Manager drives the session state machine of both principal kinds.
//
// # States
//
// A principal of a kind is either without a session or holds exactly one.
// Login moves it to a fresh session, discarding any previous one; refresh
// replaces the session with a new id; logout removes it. A failed transition
// leaves the previous state untouched.
type Manager struct {
	verifier  *Verifier
	admins    identity.AdminRepository
	store     session.Store
	tokens    TokenMinter
	publisher events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewManager creates a new [Manager]. publisher and m may be nil.
func NewManager(verifier *Verifier, admins identity.AdminRepository, store session.Store, tokens TokenMinter, publisher events.Publisher, m *metrics.Metrics) *Manager {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Manager{
		verifier:  verifier,
		admins:    admins,
		store:     store,
		tokens:    tokens,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// # Login

/*
LoginAdminSocial signs an administrator in with a social provider token.

Parameters:
  - context: context.Context
  - provider: string
  - accessToken: string

Returns:
  - *AdminLogin: The administrator and a fresh token pair
  - error: Verification, session or signing failures
*/
func (manager *Manager) LoginAdminSocial(context context.Context, provider, accessToken string) (*AdminLogin, error) {
	admin, err := manager.verifier.VerifySocialAdmin(context, provider, accessToken)
	if err != nil {
		return nil, manager.loginFailed(sec.KindAdmin, err)
	}

	tokens, err := manager.open(context, session.AdminDescriptor, admin.ID)
	if err != nil {
		return nil, err
	}

	return &AdminLogin{Admin: admin, Tokens: tokens}, nil
}

// LoginUserSocial signs a user in with a social provider token, creating the
// account on first sight.
func (manager *Manager) LoginUserSocial(context context.Context, provider, accessToken string) (*UserLogin, error) {
	user, err := manager.verifier.VerifySocialUser(context, provider, accessToken)
	if err != nil {
		return nil, manager.loginFailed(sec.KindUser, err)
	}
	return manager.openUser(context, user)
}

// LoginUserPassword signs a user in with email and password.
func (manager *Manager) LoginUserPassword(context context.Context, email, password string) (*UserLogin, error) {
	user, err := manager.verifier.VerifyPassword(context, email, password)
	if err != nil {
		return nil, manager.loginFailed(sec.KindUser, err)
	}
	return manager.openUser(context, user)
}

// RegisterUser creates a password account and opens its first session.
func (manager *Manager) RegisterUser(context context.Context, input RegisterInput) (*UserLogin, error) {
	user, err := manager.verifier.Register(context, input)
	if err != nil {
		return nil, err
	}
	return manager.openUser(context, user)
}

// # Refresh & Logout

/*
Refresh rotates the session behind a validated refresh token.

Description: The old session is deleted as part of the rotation, so the
refresh token that named it cannot be replayed.

Parameters:
  - context: context.Context
  - kind: sec.Kind
  - sessionID: string (From the refresh token)

Returns:
  - *sec.TokenPair: Tokens bound to the new session
  - error: apperr.Unauthorized if the session is gone, apperr.Retryable on a lost race
*/
func (manager *Manager) Refresh(context context.Context, kind sec.Kind, sessionID string) (*sec.TokenPair, error) {
	descriptor, err := session.DescriptorFor(kind)
	if err != nil {
		return nil, err
	}

	rotated, err := manager.store.Rotate(context, descriptor, sessionID)
	if err != nil {
		return nil, err
	}

	tokens, err := manager.tokens.IssueTokens(context, rotated.ID, kind)
	if err != nil {
		return nil, fmt.Errorf("auth_refresh_issue_failed: %w", err)
	}

	manager.emit(context, kind, events.SessionRotated, rotated.ID, rotated.PrincipalID)
	return tokens, nil
}

// Logout deletes the session and reports whether one was removed.
func (manager *Manager) Logout(context context.Context, kind sec.Kind, sessionID string) (bool, error) {
	descriptor, err := session.DescriptorFor(kind)
	if err != nil {
		return false, err
	}

	deleted, err := manager.store.Delete(context, descriptor, sessionID)
	if err != nil {
		return false, err
	}

	if deleted {
		manager.emit(context, kind, events.SessionDeleted, sessionID, 0)
	}
	return deleted, nil
}

// # Administrator Management

// ListAdmins returns every administrator ordered by id.
func (manager *Manager) ListAdmins(context context.Context) ([]*identity.Admin, error) {
	return manager.admins.List(context)
}

/*
SetAdminActive toggles an administrator's active flag.

Description: Deactivation also deletes the administrator's session so
existing tokens stop working at once; the admin guard would reject them
anyway, but the refresh path would not.

Parameters:
  - context: context.Context
  - id: int64
  - active: bool

Returns:
  - *identity.Admin: The updated account
  - error: apperr.NotFound or persistence failures
*/
func (manager *Manager) SetAdminActive(context context.Context, id int64, active bool) (*identity.Admin, error) {
	if err := manager.admins.SetActive(context, id, active); err != nil {
		return nil, err
	}

	if !active {
		deleted, err := manager.store.DeleteByPrincipal(context, session.AdminDescriptor, id)
		if err != nil {
			return nil, err
		}
		if deleted {
			manager.emit(context, sec.KindAdmin, events.SessionDeleted, "", id)
		}
	}

	return manager.admins.FindByID(context, id)
}

// # Helpers

func (manager *Manager) openUser(context context.Context, user *identity.User) (*UserLogin, error) {
	tokens, err := manager.open(context, session.UserDescriptor, user.ID)
	if err != nil {
		return nil, err
	}
	return &UserLogin{User: user, Tokens: tokens}, nil
}

// open replaces the principal's session and signs tokens for the new one.
func (manager *Manager) open(context context.Context, descriptor session.Descriptor, principalID int64) (*sec.TokenPair, error) {
	created, err := manager.store.Create(context, descriptor, principalID)
	if err != nil {
		return nil, err
	}

	tokens, err := manager.tokens.IssueTokens(context, created.ID, descriptor.Kind)
	if err != nil {
		return nil, fmt.Errorf("auth_login_issue_failed: %w", err)
	}

	manager.emit(context, descriptor.Kind, events.SessionCreated, created.ID, principalID)
	return tokens, nil
}

func (manager *Manager) loginFailed(kind sec.Kind, err error) error {
	if manager.metrics != nil {
		code := apperr.CodeInternal
		if appError := apperr.As(err); appError != nil {
			code = appError.Code
		}
		manager.metrics.LoginFailures.WithLabelValues(string(kind), code).Inc()
	}
	return err
}

// emit records the transition and publishes it. Broker failures are logged
// and never fail the transition.
func (manager *Manager) emit(ctx context.Context, kind sec.Kind, eventType events.Type, sessionID string, principalID int64) {
	if manager.metrics != nil {
		manager.metrics.SessionEvents.WithLabelValues(string(kind), string(eventType)).Inc()
	}

	event := events.SessionEvent{
		Type:        eventType,
		Kind:        string(kind),
		SessionID:   sessionID,
		PrincipalID: principalID,
		OccurredAt:  manager.now().UTC(),
	}

	if err := manager.publisher.Publish(ctx, event); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_event_publish_failed",
			slog.String("type", string(eventType)),
			slog.String("error", err.Error()),
		)
	}
}
