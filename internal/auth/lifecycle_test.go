// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/stella/internal/auth"
	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/events"
	"github.com/taibuivan/stella/internal/platform/sec"
)

// # Login

/*
TestLogin_PasswordScenario: a correct password yields tokens and a session; a
wrong one yields 401 and no new session.
*/
func TestLogin_PasswordScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedPasswordUser(t, "a@x.com", "secret123")

	login, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	require.NotNil(t, login.Tokens)
	assert.NotEmpty(t, login.Tokens.AccessToken)
	assert.NotEmpty(t, login.Tokens.RefreshToken)
	assert.Positive(t, login.Tokens.AccessTokenExpiresAt)
	assert.Len(t, f.store.Live(sec.KindUser, user.ID), 1)

	sessionID, err := f.issuer.DecodeAccessToken(login.Tokens.AccessToken, sec.KindUser)
	require.NoError(t, err)
	assert.True(t, f.store.Has(sec.KindUser, sessionID))

	_, err = f.manager.LoginUserPassword(ctx, "a@x.com", "wrong-password")
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	live := f.store.Live(sec.KindUser, user.ID)
	require.Len(t, live, 1)
	assert.Equal(t, sessionID, live[0].ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginFailures.WithLabelValues("user", apperr.CodeUnauthorized)))
}

/*
TestLogin_AtMostOneSession: any sequence of logins and refreshes leaves one
live session per principal.
*/
func TestLogin_AtMostOneSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedPasswordUser(t, "a@x.com", "secret123")

	first, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	firstSession, _ := f.issuer.DecodeAccessToken(first.Tokens.AccessToken, sec.KindUser)

	second, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	secondSession, _ := f.issuer.DecodeRefreshToken(second.Tokens.RefreshToken, sec.KindUser)

	_, err = f.manager.Refresh(ctx, sec.KindUser, secondSession)
	require.NoError(t, err)

	assert.False(t, f.store.Has(sec.KindUser, firstSession))
	assert.False(t, f.store.Has(sec.KindUser, secondSession))
	assert.Len(t, f.store.Live(sec.KindUser, user.ID), 1)
	assert.Equal(t, 1, f.store.Count(sec.KindUser))
}

/*
TestLogin_ConcurrentLogins: parallel logins of one principal still converge
on one session.
*/
func TestLogin_ConcurrentLogins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedPasswordUser(t, "a@x.com", "secret123")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.store.Live(sec.KindUser, user.ID), 1)
}

/*
TestLogin_KindsAreIndependent: an administrator session does not displace a
user session with the same numeric id.
*/
func TestLogin_KindsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.seedAdmin(t, "ops@stella.app", sec.RoleAdmin, true)
	user := f.seedPasswordUser(t, "a@x.com", "secret123")
	require.Equal(t, admin.ID, user.ID)

	f.google.Register("ops-token", auth.SocialProfile{ID: "g-1", Email: "ops@stella.app"})

	_, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	adminLogin, err := f.manager.LoginAdminSocial(ctx, "google", "ops-token")
	require.NoError(t, err)

	assert.Len(t, f.store.Live(sec.KindUser, user.ID), 1)
	assert.Len(t, f.store.Live(sec.KindAdmin, admin.ID), 1)

	// Admin tokens never decode as user tokens
	_, err = f.issuer.DecodeAccessToken(adminLogin.Tokens.AccessToken, sec.KindUser)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestLogin_SocialIdempotence: the first social login creates one account; the
second reuses it and replaces the session.
*/
func TestLogin_SocialIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.google.Register("tok", auth.SocialProfile{ID: "g-7", Email: "new@x.com", FirstName: "New", LastName: "Person"})

	first, err := f.manager.LoginUserSocial(ctx, "google", "tok")
	require.NoError(t, err)
	second, err := f.manager.LoginUserSocial(ctx, "google", "tok")
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, 1, f.users.Count())
	assert.Len(t, f.store.Live(sec.KindUser, first.User.ID), 1)
}

/*
TestLogin_FailureLeavesStateUntouched: a rejected login of an existing session
owner keeps the existing session.
*/
func TestLogin_FailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.seedAdmin(t, "ops@stella.app", sec.RoleAdmin, true)
	f.google.Register("ops-token", auth.SocialProfile{ID: "g-1", Email: "ops@stella.app"})

	login, err := f.manager.LoginAdminSocial(ctx, "google", "ops-token")
	require.NoError(t, err)
	sessionID, _ := f.issuer.DecodeAccessToken(login.Tokens.AccessToken, sec.KindAdmin)

	_, err = f.manager.LoginAdminSocial(ctx, "google", "expired-provider-token")
	assert.True(t, apperr.HasCode(err, apperr.CodeBadRequest))
	assert.True(t, f.store.Has(sec.KindAdmin, sessionID))
	assert.Len(t, f.store.Live(sec.KindAdmin, admin.ID), 1)
}

/*
TestLogin_StoreFailurePropagates: a store failure surfaces as an error, never
as an empty session.
*/
func TestLogin_StoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.seedPasswordUser(t, "a@x.com", "secret123")

	f.store.Err = apperr.Retryable(errors.New("unique violation"))

	login, err := f.manager.LoginUserPassword(context.Background(), "a@x.com", "secret123")
	assert.Nil(t, login)
	assert.True(t, apperr.HasCode(err, apperr.CodeRetryable))
	assert.Empty(t, f.published.Events())
}

// # Refresh

/*
TestRefresh_RotateThenReuse: a refresh token works once; its session is gone
afterwards and a replay fails.
*/
func TestRefresh_RotateThenReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPasswordUser(t, "a@x.com", "secret123")

	login, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	session1, err := f.issuer.DecodeRefreshToken(login.Tokens.RefreshToken, sec.KindUser)
	require.NoError(t, err)

	refreshed, err := f.manager.Refresh(ctx, sec.KindUser, session1)
	require.NoError(t, err)

	session2, err := f.issuer.DecodeRefreshToken(refreshed.RefreshToken, sec.KindUser)
	require.NoError(t, err)
	assert.NotEqual(t, session1, session2)
	assert.False(t, f.store.Has(sec.KindUser, session1))
	assert.True(t, f.store.Has(sec.KindUser, session2))

	_, err = f.manager.Refresh(ctx, sec.KindUser, session1)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

/*
TestRefresh_ConcurrentReplay: of many simultaneous refreshes with one token,
exactly one succeeds.
*/
func TestRefresh_ConcurrentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedPasswordUser(t, "a@x.com", "secret123")

	login, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	sessionID, _ := f.issuer.DecodeRefreshToken(login.Tokens.RefreshToken, sec.KindUser)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.manager.Refresh(ctx, sec.KindUser, sessionID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, f.store.Live(sec.KindUser, user.ID), 1)
}

/*
TestTokenBoundness: the issued access token always decodes to the session
that was created for it.
*/
func TestTokenBoundness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedPasswordUser(t, "a@x.com", "secret123")

	for i := 0; i < 5; i++ {
		login, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
		require.NoError(t, err)

		live := f.store.Live(sec.KindUser, user.ID)
		require.Len(t, live, 1)

		accessSession, err := f.issuer.DecodeAccessToken(login.Tokens.AccessToken, sec.KindUser)
		require.NoError(t, err)
		refreshSession, err := f.issuer.DecodeRefreshToken(login.Tokens.RefreshToken, sec.KindUser)
		require.NoError(t, err)

		assert.Equal(t, live[0].ID, accessSession)
		assert.Equal(t, live[0].ID, refreshSession)
	}
}

// # Logout

/*
TestLogout reports whether a row was removed.
*/
func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPasswordUser(t, "a@x.com", "secret123")

	login, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	sessionID, _ := f.issuer.DecodeRefreshToken(login.Tokens.RefreshToken, sec.KindUser)

	deleted, err := f.manager.Logout(ctx, sec.KindUser, sessionID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.manager.Logout(ctx, sec.KindUser, sessionID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = f.manager.Refresh(ctx, sec.KindUser, sessionID)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

// # Events

/*
TestEvents_PublishedPerTransition verifies the event trail and counters.
*/
func TestEvents_PublishedPerTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedPasswordUser(t, "a@x.com", "secret123")

	login, err := f.manager.LoginUserPassword(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	session1, _ := f.issuer.DecodeRefreshToken(login.Tokens.RefreshToken, sec.KindUser)

	refreshed, err := f.manager.Refresh(ctx, sec.KindUser, session1)
	require.NoError(t, err)
	session2, _ := f.issuer.DecodeRefreshToken(refreshed.RefreshToken, sec.KindUser)

	_, err = f.manager.Logout(ctx, sec.KindUser, session2)
	require.NoError(t, err)

	published := f.published.Events()
	require.Len(t, published, 3)

	assert.Equal(t, events.SessionCreated, published[0].Type)
	assert.Equal(t, session1, published[0].SessionID)
	assert.Equal(t, user.ID, published[0].PrincipalID)
	assert.Equal(t, "user", published[0].Kind)

	assert.Equal(t, events.SessionRotated, published[1].Type)
	assert.Equal(t, session2, published[1].SessionID)

	assert.Equal(t, events.SessionDeleted, published[2].Type)
	assert.Equal(t, session2, published[2].SessionID)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SessionEvents.WithLabelValues("user", string(events.SessionRotated))))
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.SessionEvent) error {
	return errors.New("broker down")
}

func (failingPublisher) Close() error { return nil }

/*
TestEvents_BrokerFailureIsNotFatal: login succeeds when publishing fails.
*/
func TestEvents_BrokerFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.seedPasswordUser(t, "a@x.com", "secret123")

	manager := auth.NewManager(f.verifier, f.admins, f.store, f.issuer, failingPublisher{}, nil)

	login, err := manager.LoginUserPassword(context.Background(), "a@x.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Tokens.AccessToken)
}

// # Administrator Management

/*
TestSetAdminActive_DeactivationEndsSession verifies that a deactivated
administrator loses the session and cannot refresh.
*/
func TestSetAdminActive_DeactivationEndsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.seedAdmin(t, "ops@stella.app", sec.RoleAdmin, true)
	f.google.Register("ops-token", auth.SocialProfile{ID: "g-1", Email: "ops@stella.app"})

	login, err := f.manager.LoginAdminSocial(ctx, "google", "ops-token")
	require.NoError(t, err)
	sessionID, _ := f.issuer.DecodeRefreshToken(login.Tokens.RefreshToken, sec.KindAdmin)

	updated, err := f.manager.SetAdminActive(ctx, admin.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Empty(t, f.store.Live(sec.KindAdmin, admin.ID))

	_, err = f.manager.Refresh(ctx, sec.KindAdmin, sessionID)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	_, err = f.manager.LoginAdminSocial(ctx, "google", "ops-token")
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))

	_, err = f.manager.SetAdminActive(ctx, 999, true)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}
