// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/stella/internal/auth"
	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/identity/identityfake"
	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/events"
	"github.com/taibuivan/stella/internal/platform/metrics"
	"github.com/taibuivan/stella/internal/platform/sec"
	"github.com/taibuivan/stella/internal/session"
	"github.com/taibuivan/stella/internal/session/sessionfake"
)

// stubExchanger returns a fixed profile per provider token.
type stubExchanger struct {
	mu       sync.Mutex
	profiles map[string]auth.SocialProfile
	calls    int
}

func newStubExchanger() *stubExchanger {
	return &stubExchanger{profiles: make(map[string]auth.SocialProfile)}
}

func (stub *stubExchanger) Register(token string, profile auth.SocialProfile) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.profiles[token] = profile
}

func (stub *stubExchanger) Exchange(_ context.Context, accessToken string) (*auth.SocialProfile, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	stub.calls++
	profile, ok := stub.profiles[accessToken]
	if !ok {
		return nil, apperr.BadRequest("Could not verify the social access token")
	}
	return &profile, nil
}

type fixture struct {
	admins    *identityfake.Admins
	users     *identityfake.Users
	store     *sessionfake.Store
	cache     *sessionfake.Cache
	issuer    *sec.TokenIssuer
	google    *stubExchanger
	published *events.Memory
	metrics   *metrics.Metrics
	verifier  *auth.Verifier
	manager   *auth.Manager
	guard     *session.Guard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	issuer, err := sec.NewTokenIssuer("stella.test", map[sec.Kind]sec.KindSecrets{
		sec.KindAdmin: {AccessSecret: []byte("admin-access"), AccessLifetime: 15 * time.Minute, RefreshSecret: []byte("admin-refresh"), RefreshLifetime: 24 * time.Hour},
		sec.KindUser:  {AccessSecret: []byte("user-access"), AccessLifetime: 15 * time.Minute, RefreshSecret: []byte("user-refresh"), RefreshLifetime: 24 * time.Hour},
	})
	require.NoError(t, err)

	google := newStubExchanger()
	factory, err := auth.NewSocialFactory(
		map[auth.Provider]auth.ProfileExchanger{auth.ProviderGoogle: google},
		map[sec.Kind][]string{sec.KindAdmin: {"google"}, sec.KindUser: {"google"}},
	)
	require.NoError(t, err)

	admins := identityfake.NewAdmins()
	users := identityfake.NewUsers()
	store := sessionfake.NewStore(admins, users, issuer)
	cache := sessionfake.NewCache(time.Now)
	published := &events.Memory{}
	m := metrics.New()

	verifier := auth.NewVerifier(admins, users, factory)

	return &fixture{
		admins:    admins,
		users:     users,
		store:     store,
		cache:     cache,
		issuer:    issuer,
		google:    google,
		published: published,
		metrics:   m,
		verifier:  verifier,
		manager:   auth.NewManager(verifier, admins, store, issuer, published, m),
		guard:     session.NewGuard(store, cache, issuer, time.Minute, m),
	}
}

func (f *fixture) seedAdmin(t *testing.T, email string, role sec.AdminRole, active bool) *identity.Admin {
	t.Helper()
	admin := &identity.Admin{Email: email, FullName: "Ops", Role: role, IsActive: active, SocialType: "google"}
	require.NoError(t, f.admins.Create(context.Background(), admin))
	return admin
}

func (f *fixture) seedPasswordUser(t *testing.T, email, password string) *identity.User {
	t.Helper()
	user, err := f.verifier.Register(context.Background(), auth.RegisterInput{Email: email, FullName: "A X", Password: password})
	require.NoError(t, err)
	return user
}

func (f *fixture) seedSocialUser(t *testing.T, email string) *identity.User {
	t.Helper()
	user := &identity.User{Email: email, FullName: "Social Only", SocialType: "google", IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}
