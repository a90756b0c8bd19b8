// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/stella/internal/auth"
	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/identity/identityfake"
	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/sec"
)

// # Password Credentials

/*
TestVerifyPassword checks each rejection and its error class.
*/
func TestVerifyPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.seedPasswordUser(t, "a@x.com", "secret123")
	inactive := f.seedPasswordUser(t, "off@x.com", "secret123")
	f.users.SetActive(inactive.ID, false)
	f.seedSocialUser(t, "social@x.com")

	tests := []struct {
		name     string
		email    string
		password string
		wantCode string
	}{
		{"valid", "a@x.com", "secret123", ""},
		{"case_insensitive_email", " A@X.com ", "secret123", ""},
		{"unknown_email", "nobody@x.com", "secret123", apperr.CodeUnauthorized},
		{"wrong_password", "a@x.com", "wrong", apperr.CodeUnauthorized},
		{"inactive", "off@x.com", "secret123", apperr.CodeForbidden},
		{"inactive_wrong_password", "off@x.com", "wrong", apperr.CodeForbidden},
		{"social_only", "social@x.com", "anything", apperr.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.verifier.VerifyPassword(ctx, tt.email, tt.password)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, active.ID, user.ID)
				return
			}
			assert.True(t, apperr.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

/*
TestRegister verifies hashing, defaults and duplicate detection.
*/
func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.verifier.Register(ctx, auth.RegisterInput{Email: "New@X.com", FullName: " New User ", Password: "secret123"})
	require.NoError(t, err)

	assert.Equal(t, "new@x.com", user.Email)
	assert.Equal(t, "New User", user.FullName)
	assert.Equal(t, identity.SocialTypeLocal, user.SocialType)
	assert.True(t, user.IsActive)
	require.True(t, user.HasPassword())
	assert.NotEqual(t, "secret123", *user.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("secret123", *user.PasswordHash))

	_, err = f.verifier.Register(ctx, auth.RegisterInput{Email: "new@x.com", FullName: "Dup", Password: "secret456"})
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
	assert.Equal(t, 1, f.users.Count())

	// Decomposed accents are stored composed
	composed, err := f.verifier.Register(ctx, auth.RegisterInput{Email: "zoe@x.com", FullName: "Zoe\u0301", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "Zo\u00e9", composed.FullName)
}

// # Social Credentials

/*
TestVerifySocialAdmin covers the administrator allow-list semantics.
*/
func TestVerifySocialAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := f.seedAdmin(t, "ops@stella.app", sec.RoleAdmin, true)
	f.seedAdmin(t, "gone@stella.app", sec.RoleAdmin, false)

	f.google.Register("ops-token", auth.SocialProfile{ID: "g-1", Email: "ops@stella.app"})
	f.google.Register("gone-token", auth.SocialProfile{ID: "g-2", Email: "gone@stella.app"})
	f.google.Register("stranger-token", auth.SocialProfile{ID: "g-3", Email: "stranger@x.com"})

	t.Run("backfills_social_id", func(t *testing.T) {
		resolved, err := f.verifier.VerifySocialAdmin(ctx, "google", "ops-token")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, resolved.ID)

		stored, _ := f.admins.Lookup(admin.ID)
		require.NotNil(t, stored.SocialID)
		assert.Equal(t, "g-1", *stored.SocialID)
	})

	t.Run("unknown_email_forbidden", func(t *testing.T) {
		_, err := f.verifier.VerifySocialAdmin(ctx, "google", "stranger-token")
		assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
	})

	t.Run("inactive_forbidden", func(t *testing.T) {
		_, err := f.verifier.VerifySocialAdmin(ctx, "google", "gone-token")
		assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
	})

	t.Run("exchange_failure_bad_request", func(t *testing.T) {
		_, err := f.verifier.VerifySocialAdmin(ctx, "google", "bogus")
		assert.True(t, apperr.HasCode(err, apperr.CodeBadRequest))
	})

	t.Run("unsupported_provider_bad_request", func(t *testing.T) {
		_, err := f.verifier.VerifySocialAdmin(ctx, "facebook", "ops-token")
		assert.True(t, apperr.HasCode(err, apperr.CodeBadRequest))
	})
}

/*
TestVerifySocialUser verifies provisioning, idempotence and the active check.
*/
func TestVerifySocialUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.google.Register("new-token", auth.SocialProfile{ID: "g-10", Email: "fresh@x.com", FirstName: "Jane", LastName: "Doe"})

	first, err := f.verifier.VerifySocialUser(ctx, "google", "new-token")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", first.FullName)
	assert.Equal(t, "google", first.SocialType)
	assert.True(t, first.IsActive)
	require.NotNil(t, first.SocialID)
	assert.Equal(t, "g-10", *first.SocialID)

	second, err := f.verifier.VerifySocialUser(ctx, "google", "new-token")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.users.Count())

	// A password account linking Google keeps its password
	password := f.seedPasswordUser(t, "both@x.com", "secret123")
	f.google.Register("both-token", auth.SocialProfile{ID: "g-11", Email: "both@x.com"})

	linked, err := f.verifier.VerifySocialUser(ctx, "google", "both-token")
	require.NoError(t, err)
	assert.Equal(t, password.ID, linked.ID)
	assert.True(t, linked.HasPassword())

	f.users.SetActive(first.ID, false)
	_, err = f.verifier.VerifySocialUser(ctx, "google", "new-token")
	assert.True(t, apperr.HasCode(err, apperr.CodeForbidden))
}

// racingUsers hides an existing account from the first lookup, as a
// concurrent first login would.
type racingUsers struct {
	*identityfake.Users
	hidden atomic.Bool
}

func (repository *racingUsers) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if repository.hidden.CompareAndSwap(true, false) {
		return nil, apperr.NotFound("User")
	}
	return repository.Users.FindByEmail(ctx, email)
}

/*
TestVerifySocialUser_LostInsertRace verifies that a duplicate insert resolves
to the account created by the winner.
*/
func TestVerifySocialUser_LostInsertRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	winner := f.seedSocialUser(t, "race@x.com")

	users := &racingUsers{Users: f.users}
	users.hidden.Store(true)

	factory, err := auth.NewSocialFactory(
		map[auth.Provider]auth.ProfileExchanger{auth.ProviderGoogle: f.google},
		map[sec.Kind][]string{sec.KindUser: {"google"}},
	)
	require.NoError(t, err)

	f.google.Register("race-token", auth.SocialProfile{ID: "g-20", Email: "race@x.com"})

	resolved, err := auth.NewVerifier(f.admins, users, factory).VerifySocialUser(ctx, "google", "race-token")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, resolved.ID)
	assert.Equal(t, 1, f.users.Count())
}
