// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements sign-in, refresh and sign-out for administrators and
users.

# Flow

	Verifier ──► Manager ──► session.Store + sec.TokenIssuer ──► caller

The [Verifier] resolves a credential to a principal without side effects
beyond account provisioning. The [Manager] owns every session transition and
is the only writer of session rows. The HTTP [Handler] maps routes onto the
manager and mounts the guards from package session.
*/
package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/apperr"
	"github.com/taibuivan/stella/internal/platform/sec"
)

// Verifier resolves credentials to principals.
type Verifier struct {
	admins identity.AdminRepository
	users  identity.UserRepository
	social *SocialFactory
}

// NewVerifier creates a new [Verifier].
func NewVerifier(admins identity.AdminRepository, users identity.UserRepository, social *SocialFactory) *Verifier {
	return &Verifier{admins: admins, users: users, social: social}
}

// RegisterInput holds the data required to enroll a password account.
type RegisterInput struct {
	Email    string
	FullName string
	Password string
}

// # Password Credentials

/*
VerifyPassword authenticates a user by email and password.

Description: The checks run in a fixed order so an inactive account is
reported as such only after the email matched.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *identity.User: The authenticated account
  - error: apperr.Unauthorized, apperr.Forbidden or repository failures
*/
func (verifier *Verifier) VerifyPassword(context context.Context, email, password string) (*identity.User, error) {
	user, err := verifier.users.FindByEmail(context, normalizeEmail(email))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperr.Forbidden("User is not active")
	}

	// Social-only accounts have nothing to compare against
	if !user.HasPassword() {
		return nil, apperr.Unauthorized("This account does not have a password set. Please use social login")
	}

	if !sec.CheckPasswordHash(password, *user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	return user, nil
}

/*
Register creates a password account.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *identity.User: The new, active account
  - error: apperr.Conflict if the email is taken, or persistence failures
*/
func (verifier *Verifier) Register(context context.Context, input RegisterInput) (*identity.User, error) {
	hash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_register_hash_failed: %w", err)
	}

	user := &identity.User{
		Email:        normalizeEmail(input.Email),
		FullName:     normalizeName(input.FullName),
		SocialType:   identity.SocialTypeLocal,
		PasswordHash: &hash,
		IsActive:     true,
	}

	// The unique index is the authority on duplicates
	if err := verifier.users.Create(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

// # Social Credentials

/*
VerifySocialAdmin authenticates an administrator through a social provider.

Description: Administrators are never provisioned here; the email must belong
to an existing, active account. The provider subject is recorded the first
time it is seen.

Parameters:
  - context: context.Context
  - provider: string
  - accessToken: string (Provider-issued)

Returns:
  - *identity.Admin
  - error: apperr.BadRequest for exchange failures, apperr.Forbidden otherwise
*/
func (verifier *Verifier) VerifySocialAdmin(context context.Context, provider, accessToken string) (*identity.Admin, error) {
	profile, err := verifier.exchange(context, sec.KindAdmin, provider, accessToken)
	if err != nil {
		return nil, err
	}

	admin, err := verifier.admins.FindByEmail(context, normalizeEmail(profile.Email))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Forbidden("Access Denied! Your email address is not authorized to access this site")
		}
		return nil, err
	}

	if !admin.IsActive {
		return nil, apperr.Forbidden("Admin is not active")
	}

	if admin.SocialID == nil {
		if err := verifier.admins.AttachSocialID(context, admin.ID, profile.ID, strings.ToLower(provider)); err != nil {
			return nil, err
		}
		admin.SocialID = &profile.ID
		admin.SocialType = strings.ToLower(provider)
	}

	return admin, nil
}

/*
VerifySocialUser authenticates a user through a social provider, creating the
account on first sight.

Description: A concurrent first login for the same email loses the insert to
the unique index and re-reads the winner, so both callers resolve the same id.

Parameters:
  - context: context.Context
  - provider: string
  - accessToken: string (Provider-issued)

Returns:
  - *identity.User
  - error: apperr.BadRequest for exchange failures, apperr.Forbidden if inactive
*/
func (verifier *Verifier) VerifySocialUser(context context.Context, provider, accessToken string) (*identity.User, error) {
	profile, err := verifier.exchange(context, sec.KindUser, provider, accessToken)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(profile.Email)
	socialType := strings.ToLower(provider)

	user, err := verifier.users.FindByEmail(context, email)
	switch {
	case err == nil:
	case apperr.HasCode(err, apperr.CodeNotFound):
		user, err = verifier.provisionSocialUser(context, email, socialType, profile)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if !user.IsActive {
		return nil, apperr.Forbidden("User is not active")
	}

	if user.SocialID == nil {
		if err := verifier.users.AttachSocialID(context, user.ID, profile.ID, socialType); err != nil {
			return nil, err
		}
		user.SocialID = &profile.ID
		user.SocialType = socialType
	}

	return user, nil
}

func (verifier *Verifier) provisionSocialUser(context context.Context, email, socialType string, profile *SocialProfile) (*identity.User, error) {
	socialID := profile.ID
	user := &identity.User{
		Email:      email,
		FullName:   normalizeName(profile.FullName()),
		SocialID:   &socialID,
		SocialType: socialType,
		IsActive:   true,
	}

	err := verifier.users.Create(context, user)
	if err == nil {
		return user, nil
	}
	if !apperr.HasCode(err, apperr.CodeConflict) {
		return nil, err
	}

	// Lost the race to a concurrent first login
	return verifier.users.FindByEmail(context, email)
}

func (verifier *Verifier) exchange(context context.Context, kind sec.Kind, provider, accessToken string) (*SocialProfile, error) {
	exchanger, err := verifier.social.Exchanger(kind, provider)
	if err != nil {
		return nil, err
	}
	return exchanger.Exchange(context, accessToken)
}

func normalizeEmail(email string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(email)))
}

// normalizeName stores names in composed form so the same name typed on
// different devices compares equal.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
