// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity defines the two principal populations of the platform.

Administrators operate the back office; users are shoppers. Both may sign in
through a social provider, only users may hold a password. The populations
never share a table, a token secret or a session.

# Architecture

Entities defined here have no storage dependencies. Repositories describe the
lookups the authentication flows need and are implemented with pgx in
store_postgres.go.
*/
package identity

import (
	"time"

	"github.com/taibuivan/stella/internal/platform/sec"
)

// # Domain Entities

// Admin represents a back-office operator.
type Admin struct {
	ID         int64         `json:"id"`
	Email      string        `json:"email"`
	FullName   string        `json:"full_name"`
	SocialID   *string       `json:"social_id,omitempty"`
	SocialType string        `json:"social_type,omitempty"`
	Role       sec.AdminRole `json:"role"`
	IsActive   bool          `json:"is_active"`
	CreatedAt  time.Time     `json:"created_at"`
}

// User represents a shopper account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	SocialID     *string   `json:"social_id,omitempty"`
	SocialType   string    `json:"social_type,omitempty"`
	PasswordHash *string   `json:"-"` // nil for social-only accounts
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasPassword reports whether the account can sign in with a password.
func (user *User) HasPassword() bool {
	return user.PasswordHash != nil && *user.PasswordHash != ""
}

// SocialTypeLocal marks accounts created through password registration.
const SocialTypeLocal = "local"

// # Field Identifiers

// Field names for validation and request mapping.
const (
	FieldEmail       = "email"
	FieldFullName    = "full_name"
	FieldPassword    = "password"
	FieldAccessToken = "access_token"
	FieldIsActive    = "is_active"
	FieldRole        = "role"
)
