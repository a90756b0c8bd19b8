// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import "context"

// # Administrator Data Access

// AdminRepository defines the data access contract for administrator accounts.
type AdminRepository interface {

	/*
		FindByEmail returns the administrator with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Admin: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Admin, error)

	// FindByID returns the administrator with the given id, or apperr.NotFound.
	FindByID(context context.Context, id int64) (*Admin, error)

	/*
		AttachSocialID records the provider subject on an account that has none.
		An account that already carries a social id is left untouched.

		Parameters:
		  - context: context.Context
		  - id: int64
		  - socialID: string
		  - socialType: string (Provider tag)

		Returns:
		  - error: Persistence failures
	*/
	AttachSocialID(context context.Context, id int64, socialID, socialType string) error

	// Create persists a new administrator and fills its ID and CreatedAt.
	// A duplicate email yields apperr.Conflict.
	Create(context context.Context, admin *Admin) error

	// List returns every administrator ordered by id.
	List(context context.Context) ([]*Admin, error)

	// SetActive toggles the active flag, or returns apperr.NotFound.
	SetActive(context context.Context, id int64, active bool) error
}

// # User Data Access

// UserRepository defines the data access contract for shopper accounts.
type UserRepository interface {

	// FindByEmail returns the user with the given email, or apperr.NotFound.
	FindByEmail(context context.Context, email string) (*User, error)

	// FindByID returns the user with the given id, or apperr.NotFound.
	FindByID(context context.Context, id int64) (*User, error)

	/*
		Create persists a brand-new user account and fills its ID and CreatedAt.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on a duplicate email, or persistence failures
	*/
	Create(context context.Context, user *User) error

	// AttachSocialID records the provider subject on an account that has none.
	AttachSocialID(context context.Context, id int64, socialID, socialType string) error
}
