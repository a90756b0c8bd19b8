// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package identityfake provides in-memory account repositories for tests.
// They honour the same email uniqueness and not-found contracts as the
// PostgreSQL repositories.
package identityfake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/stella/internal/identity"
	"github.com/taibuivan/stella/internal/platform/apperr"
)

// # Administrators

// Admins is an in-memory [identity.AdminRepository].
type Admins struct {
	mu     sync.Mutex
	byID   map[int64]*identity.Admin
	nextID int64
}

// NewAdmins returns an empty repository.
func NewAdmins() *Admins {
	return &Admins{byID: make(map[int64]*identity.Admin)}
}

// FindByEmail implements [identity.AdminRepository].
func (repository *Admins) FindByEmail(_ context.Context, email string) (*identity.Admin, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, admin := range repository.byID {
		if admin.Email == email {
			clone := *admin
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Admin")
}

// FindByID implements [identity.AdminRepository].
func (repository *Admins) FindByID(_ context.Context, id int64) (*identity.Admin, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	admin, ok := repository.byID[id]
	if !ok {
		return nil, apperr.NotFound("Admin")
	}
	clone := *admin
	return &clone, nil
}

// AttachSocialID implements [identity.AdminRepository].
func (repository *Admins) AttachSocialID(_ context.Context, id int64, socialID, socialType string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if admin, ok := repository.byID[id]; ok && admin.SocialID == nil {
		admin.SocialID = &socialID
		admin.SocialType = socialType
	}
	return nil
}

// Create implements [identity.AdminRepository].
func (repository *Admins) Create(_ context.Context, admin *identity.Admin) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.byID {
		if existing.Email == admin.Email {
			return apperr.Conflict("An admin with this email already exists")
		}
	}

	repository.nextID++
	admin.ID = repository.nextID
	admin.CreatedAt = time.Now().UTC()

	clone := *admin
	repository.byID[admin.ID] = &clone
	return nil
}

// List implements [identity.AdminRepository].
func (repository *Admins) List(_ context.Context) ([]*identity.Admin, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	admins := make([]*identity.Admin, 0, len(repository.byID))
	for _, admin := range repository.byID {
		clone := *admin
		admins = append(admins, &clone)
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].ID < admins[j].ID })
	return admins, nil
}

// SetActive implements [identity.AdminRepository].
func (repository *Admins) SetActive(_ context.Context, id int64, active bool) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	admin, ok := repository.byID[id]
	if !ok {
		return apperr.NotFound("Admin")
	}
	admin.IsActive = active
	return nil
}

// Lookup returns a copy of the stored administrator.
func (repository *Admins) Lookup(id int64) (identity.Admin, bool) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	admin, ok := repository.byID[id]
	if !ok {
		return identity.Admin{}, false
	}
	return *admin, true
}

// # Users

// Users is an in-memory [identity.UserRepository].
type Users struct {
	mu     sync.Mutex
	byID   map[int64]*identity.User
	nextID int64
}

// NewUsers returns an empty repository.
func NewUsers() *Users {
	return &Users{byID: make(map[int64]*identity.User)}
}

// FindByEmail implements [identity.UserRepository].
func (repository *Users) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, user := range repository.byID {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

// FindByID implements [identity.UserRepository].
func (repository *Users) FindByID(_ context.Context, id int64) (*identity.User, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.byID[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

// Create implements [identity.UserRepository].
func (repository *Users) Create(_ context.Context, user *identity.User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, existing := range repository.byID {
		if existing.Email == user.Email {
			return apperr.Conflict("An account with this email already exists")
		}
	}

	repository.nextID++
	user.ID = repository.nextID
	user.CreatedAt = time.Now().UTC()

	clone := *user
	repository.byID[user.ID] = &clone
	return nil
}

// AttachSocialID implements [identity.UserRepository].
func (repository *Users) AttachSocialID(_ context.Context, id int64, socialID, socialType string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if user, ok := repository.byID[id]; ok && user.SocialID == nil {
		user.SocialID = &socialID
		user.SocialType = socialType
	}
	return nil
}

// SetActive toggles the active flag; it exists only on the fake.
func (repository *Users) SetActive(id int64, active bool) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if user, ok := repository.byID[id]; ok {
		user.IsActive = active
	}
}

// Count returns the number of stored accounts.
func (repository *Users) Count() int {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return len(repository.byID)
}

// Lookup returns a copy of the stored user.
func (repository *Users) Lookup(id int64) (identity.User, bool) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, ok := repository.byID[id]
	if !ok {
		return identity.User{}, false
	}
	return *user, true
}
