// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the auth schema.
//
// Repositories build SQL from these descriptors instead of repeating
// identifiers inline, so a rename touches one place.
package schema

// # Principal Tables

// AdminTable represents the 'auth.admin' table
type AdminTable struct {
	Table      string
	ID         string
	Email      string
	FullName   string
	SocialID   string
	SocialType string
	Role       string
	IsActive   string
	CreatedAt  string
}

// Admin is the schema definition for auth.admin
var Admin = AdminTable{
	Table:      "auth.admin",
	ID:         "id",
	Email:      "email",
	FullName:   "fullname",
	SocialID:   "socialid",
	SocialType: "socialtype",
	Role:       "role",
	IsActive:   "isactive",
	CreatedAt:  "createdat",
}

// Columns returns all standard column names
func (t AdminTable) Columns() []string {
	return []string{t.ID, t.Email, t.FullName, t.SocialID, t.SocialType, t.Role, t.IsActive, t.CreatedAt}
}

// UserAccountTable represents the 'auth.user_account' table
type UserAccountTable struct {
	Table        string
	ID           string
	Email        string
	FullName     string
	SocialID     string
	SocialType   string
	PasswordHash string
	IsActive     string
	CreatedAt    string
}

// UserAccount is the schema definition for auth.user_account
var UserAccount = UserAccountTable{
	Table:        "auth.user_account",
	ID:           "id",
	Email:        "email",
	FullName:     "fullname",
	SocialID:     "socialid",
	SocialType:   "socialtype",
	PasswordHash: "passwordhash",
	IsActive:     "isactive",
	CreatedAt:    "createdat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{t.ID, t.Email, t.FullName, t.SocialID, t.SocialType, t.PasswordHash, t.IsActive, t.CreatedAt}
}

// # Session Tables

// SessionTable represents one per-kind session table. Both kinds share the
// same shape and differ only in the table name and principal foreign key.
type SessionTable struct {
	Table     string
	ID        string
	Principal string
	ExpiresAt string
	CreatedAt string
}

// AdminSession is the schema definition for auth.admin_session
var AdminSession = SessionTable{
	Table:     "auth.admin_session",
	ID:        "id",
	Principal: "adminid",
	ExpiresAt: "expiresat",
	CreatedAt: "createdat",
}

// UserSession is the schema definition for auth.user_session
var UserSession = SessionTable{
	Table:     "auth.user_session",
	ID:        "id",
	Principal: "userid",
	ExpiresAt: "expiresat",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t SessionTable) Columns() []string {
	return []string{t.ID, t.Principal, t.ExpiresAt, t.CreatedAt}
}
