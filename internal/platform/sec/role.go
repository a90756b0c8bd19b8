// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "slices"

// # Principal Kinds

// Kind identifies one of the two independent principal populations.
// Each kind has its own token secrets, lifetimes and session table.
type Kind string

const (
	// KindAdmin is a back-office operator.
	KindAdmin Kind = "admin"

	// KindUser is a shopper.
	KindUser Kind = "user"
)

// Valid reports whether k is a known principal kind.
func (k Kind) Valid() bool {
	return k == KindAdmin || k == KindUser
}

// # Administrator Roles

// AdminRole represents the authorization level granted to an administrator.
type AdminRole string

const (
	// Full back-office access, including administrator management
	RoleSuperAdmin AdminRole = "SUPER_ADMIN"

	// Day-to-day back-office operator
	RoleAdmin AdminRole = "ADMIN"
)

// Valid reports whether r is one of the defined roles.
func (r AdminRole) Valid() bool {
	return r.level() > 0
}

// Allowed reports whether r is a member of the allowed set.
// An empty set admits every valid role.
func (r AdminRole) Allowed(allowed ...AdminRole) bool {
	if len(allowed) == 0 {
		return r.Valid()
	}
	return slices.Contains(allowed, r)
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r AdminRole) AtLeast(target AdminRole) bool {
	return r.Valid() && r.level() >= target.level()
}

func (r AdminRole) level() int {
	switch r {
	case RoleSuperAdmin:
		return 20
	case RoleAdmin:
		return 10
	default:
		return 0
	}
}
