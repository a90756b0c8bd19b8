// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/stella/internal/platform/sec"
)

/*
TestAdminRole_Allowed verifies set-membership semantics of the role gate.
*/
func TestAdminRole_Allowed(t *testing.T) {
	tests := []struct {
		name    string
		role    sec.AdminRole
		allowed []sec.AdminRole
		want    bool
	}{
		{"any_role_admin", sec.RoleAdmin, nil, true},
		{"any_role_super", sec.RoleSuperAdmin, nil, true},
		{"any_role_unknown", sec.AdminRole("GUEST"), nil, false},
		{"super_only_admin", sec.RoleAdmin, []sec.AdminRole{sec.RoleSuperAdmin}, false},
		{"super_only_super", sec.RoleSuperAdmin, []sec.AdminRole{sec.RoleSuperAdmin}, true},
		{"admin_only_super", sec.RoleSuperAdmin, []sec.AdminRole{sec.RoleAdmin}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Allowed(tt.allowed...))
		})
	}
}

/*
TestAdminRole_AtLeast verifies the role hierarchy.
*/
func TestAdminRole_AtLeast(t *testing.T) {
	assert.True(t, sec.RoleSuperAdmin.AtLeast(sec.RoleAdmin))
	assert.True(t, sec.RoleAdmin.AtLeast(sec.RoleAdmin))
	assert.False(t, sec.RoleAdmin.AtLeast(sec.RoleSuperAdmin))
	assert.False(t, sec.AdminRole("").AtLeast(sec.AdminRole("GUEST")))
}

/*
TestPasswordHash verifies bcrypt hashing and comparison.
*/
func TestPasswordHash(t *testing.T) {
	hash, err := sec.HashPassword("correct horse")
	assert.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, sec.CheckPasswordHash("correct horse", hash))
	assert.False(t, sec.CheckPasswordHash("wrong horse", hash))
	assert.False(t, sec.CheckPasswordHash("correct horse", "not-a-hash"))
}
