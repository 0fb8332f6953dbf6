package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserBeforeSave(t *testing.T) {
	tests := []struct {
		name      string
		user      User
		wantStaff bool
	}{
		{"admin becomes staff", User{Role: RoleAdmin}, true},
		{"moderator is not staff", User{Role: RoleModerator}, false},
		{"user is not staff", User{Role: RoleUser}, false},
		{"demoted admin loses staff", User{Role: RoleUser, IsStaff: true}, false},
		{"superuser stays staff", User{Role: RoleUser, IsSuperuser: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			u.BeforeSave()
			assert.Equal(t, tt.wantStaff, u.IsStaff)
			assert.True(t, u.IsActive)
		})
	}
}

func TestUserBeforeSaveDefaultsRole(t *testing.T) {
	u := User{}
	u.BeforeSave()
	assert.Equal(t, RoleUser, u.Role)
	assert.False(t, u.IsAdmin())
}

func TestUserRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleModerator.Valid())
	assert.True(t, RoleUser.Valid())
	assert.False(t, UserRole("superuser").Valid())
}
