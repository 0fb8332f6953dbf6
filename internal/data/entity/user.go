package entity

type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	Base
	Username    string   `db:"username"`
	Email       string   `db:"email"`
	FirstName   string   `db:"first_name"`
	LastName    string   `db:"last_name"`
	Bio         *string  `db:"bio"`
	Role        UserRole `db:"role"`
	IsStaff     bool     `db:"is_staff"`
	IsSuperuser bool     `db:"is_superuser"`
	IsActive    bool     `db:"is_active"`
}

// BeforeSave normalizes derived flags. Every save path must call it:
// accounts are always active and staff status follows the admin role.
func (u *User) BeforeSave() {
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.IsActive = true
	u.IsStaff = u.Role == RoleAdmin || u.IsSuperuser
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsSuperuser
}

func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}
