package models

import (
	"time"
)

// User is an identity record. Users are soft-deleted and never removed.
type User struct {
	ID           string
	Username     string
	Email        *string
	PasswordHash string
	FullName     *string
	AvatarURL    *string
	IsActive     bool
	IsAdmin      bool
	RoleID       *string
	RoleName     *string // joined from roles, nil when no role is assigned
	CreatedBy    *string
	UpdatedBy    *string
	DeletedBy    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}

// HasRole reports whether the user is assigned a role.
func (u *User) HasRole() bool {
	return u.RoleID != nil && u.RoleName != nil
}

// UserListFilter narrows admin user listings.
type UserListFilter struct {
	Search   string
	RoleID   *string
	IsActive *bool
	Limit    int
	Offset   int
}

// Gender values accepted on user profiles
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// UserProfile holds optional personal details, one row per user.
type UserProfile struct {
	ID          string
	UserID      string
	Phone       *string
	Address     *string
	Bio         *string
	DateOfBirth *time.Time
	Gender      *string
	Preferences *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
