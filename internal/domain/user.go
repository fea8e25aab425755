package domain

import (
	"strings"
	"time"
)

// UserStatus mirrors the lifecycle states reported by the user directory.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusDeleted   UserStatus = "DELETED"
)

// Identity is the directory's view of an account. It is fetched per
// operation and never cached beyond it.
type Identity struct {
	ID                    int64      `json:"id"`
	Email                 string     `json:"email"`
	Username              string     `json:"username"`
	FirstName             string     `json:"firstName"`
	LastName              string     `json:"lastName"`
	FullName              string     `json:"fullName"`
	Status                UserStatus `json:"status"`
	EmailVerified         bool       `json:"emailVerified"`
	AccountNonExpired     bool       `json:"accountNonExpired"`
	AccountNonLocked      bool       `json:"accountNonLocked"`
	CredentialsNonExpired bool       `json:"credentialsNonExpired"`
	Enabled               bool       `json:"enabled"`
	Roles                 []string   `json:"roles"`
	LastLoginAt           *time.Time `json:"lastLoginAt,omitempty"`
	PasswordHash          string     `json:"-"`
}

// Active reports whether the account is usable.
func (i *Identity) Active() bool {
	return strings.EqualFold(string(i.Status), string(UserStatusActive)) && i.Enabled
}

// DisplayName falls back to the username when no full name is known.
func (i *Identity) DisplayName() string {
	if i.FullName != "" {
		return i.FullName
	}
	if name := strings.TrimSpace(i.FirstName + " " + i.LastName); name != "" {
		return name
	}
	return i.Username
}
