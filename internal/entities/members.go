package entities

import (
	"time"
)

type MemberRole string

const (
	MemberRoleAdmin   MemberRole = "admin"
	MemberRoleStudent MemberRole = "student"
)

type Member struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string     `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string     `gorm:"size:100" json:"-"`
	FullName     string     `gorm:"size:200" json:"full_name"`
	Phone        string     `gorm:"size:20" json:"phone,omitempty"`
	Address      string     `gorm:"type:text" json:"address,omitempty"`
	Role         MemberRole `gorm:"size:20;default:'student'" json:"role"`

	// Inactive members cannot initiate new issues.
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Auth bookkeeping
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	TokenHash        string     `gorm:"index;size:64" json:"-"` // SHA-256 of the API token
	TokenCreatedAt   *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the member holds the admin role.
func (m *Member) IsAdmin() bool {
	return m.Role == MemberRoleAdmin
}
