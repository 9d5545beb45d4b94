// Package members provides database operations for member management.
//
// The ledger treats this store as read-mostly: eligibility checks on every
// issue, occasional admin mutations.
package members

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"librarium/internal/entities"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrMemberExists   = errors.New("member already exists")
)

// Repository handles all member database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new members repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateMember registers a new member. Username and email are unique.
func (r *Repository) CreateMember(member *entities.Member) (*entities.Member, error) {
	member.Username = strings.TrimSpace(member.Username)
	if member.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if member.Role == "" {
		member.Role = entities.MemberRoleStudent
	}
	member.IsActive = true

	var existing entities.Member
	err := r.db.Where("username = ? OR email = ?", member.Username, member.Email).First(&existing).Error
	if err == nil {
		return nil, ErrMemberExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing member: %w", err)
	}

	if err := r.db.Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// GetMemberByID retrieves a member by ID.
func (r *Repository) GetMemberByID(id uint) (*entities.Member, error) {
	var member entities.Member
	err := r.db.First(&member, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// GetMemberByUsername retrieves a member by username.
func (r *Repository) GetMemberByUsername(username string) (*entities.Member, error) {
	var member entities.Member
	err := r.db.Where("username = ?", username).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// IsEligible reports whether the member may initiate new issues.
func (r *Repository) IsEligible(id uint) (bool, error) {
	member, err := r.GetMemberByID(id)
	if err != nil {
		return false, err
	}
	return member.IsActive, nil
}

// ListMembers returns all members ordered by full name.
func (r *Repository) ListMembers() ([]entities.Member, error) {
	var members []entities.Member
	err := r.db.Order("full_name ASC").Find(&members).Error
	return members, err
}

// SearchMembers matches full name, username or email substrings.
func (r *Repository) SearchMembers(query string) ([]entities.Member, error) {
	var members []entities.Member
	pattern := "%" + query + "%"
	err := r.db.
		Where("LOWER(full_name) LIKE LOWER(?) OR LOWER(username) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)",
			pattern, pattern, pattern).
		Order("full_name ASC").
		Find(&members).Error
	return members, err
}

// SetActive toggles whether the member may initiate new issues.
// Open leases survive deactivation; the member can still return books.
func (r *Repository) SetActive(id uint, active bool) error {
	res := r.db.Model(&entities.Member{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}
