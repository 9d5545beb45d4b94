package auth

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"gorm.io/gorm"

	"librarium/internal/config"
	"librarium/internal/database/members"
	"librarium/internal/entities"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// Service handles credential management for library members.
type Service struct {
	db      *gorm.DB
	members *members.Repository
	config  config.Auth
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, membersRepo *members.Repository, cfg config.Auth) *Service {
	return &Service{
		db:      db,
		members: membersRepo,
		config:  cfg,
	}
}

// RegisterMember creates a member account with password credentials.
func (s *Service) RegisterMember(member *entities.Member, password string) (*entities.Member, error) {
	if member.Username == "" {
		return nil, ErrUsernameRequired
	}
	if member.Email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !usernamePattern.MatchString(member.Username) {
		return nil, ErrUsernameInvalid
	}
	// RFC 5321 caps addresses at 254 bytes
	if len(member.Email) > 254 || !emailPattern.MatchString(member.Email) {
		return nil, ErrEmailInvalid
	}

	switch member.Role {
	case entities.MemberRoleAdmin, entities.MemberRoleStudent, "":
	default:
		return nil, ErrInvalidRole
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}
	member.PasswordHash = passwordHash

	return s.members.CreateMember(member)
}

// Authenticate validates credentials, applying the lockout policy on
// repeated failures. The username argument also matches the email column.
func (s *Service) Authenticate(username, password string) (*entities.Member, error) {
	var member entities.Member
	err := s.db.Where("username = ? OR email = ?", username, username).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, members.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}

	if !member.IsActive {
		return nil, ErrAccountDisabled
	}

	if member.LockedUntil != nil && time.Now().Before(*member.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, member.PasswordHash); err != nil {
		s.recordFailedLogin(&member)
		return nil, err
	}

	now := time.Now()
	s.db.Model(&member).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})

	return &member, nil
}

func (s *Service) recordFailedLogin(member *entities.Member) {
	member.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": member.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if member.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		updates["locked_until"] = time.Now().Add(lockoutDuration)
	}

	s.db.Model(member).Updates(updates)
}

// GetMemberByID retrieves a member by their ID.
func (s *Service) GetMemberByID(id uint) (*entities.Member, error) {
	return s.members.GetMemberByID(id)
}

// ValidateToken checks a plaintext API token and returns the owning member.
// Returns ErrTokenExpired when the token is past its configured expiry.
func (s *Service) ValidateToken(token string) (*entities.Member, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var member entities.Member
	err := s.db.Where("token_hash = ?", HashToken(token)).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// A deactivated account's token stops working immediately.
	if !member.IsActive {
		return nil, ErrInvalidToken
	}

	if s.config.TokenExpiry > 0 && member.TokenCreatedAt != nil {
		if time.Since(*member.TokenCreatedAt) > s.config.TokenExpiry {
			return nil, ErrTokenExpired
		}
	}

	return &member, nil
}

// GenerateToken creates a new API token for a member and returns the
// plaintext once. Only the hash is stored.
func (s *Service) GenerateToken(memberID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	result := s.db.Model(&entities.Member{}).Where("id = ?", memberID).Updates(map[string]any{
		"token_hash":       hash,
		"token_created_at": now,
	})
	if result.Error != nil {
		return "", fmt.Errorf("failed to save token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", members.ErrMemberNotFound
	}

	return plaintext, nil
}

// RevokeToken removes a member's API token.
func (s *Service) RevokeToken(memberID uint) error {
	result := s.db.Model(&entities.Member{}).Where("id = ?", memberID).Updates(map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke token: %w", result.Error)
	}
	return nil
}

// ChangePassword updates a member's password after verifying the old one.
func (s *Service) ChangePassword(memberID uint, oldPassword, newPassword string) error {
	member, err := s.members.GetMemberByID(memberID)
	if err != nil {
		return err
	}

	if err := CheckPassword(oldPassword, member.PasswordHash); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}

	return s.db.Model(member).Update("password_hash", newHash).Error
}

// HasMembers reports whether any member accounts exist yet. Used by the
// first-run setup flow.
func (s *Service) HasMembers() (bool, error) {
	var count int64
	err := s.db.Model(&entities.Member{}).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsAuthEnabled returns true if authentication is required.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}

// GetAuthMode returns the configured authentication mode.
func (s *Service) GetAuthMode() config.AuthMode {
	return s.config.Mode
}
