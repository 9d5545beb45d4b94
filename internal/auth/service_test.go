package auth

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"librarium/internal/config"
	"librarium/internal/database/members"
	"librarium/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.Member{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, cfg config.Auth) *Service {
	t.Helper()
	db := setupTestDB(t)
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 10
	}
	return NewService(db, members.NewRepository(db), cfg)
}

func TestService_RegisterMember(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	tests := []struct {
		name     string
		username string
		email    string
		password string
		role     entities.MemberRole
		wantErr  error
	}{
		{
			name:     "valid admin member",
			username: "admin",
			email:    "admin@example.com",
			password: "password12345",
			role:     entities.MemberRoleAdmin,
		},
		{
			name:     "missing username",
			username: "",
			email:    "test@example.com",
			password: "password12345",
			role:     entities.MemberRoleStudent,
			wantErr:  ErrUsernameRequired,
		},
		{
			name:     "missing email",
			username: "testuser",
			email:    "",
			password: "password12345",
			role:     entities.MemberRoleStudent,
			wantErr:  ErrEmailRequired,
		},
		{
			name:     "missing password",
			username: "testuser",
			email:    "test@example.com",
			password: "",
			role:     entities.MemberRoleStudent,
			wantErr:  ErrPasswordRequired,
		},
		{
			name:     "password too short",
			username: "testuser",
			email:    "test@example.com",
			password: "short",
			role:     entities.MemberRoleStudent,
			wantErr:  ErrPasswordTooShort,
		},
		{
			name:     "invalid role",
			username: "testuser",
			email:    "test@example.com",
			password: "password12345",
			role:     entities.MemberRole("librarian"),
			wantErr:  ErrInvalidRole,
		},
		{
			name:     "malformed email",
			username: "testuser",
			email:    "not-an-email",
			password: "password12345",
			role:     entities.MemberRoleStudent,
			wantErr:  ErrEmailInvalid,
		},
		{
			name:     "username with spaces",
			username: "bad name",
			email:    "test@example.com",
			password: "password12345",
			role:     entities.MemberRoleStudent,
			wantErr:  ErrUsernameInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			member, err := svc.RegisterMember(&entities.Member{
				Username: tt.username,
				Email:    tt.email,
				Role:     tt.role,
			}, tt.password)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("RegisterMember() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("RegisterMember() unexpected error = %v", err)
				return
			}
			if member.Username != tt.username {
				t.Errorf("member.Username = %v, want %v", member.Username, tt.username)
			}
			if member.PasswordHash == "" {
				t.Error("member.PasswordHash is empty")
			}
			if member.PasswordHash == tt.password {
				t.Error("password stored in plaintext")
			}
		})
	}
}

func TestService_RegisterMember_Duplicate(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	_, err := svc.RegisterMember(&entities.Member{
		Username: "admin", Email: "admin@example.com", Role: entities.MemberRoleAdmin,
	}, "password12345")
	if err != nil {
		t.Fatalf("failed to create first member: %v", err)
	}

	_, err = svc.RegisterMember(&entities.Member{
		Username: "admin", Email: "other@example.com",
	}, "password12345")
	if !errors.Is(err, members.ErrMemberExists) {
		t.Errorf("expected ErrMemberExists for duplicate username, got %v", err)
	}

	_, err = svc.RegisterMember(&entities.Member{
		Username: "other", Email: "admin@example.com",
	}, "password12345")
	if !errors.Is(err, members.ErrMemberExists) {
		t.Errorf("expected ErrMemberExists for duplicate email, got %v", err)
	}
}

func TestService_Authenticate(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	_, err := svc.RegisterMember(&entities.Member{
		Username: "testuser", Email: "test@example.com",
	}, "password12345")
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{
			name:     "valid credentials with username",
			username: "testuser",
			password: "password12345",
		},
		{
			name:     "valid credentials with email",
			username: "test@example.com",
			password: "password12345",
		},
		{
			name:     "wrong password",
			username: "testuser",
			password: "wrongpassword",
			wantErr:  ErrInvalidPassword,
		},
		{
			name:     "unknown member",
			username: "nobody",
			password: "password12345",
			wantErr:  members.ErrMemberNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			member, err := svc.Authenticate(tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr == nil && member == nil {
				t.Error("Authenticate() returned nil member for valid credentials")
			}
		})
	}
}

func TestService_Authenticate_Lockout(t *testing.T) {
	svc := newTestService(t, config.Auth{
		MaxLoginAttempts: 3,
		LockoutDuration:  time.Hour,
	})

	_, err := svc.RegisterMember(&entities.Member{
		Username: "testuser", Email: "test@example.com",
	}, "password12345")
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err = svc.Authenticate("testuser", "wrongpassword")
		if !errors.Is(err, ErrInvalidPassword) {
			t.Fatalf("attempt %d: error = %v, want ErrInvalidPassword", i+1, err)
		}
	}

	// Correct password no longer works while locked
	_, err = svc.Authenticate("testuser", "password12345")
	if !errors.Is(err, ErrAccountLocked) {
		t.Errorf("Authenticate(locked) error = %v, want ErrAccountLocked", err)
	}
}

func TestService_DeactivatedMember(t *testing.T) {
	db := setupTestDB(t)
	repo := members.NewRepository(db)
	svc := NewService(db, repo, config.Auth{BcryptCost: 10})

	member, err := svc.RegisterMember(&entities.Member{
		Username: "testuser", Email: "test@example.com",
	}, "password12345")
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	token, err := svc.GenerateToken(member.ID)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if err := repo.SetActive(member.ID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	_, err = svc.Authenticate("testuser", "password12345")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Errorf("Authenticate(deactivated) error = %v, want ErrAccountDisabled", err)
	}

	// The token issued while active dies with the account.
	_, err = svc.ValidateToken(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken(deactivated) error = %v, want ErrInvalidToken", err)
	}

	// Reactivation restores both paths.
	if err := repo.SetActive(member.ID, true); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if _, err := svc.Authenticate("testuser", "password12345"); err != nil {
		t.Errorf("Authenticate(reactivated) error = %v", err)
	}
	if _, err := svc.ValidateToken(token); err != nil {
		t.Errorf("ValidateToken(reactivated) error = %v", err)
	}
}

func TestService_TokenOperations(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	member, err := svc.RegisterMember(&entities.Member{
		Username: "testuser", Email: "test@example.com",
	}, "password12345")
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	token, err := svc.GenerateToken(member.ID)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64", len(token))
	}

	validated, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if validated.ID != member.ID {
		t.Errorf("ValidateToken() member.ID = %d, want %d", validated.ID, member.ID)
	}

	_, err = svc.ValidateToken("invalid-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken(invalid) error = %v, want ErrInvalidToken", err)
	}

	if err := svc.RevokeToken(member.ID); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}

	_, err = svc.ValidateToken(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken(revoked) error = %v, want ErrInvalidToken", err)
	}
}

func TestService_GenerateToken_UnknownMember(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	_, err := svc.GenerateToken(999)
	if !errors.Is(err, members.ErrMemberNotFound) {
		t.Errorf("GenerateToken(999) error = %v, want ErrMemberNotFound", err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	member, err := svc.RegisterMember(&entities.Member{
		Username: "testuser", Email: "test@example.com",
	}, "oldpassword12")
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	err = svc.ChangePassword(member.ID, "wrongpassword", "newpassword12")
	if !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("ChangePassword(wrong old) error = %v, want ErrInvalidPassword", err)
	}

	if err := svc.ChangePassword(member.ID, "oldpassword12", "newpassword12"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Authenticate("testuser", "newpassword12"); err != nil {
		t.Errorf("Authenticate(new password) error = %v", err)
	}

	_, err = svc.Authenticate("testuser", "oldpassword12")
	if !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("Authenticate(old password) error = %v, want ErrInvalidPassword", err)
	}
}

func TestService_HasMembers(t *testing.T) {
	svc := newTestService(t, config.Auth{})

	hasMembers, err := svc.HasMembers()
	if err != nil {
		t.Fatalf("HasMembers() error = %v", err)
	}
	if hasMembers {
		t.Error("HasMembers() = true, want false for empty DB")
	}

	_, err = svc.RegisterMember(&entities.Member{
		Username: "testuser", Email: "test@example.com",
	}, "password12345")
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	hasMembers, err = svc.HasMembers()
	if err != nil {
		t.Fatalf("HasMembers() after create error = %v", err)
	}
	if !hasMembers {
		t.Error("HasMembers() = false, want true after creating member")
	}
}

func TestService_IsAuthEnabled(t *testing.T) {
	if newTestService(t, config.Auth{Mode: config.AuthModeNone}).IsAuthEnabled() {
		t.Error("IsAuthEnabled() = true for AuthModeNone")
	}
	if !newTestService(t, config.Auth{Mode: config.AuthModeLocal}).IsAuthEnabled() {
		t.Error("IsAuthEnabled() = false for AuthModeLocal")
	}
}
