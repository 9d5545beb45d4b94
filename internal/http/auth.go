package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"librarium/internal/auth"
	"librarium/internal/entities"
)

// AuthAuditor records authentication events. May be nil.
type AuthAuditor interface {
	LogAuth(memberID uint, action, ipAddr string, success bool)
}

type AuthController struct {
	service  *auth.Service
	sessions *auth.SessionManager
	auditor  AuthAuditor
}

func NewAuthController(service *auth.Service, sessions *auth.SessionManager, auditor AuthAuditor) *AuthController {
	return &AuthController{
		service:  service,
		sessions: sessions,
		auditor:  auditor,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (controller *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	member, err := controller.service.Authenticate(req.Username, req.Password)
	if err != nil {
		if controller.auditor != nil {
			controller.auditor.LogAuth(0, "login", c.ClientIP(), false)
		}
		// One message for every failure mode so the endpoint doesn't leak
		// which usernames exist.
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if controller.sessions != nil {
		if err := controller.sessions.CreateSession(c.Request, member); err != nil {
			respondInternalError(c, err, "create session")
			return
		}
	}

	if controller.auditor != nil {
		controller.auditor.LogAuth(member.ID, "login", c.ClientIP(), true)
	}

	c.JSON(http.StatusOK, gin.H{
		"member":   member,
		"username": member.Username,
		"role":     member.Role,
	})
}

func (controller *AuthController) Logout(c *gin.Context) {
	memberID := GetMemberID(c)

	if controller.sessions != nil {
		if err := controller.sessions.DestroySession(c.Request); err != nil {
			respondInternalError(c, err, "destroy session")
			return
		}
	}

	if controller.auditor != nil {
		controller.auditor.LogAuth(memberID, "logout", c.ClientIP(), true)
	}

	respondSuccess(c, "logged out")
}

type setupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name"`
	Password string `json:"password" binding:"required"`
}

// Setup creates the first admin account. Only available while no member
// accounts exist.
func (controller *AuthController) Setup(c *gin.Context) {
	hasMembers, err := controller.service.HasMembers()
	if err != nil {
		respondInternalError(c, err, "setup check")
		return
	}
	if hasMembers {
		respondError(c, http.StatusForbidden, "setup already completed")
		return
	}

	var req setupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username, email and password are required")
		return
	}

	member, err := controller.service.RegisterMember(&entities.Member{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     entities.MemberRoleAdmin,
	}, req.Password)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if controller.auditor != nil {
		controller.auditor.LogAuth(member.ID, "setup", c.ClientIP(), true)
	}

	respondCreated(c, member)
}

// GenerateToken issues a fresh API token for the authenticated member.
// The plaintext is returned once and never stored.
func (controller *AuthController) GenerateToken(c *gin.Context) {
	memberID := GetMemberID(c)
	if memberID == 0 {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	token, err := controller.service.GenerateToken(memberID)
	if err != nil {
		respondDomainError(c, err, "generate token")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

func (controller *AuthController) RevokeToken(c *gin.Context) {
	memberID := GetMemberID(c)
	if memberID == 0 {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := controller.service.RevokeToken(memberID); err != nil {
		respondInternalError(c, err, "revoke token")
		return
	}

	respondSuccess(c, "token revoked")
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (controller *AuthController) ChangePassword(c *gin.Context) {
	memberID := GetMemberID(c)
	if memberID == 0 {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "old_password and new_password are required")
		return
	}

	if err := controller.service.ChangePassword(memberID, req.OldPassword, req.NewPassword); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	respondSuccess(c, "password changed")
}
