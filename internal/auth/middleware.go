package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"librarium/internal/config"
	"librarium/internal/entities"
)

// Context keys for the authenticated member
const (
	ContextKeyMemberID = "auth_member_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type"
)

// AuthType indicates how the member was authenticated.
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// DefaultMemberID is injected when authentication is disabled.
const DefaultMemberID = uint(0)

// Middleware authenticates HTTP requests via session cookie or Bearer token.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	publicPaths    map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	publicPaths := map[string]bool{
		"/health": true,
		"/ping":   true,
		"/login":  true,
		"/setup":  true,
	}

	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
		publicPaths:    publicPaths,
	}
}

// Handler returns a Gin handler that authenticates every request.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeNone {
		return m.noAuthHandler()
	}
	return m.authHandler()
}

func (m *Middleware) noAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyMemberID, DefaultMemberID)
		c.Set(ContextKeyAuthType, AuthTypeNone)
		c.Next()
	}
}

func (m *Middleware) authHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.publicPaths[c.Request.URL.Path] {
			c.Set(ContextKeyMemberID, DefaultMemberID)
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		// Bearer token takes precedence for API clients
		if member := m.tryBearerAuth(c); member != nil {
			m.setMemberContext(c, member, AuthTypeBearer)
			c.Next()
			return
		}

		if member := m.trySessionAuth(c); member != nil {
			m.setMemberContext(c, member, AuthTypeSession)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
	}
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.Member {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}

	member, err := m.service.ValidateToken(parts[1])
	if err != nil {
		return nil
	}
	return member
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.Member {
	if m.sessionManager == nil {
		return nil
	}

	memberID := m.sessionManager.GetMemberID(c.Request)
	if memberID == 0 {
		return nil
	}

	member, err := m.service.GetMemberByID(memberID)
	if err != nil || !member.IsActive {
		return nil
	}
	return member
}

func (m *Middleware) setMemberContext(c *gin.Context, member *entities.Member, authType AuthType) {
	c.Set(ContextKeyMemberID, member.ID)
	c.Set(ContextKeyUsername, member.Username)
	c.Set(ContextKeyRole, member.Role)
	c.Set(ContextKeyAuthType, authType)
}

// RequireRole returns a middleware that only passes members holding one of
// the given roles. With auth disabled the check is skipped.
func (m *Middleware) RequireRole(roles ...entities.MemberRole) gin.HandlerFunc {
	roleSet := make(map[entities.MemberRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if m.config.Mode == config.AuthModeNone {
			c.Next()
			return
		}

		if !roleSet[GetMemberRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// GetMemberID retrieves the authenticated member's ID from the context.
// Returns DefaultMemberID (0) when unauthenticated or auth is disabled.
func GetMemberID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyMemberID); exists {
		if memberID, ok := id.(uint); ok {
			return memberID
		}
	}
	return DefaultMemberID
}

// GetUsername retrieves the authenticated member's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetMemberRole retrieves the authenticated member's role from the context.
func GetMemberRole(c *gin.Context) entities.MemberRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.MemberRole); ok {
			return role
		}
	}
	return ""
}

// GetAuthType retrieves the authentication method used for this request.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
