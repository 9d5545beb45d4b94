package auth

import (
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"librarium/internal/config"
	"librarium/internal/entities"
)

// Session data keys
const (
	SessionKeyMemberID = "member_id"
	SessionKeyUsername = "username"
	SessionKeyRole     = "role"
	SessionKeyLoginAt  = "login_at"
)

func init() {
	gob.Register(entities.MemberRole(""))
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager with member-session helpers.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager backed by the
// application's SQLite database. sqlDB is the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// CreateSession starts a session for a member after successful
// authentication. The session token is renewed to prevent fixation.
func (sm *SessionManager) CreateSession(r *http.Request, member *entities.Member) error {
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	// Stored as int to match GetInt retrieval
	sm.Put(r.Context(), SessionKeyMemberID, int(member.ID))
	sm.Put(r.Context(), SessionKeyUsername, member.Username)
	sm.Put(r.Context(), SessionKeyRole, member.Role)
	sm.Put(r.Context(), SessionKeyLoginAt, time.Now())

	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// GetMemberID retrieves the member ID from the session, 0 when absent.
func (sm *SessionManager) GetMemberID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyMemberID))
}

// GetUsername retrieves the username from the session.
func (sm *SessionManager) GetUsername(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyUsername)
}

// GetMemberRole retrieves the member role from the session.
func (sm *SessionManager) GetMemberRole(r *http.Request) entities.MemberRole {
	role, ok := sm.Get(r.Context(), SessionKeyRole).(entities.MemberRole)
	if !ok {
		return ""
	}
	return role
}

// IsAuthenticated returns true if the request carries a valid session.
func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetMemberID(r) != 0
}
