package http

import (
	"librarium/internal/audit"
	"librarium/internal/auth"
	"librarium/internal/config"
	"librarium/internal/database"
	"librarium/internal/reports"
	"librarium/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed to create
// the HTTP router. This replaces a long parameter list in NewRouter.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Catalog  CatalogStore
	Members  MemberStore
	Ledger   Ledger
	Fines    FineStore
	Reports  *reports.Service
	Auditor  *audit.Service

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth
	CSRFSecret     []byte

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}
