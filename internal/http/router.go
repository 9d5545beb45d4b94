package http

import (
	"github.com/gin-gonic/gin"

	"librarium/internal/auth"
	"librarium/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CSRF must run before session so session context survives CSRF's
	// request replacement.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies, cfg.AuthService))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyMemberID, auth.DefaultMemberID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	// Create controllers. The auditor is assigned through typed locals so a
	// nil *audit.Service never hides inside a non-nil interface.
	var catalogAuditor CatalogAuditor
	var circulationAuditor CirculationAuditor
	var paymentAuditor PaymentAuditor
	var authAuditor AuthAuditor
	if cfg.Auditor != nil {
		catalogAuditor = cfg.Auditor
		circulationAuditor = cfg.Auditor
		paymentAuditor = cfg.Auditor
		authAuditor = cfg.Auditor
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.Catalog, catalogAuditor)

	var registrar MemberRegistrar
	if cfg.AuthService != nil {
		registrar = cfg.AuthService
	}
	membersController := NewMembersController(cfg.Members, registrar)

	transactionsController := NewTransactionsController(cfg.Ledger, circulationAuditor)
	finesController := NewFinesController(cfg.Fines, paymentAuditor)
	reportsController := NewReportsController(cfg.Reports)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Auth endpoints
	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		authController := NewAuthController(cfg.AuthService, cfg.SessionManager, authAuditor)
		router.POST("/login", authController.Login)
		router.POST("/logout", authController.Logout)
		router.POST("/setup", authController.Setup)
		router.POST("/api/auth/token", authController.GenerateToken)
		router.DELETE("/api/auth/token", authController.RevokeToken)
		router.POST("/api/auth/password", authController.ChangePassword)
	}

	// Catalog endpoints
	router.GET("/api/books", booksController.GetAllBooks)
	router.GET("/api/books/search", booksController.SearchBooks)
	router.GET("/api/books/:id", booksController.GetBook)

	// Membership endpoints
	router.GET("/api/members", membersController.GetAllMembers)
	router.GET("/api/members/search", membersController.SearchMembers)
	router.GET("/api/members/:id", membersController.GetMember)
	router.GET("/api/members/:id/fines", finesController.ListMemberFines)
	router.GET("/api/members/:id/summary", reportsController.MemberSummary)

	// Circulation endpoints
	router.POST("/api/transactions", transactionsController.IssueBook)
	router.GET("/api/transactions", transactionsController.ListTransactions)
	router.GET("/api/transactions/overdue", transactionsController.ListOverdue)
	router.GET("/api/transactions/:id", transactionsController.GetTransaction)
	router.GET("/api/transactions/ref/:reference", transactionsController.GetTransactionByReference)
	router.POST("/api/transactions/:id/return", transactionsController.ReturnBook)
	router.POST("/api/transactions/:id/renew", transactionsController.RenewLoan)
	router.GET("/api/transactions/:id/fine", finesController.GetFineByTransaction)

	// Fine endpoints
	router.GET("/api/fines/:id", finesController.GetFine)
	router.POST("/api/fines/:id/payments", finesController.RecordPayment)

	// Report endpoints
	router.GET("/api/reports/dashboard", reportsController.Dashboard)
	router.GET("/api/reports/available", reportsController.AvailableBooks)

	// Admin endpoints: catalog mutations, member management, audit trail
	// and manual task runs.
	admin := router.Group("/api")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireRole(entities.MemberRoleAdmin))
	}
	admin.POST("/books", booksController.CreateBook)
	admin.PATCH("/books/:id/copies", booksController.UpdateCopies)
	admin.PATCH("/books/:id/active", booksController.SetActive)
	admin.POST("/members", membersController.CreateMember)
	admin.PATCH("/members/:id/active", membersController.SetActive)
	// Cross-member fine totals expose every member's balance.
	admin.GET("/reports/fines", reportsController.FineTotals)

	if cfg.Auditor != nil {
		auditController := NewAuditController(cfg.Auditor)
		admin.GET("/audit", auditController.ListEvents)
	}

	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		admin.GET("/tasks/types", tasksController.ListTaskTypes)
		admin.GET("/tasks/:id", tasksController.GetTaskStatus)
		admin.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
