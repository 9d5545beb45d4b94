package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"librarium/internal/auth"
	"librarium/internal/database/books"
	"librarium/internal/database/members"
	"librarium/internal/entities"
	"librarium/internal/fines"
	"librarium/internal/ledger"
)

// GetMemberID extracts the authenticated member's ID from the Gin context.
// Returns 0 when auth is disabled or no member is authenticated.
func GetMemberID(c *gin.Context) uint {
	return auth.GetMemberID(c)
}

// restrictedTo reports whether the caller may only see their own records.
// Admins and unauthenticated deployments see everything; everyone else is
// limited to the returned member ID.
func restrictedTo(c *gin.Context) (uint, bool) {
	if auth.GetAuthType(c) == auth.AuthTypeNone {
		return 0, false
	}
	if auth.GetMemberRole(c) == entities.MemberRoleAdmin {
		return 0, false
	}
	return auth.GetMemberID(c), true
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 without exposing
// the cause to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondDomainError maps circulation errors onto HTTP status codes.
// Unknown errors become a logged 500.
func respondDomainError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, books.ErrBookNotFound),
		errors.Is(err, members.ErrMemberNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, fines.ErrFineNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, books.ErrDuplicateISBN),
		errors.Is(err, books.ErrInsufficientCopies),
		errors.Is(err, books.ErrCopiesOutstanding),
		errors.Is(err, members.ErrMemberExists),
		errors.Is(err, ledger.ErrBookUnavailable),
		errors.Is(err, ledger.ErrDuplicateLease),
		errors.Is(err, ledger.ErrAlreadyReturned),
		errors.Is(err, fines.ErrOverPayment):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrIneligibleMember):
		respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrInvalidLoanPeriod),
		errors.Is(err, fines.ErrInvalidPaymentAmount):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL
// parameters. Responds with a 400 and returns false on failure.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseQueryUint extracts an optional unsigned integer query parameter,
// returning 0 when absent.
func parseQueryUint(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parsePagination extracts limit/offset query parameters with defaults.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
