// Package httpapi exposes the operator console over HTTP.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/audit"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/auth"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/console"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/leads"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/rbac"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/reporting"
	"github.com/kimchiprasadyadav-beep/callharvey/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse input, call the console session, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Registry *console.Registry
	Leads    *leads.Directory
	Reports  *reporting.Service
	// Audit is optional; GET /v1/audit answers 501 without it.
	Audit audit.Lister

	// DevTokens enables POST /auth/token. Never set in production.
	DevTokens bool
	Now       func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// session resolves the caller's console session and marks it used.
func (h Handlers) session(c *gin.Context) (*console.Session, bool) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil || id.WorkspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return nil, false
	}
	return h.Registry.Session(id.WorkspaceID, id.OperatorID), true
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Auth ---

type tokenRequest struct {
	OperatorID  string `json:"operator_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// IssueToken mints a token pair for local development.
//
// NOTE: there is no credential check. Routes only mount it outside production.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil || !h.DevTokens {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.OperatorID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "operator_id, workspace_id, role required"})
		return
	}
	if !rbac.IsKnownRole(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), auth.Identity{
		OperatorID:  req.OperatorID,
		WorkspaceID: req.WorkspaceID,
		Role:        req.Role,
	})
	if err != nil {
		logger.FromGin(c).Error("token issuance failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h Handlers) Me(c *gin.Context) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	c.JSON(http.StatusOK, id)
}

// --- Audit ---

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

func (h Handlers) RecentAudit(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "audit not configured"})
		return
	}
	wid, err := auth.WorkspaceID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	limit := defaultAuditLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxAuditLimit)
	}
	events, err := h.Audit.Recent(c.Request.Context(), wid, limit)
	if err != nil {
		logger.FromGin(c).Error("audit lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
