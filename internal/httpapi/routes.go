package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/rbac"
)

// Register wires console routes. authMW must verify the bearer token.
func Register(r *gin.Engine, h Handlers, authMW gin.HandlerFunc) {
	r.GET("/healthz", Healthz)
	if h.DevTokens {
		r.POST("/auth/token", h.IssueToken)
	}

	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.GET("/me", h.Me)

	view := v1.Group("")
	view.Use(rbac.Chain(rbac.ViewRoles()...)...)
	{
		view.GET("/console", h.ConsoleStatus)
		view.POST("/console/dashboard", h.OpenDashboard)
		view.DELETE("/console/dashboard", h.CloseDashboard)
		view.PUT("/console/selection", h.Select)
		view.DELETE("/console/selection", h.ClearSelection)
		view.POST("/console/calls", h.OpenCallsView)
		view.DELETE("/console/calls", h.CloseCallsView)

		view.GET("/conversations", h.ListConversations)
		view.GET("/thread", h.Thread)
		view.GET("/leads", h.ListLeads)
		view.GET("/call-status", h.CallStatus)
		view.GET("/calls", h.ListCalls)
		view.GET("/reports/dashboard", h.DashboardReport)
	}

	cmd := v1.Group("")
	cmd.Use(rbac.Chain(rbac.CommandRoles()...)...)
	{
		cmd.POST("/messages", h.SendMessage)
		cmd.POST("/leads/upload", h.UploadLeads)
		cmd.POST("/leads/:lead_id/call", h.StartCall)
	}

	v1.GET("/audit", append(rbac.Chain(rbac.RoleOwner), h.RecentAudit)...)
}
