package main

import (
	"github.com/gin-gonic/gin"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/auth"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/config"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/httpapi"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/reporting"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, cfg config.Config, a *app, m *auth.Manager) {
	httpapi.Register(r, httpapi.Handlers{
		Auth:      m,
		Registry:  a.registry,
		Leads:     a.leads,
		Reports:   reporting.NewService(),
		Audit:     a.audit,
		DevTokens: !cfg.IsProduction(),
	}, auth.RequireAccessToken(m))
}
