package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/actions"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/audit"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/backend"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/config"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/console"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/leads"
	"github.com/kimchiprasadyadav-beep/callharvey/pkg/logger"
	"github.com/kimchiprasadyadav-beep/callharvey/pkg/utils"
)

const leadsLoadTimeout = 10 * time.Second

// app holds the long-lived console dependencies.
type app struct {
	client   *backend.Client
	leads    *leads.Directory
	audit    audit.Lister
	registry *console.Registry

	db  *sqlx.DB
	rdb *redis.Client
}

func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{
		client: backend.NewClient(
			backend.WithBaseURL(cfg.Backend.BaseURL),
			backend.WithTimeout(cfg.Backend.Timeout),
		),
		leads: leads.NewDirectory(),
	}

	loadCtx, cancel := context.WithTimeout(ctx, leadsLoadTimeout)
	defer cancel()
	if err := a.leads.Load(loadCtx, a.client); err != nil {
		// The backend may still be starting; uploads fill the directory later.
		log.Warn("initial lead load failed", "err", err)
	} else {
		log.Info("leads loaded", "count", a.leads.Len())
	}

	var repo interface {
		audit.Repository
		audit.Lister
	} = audit.NewMemoryRepo()
	if cfg.DBEnabled() {
		db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.db = db
		pg := audit.NewPostgresRepo(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("audit schema: %w", err)
		}
		repo = pg
	}
	a.audit = repo

	var limiter actions.CallLimiter = actions.NoLimit{}
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.rdb = rdb
		limiter = actions.NewRedisLimiter(rdb, cfg.Redis.CallConcurrencyLimit, 0, logger.Component(log, "call_limiter"))
	}

	a.registry = console.NewRegistry(console.Deps{
		Backend: a.client,
		Leads:   a.leads,
		Limiter: limiter,
		Audit:   audit.NewService(repo),
		Settings: actions.Settings{
			AgentName:   cfg.Agent.AgentName,
			Brokerage:   cfg.Agent.Brokerage,
			DefaultArea: cfg.Agent.DefaultArea,
		},
		Log: logger.Component(log, "console"),
	}, cfg.Session.IdleTTL)
	return a, nil
}

func (a *app) Close() {
	if a.registry != nil {
		a.registry.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
