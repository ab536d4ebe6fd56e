package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kimchiprasadyadav-beep/callharvey/pkg/utils"
)

var ErrConcurrencyLimit = errors.New("too many call requests in flight for workspace")

// CallLimiter bounds concurrent start-call requests per workspace. Acquire returns
// ErrConcurrencyLimit when no slot is free; release must be called once the request ends.
type CallLimiter interface {
	Acquire(ctx context.Context, workspaceID string) (release func(), err error)
}

// NoLimit admits every request.
type NoLimit struct{}

func (NoLimit) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

const (
	defaultSlotTTL   = time.Minute
	releaseTimeout   = 2 * time.Second
	inflightKeyspace = "callharvey:calls:inflight:"
)

// RedisLimiter shares the cap across every console process using the same Redis.
type RedisLimiter struct {
	rdb   redis.Scripter
	limit int
	ttl   time.Duration
	log   *slog.Logger
}

// NewRedisLimiter caps each workspace at limit in-flight requests. ttl bounds a slot
// leaked by a crashed process; zero means one minute.
func NewRedisLimiter(rdb redis.Scripter, limit int, ttl time.Duration, log *slog.Logger) *RedisLimiter {
	if ttl <= 0 {
		ttl = defaultSlotTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl, log: log}
}

func (l *RedisLimiter) Acquire(ctx context.Context, workspaceID string) (func(), error) {
	key := inflightKeyspace + workspaceID
	ok, err := utils.AcquireConcurrencyCap(ctx, l.rdb, key, l.limit, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire call slot: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (limit %d)", ErrConcurrencyLimit, l.limit)
	}
	return func() {
		// The request context may already be done; release on a fresh one.
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := utils.ReleaseConcurrencyCap(rctx, l.rdb, key); err != nil {
			l.log.Warn("release call slot failed", "workspace_id", workspaceID, "err", err)
		}
	}, nil
}
