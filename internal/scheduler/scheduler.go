// Package scheduler runs a task immediately and then on a fixed interval until deactivated.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultPollInterval is the refresh interval for every polled view.
const DefaultPollInterval = 5 * time.Second

// Task is one unit of periodic work. Its error is logged and never stops the timer.
type Task func(ctx context.Context) error

// Scheduler owns at most one active timer, identified by a key.
type Scheduler struct {
	name     string
	interval time.Duration
	clock    clockwork.Clock
	log      *slog.Logger

	mu     sync.Mutex
	key    string
	active bool
	ticker clockwork.Ticker
	cancel context.CancelFunc
}

func New(name string, interval time.Duration, clock clockwork.Clock, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		clock:    clock,
		log:      log.With("scheduler", name),
	}
}

// Activate starts running task under key. Re-activating the same key is a no-op;
// a different key stops the current timer before the new one starts.
func (s *Scheduler) Activate(key string, task Task) {
	if task == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active && s.key == key {
		return
	}
	if s.active {
		s.stopLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticker := s.clock.NewTicker(s.interval)
	s.key = key
	s.active = true
	s.ticker = ticker
	s.cancel = cancel

	s.log.Debug("scheduler activated", "key", key, "interval", s.interval.String())
	go s.run(ctx, key, ticker, task)
}

// Deactivate stops scheduling. An in-flight task is cancelled through its context but not awaited.
func (s *Scheduler) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.stopLocked()
}

// Active reports the key currently scheduled.
func (s *Scheduler) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.active
}

func (s *Scheduler) Interval() time.Duration { return s.interval }

func (s *Scheduler) stopLocked() {
	s.ticker.Stop()
	s.cancel()
	s.log.Debug("scheduler deactivated", "key", s.key)
	s.key = ""
	s.active = false
	s.ticker = nil
	s.cancel = nil
}

func (s *Scheduler) run(ctx context.Context, key string, ticker clockwork.Ticker, task Task) {
	s.invoke(ctx, key, task)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// A tick may already be buffered when Deactivate runs.
			if ctx.Err() != nil {
				return
			}
			s.invoke(ctx, key, task)
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, key string, task Task) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("scheduled task panicked", "key", key, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
		}
	}()
	if err := task(ctx); err != nil && ctx.Err() == nil {
		s.log.Warn("scheduled task failed", "key", key, "err", err)
	}
}
