package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
	"github.com/jonboulle/clockwork"
)

const limiterStateVersion = 2

// limiterState is what a persisted RateLimiter writes under its name.
// IntervalSeconds is only present once SetInterval pinned it.
type limiterState struct {
	IntervalSeconds *float64  `json:"interval_seconds,omitempty"`
	LastFireTime    time.Time `json:"last_fire_time"`
}

func (limiterState) StateVersion() int {
	return limiterStateVersion
}

// Migrate reads version 1 snapshots. Those always carried the interval and
// could hold the fire time as unix seconds; the interval is dropped so the
// configured one applies.
func (s *limiterState) Migrate(from int, raw json.RawMessage) error {
	var old struct {
		LastFireTime json.RawMessage `json:"last_fire_time"`
	}
	if err := json.Unmarshal(raw, &old); err != nil {
		return fmt.Errorf("decode version %d limiter: %w", from, err)
	}

	s.IntervalSeconds = nil
	s.LastFireTime = time.Time{}
	if len(old.LastFireTime) == 0 || string(old.LastFireTime) == "null" {
		return nil
	}

	var seconds float64
	if err := json.Unmarshal(old.LastFireTime, &seconds); err == nil {
		whole, frac := math.Modf(seconds)
		s.LastFireTime = time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
		return nil
	}
	if err := json.Unmarshal(old.LastFireTime, &s.LastFireTime); err != nil {
		return fmt.Errorf("decode version %d fire time: %w", from, err)
	}
	return nil
}

// RateLimiter gates an action to at most once per interval. An interval of
// zero means no minimum.
type RateLimiter struct {
	clock     clockwork.Clock
	interval  time.Duration
	pinned    bool
	lastFired time.Time

	store  ports.StateStore
	name   string
	logger *slog.Logger
}

func NewRateLimiter(clock clockwork.Clock, interval time.Duration) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &RateLimiter{clock: clock, interval: max(interval, 0)}
}

// NewPersistentRateLimiter restores the last fire time saved under name.
// Load failures keep the fresh defaults.
func NewPersistentRateLimiter(ctx context.Context, clock clockwork.Clock, interval time.Duration, store ports.StateStore, name string, logger *slog.Logger) *RateLimiter {
	if store == nil {
		panic("application: persistent rate limiter requires a state store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	limiter := NewRateLimiter(clock, interval)
	limiter.store = store
	limiter.name = name
	limiter.logger = logger

	var saved limiterState
	err := store.Load(ctx, name, &saved)
	switch {
	case err == nil:
		limiter.lastFired = saved.LastFireTime
		if saved.IntervalSeconds != nil {
			limiter.interval = max(time.Duration(*saved.IntervalSeconds*float64(time.Second)), 0)
			limiter.pinned = true
		}
	case errors.Is(err, domain.ErrStateNotFound), errors.Is(err, domain.ErrStateLoadingDisabled):
		logger.Debug("rate limiter starts fresh", "limiter", name, "reason", err)
	default:
		logger.Warn("failed to load rate limiter state, using defaults", "limiter", name, "error", err)
	}

	return limiter
}

func (l *RateLimiter) Interval() time.Duration {
	return l.interval
}

func (l *RateLimiter) LastFired() time.Time {
	return l.lastFired
}

// IsRunnable reports whether CanRun would succeed, without consuming the gate.
func (l *RateLimiter) IsRunnable() bool {
	if l.interval <= 0 {
		return true
	}

	return l.clock.Since(l.lastFired) >= l.interval
}

// Remaining is the time left until the limiter becomes runnable again.
func (l *RateLimiter) Remaining() time.Duration {
	if l.IsRunnable() {
		return 0
	}

	return l.interval - l.clock.Since(l.lastFired)
}

// CanRun consumes the gate when it is open. A persisted limiter that cannot
// record the fire returns false with the error, so the caller never acts on
// a fire that a restart would forget.
func (l *RateLimiter) CanRun(ctx context.Context) (bool, error) {
	if !l.IsRunnable() {
		return false, nil
	}

	if err := l.SetFired(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// SetFired records now as the last fire time regardless of the interval.
func (l *RateLimiter) SetFired(ctx context.Context) error {
	now := l.clock.Now()
	if now.After(l.lastFired) {
		l.lastFired = now
	}

	return l.save(ctx)
}

// SetInterval pins a new interval; a persisted limiter keeps it across restarts.
func (l *RateLimiter) SetInterval(ctx context.Context, interval time.Duration) error {
	l.interval = max(interval, 0)
	l.pinned = true

	return l.save(ctx)
}

// Unpin forgets a pinned interval. The current interval stays in effect until
// the limiter is rebuilt from configuration.
func (l *RateLimiter) Unpin(ctx context.Context) error {
	l.pinned = false

	return l.save(ctx)
}

func (l *RateLimiter) Pinned() bool {
	return l.pinned
}

func (l *RateLimiter) save(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	state := limiterState{LastFireTime: l.lastFired}
	if l.pinned {
		seconds := l.interval.Seconds()
		state.IntervalSeconds = &seconds
	}

	if err := l.store.Save(ctx, l.name, state); err != nil {
		l.logger.Error("failed to persist rate limiter", "limiter", l.name, "error", err)
		return fmt.Errorf("save %s limiter: %w", l.name, err)
	}

	return nil
}
