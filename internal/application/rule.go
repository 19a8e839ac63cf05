package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/metrics"
	"github.com/bnema/petminion/internal/ports"
	"github.com/jonboulle/clockwork"
)

const (
	feedingLimitState = "feeding_limit"
)

// TrainingRule is one feeding policy driven once per controller tick.
type TrainingRule interface {
	Name() string
	RunOnce(ctx context.Context, scene *Scene) error
	SaveState(ctx context.Context) error
	Status() RuleStatus
}

// CaptureStarter asks for a social capture around a feeding.
type CaptureStarter interface {
	Start(ctx context.Context, status string) bool
}

// Deps are the collaborators shared by every rule. Feeder and Store are
// required; the rest may be nil.
type Deps struct {
	Clock      clockwork.Clock
	Store      ports.StateStore
	Feeder     ports.Feeder
	Snapshots  ports.SnapshotStore
	LiveFrames ports.LiveFrameWriter
	Journal    ports.FeedingJournal
	Captures   CaptureStarter
	Logger     *slog.Logger
}

type RuleConfig struct {
	Schedule               domain.Schedule
	FeedInterval           time.Duration
	TokenFeedInterval      time.Duration
	FailureCaptureInterval time.Duration
	LiveFrameInterval      time.Duration
	Target                 string
	Token                  string
}

// CooldownFor is the configured feed cooldown of the named rule.
func (c RuleConfig) CooldownFor(rule string) time.Duration {
	if rule == TokenTrainerName {
		return c.TokenFeedInterval
	}
	return c.FeedInterval
}

// Outcome classifies a tick. Only failed ticks are kept as training evidence.
type Outcome struct {
	Success  bool
	Portions int
	Reason   string
}

// Policy is the part that differs between rules: deciding what a scene means.
type Policy interface {
	Name() string
	Evaluate(ctx context.Context, scene *Scene) (Outcome, error)
}

// EngineState is the persisted core every policy state embeds.
type EngineState struct {
	FedToday   int              `json:"fed_today"`
	LastTick   domain.TimeOfDay `json:"last_tick_time_of_day"`
	LastTickAt time.Time        `json:"last_tick_at"`
}

func (s *EngineState) engine() *EngineState {
	return s
}

type stateHolder interface {
	engine() *EngineState
}

type RuleStatus struct {
	Rule                  string
	Now                   time.Time
	FedToday              int
	TotalPerDay           int
	Entitled              int
	EntitledWithUpcoming  int
	NextSlot              *domain.ScheduledFeeding
	FeedInterval          time.Duration
	FeedCooldownRemaining time.Duration
	LastFed               time.Time
}

// Rule is the chassis shared by all policies: day rollover, schedule
// entitlement, cooldowns, evidence capture and the feeding side effects.
type Rule struct {
	policy Policy
	state  stateHolder
	cfg    RuleConfig

	clock      clockwork.Clock
	store      ports.StateStore
	feeder     ports.Feeder
	snapshots  ports.SnapshotStore
	liveFrames ports.LiveFrameWriter
	journal    ports.FeedingJournal
	captures   CaptureStarter
	logger     *slog.Logger

	feedLimiter    *RateLimiter
	failureLimiter *RateLimiter
	liveLimiter    *RateLimiter
}

func newRule(ctx context.Context, deps Deps, cfg RuleConfig, policy Policy, state stateHolder, feedInterval time.Duration) *Rule {
	if policy == nil || state == nil {
		panic("application: training rule requires a policy and its state")
	}
	if deps.Feeder == nil || deps.Store == nil {
		panic("application: training rule requires a feeder and a state store")
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	logger := deps.Logger.With("rule", policy.Name())
	r := &Rule{
		policy:     policy,
		state:      state,
		cfg:        cfg,
		clock:      deps.Clock,
		store:      deps.Store,
		feeder:     deps.Feeder,
		snapshots:  deps.Snapshots,
		liveFrames: deps.LiveFrames,
		journal:    deps.Journal,
		captures:   deps.Captures,
		logger:     logger,

		feedLimiter:    FeedCooldown(ctx, deps.Clock, feedInterval, deps.Store, logger),
		failureLimiter: NewRateLimiter(deps.Clock, cfg.FailureCaptureInterval),
		liveLimiter:    NewRateLimiter(deps.Clock, cfg.LiveFrameInterval),
	}

	r.restore(ctx)
	return r
}

// FeedCooldown opens the persisted feed cooldown. Every rule shares it, so
// switching rules keeps a running cooldown.
func FeedCooldown(ctx context.Context, clock clockwork.Clock, interval time.Duration, store ports.StateStore, logger *slog.Logger) *RateLimiter {
	return NewPersistentRateLimiter(ctx, clock, interval, store, feedingLimitState, logger)
}

func (r *Rule) restore(ctx context.Context) {
	err := r.store.Load(ctx, r.policy.Name(), r.state)
	switch {
	case err == nil:
		st := r.state.engine()
		if st.FedToday < 0 {
			st.FedToday = 0
		}
		r.logger.Info("restored rule state", "fed_today", st.FedToday, "last_tick_at", st.LastTickAt)
	case errors.Is(err, domain.ErrStateNotFound), errors.Is(err, domain.ErrStateLoadingDisabled):
		r.logger.Debug("rule starts with default state", "reason", err)
	default:
		r.logger.Warn("failed to load rule state, using defaults", "error", err)
	}
}

func (r *Rule) Name() string {
	return r.policy.Name()
}

func (r *Rule) FedToday() int {
	return r.state.engine().FedToday
}

// NumAllowed is the schedule entitlement right now.
func (r *Rule) NumAllowed(includeUpcoming bool) int {
	now := domain.TimeOfDayOf(r.clock.Now())
	return r.cfg.Schedule.Entitled(now, r.state.engine().FedToday, includeUpcoming)
}

// RunOnce performs one evaluation cycle over scene.
func (r *Rule) RunOnce(ctx context.Context, scene *Scene) error {
	if err := r.checkRollover(ctx); err != nil {
		return err
	}
	metrics.TicksTotal.Inc()

	outcome, err := r.policy.Evaluate(ctx, scene)
	if errors.Is(err, domain.ErrFeedingFailed) {
		// The count is unchanged and the cooldown stays consumed, so the
		// next attempt waits a full feed interval.
		r.logger.Error("feeding failed", "error", err, "retry_in", r.feedLimiter.Remaining())
		metrics.TickOutcomesTotal.WithLabelValues(r.Name(), "feed_error").Inc()
		r.writeLiveFrame(ctx, scene)
		return nil
	}
	if err != nil {
		return fmt.Errorf("evaluate scene: %w", err)
	}

	result := "failure"
	if outcome.Success {
		result = "success"
	}
	metrics.TickOutcomesTotal.WithLabelValues(r.Name(), result).Inc()
	r.logger.Debug("scene evaluated", "success", outcome.Success, "portions", outcome.Portions, "reason", outcome.Reason)

	if !outcome.Success {
		r.captureFailure(ctx, scene)
	}
	r.writeLiveFrame(ctx, scene)

	return nil
}

func (r *Rule) checkRollover(ctx context.Context) error {
	now := r.clock.Now()
	tod := domain.TimeOfDayOf(now)
	st := r.state.engine()

	rolled := !st.LastTickAt.IsZero() && (tod < st.LastTick || !sameDate(st.LastTickAt, now))
	st.LastTick = tod
	st.LastTickAt = now
	if !rolled {
		return nil
	}

	r.logger.Info("new day, resetting feeding counter", "fed_yesterday", st.FedToday)
	st.FedToday = 0
	metrics.DayRolloversTotal.Inc()

	if err := r.SaveState(ctx); err != nil {
		return fmt.Errorf("persist day rollover: %w", err)
	}

	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (r *Rule) captureFailure(ctx context.Context, scene *Scene) {
	if r.snapshots == nil || scene.Frame().Empty() {
		return
	}

	ok, err := r.failureLimiter.CanRun(ctx)
	if err != nil || !ok {
		return
	}

	r.saveSnapshot(ctx, domain.SnapshotFailure, scene)
}

func (r *Rule) saveSnapshot(ctx context.Context, label domain.SnapshotLabel, scene *Scene) {
	detections, _ := scene.Detections(ctx)
	if err := r.snapshots.Save(ctx, label, scene.Frame(), detections); err != nil {
		metrics.SnapshotsTotal.WithLabelValues(string(label), "error").Inc()
		r.logger.Warn("failed to save training snapshot", "label", label, "error", err)
		return
	}

	metrics.SnapshotsTotal.WithLabelValues(string(label), "saved").Inc()
}

func (r *Rule) writeLiveFrame(ctx context.Context, scene *Scene) {
	if r.liveFrames == nil || scene.Frame().Empty() {
		return
	}

	ok, err := r.liveLimiter.CanRun(ctx)
	if err != nil || !ok {
		return
	}

	if err := r.liveFrames.Write(ctx, scene.Annotated()); err != nil {
		r.logger.Warn("failed to write live frame", "error", err)
	}
}

// consumeCooldown reports whether the feed cooldown allowed a feeding now.
func (r *Rule) consumeCooldown(ctx context.Context) (bool, error) {
	ok, err := r.feedLimiter.CanRun(ctx)
	if err != nil {
		return false, fmt.Errorf("consume feed cooldown: %w", err)
	}
	if !ok {
		r.logger.Debug("feed cooldown active", "remaining", r.feedLimiter.Remaining())
	}

	return ok, nil
}

// portionsFor is one portion per feeding, or everything owed when the
// cooldown is disabled.
func (r *Rule) portionsFor(allowed int) int {
	if r.feedLimiter.Interval() == 0 {
		return allowed
	}

	return 1
}

// DoFeeding records evidence from the pre-feeding frame, fires the feeder once
// for the whole batch and persists the new count. Snapshot and feeder failures
// wrap domain.ErrFeedingFailed and leave the count untouched.
func (r *Rule) DoFeeding(ctx context.Context, scene *Scene, portions int, path domain.FeedingPath) error {
	if portions <= 0 {
		return nil
	}

	if r.snapshots != nil {
		detections, _ := scene.Detections(ctx)
		if err := r.snapshots.Save(ctx, domain.SnapshotSuccess, scene.Frame(), detections); err != nil {
			metrics.SnapshotsTotal.WithLabelValues(string(domain.SnapshotSuccess), "error").Inc()
			metrics.FeedFailuresTotal.WithLabelValues(r.Name(), "snapshot").Inc()
			return fmt.Errorf("%w: save feeding snapshot: %w", domain.ErrFeedingFailed, err)
		}
		metrics.SnapshotsTotal.WithLabelValues(string(domain.SnapshotSuccess), "saved").Inc()
	}

	if err := r.feeder.Feed(ctx, portions); err != nil {
		metrics.FeedFailuresTotal.WithLabelValues(r.Name(), "feeder").Inc()
		return fmt.Errorf("%w: feed %d portions: %w", domain.ErrFeedingFailed, portions, err)
	}

	st := r.state.engine()
	st.FedToday += portions
	fedAt := r.clock.Now()
	r.logger.Info("fed", "portions", portions, "path", path, "fed_today", st.FedToday, "total_per_day", r.cfg.Schedule.TotalPerDay())

	if r.captures != nil {
		r.captures.Start(ctx, r.progressStatus())
	}

	if err := r.SaveState(ctx); err != nil {
		return fmt.Errorf("persist feeding: %w", err)
	}

	metrics.FeedingsTotal.WithLabelValues(r.Name(), string(path)).Inc()
	metrics.PortionsTotal.WithLabelValues(r.Name()).Add(float64(portions))

	if r.journal != nil {
		_, err := r.journal.Record(ctx, domain.FeedingEvent{
			Rule:     r.Name(),
			Path:     path,
			Portions: portions,
			FedToday: st.FedToday,
			FedAt:    fedAt,
		})
		if err != nil {
			r.logger.Warn("failed to journal feeding", "error", err)
		}
	}

	return nil
}

func (r *Rule) progressStatus() string {
	return fmt.Sprintf("Fed %d of %d portions today", r.state.engine().FedToday, r.cfg.Schedule.TotalPerDay())
}

func (r *Rule) SaveState(ctx context.Context) error {
	if err := r.store.Save(ctx, r.Name(), r.state); err != nil {
		r.logger.Error("failed to persist rule state", "error", err)
		return fmt.Errorf("save %s state: %w", r.Name(), err)
	}

	metrics.FedToday.Set(float64(r.state.engine().FedToday))
	return nil
}

// Status is a read-only view; a pending rollover shows as zero fed today.
func (r *Rule) Status() RuleStatus {
	now := r.clock.Now()
	tod := domain.TimeOfDayOf(now)
	st := r.state.engine()

	fed := st.FedToday
	if !st.LastTickAt.IsZero() && (tod < st.LastTick || !sameDate(st.LastTickAt, now)) {
		fed = 0
	}

	status := RuleStatus{
		Rule:                  r.Name(),
		Now:                   now,
		FedToday:              fed,
		TotalPerDay:           r.cfg.Schedule.TotalPerDay(),
		Entitled:              r.cfg.Schedule.Entitled(tod, fed, false),
		EntitledWithUpcoming:  r.cfg.Schedule.Entitled(tod, fed, true),
		FeedInterval:          r.feedLimiter.Interval(),
		FeedCooldownRemaining: r.feedLimiter.Remaining(),
		LastFed:               r.feedLimiter.LastFired(),
	}
	if next, ok := r.cfg.Schedule.Next(tod); ok {
		status.NextSlot = &next
	}

	return status
}
