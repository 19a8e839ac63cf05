package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/metrics"
	"github.com/bnema/petminion/internal/ports"
	"github.com/jonboulle/clockwork"
)

const socialPostLimitState = "social_post_limit"

type CaptureConfig struct {
	Dir           string
	Duration      time.Duration
	SimDuration   time.Duration
	FrameInterval time.Duration
	PostInterval  time.Duration
	Simulated     bool
}

type CaptureDeps struct {
	Clock  clockwork.Clock
	Store  ports.StateStore
	Sinks  ports.FrameSinkFactory
	Poster ports.SocialPoster
	Logger *slog.Logger
}

type capture struct {
	sink     ports.FrameSink
	deadline time.Time
	sampler  *RateLimiter
	status   string
	frames   int
}

// CaptureSession records a short clip after an interesting event and hands it
// to the poster. At most one clip exists at a time, counting the one being
// posted; further starts are dropped.
type CaptureSession struct {
	clock  clockwork.Clock
	sinks  ports.FrameSinkFactory
	poster ports.SocialPoster
	logger *slog.Logger
	cfg    CaptureConfig

	postLimiter *RateLimiter
	active      *capture
	posting     chan error
}

var _ CaptureStarter = (*CaptureSession)(nil)

func NewCaptureSession(ctx context.Context, deps CaptureDeps, cfg CaptureConfig) *CaptureSession {
	if deps.Sinks == nil || deps.Poster == nil || deps.Store == nil {
		panic("application: capture session requires a sink factory, a poster and a state store")
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	logger := deps.Logger.With("component", "capture")
	return &CaptureSession{
		clock:       deps.Clock,
		sinks:       deps.Sinks,
		poster:      deps.Poster,
		logger:      logger,
		cfg:         cfg,
		postLimiter: NewPersistentRateLimiter(ctx, deps.Clock, cfg.PostInterval, deps.Store, socialPostLimitState, logger),
	}
}

// Active reports whether a clip is being recorded or posted.
func (c *CaptureSession) Active() bool {
	return c.active != nil || c.posting != nil
}

func (c *CaptureSession) Start(ctx context.Context, status string) bool {
	if c.Active() {
		c.logger.Warn("capture already in progress, dropping request", "status", status)
		metrics.CaptureSessionsTotal.WithLabelValues("rejected").Inc()
		return false
	}

	if !c.postLimiter.IsRunnable() {
		c.logger.Info("social post rate limited, skipping capture", "remaining", c.postLimiter.Remaining())
		metrics.CaptureSessionsTotal.WithLabelValues("rejected").Inc()
		return false
	}

	sink, err := c.sinks.Create(c.cfg.Dir)
	if err != nil {
		c.logger.Error("failed to open capture sink", "error", err)
		metrics.CaptureSessionsTotal.WithLabelValues("failed").Inc()
		return false
	}

	// The post window is only spent once a sink is open.
	if err := c.postLimiter.SetFired(ctx); err != nil {
		c.logger.Error("social post limiter unavailable", "error", err)
		if err := errors.Join(sink.Close(), removeArtifact(sink.Path())); err != nil {
			c.logger.Warn("failed to release capture sink", "path", sink.Path(), "error", err)
		}
		metrics.CaptureSessionsTotal.WithLabelValues("rejected").Inc()
		return false
	}

	duration := c.cfg.Duration
	if c.cfg.Simulated && c.cfg.SimDuration > 0 {
		duration = c.cfg.SimDuration
	}

	c.active = &capture{
		sink:     sink,
		deadline: c.clock.Now().Add(duration),
		sampler:  NewRateLimiter(c.clock, c.cfg.FrameInterval),
		status:   status,
	}
	c.logger.Info("capture started", "path", sink.Path(), "duration", duration, "status", status)
	metrics.CaptureSessionsTotal.WithLabelValues("started").Inc()
	return true
}

// Update is called once per tick with the latest raw frame.
func (c *CaptureSession) Update(ctx context.Context, frame domain.Frame) error {
	errs := []error{c.collectPost()}

	cur := c.active
	if cur == nil {
		return errors.Join(errs...)
	}

	if !frame.Empty() {
		if ok, _ := cur.sampler.CanRun(ctx); ok {
			if err := cur.sink.AddFrame(frame.Image); err != nil {
				c.discard()
				metrics.CaptureSessionsTotal.WithLabelValues("failed").Inc()
				errs = append(errs, fmt.Errorf("add frame to capture: %w", err))
				return errors.Join(errs...)
			}
			cur.frames++
		}
	}

	if c.clock.Now().Before(cur.deadline) {
		return errors.Join(errs...)
	}

	errs = append(errs, c.finish(ctx))
	return errors.Join(errs...)
}

func (c *CaptureSession) finish(ctx context.Context) error {
	cur := c.active
	c.active = nil

	path := cur.sink.Path()
	if err := cur.sink.Close(); err != nil {
		metrics.CaptureSessionsTotal.WithLabelValues("failed").Inc()
		return errors.Join(fmt.Errorf("close capture sink: %w", err), removeArtifact(path))
	}

	c.logger.Info("capture finished, posting", "path", path, "frames", cur.frames)
	done := make(chan error, 1)
	c.posting = done
	go func() {
		err := c.poster.Post(ctx, path, cur.status)
		if err != nil {
			err = fmt.Errorf("post capture: %w", err)
		}
		done <- errors.Join(err, removeArtifact(path))
	}()

	return nil
}

// collectPost reaps a finished post without blocking.
func (c *CaptureSession) collectPost() error {
	if c.posting == nil {
		return nil
	}

	select {
	case err := <-c.posting:
		c.posting = nil
		return c.recordPost(err)
	default:
		return nil
	}
}

func (c *CaptureSession) recordPost(err error) error {
	if err != nil {
		metrics.CaptureSessionsTotal.WithLabelValues("failed").Inc()
		return err
	}

	metrics.CaptureSessionsTotal.WithLabelValues("posted").Inc()
	return nil
}

func (c *CaptureSession) discard() {
	cur := c.active
	c.active = nil
	if cur == nil {
		return
	}

	path := cur.sink.Path()
	if err := errors.Join(cur.sink.Close(), removeArtifact(path)); err != nil {
		c.logger.Warn("failed to release capture sink", "path", path, "error", err)
	}
}

// Close drops an unfinished clip and waits for an in-flight post until ctx ends.
func (c *CaptureSession) Close(ctx context.Context) error {
	if c.active != nil {
		c.logger.Info("dropping unfinished capture", "path", c.active.sink.Path())
		c.discard()
	}

	if c.posting == nil {
		return nil
	}

	select {
	case err := <-c.posting:
		c.posting = nil
		return c.recordPost(err)
	case <-ctx.Done():
		return fmt.Errorf("wait for capture post: %w", ctx.Err())
	}
}

func removeArtifact(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove capture artifact: %w", err)
	}

	return nil
}
