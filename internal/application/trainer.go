package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
	"github.com/jonboulle/clockwork"
)

const flushTimeout = 30 * time.Second

// CaptureLoop is the part of CaptureSession the controller drives.
type CaptureLoop interface {
	Update(ctx context.Context, frame domain.Frame) error
	Close(ctx context.Context) error
}

type TrainerDeps struct {
	Camera     ports.Camera
	Recognizer ports.Recognizer
	Rule       TrainingRule
	Captures   CaptureLoop
	Clock      clockwork.Clock
	Logger     *slog.Logger
}

// Trainer is the controller loop: capture, update the capture session, run
// the rule, pause.
type Trainer struct {
	camera     ports.Camera
	recognizer ports.Recognizer
	rule       TrainingRule
	captures   CaptureLoop
	clock      clockwork.Clock
	logger     *slog.Logger
	tickDelay  time.Duration
}

func NewTrainer(deps TrainerDeps, tickDelay time.Duration) *Trainer {
	if deps.Camera == nil || deps.Rule == nil {
		panic("application: trainer requires a camera and a training rule")
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Trainer{
		camera:     deps.Camera,
		recognizer: deps.Recognizer,
		rule:       deps.Rule,
		captures:   deps.Captures,
		clock:      deps.Clock,
		logger:     deps.Logger,
		tickDelay:  tickDelay,
	}
}

func (t *Trainer) RunOnce(ctx context.Context) error {
	frame, err := t.camera.ReadImage(ctx)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	if t.captures != nil {
		if err := t.captures.Update(ctx, frame); err != nil {
			t.logger.Error("capture update failed", "error", err)
		}
	}

	if err := t.rule.RunOnce(ctx, NewScene(frame, t.recognizer)); err != nil {
		return fmt.Errorf("run %s: %w", t.rule.Name(), err)
	}

	t.pause(ctx)
	return nil
}

func (t *Trainer) pause(ctx context.Context) {
	if t.tickDelay <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-t.clock.After(t.tickDelay):
	}
}

// Run ticks until the camera disconnects or ctx ends, then saves the rule
// state exactly once, also when a tick failed or panicked.
func (t *Trainer) Run(ctx context.Context) (err error) {
	t.logger.Info("watching camera", "rule", t.rule.Name(), "tick_delay", t.tickDelay)

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()

		var closeErr error
		if t.captures != nil {
			closeErr = t.captures.Close(flushCtx)
		}
		err = errors.Join(err, t.rule.SaveState(flushCtx), closeErr)
	}()

	for {
		if ctx.Err() != nil {
			t.logger.Info("stopping", "reason", ctx.Err())
			return nil
		}

		if err := t.RunOnce(ctx); err != nil {
			switch {
			case errors.Is(err, domain.ErrCameraDisconnected):
				t.logger.Info("camera disconnected, exiting", "error", err)
				return nil
			case ctx.Err() != nil:
				t.logger.Info("stopping", "reason", ctx.Err())
				return nil
			default:
				return err
			}
		}
	}
}
