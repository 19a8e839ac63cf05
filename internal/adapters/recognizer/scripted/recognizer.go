// Package scripted replays a fixed sequence of detections, keyed by frame
// sequence number. It backs simulation mode and end-to-end tests.
package scripted

import (
	"context"
	"image"

	"github.com/bnema/petminion/internal/adapters/recognizer/annotate"
	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
)

// Step reports Detections for Frames consecutive frames.
type Step struct {
	Frames     int
	Detections []domain.Detection
}

type Recognizer struct {
	steps []Step
	cycle uint64
}

var _ ports.Recognizer = (*Recognizer)(nil)

// New builds a recognizer that cycles through steps. Steps with no frames
// are ignored; with none left every frame is empty.
func New(steps ...Step) *Recognizer {
	r := &Recognizer{}
	for _, step := range steps {
		if step.Frames <= 0 {
			continue
		}
		r.steps = append(r.steps, step)
		r.cycle += uint64(step.Frames)
	}
	return r
}

// Simulation is a scene where target wanders in and out of view and
// occasionally brings token along.
func Simulation(target, token string) *Recognizer {
	pet := domain.Detection{Name: target, Probability: 0.92, Box: &domain.BoundingBox{X1: 40, Y1: 60, X2: 200, Y2: 220}}
	tok := domain.Detection{Name: token, Probability: 0.81, Box: &domain.BoundingBox{X1: 220, Y1: 150, X2: 280, Y2: 210}}

	return New(
		Step{Frames: 30},
		Step{Frames: 20, Detections: []domain.Detection{pet}},
		Step{Frames: 10},
		Step{Frames: 15, Detections: []domain.Detection{pet, tok}},
		Step{Frames: 25},
	)
}

func (r *Recognizer) Detect(ctx context.Context, frame domain.Frame) (image.Image, []domain.Detection, error) {
	detections, err := r.Classify(ctx, frame)
	if err != nil {
		return nil, nil, err
	}
	if len(detections) == 0 {
		return nil, nil, nil
	}
	return annotate.Boxes(frame.Image, detections), detections, nil
}

func (r *Recognizer) Classify(ctx context.Context, frame domain.Frame) ([]domain.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.cycle == 0 {
		return nil, nil
	}

	// Seq starts at 1.
	pos := (frame.Seq + r.cycle - 1) % r.cycle
	for _, step := range r.steps {
		if pos < uint64(step.Frames) {
			out := make([]domain.Detection, len(step.Detections))
			copy(out, step.Detections)
			return out, nil
		}
		pos -= uint64(step.Frames)
	}
	return nil, nil
}
