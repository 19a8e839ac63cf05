package application

import (
	"context"
	"fmt"
	"image"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
)

// Scene is one captured frame plus its recognition result, computed on first
// use and shared by everything that looks at the same tick.
type Scene struct {
	frame      domain.Frame
	recognizer ports.Recognizer

	detected   bool
	annotated  image.Image
	detections []domain.Detection
	err        error
}

func NewScene(frame domain.Frame, recognizer ports.Recognizer) *Scene {
	return &Scene{frame: frame, recognizer: recognizer}
}

func (s *Scene) Frame() domain.Frame {
	return s.frame
}

func (s *Scene) Detections(ctx context.Context) ([]domain.Detection, error) {
	if !s.detected {
		s.detected = true
		if s.recognizer == nil || s.frame.Empty() {
			return nil, nil
		}

		s.annotated, s.detections, s.err = s.recognizer.Detect(ctx, s.frame)
		if s.err != nil {
			s.err = fmt.Errorf("detect objects in frame %d: %w", s.frame.Seq, s.err)
		}
	}

	return s.detections, s.err
}

func (s *Scene) Count(ctx context.Context, name string) (int, error) {
	detections, err := s.Detections(ctx)
	if err != nil {
		return 0, err
	}

	return domain.CountNamed(detections, name), nil
}

// Annotated returns the recognizer's drawing when detection already ran,
// else the raw frame.
func (s *Scene) Annotated() image.Image {
	if s.annotated != nil {
		return s.annotated
	}

	return s.frame.Image
}
