package ports

import (
	"context"
	"image"

	"github.com/bnema/petminion/internal/domain"
)

type Recognizer interface {
	// Detect may return a nil annotated image when it has nothing to draw.
	Detect(ctx context.Context, frame domain.Frame) (image.Image, []domain.Detection, error)
	Classify(ctx context.Context, frame domain.Frame) ([]domain.Detection, error)
}
