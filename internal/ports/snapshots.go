package ports

import (
	"context"
	"image"

	"github.com/bnema/petminion/internal/domain"
)

type SnapshotStore interface {
	Save(ctx context.Context, label domain.SnapshotLabel, frame domain.Frame, detections []domain.Detection) error
}

type LiveFrameWriter interface {
	Write(ctx context.Context, img image.Image) error
}
