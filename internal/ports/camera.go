package ports

import (
	"context"

	"github.com/bnema/petminion/internal/domain"
)

// Camera returns domain.ErrCameraDisconnected (wrapped) once the device is gone.
type Camera interface {
	ReadImage(ctx context.Context) (domain.Frame, error)
}
