package ports

import "context"

// StateStore persists named snapshots. Load returns domain.ErrStateNotFound,
// domain.ErrStateLoadingDisabled or domain.ErrStateShapeChanged when dst was
// left untouched.
type StateStore interface {
	Load(ctx context.Context, name string, dst any) error
	Save(ctx context.Context, name string, src any) error
}
