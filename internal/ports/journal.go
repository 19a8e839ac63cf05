package ports

import (
	"context"

	"github.com/bnema/petminion/internal/domain"
)

type FeedingJournal interface {
	Record(ctx context.Context, event domain.FeedingEvent) (domain.FeedingEvent, error)
	Recent(ctx context.Context, limit int) ([]domain.FeedingEvent, error)
}
