package ports

import "context"

type Feeder interface {
	Feed(ctx context.Context, portions int) error
}
