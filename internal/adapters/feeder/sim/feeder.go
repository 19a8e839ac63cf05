package sim

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bnema/petminion/internal/ports"
)

// Feeder only logs; used by --simulate and on machines without hardware.
type Feeder struct {
	logger *slog.Logger

	mu       sync.Mutex
	portions int
}

var _ ports.Feeder = (*Feeder)(nil)

func New(logger *slog.Logger) *Feeder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Feeder{logger: logger.With("feeder", "sim")}
}

func (f *Feeder) Feed(ctx context.Context, portions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.portions += portions
	total := f.portions
	f.mu.Unlock()

	f.logger.Info("simulated feeding", "portions", portions, "dispensed_total", total)
	return nil
}

// Dispensed is the number of portions fed since start.
func (f *Feeder) Dispensed() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.portions
}
