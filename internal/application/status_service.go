package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/petminion/internal/domain"
	"github.com/bnema/petminion/internal/ports"
	"github.com/jonboulle/clockwork"
)

var errStatusOnly = errors.New("status view cannot feed")

type FeederStatus struct {
	RuleStatus
	Recent []domain.FeedingEvent
}

// StatusService reads persisted rule state without driving the feeder.
type StatusService struct {
	ruleName string
	cfg      RuleConfig
	store    ports.StateStore
	journal  ports.FeedingJournal
	clock    clockwork.Clock
	logger   *slog.Logger
}

func NewStatusService(ruleName string, cfg RuleConfig, store ports.StateStore, journal ports.FeedingJournal, clock clockwork.Clock, logger *slog.Logger) *StatusService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StatusService{
		ruleName: ruleName,
		cfg:      cfg,
		store:    store,
		journal:  journal,
		clock:    clock,
		logger:   logger,
	}
}

func (s *StatusService) Status(ctx context.Context, recent int) (FeederStatus, error) {
	if err := ctx.Err(); err != nil {
		return FeederStatus{}, err
	}

	rule, err := NewRule(ctx, s.ruleName, Deps{
		Clock:  s.clock,
		Store:  s.store,
		Feeder: statusOnlyFeeder{},
		Logger: s.logger,
	}, s.cfg)
	if err != nil {
		return FeederStatus{}, err
	}

	status := FeederStatus{RuleStatus: rule.Status()}
	if s.journal != nil && recent > 0 {
		events, err := s.journal.Recent(ctx, recent)
		if err != nil {
			return FeederStatus{}, fmt.Errorf("list recent feedings: %w", err)
		}
		status.Recent = events
	}

	return status, nil
}

type statusOnlyFeeder struct{}

func (statusOnlyFeeder) Feed(context.Context, int) error {
	return errStatusOnly
}
