package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/petminion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusServiceReadsPersistedState(t *testing.T) {
	t.Parallel()

	h := newRuleHarness(t, testStart)
	cfg := catConfig(dailySchedule(), time.Hour)
	rule := NewSimpleFeederRule(context.Background(), h.deps(), cfg)
	h.tick(rule, "cat")

	h.clock.Advance(15 * time.Minute)
	svc := NewStatusService(SimpleFeederRuleName, cfg, newTestStore(t, h.dir), h.journal, h.clock, discardLogger())

	status, err := svc.Status(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, status.FedToday)
	assert.Equal(t, 1, status.Entitled)
	assert.Equal(t, 45*time.Minute, status.FeedCooldownRemaining)
	require.Len(t, status.Recent, 1)
	assert.Equal(t, domain.FeedingPathScheduled, status.Recent[0].Path)
	assert.Equal(t, []int{1}, h.feeder.portions(), "status never drives the feeder")
}

func TestStatusServiceUnknownRule(t *testing.T) {
	t.Parallel()

	svc := NewStatusService("Nope", RuleConfig{}, newTestStore(t, t.TempDir()), nil, nil, discardLogger())
	_, err := svc.Status(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrUnknownRule)
}
