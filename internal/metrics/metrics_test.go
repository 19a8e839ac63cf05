package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		TicksTotal,
		TickOutcomesTotal,
		DayRolloversTotal,
		FeedingsTotal,
		PortionsTotal,
		FeedFailuresTotal,
		FedToday,
		SnapshotsTotal,
		CaptureSessionsTotal,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterVecMetrics(t *testing.T) {
	tests := []struct {
		name    string
		metric  *prometheus.CounterVec
		labels  prometheus.Labels
		incBy   int
		wantVal float64
	}{
		{
			name:    "feedings by path",
			metric:  FeedingsTotal,
			labels:  prometheus.Labels{"rule": "TokenTrainer", "path": "rewarded"},
			incBy:   2,
			wantVal: 2,
		},
		{
			name:    "portions by rule",
			metric:  PortionsTotal,
			labels:  prometheus.Labels{"rule": "SimpleFeederRule"},
			incBy:   3,
			wantVal: 3,
		},
		{
			name:    "feed failures by stage",
			metric:  FeedFailuresTotal,
			labels:  prometheus.Labels{"rule": "SimpleFeederRule", "stage": "feeder"},
			incBy:   1,
			wantVal: 1,
		},
		{
			name:    "capture sessions",
			metric:  CaptureSessionsTotal,
			labels:  prometheus.Labels{"result": "rejected"},
			incBy:   1,
			wantVal: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.metric.Reset()

			for i := 0; i < tt.incBy; i++ {
				tt.metric.With(tt.labels).Inc()
			}

			assert.Equal(t, tt.wantVal, testutil.ToFloat64(tt.metric.With(tt.labels)))
		})
	}
}

func TestFedTodayGauge(t *testing.T) {
	FedToday.Set(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(FedToday))
}
