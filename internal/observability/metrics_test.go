package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsWith_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith("test_ns", reg)

	m.Trades.WithLabelValues("solana", "buy", "pumpfun", "success").Inc()
	m.PostsFetched.Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trades.WithLabelValues("solana", "buy", "pumpfun", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PostsFetched))

	families, err := reg.Gather()
	assert.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["test_ns_venue_trades_total"])
	assert.True(t, names["test_ns_feed_posts_fetched_total"])
}

func TestRecordTrade_EmptyVenue(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.Trades.WithLabelValues("base", "sell", "none", "failure"))
	RecordTrade("base", "sell", "", false)
	after := testutil.ToFloat64(DefaultMetrics.Trades.WithLabelValues("base", "sell", "none", "failure"))
	assert.Equal(t, before+1, after)
}

func TestUpdatePositions(t *testing.T) {
	UpdatePositions("solana", 2, 1.5)
	assert.Equal(t, 2.0, testutil.ToFloat64(DefaultMetrics.OpenPositions.WithLabelValues("solana")))
	assert.Equal(t, 1.5, testutil.ToFloat64(DefaultMetrics.UnrealizedPnL.WithLabelValues("solana")))
}

func TestSetSchedulerRunning(t *testing.T) {
	SetSchedulerRunning(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(DefaultMetrics.SchedulerState))
	SetSchedulerRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.SchedulerState))
}
