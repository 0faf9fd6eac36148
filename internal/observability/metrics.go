// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	PostsFetched   prometheus.Counter
	PostsProcessed prometheus.Counter
	AlertsEmitted  prometheus.Counter
	FeedErrors     *prometheus.CounterVec
	Relogins       *prometheus.CounterVec

	// Scheduler metrics
	TickDuration   *prometheus.HistogramVec
	LastTick       *prometheus.GaugeVec
	SchedulerState prometheus.Gauge

	// Venue metrics
	VenueProbes *prometheus.CounterVec
	Trades      *prometheus.CounterVec

	// Position metrics
	OpenPositions    *prometheus.GaugeVec
	UnrealizedPnL    *prometheus.GaugeVec
	PriceQuoteErrors *prometheus.CounterVec

	// Delivery metrics
	NotifyFailures *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers metrics on reg instead of the default registerer.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "post_sniper"
	}
	f := promauto.With(reg)

	return &Metrics{
		// Feed metrics
		PostsFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "posts_fetched_total",
			Help:      "Total number of posts fetched from the feed",
		}),
		PostsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "posts_processed_total",
			Help:      "Total number of new posts classified",
		}),
		AlertsEmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "alerts_emitted_total",
			Help:      "Total number of alerts emitted for posts with a signal",
		}),
		FeedErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of feed errors by kind",
		}, []string{"kind"}),
		Relogins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "relogins_total",
			Help:      "Total number of re-login attempts by result",
		}, []string{"result"}),

		// Scheduler metrics
		TickDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Tick duration in seconds by loop",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"loop"}),
		LastTick: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "last_tick_timestamp",
			Help:      "Unix timestamp of the last completed tick by loop",
		}, []string{"loop"}),
		SchedulerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "running",
			Help:      "1 while the monitor scheduler is running",
		}),

		// Venue metrics
		VenueProbes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "venue",
			Name:      "probes_total",
			Help:      "Total number of venue probes by result",
		}, []string{"chain", "venue", "result"}),
		Trades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "venue",
			Name:      "trades_total",
			Help:      "Total number of router calls by outcome",
		}, []string{"chain", "direction", "venue", "status"}),

		// Position metrics
		OpenPositions: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "open_positions",
			Help:      "Number of open positions by chain",
		}, []string{"chain"}),
		UnrealizedPnL: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "unrealized_pnl",
			Help:      "Unrealized PnL in native units by chain",
		}, []string{"chain"}),
		PriceQuoteErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "price_quote_errors_total",
			Help:      "Total number of failed or empty price quotes by chain",
		}, []string{"chain"}),

		// Delivery metrics
		NotifyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total number of alert delivery failures by sender",
		}, []string{"sender"}),

		// Latency metrics
		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Chain RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain", "method"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPostsFetched adds n to the fetched posts counter.
func RecordPostsFetched(n int) {
	DefaultMetrics.PostsFetched.Add(float64(n))
}

// RecordPostProcessed increments the processed posts counter.
func RecordPostProcessed() {
	DefaultMetrics.PostsProcessed.Inc()
}

// RecordAlert increments the alerts counter.
func RecordAlert() {
	DefaultMetrics.AlertsEmitted.Inc()
}

// RecordFeedError records a feed error of the given kind (auth, fetch).
func RecordFeedError(kind string) {
	DefaultMetrics.FeedErrors.WithLabelValues(kind).Inc()
}

// RecordRelogin records a re-login attempt.
func RecordRelogin(ok bool) {
	DefaultMetrics.Relogins.WithLabelValues(status(ok)).Inc()
}

// RecordTick records a completed tick of the named loop.
func RecordTick(loop string, seconds float64, unixTs int64) {
	DefaultMetrics.TickDuration.WithLabelValues(loop).Observe(seconds)
	DefaultMetrics.LastTick.WithLabelValues(loop).Set(float64(unixTs))
}

// SetSchedulerRunning updates the scheduler state gauge.
func SetSchedulerRunning(running bool) {
	if running {
		DefaultMetrics.SchedulerState.Set(1)
		return
	}
	DefaultMetrics.SchedulerState.Set(0)
}

// RecordProbe records a venue probe result (available, unavailable, error).
func RecordProbe(chain, venue, result string) {
	DefaultMetrics.VenueProbes.WithLabelValues(chain, venue, result).Inc()
}

// RecordTrade records the outcome of one router call.
func RecordTrade(chain, direction, venue string, ok bool) {
	if venue == "" {
		venue = "none"
	}
	DefaultMetrics.Trades.WithLabelValues(chain, direction, venue, status(ok)).Inc()
}

// UpdatePositions sets open positions and unrealized PnL for a chain.
func UpdatePositions(chain string, open int, unrealizedPnL float64) {
	DefaultMetrics.OpenPositions.WithLabelValues(chain).Set(float64(open))
	DefaultMetrics.UnrealizedPnL.WithLabelValues(chain).Set(unrealizedPnL)
}

// RecordQuoteError records a failed or empty price quote.
func RecordQuoteError(chain string) {
	DefaultMetrics.PriceQuoteErrors.WithLabelValues(chain).Inc()
}

// RecordNotifyFailure records a failed alert delivery.
func RecordNotifyFailure(sender string) {
	DefaultMetrics.NotifyFailures.WithLabelValues(sender).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(chain, method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(chain, method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
