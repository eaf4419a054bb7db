package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Chat endpoint metrics
	ChatRequestsTotal   *prometheus.CounterVec
	ChatDurationSeconds prometheus.Histogram

	// Matcher metrics
	MatchScore prometheus.Histogram
	MatchTotal *prometheus.CounterVec

	// Response table metrics
	TableEntries             prometheus.Gauge
	TableRowsSkippedTotal    *prometheus.CounterVec
	TableLoadDurationSeconds prometheus.Histogram

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterClients prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		ChatRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatai_chat_requests_total",
				Help: "Total number of chat requests by outcome",
			},
			[]string{"status"}, // status: success, unauthorized, rate_limited, error
		),

		ChatDurationSeconds: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatai_chat_duration_seconds",
				Help:    "Chat request handling duration in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),

		MatchScore: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatai_match_score",
				Help:    "Best partial similarity score per message (0-100)",
				Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),

		MatchTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatai_match_total",
				Help: "Total number of answered messages by result",
			},
			[]string{"result"}, // result: matched, fallback
		),

		TableEntries: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "chatai_table_entries",
				Help: "Number of triggers in the loaded response table",
			},
		),

		TableRowsSkippedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatai_table_rows_skipped_total",
				Help: "Total number of source rows skipped while building the response table",
			},
			[]string{"reason"}, // reason: malformed, empty_input, empty_response
		),

		TableLoadDurationSeconds: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatai_table_load_duration_seconds",
				Help:    "Time spent reading the data source and building the response table",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatai_http_errors_total",
				Help: "Total HTTP errors by type",
			},
			[]string{"error_type"}, // error_type: bad_request_body, panic, ...
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatai_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"},
		),

		RateLimiterClients: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "chatai_rate_limiter_active_clients",
				Help: "Number of clients currently tracked by the rate limiter",
			},
		),
	}
}

// RecordChat records a chat request outcome and its duration
func (m *Metrics) RecordChat(status string, duration float64) {
	m.ChatRequestsTotal.WithLabelValues(status).Inc()
	m.ChatDurationSeconds.Observe(duration)
}

// RecordMatch records the winning score and whether it cleared the threshold
func (m *Metrics) RecordMatch(score int, matched bool) {
	m.MatchScore.Observe(float64(score))
	if matched {
		m.MatchTotal.WithLabelValues("matched").Inc()
	} else {
		m.MatchTotal.WithLabelValues("fallback").Inc()
	}
}

// SetTableEntries records the loaded table size
func (m *Metrics) SetTableEntries(n int) {
	m.TableEntries.Set(float64(n))
}

// RecordRowSkipped records a source row that did not make it into the table
func (m *Metrics) RecordRowSkipped(reason string) {
	m.TableRowsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordTableLoad records how long building the table took
func (m *Metrics) RecordTableLoad(duration float64) {
	m.TableLoadDurationSeconds.Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterClients records the number of tracked clients
func (m *Metrics) SetRateLimiterClients(n int) {
	m.RateLimiterClients.Set(float64(n))
}
