package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgate_http_requests_total",
			Help: "HTTP requests by service, route and status",
		},
		[]string{"service", "method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartgate_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "route"},
	)

	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgate_checkins_total",
			Help: "Check-in submissions by entry type and outcome",
		},
		[]string{"entry_type", "outcome"},
	)

	UploadAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgate_upload_attempts_total",
			Help: "Photo upload attempts by result",
		},
		[]string{"result"},
	)

	RelayDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgate_relay_deliveries_total",
			Help: "Chat deliveries by message kind and result",
		},
		[]string{"kind", "result"},
	)

	SummariesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartgate_summaries_sent_total",
			Help: "Periodic summaries by period and result",
		},
		[]string{"period", "result"},
	)
)

func RecordHTTPRequest(service, method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(service, method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(service, method, route).Observe(elapsed.Seconds())
}

func RecordCheckIn(entryType, outcome string) {
	CheckInsTotal.WithLabelValues(entryType, outcome).Inc()
}

func RecordUploadAttempt(err error) {
	UploadAttemptsTotal.WithLabelValues(result(err)).Inc()
}

func RecordRelayDelivery(kind string, err error) {
	RelayDeliveriesTotal.WithLabelValues(kind, result(err)).Inc()
}

func RecordSummary(period string, err error) {
	SummariesSentTotal.WithLabelValues(period, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
