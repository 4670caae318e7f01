package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "facility_"

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	readingsIngested *prometheus.CounterVec
	evaluatorLatency prometheus.Histogram

	alertEvents          *prometheus.CounterVec
	workOrderTransitions *prometheus.CounterVec

	wsClients prometheus.Gauge
)

// Init registers observability metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)
		readingsIngested = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_ingested_total",
				Help: "Total sensor readings ingested by source",
			},
			[]string{"source"},
		)
		evaluatorLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "alert_evaluation_latency_seconds",
				Help:    "Alert rule evaluation latency per reading in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		alertEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Total alert lifecycle events by type",
			},
			[]string{"type"},
		)
		workOrderTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "work_order_transitions_total",
				Help: "Total work order transitions by action and result",
			},
			[]string{"action", "result"},
		)
		wsClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "ws_clients",
				Help: "Connected WebSocket clients",
			},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			readingsIngested,
			evaluatorLatency,
			alertEvents,
			workOrderTransitions,
			wsClients,
		)
	})
}

// ObserveHTTPRequest records one HTTP request.
func ObserveHTTPRequest(method, status string, duration time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, status).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method).Observe(duration.Seconds())
	}
}

// IncReadingIngested increments the ingested readings counter.
func IncReadingIngested(source string) {
	if source == "" {
		source = "unknown"
	}
	if readingsIngested != nil {
		readingsIngested.WithLabelValues(source).Inc()
	}
}

// ObserveEvaluation records evaluation latency for one reading.
func ObserveEvaluation(duration time.Duration) {
	if evaluatorLatency != nil {
		evaluatorLatency.Observe(duration.Seconds())
	}
}

// IncAlertEvent increments alert lifecycle event counter.
func IncAlertEvent(eventType string) {
	if eventType == "" {
		eventType = "unknown"
	}
	if alertEvents != nil {
		alertEvents.WithLabelValues(eventType).Inc()
	}
}

// IncWorkOrderTransition increments work order transition counter.
func IncWorkOrderTransition(action, result string) {
	if action == "" {
		action = "unknown"
	}
	if result == "" {
		result = "success"
	}
	if workOrderTransitions != nil {
		workOrderTransitions.WithLabelValues(action, result).Inc()
	}
}

// SetWSClients sets the connected WebSocket clients gauge.
func SetWSClients(count int) {
	if wsClients != nil {
		wsClients.Set(float64(count))
	}
}
