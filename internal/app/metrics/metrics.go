package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lead_ledger",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lead_ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lead_ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	callsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lead_ledger",
			Subsystem: "calls",
			Name:      "ingested_total",
			Help:      "Total number of call events recorded, by provider and qualification status.",
		},
		[]string{"provider", "status"},
	)

	spendSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lead_ledger",
			Subsystem: "spend",
			Name:      "syncs_total",
			Help:      "Total number of spend sync attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	spendDaysUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lead_ledger",
			Subsystem: "spend",
			Name:      "days_upserted_total",
			Help:      "Total number of daily spend snapshots written.",
		},
	)

	scanFindings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lead_ledger",
			Subsystem: "compliance",
			Name:      "findings_total",
			Help:      "Total number of compliance findings flagged, by severity.",
		},
		[]string{"severity"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		callsIngested,
		spendSyncs,
		spendDaysUpserted,
		scanFindings,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordCallIngested counts a newly recorded call event.
func RecordCallIngested(provider, status string) {
	if provider == "" {
		provider = "unknown"
	}
	callsIngested.WithLabelValues(provider, status).Inc()
}

// RecordSyncOutcome counts a sync attempt and any snapshots it persisted.
func RecordSyncOutcome(outcome string, days int) {
	if outcome == "" {
		outcome = "unknown"
	}
	spendSyncs.WithLabelValues(outcome).Inc()
	if days > 0 {
		spendDaysUpserted.Add(float64(days))
	}
}

// RecordScanFinding counts one flagged compliance finding.
func RecordScanFinding(severity string) {
	scanFindings.WithLabelValues(severity).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource identifiers so metric labels stay bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "accounts":
		if len(parts) == 1 {
			return "/accounts"
		}
		if len(parts) == 2 {
			return "/accounts/:account"
		}
		return "/accounts/:account/" + strings.Join(parts[2:], "/")
	case "webhooks":
		if len(parts) >= 2 && parts[1] == "calls" {
			return "/webhooks/calls/:provider"
		}
		return "/webhooks"
	default:
		return "/" + parts[0]
	}
}
