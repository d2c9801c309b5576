package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlboot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status API requests.",
		},
		[]string{"method", "path", "access", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wlboot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "access", "status"},
	)
	framedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wlboot",
			Subsystem: "frame",
			Name:      "messages_total",
			Help:      "Complete messages sliced out of the socket stream.",
		},
	)
	skippedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wlboot",
			Subsystem: "frame",
			Name:      "skipped_bytes_total",
			Help:      "Bytes discarded while resynchronising on corrupt headers.",
		},
	)
	parseErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlboot",
			Subsystem: "registry",
			Name:      "parse_errors_total",
			Help:      "Messages dropped because their body failed to decode.",
		},
		[]string{"event"},
	)
	bindRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wlboot",
			Subsystem: "registry",
			Name:      "bind_requests_total",
			Help:      "Bind requests issued per interface.",
		},
		[]string{"interface"},
	)
	deferredWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wlboot",
			Subsystem: "transport",
			Name:      "deferred_writes_total",
			Help:      "Requests queued because the socket would block.",
		},
	)
	liveGlobals = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wlboot",
			Subsystem: "registry",
			Name:      "globals_live",
			Help:      "Globals currently advertised by the compositor.",
		},
	)
	discoveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wlboot",
			Subsystem: "discovery",
			Name:      "duration_seconds",
			Help:      "Time from connect to a terminal discovery state.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"state"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			framedMessages,
			skippedBytes,
			parseErrors,
			bindRequests,
			deferredWrites,
			liveGlobals,
			discoveryDuration,
		)
	})
}

func RecordHTTPRequest(method, path, access string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, access, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, access, statusLabel).Observe(duration.Seconds())
}

func RecordFramed(n int) {
	RegisterMetrics()
	framedMessages.Add(float64(n))
}

func RecordSkippedBytes(n uint64) {
	RegisterMetrics()
	skippedBytes.Add(float64(n))
}

func RecordParseError(event string) {
	RegisterMetrics()
	parseErrors.WithLabelValues(event).Inc()
}

func RecordBind(iface string) {
	RegisterMetrics()
	bindRequests.WithLabelValues(iface).Inc()
}

func RecordDeferredWrite() {
	RegisterMetrics()
	deferredWrites.Inc()
}

func SetLiveGlobals(n int) {
	RegisterMetrics()
	liveGlobals.Set(float64(n))
}

func RecordDiscovery(state string, duration time.Duration) {
	RegisterMetrics()
	discoveryDuration.WithLabelValues(state).Observe(duration.Seconds())
}
