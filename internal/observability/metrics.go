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
			Namespace: "touch2tuio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"component", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "touch2tuio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"component", "method", "path", "status"},
	)
	framesCommitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "touch2tuio",
			Subsystem: "tuio",
			Name:      "frames_committed_total",
			Help:      "Committed frames by whether they carried changes.",
		},
		[]string{"dirty"},
	)
	bundlesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "touch2tuio",
			Subsystem: "tuio",
			Name:      "bundles_sent_total",
			Help:      "Bundles delivered per channel.",
		},
		[]string{"channel"},
	)
	sendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "touch2tuio",
			Subsystem: "tuio",
			Name:      "send_errors_total",
			Help:      "Failed sends per channel.",
		},
		[]string{"channel"},
	)
	cursorEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "touch2tuio",
			Subsystem: "tuio",
			Name:      "cursor_events_total",
			Help:      "Cursor lifecycle notifications by kind.",
		},
		[]string{"kind"},
	)
	activeCursors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "touch2tuio",
			Subsystem: "tuio",
			Name:      "active_cursors",
			Help:      "Cursors currently alive.",
		},
	)
	frameID = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "touch2tuio",
			Subsystem: "tuio",
			Name:      "frame_id",
			Help:      "Last committed frame sequence number.",
		},
	)
	tcpClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "touch2tuio",
			Subsystem: "transport",
			Name:      "tcp_clients",
			Help:      "Connected XMLSocket clients.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesCommitted, bundlesSent, sendErrors,
			cursorEvents, activeCursors, frameID, tcpClients,
		)
	})
}

func RecordHTTPRequest(component, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(component, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(component, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrame(fseq int64, dirty bool) {
	RegisterMetrics()
	framesCommitted.WithLabelValues(strconv.FormatBool(dirty)).Inc()
	frameID.Set(float64(fseq))
}

func RecordBundleSent(channel string) {
	RegisterMetrics()
	bundlesSent.WithLabelValues(channel).Inc()
}

func RecordSendError(channel string) {
	RegisterMetrics()
	sendErrors.WithLabelValues(channel).Inc()
}

func RecordCursorEvent(kind string) {
	RegisterMetrics()
	cursorEvents.WithLabelValues(kind).Inc()
}

func SetActiveCursors(n int) {
	RegisterMetrics()
	activeCursors.Set(float64(n))
}

func SetTCPClients(n int) {
	RegisterMetrics()
	tcpClients.Set(float64(n))
}
