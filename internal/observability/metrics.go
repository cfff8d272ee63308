package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reactorctl",
			Subsystem: "stream",
			Name:      "frames_decoded_total",
			Help:      "Binary frames decoded from the bridge stream.",
		},
	)
	crcErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reactorctl",
			Subsystem: "stream",
			Name:      "crc_errors_total",
			Help:      "Frames rejected for checksum mismatch.",
		},
	)
	resyncDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reactorctl",
			Subsystem: "stream",
			Name:      "resync_dropped_bytes_total",
			Help:      "Bytes discarded while hunting for a sync byte.",
		},
	)
	textMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reactorctl",
			Subsystem: "textproto",
			Name:      "messages_total",
			Help:      "Side-channel text messages parsed, by tag.",
		},
		[]string{"tag"},
	)
	textDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reactorctl",
			Subsystem: "textproto",
			Name:      "messages_dropped_total",
			Help:      "Side-channel messages dropped as malformed.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reactorctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reactorctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesDecoded, crcErrors, resyncDropped,
			textMessages, textDropped,
			httpRequests, httpDuration,
		)
	})
}

// RecordStream advances the stream counters by the deltas since the last
// call. The monitor holds the running totals; counters only ever add.
func RecordStream(frames, crcFailures, droppedBytes uint64) {
	RegisterMetrics()
	framesDecoded.Add(float64(frames))
	crcErrors.Add(float64(crcFailures))
	resyncDropped.Add(float64(droppedBytes))
}

func RecordTextMessage(tag string) {
	RegisterMetrics()
	textMessages.WithLabelValues(tag).Inc()
}

func RecordTextDropped(n uint64) {
	RegisterMetrics()
	textDropped.Add(float64(n))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
