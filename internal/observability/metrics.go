package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danmuck/scmictl/internal/doorbell"
	"github.com/danmuck/scmictl/internal/scmi"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scmi",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scmi",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	dispatchMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scmi",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "SCMI messages answered, by agent, protocol, message and status.",
		},
		[]string{"agent", "protocol", "message", "status"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scmi",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "SCMI dispatch latency in seconds.",
			Buckets:   []float64{1e-6, 5e-6, 2.5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 2.5e-2},
		},
		[]string{"protocol"},
	)
	doorbellFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scmi",
			Subsystem: "doorbell",
			Name:      "frames_total",
			Help:      "Doorbell frames handled, by agent, kind and result.",
		},
		[]string{"agent", "kind", "result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, dispatchMessages, dispatchDuration, doorbellFrames)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// Metrics feeds dispatch and doorbell callbacks into the Prometheus
// collectors. The zero value is ready to use.
type Metrics struct{}

func (Metrics) ObserveDispatch(agentID uint32, protocol scmi.ProtocolID, messageID uint8, status scmi.Status, elapsed time.Duration) {
	RegisterMetrics()
	dispatchMessages.WithLabelValues(
		strconv.FormatUint(uint64(agentID), 10),
		protocol.String(),
		strconv.FormatUint(uint64(messageID), 10),
		status.String(),
	).Inc()
	dispatchDuration.WithLabelValues(protocol.String()).Observe(elapsed.Seconds())
}

func (Metrics) ObserveFrame(agentID uint32, kind doorbell.Kind, result string) {
	RegisterMetrics()
	doorbellFrames.WithLabelValues(strconv.FormatUint(uint64(agentID), 10), kind.String(), result).Inc()
}

var (
	_ scmi.Observer          = Metrics{}
	_ doorbell.FrameObserver = Metrics{}
)
