package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	uploads         *prometheus.CounterVec
	uploadBytes     prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapsync_uploads_total",
			Help: "Uploads received, by result.",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapsync_upload_bytes_total",
			Help: "Bytes stored by successful uploads.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "snapsync_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.uploads, m.uploadBytes, m.requestDuration)
	return m
}

func (m *metrics) uploadSucceeded(size int64) {
	m.uploads.WithLabelValues("ok").Inc()
	m.uploadBytes.Add(float64(size))
}

func (m *metrics) uploadFailed() {
	m.uploads.WithLabelValues("error").Inc()
}

// observeRequest records latency against the matched route pattern so that
// session tokens never become label values.
func (m *metrics) observeRequest(r *http.Request, status int, elapsed time.Duration) {
	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	m.requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
