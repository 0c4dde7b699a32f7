package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	qrAllocated     prometheus.Counter
	scansTotal      *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	activityFailed  *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bago_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bago_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	allocated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bago_qr_codes_allocated_total",
		Help: "Jumlah kode QR yang dialokasikan.",
	})
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bago_qr_scans_total",
		Help: "Hasil pemindaian kode QR berdasarkan state.",
	}, []string{"state"})
	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bago_product_registrations_total",
		Help: "Hasil registrasi produk berdasarkan outcome.",
	}, []string{"outcome"})
	activityFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bago_activity_write_failures_total",
		Help: "Jumlah entri log aktivitas yang gagal disimpan.",
	}, []string{"action"})
	registry.MustRegister(requests, duration, allocated, scans, registrations, activityFailed)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		qrAllocated:     allocated,
		scansTotal:      scans,
		registrations:   registrations,
		activityFailed:  activityFailed,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// AddAllocated menambah jumlah kode QR yang baru dibuat.
func (m *Metrics) AddAllocated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.qrAllocated.Add(float64(n))
}

// ObserveScan mencatat hasil resolusi scan.
func (m *Metrics) ObserveScan(state string) {
	if m == nil {
		return
	}
	m.scansTotal.WithLabelValues(state).Inc()
}

// ObserveRegistration mencatat outcome registrasi produk.
func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// ActivityWriteFailed mencatat kegagalan penulisan log aktivitas.
func (m *Metrics) ActivityWriteFailed(action string) {
	if m == nil {
		return
	}
	m.activityFailed.WithLabelValues(action).Inc()
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus, dipakai metrik job worker.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses (label downloads) working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
