package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.AddAllocated(10)

	body := scrape(t, metrics)
	if !strings.Contains(body, "bago_qr_codes_allocated_total 10") {
		t.Fatalf("expected body to contain bago_qr_codes_allocated_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "bago_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "bago_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveScan("available")
	metrics.ObserveScan("available")
	metrics.ObserveScan("inconsistent")
	metrics.ObserveRegistration("conflict")
	metrics.ActivityWriteFailed("SCAN_QR")

	body := scrape(t, metrics)
	for _, want := range []string{
		`bago_qr_scans_total{state="available"} 2`,
		`bago_qr_scans_total{state="inconsistent"} 1`,
		`bago_product_registrations_total{outcome="conflict"} 1`,
		`bago_activity_write_failures_total{action="SCAN_QR"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.AddAllocated(3)
	metrics.ObserveScan("unknown")
	metrics.ObserveRegistration("success")
	metrics.ActivityWriteFailed("LOGIN")
}
