package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusRecorderCapturesStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	sr.WriteHeader(http.StatusNotFound)
	n, err := sr.Write([]byte("not found"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if sr.status != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", sr.status)
	}
	if sr.size != n || sr.size != len("not found") {
		t.Fatalf("expected size %d, got %d", len("not found"), sr.size)
	}
}

func TestStatusRecorderAccumulatesAcrossWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	sr.Write([]byte("abc"))
	sr.Write([]byte("de"))

	if sr.size != 5 {
		t.Fatalf("expected accumulated size 5, got %d", sr.size)
	}
}

func TestRoutePatternFallsBackToURLPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/keys/packhub.asc", nil)

	if got := routePattern(req); got != "/v1/keys/packhub.asc" {
		t.Fatalf("expected a path fallback, got %q", got)
	}
}

func TestMetricsMiddlewareSetsDefaultStatus(t *testing.T) {
	handler := metricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sh/ubuntu/github/o/r", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected default 200 status when WriteHeader is never called explicitly, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}
