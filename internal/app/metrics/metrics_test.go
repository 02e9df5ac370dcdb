package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	tests := map[string]string{
		"":                       "/",
		"/":                      "/",
		"/api/analyze-wound":     "/api/analyze-wound",
		"/api/analyses":          "/api/analyses",
		"/api/analyses/abc-123":  "/api/analyses/:id",
		"/api/comparisons/x/y":   "/api/comparisons/:id",
		"/healthz":               "/healthz",
		"/assets/index-3f2a.js":  "/static",
		"/favicon.ico":           "/static",
	}
	for in, want := range tests {
		if got := canonicalPath(in); got != want {
			t.Errorf("canonicalPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInstrumentHandlerCountsRequests(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/analyses/:id", "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/analyses/nope", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/analyses/:id", "404"))

	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestRecordVisionCall(t *testing.T) {
	before := testutil.ToFloat64(visionRequests.WithLabelValues("analyze", "error"))
	RecordVisionCall("analyze", 0, errors.New("boom"))
	RecordVisionCall("analyze", time.Second, nil)
	if got := testutil.ToFloat64(visionRequests.WithLabelValues("analyze", "error")) - before; got != 1 {
		t.Fatalf("error outcome delta = %v", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	SetBackends("memory", "inline")
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `feridas_storage_backend_info{images="inline",storage="memory"} 1`) {
		t.Fatalf("backend gauge missing from exposition")
	}
}
