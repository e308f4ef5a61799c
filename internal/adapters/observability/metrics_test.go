package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"review_analyzer/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so the vectors have children
	observability.ObserveHTTP("/", "GET", 200, 12*time.Millisecond)
	observability.ObserveSubmission("created")
	observability.SetStoreSize(3)

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"review_analyzer_http_requests_total",
		"review_analyzer_review_submissions_total",
		"review_analyzer_review_store_size 3",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestObserveHelpers(t *testing.T) {
	before := testutil.ToFloat64(observability.ReviewsScored)
	observability.ObserveScored(4)
	if got := testutil.ToFloat64(observability.ReviewsScored) - before; got != 4 {
		t.Fatalf("reviews scored delta = %v, want 4", got)
	}

	c := observability.CacheEvents.WithLabelValues("test", "hit")
	before = testutil.ToFloat64(c)
	observability.ObserveCache("test", "hit")
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Fatalf("cache hit delta = %v, want 1", got)
	}
}
