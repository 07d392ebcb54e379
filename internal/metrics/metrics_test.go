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

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := upstreamRequestsTotal
	Init()

	if first == nil || upstreamRequestsTotal != first {
		t.Fatal("Init() should create collectors once and keep them")
	}
	if httpRequestsTotal == nil || httpRequestDurationSeconds == nil ||
		upstreamDurationSeconds == nil || headlessPromotionsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveUpstream(t *testing.T) {
	Init()
	success := upstreamRequestsTotal.WithLabelValues("test_op", OutcomeSuccess)
	failure := upstreamRequestsTotal.WithLabelValues("test_op", OutcomeFailure)
	beforeOK := testutil.ToFloat64(success)
	beforeFail := testutil.ToFloat64(failure)

	ObserveUpstream("test_op", nil, 10*time.Millisecond)
	ObserveUpstream("test_op", errors.New("boom"), 10*time.Millisecond)
	ObserveUpstream("test_op", errors.New("boom"), 10*time.Millisecond)

	if got := testutil.ToFloat64(success) - beforeOK; got != 1 {
		t.Errorf("expected one success, got %f", got)
	}
	if got := testutil.ToFloat64(failure) - beforeFail; got != 2 {
		t.Errorf("expected two failures, got %f", got)
	}
}

func TestObserveHeadlessPromotion(t *testing.T) {
	Init()
	before := testutil.ToFloat64(headlessPromotionsTotal)
	ObserveHeadlessPromotion()
	if got := testutil.ToFloat64(headlessPromotionsTotal) - before; got != 1 {
		t.Errorf("expected promotion counter to advance by 1, got %f", got)
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	Init()
	ObserveUpstream("scrape_check", nil, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "threads_upstream_requests_total") {
		t.Fatal("expected upstream counter in exposition output")
	}
}

func TestObserveRateLimitDelay(t *testing.T) {
	Init()
	ObserveRateLimitDelay("delay.test", 150*time.Millisecond)

	if got := testutil.CollectAndCount(rateLimitDelaySeconds, "threads_upstream_ratelimit_delay_seconds"); got < 1 {
		t.Fatalf("expected at least one delay series, got %d", got)
	}
}
