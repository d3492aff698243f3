package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveWebhookAttempt("send", "ok")
	m.ObserveWebhookDispatch("send", "ok", time.Second)
	m.SetBreakerStates(map[string]int{"OPEN": 1})
	m.IncMessage("USER")
	m.ObserveEdit(true, 3)
	if m.Registry() != nil {
		t.Fatalf("nil metrics: want nil registry")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler: want=503 got=%d", rec.Code)
	}
}

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveWebhookAttempt("send", "error")
	m.ObserveWebhookAttempt("send", "ok")
	m.ObserveWebhookDispatch("send", "ok", 1500*time.Millisecond)
	m.ObserveEdit(false, 3)
	m.SetBreakerStates(map[string]int{"CLOSED": 2, "OPEN": 1})

	if got := testutil.ToFloat64(m.webhookAttempts.WithLabelValues("send", "error")); got != 1 {
		t.Fatalf("attempts error: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.softDeleted); got != 3 {
		t.Fatalf("soft deleted: want=3 got=%v", got)
	}
	if got := testutil.ToFloat64(m.breakerStates.WithLabelValues("OPEN")); got != 1 {
		t.Fatalf("breaker OPEN: want=1 got=%v", got)
	}

	m.SetBreakerStates(map[string]int{"CLOSED": 3})
	if got := testutil.CollectAndCount(m.breakerStates); got != 1 {
		t.Fatalf("breaker series after reset: want=1 got=%d", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "pc_webhook_dispatches_total") {
		t.Fatalf("scrape output missing dispatch counter")
	}
}
