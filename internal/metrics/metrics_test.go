package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAPI("POST", "/v2/users/{id}/messages", "200", 15*time.Millisecond)
	m.TokenFetch("success")
	m.SequenceEvicted(500)

	if got := testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("POST", "/v2/users/{id}/messages", "200")); got != 1 {
		t.Errorf("Expected 1 api request, got %v", got)
	}
	if got := testutil.ToFloat64(m.SequenceEvictions); got != 500 {
		t.Errorf("Expected 500 evictions, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("Expected registered metric families")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	// Must not panic.
	m.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	m.ObserveAPI("GET", "/gateway", "200", time.Millisecond)
	m.TokenFetch("error")
	m.SequenceEvicted(1)
	m.MediaCacheLookup("hit")
	m.GatewayEvent("READY")
	m.SendResult("c2c", "ok")
}
