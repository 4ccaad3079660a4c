package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.ExtractionsTotal.WithLabelValues("deterministic", "order_confirmation").Inc()
	m.LLMCallsTotal.WithLabelValues("invalid_json").Inc()
	m.ObserveStage("deterministic", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues("deterministic", "order_confirmation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMCallsTotal.WithLabelValues("invalid_json")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "purchase_worker_extractions_total"))
	assert.True(t, strings.Contains(body, "purchase_worker_stage_duration_seconds"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStage("llm", time.Now())
	m.RegisterDBPool(nil)
}

func TestAssessDBPoolHealth(t *testing.T) {
	tests := []struct {
		name     string
		stats    DBPoolStats
		expected PoolHealthStatus
	}{
		{"no pool", DBPoolStats{}, PoolHealthy},
		{"low usage", DBPoolStats{AcquiredConns: 2, MaxConns: 10}, PoolHealthy},
		{"high usage", DBPoolStats{AcquiredConns: 8, MaxConns: 10}, PoolDegraded},
		{"exhausted", DBPoolStats{AcquiredConns: 10, MaxConns: 10}, PoolUnhealthy},
		{"slow acquire", DBPoolStats{AcquiredConns: 1, MaxConns: 10, EmptyAcquireCount: 3, AcquireDuration: 6 * time.Second}, PoolDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssessDBPoolHealth(tt.stats).Status; got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}
