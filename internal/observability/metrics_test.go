package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// value reads the current value of a counter or gauge.
func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestNewMetricsWith_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg, "test_ns")

	m.DeploysTotal.WithLabelValues("SUCCEEDED").Inc()
	m.DeploysTotal.WithLabelValues("SUCCEEDED").Inc()

	if got := value(t, m.DeploysTotal.WithLabelValues("SUCCEEDED")); got != 2 {
		t.Errorf("expected 2 succeeded deploys, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_ns_deploy_attempts_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected test_ns_deploy_attempts_total to be registered")
	}
}

func TestRecordDeployLifecycle(t *testing.T) {
	before := value(t, DefaultMetrics.DeploysInFlight)

	RecordDeployStarted("XLM", 8)
	if got := value(t, DefaultMetrics.DeploysInFlight); got != before+1 {
		t.Errorf("in-flight gauge: got %v, want %v", got, before+1)
	}

	RecordDeployFinished("SUCCEEDED", 0.25, 1700000000)
	if got := value(t, DefaultMetrics.DeploysInFlight); got != before {
		t.Errorf("in-flight gauge after finish: got %v, want %v", got, before)
	}
	if got := value(t, DefaultMetrics.LastSuccessfulDeploy); got != 1700000000 {
		t.Errorf("last successful deploy: got %v", got)
	}
}

func TestRecordStepBlocked(t *testing.T) {
	before := value(t, DefaultMetrics.ValidationFails.WithLabelValues("symbol"))
	RecordStepBlocked("BASIC_INFO", []string{"symbol", "name"})
	if got := value(t, DefaultMetrics.ValidationFails.WithLabelValues("symbol")); got != before+1 {
		t.Errorf("symbol field errors: got %v, want %v", got, before+1)
	}
}

func TestHandler(t *testing.T) {
	RecordSessionStarted()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "token_wizard_session_started_total") {
		t.Error("metrics output missing token_wizard_session_started_total")
	}
}
