package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sessionkit "github.com/convopanel/sessionkit"
)

type fakeSource struct {
	snapshot sessionkit.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() sessionkit.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters:   map[sessionkit.MetricID]uint64{},
			Histograms: map[sessionkit.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters: map[sessionkit.MetricID]uint64{
				sessionkit.MetricSessionCreated:  7,
				sessionkit.MetricValidateSuccess: 12,
			},
			Histograms: map[sessionkit.MetricID][]uint64{
				sessionkit.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "sessionkit_session_created_total 7") {
		t.Fatalf("expected session_created counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sessionkit_validate_success_total 12") {
		t.Fatalf("expected validate_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sessionkit_validate_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sessionkit_validate_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "sessionkit_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters:   map[sessionkit.MetricID]uint64{sessionkit.MetricSessionCreated: 1},
			Histograms: map[sessionkit.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: sessionkit.MetricsSnapshot{
			Counters: map[sessionkit.MetricID]uint64{
				sessionkit.MetricSessionCreated:  1000,
				sessionkit.MetricValidateSuccess: 8000,
				sessionkit.MetricValidateFailure: 40,
				sessionkit.MetricSessionRevoked:  120,
				sessionkit.MetricSessionEvicted:  15,
			},
			Histograms: map[sessionkit.MetricID][]uint64{
				sessionkit.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
