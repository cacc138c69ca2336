package sessionkit

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricSessionCreated)
	m.Observe(MetricValidateLatency, 10*time.Millisecond)

	if m.Value(MetricSessionCreated) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot must be empty: %+v", snap)
	}
}

func TestMetricsCountersConcurrent(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 8
	const perGoroutine = 1000

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricValidateSuccess); got != goroutines*perGoroutine {
		t.Fatalf("expected %d, got %d", goroutines*perGoroutine, got)
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	samples := []time.Duration{
		2 * time.Millisecond,   // bucket 0
		8 * time.Millisecond,   // bucket 1
		20 * time.Millisecond,  // bucket 2
		40 * time.Millisecond,  // bucket 3
		80 * time.Millisecond,  // bucket 4
		200 * time.Millisecond, // bucket 5
		400 * time.Millisecond, // bucket 6
		2 * time.Second,        // bucket 7
	}
	for _, d := range samples {
		m.Observe(MetricValidateLatency, d)
	}

	snap := m.Snapshot()
	buckets, ok := snap.Histograms[MetricValidateLatency]
	if !ok {
		t.Fatal("latency histogram missing from snapshot")
	}
	for i, count := range buckets {
		if count != 1 {
			t.Fatalf("bucket %d: expected 1, got %d", i, count)
		}
	}
}

func TestMetricsHistogramDisabledByDefault(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricValidateLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Histograms) != 0 {
		t.Fatalf("histograms should be absent when disabled: %+v", snap.Histograms)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricSessionCreated)
	m.Observe(MetricValidateLatency, time.Millisecond)
	if m.Value(MetricSessionCreated) != 0 {
		t.Fatal("nil metrics value must be 0")
	}
	if m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics must report disabled")
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{10 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{501 * time.Millisecond, 7},
		{time.Minute, 7},
	}
	for _, c := range cases {
		if got := bucketIndex(c.d); got != c.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", c.d, got, c.want)
		}
	}
}
