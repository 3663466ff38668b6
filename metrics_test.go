package credrot

import (
	"sync"
	"testing"
)

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricIssueSuccess)
	if m.Value(MetricIssueSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled snapshot must be empty")
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 8
	const perGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				m.Inc(MetricRotateSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRotateSuccess); got != goroutines*perGoroutine {
		t.Fatalf("expected %d, got %d", goroutines*perGoroutine, got)
	}
	if got := m.Snapshot().Counters[MetricRotateSuccess]; got != goroutines*perGoroutine {
		t.Fatalf("snapshot disagrees: %d", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricRevoke)
	if m.Value(MetricRevoke) != 0 {
		t.Fatal("nil metrics must read zero")
	}
	if m.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
}
