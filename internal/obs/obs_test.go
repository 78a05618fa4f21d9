package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"riskcore/internal/schema"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve(":0")
	defer srv.Close()

	RecordDecision(schema.RiskActionDeny, schema.RejectOrderSize)
	RecordBreakerTrip(schema.BreakerCausePriceMove)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	want := map[string]bool{
		"riskd_decisions_total":     false,
		"riskd_breaker_trips_total": false,
		"riskd_eval_latency_seconds": false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("metric %s not registered", name)
		}
	}
}

func TestLatencyStatsAggregates(t *testing.T) {
	var l LatencyStats
	l.Observe(100 * time.Nanosecond)
	l.Observe(50 * time.Nanosecond)
	l.Observe(200 * time.Nanosecond)

	snap := l.Snapshot()
	if snap.Count != 3 {
		t.Fatalf("count: got %d want 3", snap.Count)
	}
	if snap.Min != 50*time.Nanosecond || snap.Max != 200*time.Nanosecond {
		t.Fatalf("min/max: got %v/%v", snap.Min, snap.Max)
	}
	if snap.Avg != 116*time.Nanosecond {
		t.Fatalf("avg: got %v want 116ns", snap.Avg)
	}
}

func TestLatencyStatsEmpty(t *testing.T) {
	var l LatencyStats
	if snap := l.Snapshot(); snap != (LatencySnapshot{}) {
		t.Fatalf("empty snapshot: got %+v", snap)
	}
}

func TestLatencyStatsDropsNegative(t *testing.T) {
	var l LatencyStats
	l.Observe(-1 * time.Second)
	if snap := l.Snapshot(); snap.Count != 0 {
		t.Fatalf("negative sample counted: %+v", snap)
	}
}

func TestTraceGeneratorMonotonic(t *testing.T) {
	g := NewTraceGenerator(7)
	if got := g.Next(); got != 8 {
		t.Fatalf("first id: got %d want 8", got)
	}
	if got := g.Next(); got != 9 {
		t.Fatalf("second id: got %d want 9", got)
	}
	var nilGen *TraceGenerator
	if got := nilGen.Next(); got != 0 {
		t.Fatalf("nil generator: got %d want 0", got)
	}
}
