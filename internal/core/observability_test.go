package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()
	rec.Observe(ctx, "commit_participant", true, 20*time.Millisecond)
	rec.Observe(ctx, "commit_participant", true, 30*time.Millisecond)
	rec.Observe(ctx, "commit_participant", false, 5*time.Millisecond)

	snap := rec.Snapshot()
	if snap.DurationsMS["commit_participant"] != 55 {
		t.Fatalf("durations %v", snap.DurationsMS)
	}
	counts := snap.Results["commit_participant"]
	if counts["success"] != 2 || counts["error"] != 1 {
		t.Fatalf("results %v", counts)
	}
}

func TestPrometheusMetricsRecorderRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	rec.Observe(context.Background(), "create_participant", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "create_participant", false, 10*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	for _, want := range []string{
		"careops_service_operation_duration_seconds",
		"careops_service_operation_results_total",
	} {
		if !names[want] {
			t.Fatalf("metric %s not gathered, have %v", want, names)
		}
	}
}

func TestServiceObserveRecordsFailure(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	store := newTestService(t).store
	svc := NewService(store, nil, WithMetrics(rec))

	if _, err := svc.ArchiveParticipant(context.Background(), "missing", ""); err == nil {
		t.Fatal("expected error")
	}
	counts := rec.Snapshot().Results["archive_participant"]
	if counts["error"] != 1 {
		t.Fatalf("expected failure recorded, got %v", counts)
	}
}
