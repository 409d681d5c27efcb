package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSyncMetricsCountsWritesAndEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetrics(reg)

	metrics.IncScheduled()
	metrics.IncScheduled()
	metrics.ObserveWrite(WriteSuccess, 120*time.Millisecond)
	metrics.ObserveWrite(WriteDropped, 0)
	metrics.IncEvent(EventEcho)
	metrics.IncEvent(EventEcho)
	metrics.IncEvent(EventApplied)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "frysen_sync_writes_total", "result", WriteSuccess); err != nil || got != 1 {
		t.Fatalf("expected success=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "frysen_sync_writes_total", "result", WriteDropped); err != nil || got != 1 {
		t.Fatalf("expected dropped=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "frysen_sync_remote_events_total", "outcome", EventEcho); err != nil || got != 2 {
		t.Fatalf("expected echo=2, got %f (%v)", got, err)
	}

	scheduled := findMetricFamily(mfs, "frysen_sync_schedules_total")
	if scheduled == nil || scheduled.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected two schedules")
	}

	duration := findMetricFamily(mfs, "frysen_sync_write_duration_seconds")
	if duration == nil || duration.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one duration sample")
	}
}

func TestSyncMetricsNilSafe(t *testing.T) {
	var metrics *SyncMetrics
	metrics.IncScheduled()
	metrics.ObserveWrite(WriteFailure, time.Second)
	metrics.IncEvent(EventStale)

	NewSyncMetrics(nil).IncEvent(EventInvalid)
}
