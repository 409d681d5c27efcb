package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbound write results.
const (
	WriteSuccess = "success"
	WriteFailure = "failure"
	WriteDropped = "dropped"
	WriteSkipped = "skipped"
)

// Inbound event outcomes.
const (
	EventApplied   = "applied"
	EventEcho      = "echo"
	EventStale     = "stale"
	EventInvalid   = "invalid"
	EventUnchanged = "unchanged"
)

// SyncMetrics tracks the family sync pipeline in both directions.
type SyncMetrics struct {
	writes        *prometheus.CounterVec
	writeDuration prometheus.Histogram
	events        *prometheus.CounterVec
	scheduled     prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_writes_total",
		Help:      "Outbound snapshot writes by result.",
	}, []string{"result"})
	writeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_write_duration_seconds",
		Help:      "Latency of outbound snapshot writes.",
		Buckets:   prometheus.DefBuckets,
	})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_remote_events_total",
		Help:      "Inbound remote snapshots by outcome.",
	}, []string{"outcome"})
	scheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_schedules_total",
		Help:      "Local mutations that (re)armed the outbound debounce.",
	})
	reg.MustRegister(writes, writeDuration, events, scheduled)
	return &SyncMetrics{
		writes:        writes,
		writeDuration: writeDuration,
		events:        events,
		scheduled:     scheduled,
	}
}

// ObserveWrite records one outbound attempt.
func (s *SyncMetrics) ObserveWrite(result string, duration time.Duration) {
	if s == nil || s.writes == nil {
		return
	}
	s.writes.WithLabelValues(normalizeLabel(result)).Inc()
	if duration > 0 {
		s.writeDuration.Observe(duration.Seconds())
	}
}

// IncEvent records the outcome of one inbound remote snapshot.
func (s *SyncMetrics) IncEvent(outcome string) {
	if s == nil || s.events == nil {
		return
	}
	s.events.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncScheduled counts a debounce (re)arm.
func (s *SyncMetrics) IncScheduled() {
	if s == nil || s.scheduled == nil {
		return
	}
	s.scheduled.Inc()
}
