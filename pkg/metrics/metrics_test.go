package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestManagerWithCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewManager(
		WithPrometheusRegistry(reg),
		WithNamespace("test"),
		WithSubsystem("engine"),
	)
	if m == nil {
		t.Fatal("manager is nil")
	}

	m.eventsAccepted.Inc()
	m.violationsDetected.WithLabelValues("paste_burst", "high").Inc()
	m.askLatency.Observe(12.5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metrics")
	}
}

func TestGlobalRecorders(t *testing.T) {
	// Exercise the package-level helpers against the global manager.
	RecordEventAccepted()
	RecordEventRejected("unknown_event_type")
	RecordEventDuplicate()
	RecordEventDroppedLate()
	RecordTimelineInsertLatency(1.2)
	UpdateTimelineEntries(10)
	UpdateLiveSessions(2)
	UpdateLaneDepth(5)
	UpdateLaneCount(2)
	RecordViolation("paste_burst", "high")
	RecordPassportComputed()
	RecordScoringFailure()
	RecordScoringDuration(50)
	RecordAskRequest()
	RecordAskLowConfidence()
	RecordAskLatency(8)
	RecordStoreRetry()
	RecordStoreFailure()
	RecordHTTPRequest("timeline", "GET", "200")
	RecordHTTPRequestDuration("timeline", "GET", "200", 3.4)
	UpdateSystemMemoryUsage(1 << 20)
	UpdateSystemGoroutineCount(42)

	if GetRegistry() == nil {
		t.Fatal("global registry is nil")
	}
}
