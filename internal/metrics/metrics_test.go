package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestManagerCounters(t *testing.T) {
	m := NewManager()
	m.MatchProcessed(StatusOK)
	m.MatchProcessed(StatusOK)
	m.MatchProcessed(StatusFailed)
	m.StageRetried("roles")

	if got := testutil.ToFloat64(m.matches.WithLabelValues(StatusOK)); got != 2 {
		t.Errorf("ok matches = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.stageRetries.WithLabelValues("roles")); got != 1 {
		t.Errorf("roles retries = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewManager(WithNamespace("test"))
	m.ObserveStage("ingest", 2*time.Second)
	m.AggregateRows("plain", 12)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"test_pipeline_stage_duration_seconds", `test_pipeline_aggregate_rows{kind="plain"} 12`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}
