package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordPage("cal", "filing-activities", 2, 10*time.Millisecond)
	p.RecordPage("cal", "filing-activities", 1, 10*time.Millisecond)
	p.RecordSession("cal", "completed")
	p.RecordAttempt("cal", "ok", time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(p.pages.WithLabelValues("cal", "filing-activities")))
	require.Equal(t, 3.0, testutil.ToFloat64(p.records.WithLabelValues("cal", "filing-activities")))
	require.Equal(t, 1.0, testutil.ToFloat64(p.sessions.WithLabelValues("cal", "completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(p.attempts.WithLabelValues("cal", "ok")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNop(t *testing.T) {
	var c Collector = NewNop()
	c.RecordAttempt("x", "error", 0)
	c.RecordSession("x", "cancelled")
	c.RecordPage("x", "y", 1, 0)
}
