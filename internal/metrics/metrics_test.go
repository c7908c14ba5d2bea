package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersAndCounts(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.MessagesTotal.WithLabelValues("inbound").Inc()
	m.MessagesTotal.WithLabelValues("inbound").Inc()
	m.RunsTotal.WithLabelValues("completed").Inc()
	m.RunTimeoutsTotal.Inc()
	m.ActiveSessions.Inc()

	if got := testutil.ToFloat64(m.MessagesTotal.WithLabelValues("inbound")); got != 2 {
		t.Errorf("inbound messages = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RunTimeoutsTotal); got != 1 {
		t.Errorf("timeouts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ActiveSessions); got != 1 {
		t.Errorf("active sessions = %v, want 1", got)
	}
}

func TestNewDoubleRegistrationPanics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Fatal("registering the same metrics twice should panic")
		}
	}()
	New(reg)
}
