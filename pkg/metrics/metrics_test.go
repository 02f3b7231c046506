package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TranslationsTotal.WithLabelValues("fallback").Inc()
	m.TranslationsTotal.WithLabelValues("fallback").Inc()
	m.LiveSessions.Inc()

	if got := testutil.ToFloat64(m.TranslationsTotal.WithLabelValues("fallback")); got != 2 {
		t.Errorf("fallback translations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.LiveSessions); got != 1 {
		t.Errorf("live sessions = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestNewUnregisteredIsIndependent(t *testing.T) {
	a := NewUnregistered()
	b := NewUnregistered()
	a.StaleResultsDropped.Inc()
	if got := testutil.ToFloat64(b.StaleResultsDropped); got != 0 {
		t.Errorf("collectors leaked between registries: %v", got)
	}
}
