package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.PollsTotal.WithLabelValues("ok").Inc()
	m.PollsTotal.WithLabelValues("ok").Inc()
	m.CandlesTotal.Add(3)

	if got := testutil.ToFloat64(m.PollsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("expected 2 ok polls, got %f", got)
	}
	if got := testutil.ToFloat64(m.CandlesTotal); got != 3 {
		t.Errorf("expected 3 candles, got %f", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	NewMetrics(reg)
}

func TestNewNop_Independent(t *testing.T) {
	a := NewNop()
	b := NewNop()
	a.PollsSkipped.Inc()
	if testutil.ToFloat64(b.PollsSkipped) != 0 {
		t.Error("nop metrics should not share state")
	}
}
