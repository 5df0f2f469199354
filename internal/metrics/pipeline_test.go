package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	var rec Recorder

	rec.ObserveQuery("aggregate", "ok", 5*time.Millisecond)
	rec.ObserveQuery("find", "rejected", 0)
	rec.Rejected("argument", "$out")
	rec.ObserveGeneration("ok", time.Second)
	rec.ObserveDecode("repaired")
	rec.ObserveIntent("count")
	rec.ObserveAnswer("compiler", "ok")

	checks := []struct {
		name string
		got  float64
	}{
		{"queries ok", testutil.ToFloat64(queriesTotal.WithLabelValues("aggregate", "ok"))},
		{"queries rejected", testutil.ToFloat64(queriesTotal.WithLabelValues("find", "rejected"))},
		{"rejections", testutil.ToFloat64(rejectionsTotal.WithLabelValues("argument", "$out"))},
		{"generations", testutil.ToFloat64(generationsTotal.WithLabelValues("ok"))},
		{"decode", testutil.ToFloat64(decodeTotal.WithLabelValues("repaired"))},
		{"intents", testutil.ToFloat64(intentsTotal.WithLabelValues("count"))},
		{"answers", testutil.ToFloat64(answersTotal.WithLabelValues("compiler", "ok"))},
	}
	for _, c := range checks {
		if c.got != 1 {
			t.Errorf("%s = %v, want 1", c.name, c.got)
		}
	}
}

func TestRecorder_BreakerState(t *testing.T) {
	var rec Recorder
	rec.BreakerState("llm", "open")
	if v := testutil.ToFloat64(breakerOpen.WithLabelValues("llm")); v != 1 {
		t.Errorf("open gauge = %v", v)
	}
	rec.BreakerState("llm", "closed")
	if v := testutil.ToFloat64(breakerOpen.WithLabelValues("llm")); v != 0 {
		t.Errorf("closed gauge = %v", v)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()
}
