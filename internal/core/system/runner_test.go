package system

import (
	"testing"
	"time"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }
func (r recorder) Name() string { return r.name }
func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerPhaseOrderIsStable(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"collide", PhaseInteraction, &log})
	r.Register(recorder{"input", PhaseInput, &log})
	r.Register(recorder{"rescue", PhaseInteraction, &log})

	for i := 0; i < 3; i++ {
		log = log[:0]
		r.Tick(16 * time.Millisecond)
		want := []string{"input", "collide", "rescue", "cleanup"}
		if len(log) != len(want) {
			t.Fatalf("run %d: got %v want %v", i, log, want)
		}
		for j := range want {
			if log[j] != want[j] {
				t.Fatalf("run %d: got %v want %v", i, log, want)
			}
		}
	}

	log = log[:0]
	r.TickPhase(PhaseInteraction, 0)
	if len(log) != 2 || log[0] != "collide" {
		t.Fatalf("TickPhase ran %v", log)
	}
	if got := r.Order()[0]; got != "input/input" {
		t.Fatalf("Order()[0] = %q", got)
	}
}
