package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerAccumulatesSamples(t *testing.T) {
	tm := NewTimer()
	stop := tm.Start("scan")
	tm.Observe("parse", 2*time.Millisecond)
	tm.Observe("parse", 3*time.Millisecond)
	stop("2 files")
	stop("ignored")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("phases = %+v", rep.Phases)
	}
	if rep.Phases[0].Note != "2 files" {
		t.Errorf("note = %q", rep.Phases[0].Note)
	}
	parse := rep.Phases[1]
	if parse.Name != "parse" || parse.Samples != 2 || parse.DurationMS != 5 {
		t.Fatalf("parse phase = %+v", parse)
	}
	if rep.TotalMS != rep.Phases[0].DurationMS {
		t.Errorf("total %v must only count wall-clock phases (%v)", rep.TotalMS, rep.Phases[0].DurationMS)
	}
	if s := rep.String(); !strings.Contains(s, "x2") || !strings.Contains(s, "// 2 files") {
		t.Errorf("summary = %q", s)
	}
}

func TestReportFold(t *testing.T) {
	var total Report
	total.Fold(Report{TotalMS: 3, Phases: []PhaseReport{{Name: "parse", DurationMS: 1}, {Name: "assist", DurationMS: 2, Samples: 4}}})
	total.Fold(Report{TotalMS: 4, Phases: []PhaseReport{{Name: "parse", DurationMS: 4}}})
	total.FoldPhase(PhaseReport{Name: "apply", DurationMS: 0.5})

	if total.TotalMS != 7.5 {
		t.Fatalf("total = %v", total.TotalMS)
	}
	want := []PhaseReport{
		{Name: "parse", DurationMS: 5, Samples: 2},
		{Name: "assist", DurationMS: 2, Samples: 1},
		{Name: "apply", DurationMS: 0.5, Samples: 1},
	}
	if len(total.Phases) != len(want) {
		t.Fatalf("phases = %+v", total.Phases)
	}
	for i, p := range want {
		if total.Phases[i] != p {
			t.Errorf("phase %d = %+v, want %+v", i, total.Phases[i], p)
		}
	}
}

func TestNilTimerIsSafe(t *testing.T) {
	var tm *Timer
	tm.Start("x")("")
	tm.Observe("y", time.Second)
	if len(tm.Report().Phases) != 0 {
		t.Fatal("nil timer should report nothing")
	}
}
