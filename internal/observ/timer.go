// Package observ collects per-phase wall-clock timings for the scan and
// apply pipelines.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type phase struct {
	name    string
	start   time.Time
	dur     time.Duration
	note    string
	samples int // 0 для фаз Start/stop
}

// Timer records two kinds of phases: wall-clock phases opened with Start,
// and accumulated phases fed by Observe from inside a loop or from workers.
// A nil *Timer discards everything.
type Timer struct {
	mu     sync.Mutex
	phases []phase
	byName map[string]int // accumulated phases only
}

func NewTimer() *Timer {
	return &Timer{byName: make(map[string]int)}
}

// Start opens a wall-clock phase. The returned func closes it with an
// optional note; calling it again has no effect.
func (t *Timer) Start(name string) func(note string) {
	if t == nil {
		return func(string) {}
	}
	t.mu.Lock()
	idx := len(t.phases)
	t.phases = append(t.phases, phase{name: name, start: time.Now()})
	t.mu.Unlock()

	var once sync.Once
	return func(note string) {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			p := &t.phases[idx]
			p.dur = time.Since(p.start)
			p.note = note
		})
	}
}

// Observe adds d to the accumulated phase name, creating it on first use.
func (t *Timer) Observe(name string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.byName[name]; ok {
		t.phases[i].dur += d
		t.phases[i].samples++
		return
	}
	t.byName[name] = len(t.phases)
	t.phases = append(t.phases, phase{name: name, start: time.Now(), dur: d, samples: 1})
}

// PhaseReport is one phase of a Report.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Samples    int     `json:"samples,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// Report is a serializable snapshot of a Timer.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report snapshots the timer. Accumulated phases run inside wall-clock
// ones, so only the latter make up TotalMS.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var rep Report
	var total time.Duration
	for _, p := range t.phases {
		if p.samples == 0 {
			total += p.dur
		}
		rep.Phases = append(rep.Phases, PhaseReport{
			Name:       p.name,
			DurationMS: millis(p.dur),
			Samples:    p.samples,
			Note:       p.note,
		})
	}
	rep.TotalMS = millis(total)
	return rep
}

// Fold adds other into r phase by phase, keeping first-seen order. Each
// folded phase counts as one sample, so after folding per-file reports
// Samples is the number of files that went through the phase.
func (r *Report) Fold(other Report) {
	r.TotalMS += other.TotalMS
	for _, p := range other.Phases {
		r.foldPhase(p)
	}
}

// FoldPhase adds a single phase and its duration to the total.
func (r *Report) FoldPhase(p PhaseReport) {
	r.TotalMS += p.DurationMS
	r.foldPhase(p)
}

func (r *Report) foldPhase(p PhaseReport) {
	for i := range r.Phases {
		if r.Phases[i].Name == p.Name {
			r.Phases[i].DurationMS += p.DurationMS
			r.Phases[i].Samples++
			return
		}
	}
	r.Phases = append(r.Phases, PhaseReport{Name: p.Name, DurationMS: p.DurationMS, Samples: 1})
}

// String renders the report as an aligned table.
func (r Report) String() string {
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range r.Phases {
		fmt.Fprintf(&sb, "  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Samples > 0 {
			fmt.Fprintf(&sb, "  x%d", p.Samples)
		}
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-20s %7.2f ms\n", "total", r.TotalMS)
	return sb.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
