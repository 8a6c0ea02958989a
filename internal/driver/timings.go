package driver

import (
	"cmp"
	"encoding/json"
	"fmt"

	"rustsafe/internal/diag"
	"rustsafe/internal/observ"
	"rustsafe/internal/source"
)

// timingPayload is the JSON carried in the note of an OBS6001 diagnostic.
type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

func newTimingPayload(kind, path string, rep observ.Report) timingPayload {
	return timingPayload{Kind: cmp.Or(kind, "scan"), Path: path, TotalMS: rep.TotalMS, Phases: rep.Phases}
}

func (p timingPayload) summary() string {
	if p.Path == "" {
		return fmt.Sprintf("timings (%s): total %.2f ms", p.Kind, p.TotalMS)
	}
	return fmt.Sprintf("timings (%s): total %.2f ms, %s", p.Kind, p.TotalMS, p.Path)
}

// appendTimingDiagnostic attaches timings to bag as an info diagnostic.
// The max-diagnostics cap does not apply to it.
func appendTimingDiagnostic(bag *diag.Bag, at source.Span, payload timingPayload) {
	if bag == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	bag.Force(diag.New(diag.SevInfo, diag.ObsTimings, at, payload.summary()).WithNote(at, string(data)))
}
