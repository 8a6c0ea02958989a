package fix

import (
	"cmp"
	"fmt"
	"slices"

	"rustsafe/internal/diag"
)

type candidate struct {
	diag  diag.Diagnostic
	fix   diag.Fix
	order int
}

// gatherCandidates resolves lazy fixes and drops the ones that cannot be
// applied: unresolvable, empty, or reusing an ID already seen. Fixes without
// an ID get one derived from the diagnostic position.
func gatherCandidates(ctx diag.FixBuildContext, diagnostics []diag.Diagnostic) ([]candidate, []SkippedFix) {
	var (
		cands []candidate
		skips []SkippedFix
	)
	seen := make(map[string]bool)
	for _, d := range diagnostics {
		if len(d.Fixes) == 0 {
			continue
		}
		resolved, err := diag.MaterializeFixes(ctx, d.Fixes)
		if err != nil {
			skips = append(skips, SkippedFix{Title: d.Message, Reason: fmt.Sprintf("failed to build fixes: %v", err)})
			continue
		}
		for idx, f := range resolved {
			if f.ID == "" {
				f.ID = fmt.Sprintf("%s-%d-%d-%d", d.Code.ID(), d.Primary.File, d.Primary.Start, idx)
			}
			switch {
			case len(f.Edits) == 0:
				skips = append(skips, skipped(f, "fix has no edits"))
			case seen[f.ID]:
				skips = append(skips, skipped(f, "duplicate fix id"))
			default:
				seen[f.ID] = true
				cands = append(cands, candidate{diag: d, fix: f, order: len(cands)})
			}
		}
	}
	return cands, skips
}

// sortCandidates orders by primary position, then by discovery order.
func sortCandidates(cands []candidate) {
	slices.SortStableFunc(cands, func(a, b candidate) int {
		pa, pb := a.diag.Primary, b.diag.Primary
		return cmp.Or(
			cmp.Compare(pa.File, pb.File),
			cmp.Compare(pa.Start, pb.Start),
			cmp.Compare(pa.End, pb.End),
			cmp.Compare(a.order, b.order),
		)
	})
}

const reasonRequiresAll = "fix requires all fixes to be applied"

func selectCandidates(cands []candidate, opts ApplyOptions) ([]candidate, []SkippedFix) {
	switch opts.Mode {
	case ApplyModeID:
		return selectByID(cands, opts.TargetID)
	case ApplyModeAll:
		return selectAll(cands)
	case ApplyModeOnce:
		return selectOnce(cands)
	}
	return nil, nil
}

func selectByID(cands []candidate, id string) ([]candidate, []SkippedFix) {
	i := slices.IndexFunc(cands, func(c candidate) bool { return c.fix.ID == id })
	switch {
	case i < 0:
		return nil, []SkippedFix{{ID: id, Reason: "fix id not found"}}
	case cands[i].fix.RequiresAll:
		return nil, []SkippedFix{{ID: id, Reason: reasonRequiresAll}}
	}
	return cands[i : i+1], nil
}

func selectAll(cands []candidate) ([]candidate, []SkippedFix) {
	var (
		selected []candidate
		skips    []SkippedFix
	)
	for _, c := range cands {
		if c.fix.Applicability == diag.FixApplicabilityManualReview || c.fix.RequiresAll {
			skips = append(skips, skipped(c.fix, "applicability is "+c.fix.Applicability.String()))
			continue
		}
		selected = append(selected, c)
	}
	return selected, skips
}

// selectOnce prefers the first always-safe fix and falls back to the first
// eligible one.
func selectOnce(cands []candidate) ([]candidate, []SkippedFix) {
	var (
		skips    []SkippedFix
		fallback = -1
	)
	for i, c := range cands {
		if c.fix.RequiresAll {
			skips = append(skips, skipped(c.fix, reasonRequiresAll))
			continue
		}
		if c.fix.Applicability == diag.FixApplicabilityAlwaysSafe {
			return cands[i : i+1], skips
		}
		if fallback < 0 {
			fallback = i
		}
	}
	if fallback < 0 {
		return nil, skips
	}
	return cands[fallback : fallback+1], skips
}
