package assist

import (
	"fmt"

	"rustsafe/internal/diag"
)

// ConvertUnsafeToSafeID identifies the assist.
var ConvertUnsafeToSafeID = AssistID{Name: "convert_unsafe_to_safe", Kind: diag.FixKindRefactorRewrite}

// ConvertUnsafeToSafe registers at most one rewrite for the unsafe block
// around the cursor. It returns false when nothing applies.
func ConvertUnsafeToSafe(acc *Assists, c *Context) bool {
	plan, site, ok := Plan(c)
	if !ok {
		return false
	}
	acc.tag(diagCode(site), site.Idiom)
	return acc.Add(ConvertUnsafeToSafeID, label(site), plan.Target, plan.Apply)
}

// Plan runs locate → classify → resolve → generate → plan and returns the
// edit plan together with the matched site.
func Plan(c *Context) (*EditPlan, *CandidateSite, bool) {
	region, ok := LocateRegion(c.Tree, c.Offset)
	if !ok {
		c.note("locate", "no unsafe block")
		return nil, nil, false
	}
	c.note("locate", region.BlockRange.String())

	site, ok := classify(c, region)
	if !ok {
		c.note("classify", "no idiom")
		return nil, nil, false
	}

	if !bindSite(region, site) {
		c.note("resolve", "unsupported statement shape")
		return nil, nil, false
	}
	if site.Idiom == CopyWithin || site.Idiom == NonOverlappingCopy {
		if !resolveCopy(region, site) {
			c.note("resolve", "copy operands not resolved")
			return nil, nil, false
		}
	}

	text, ok := generate(site)
	if !ok {
		c.note("generate", "no template for "+site.Idiom.String())
		return nil, nil, false
	}

	plan := planEdit(region, site, text)
	c.note("plan", fmt.Sprintf("collapsed=%v", plan.Collapsed))
	return plan, site, true
}

func label(site *CandidateSite) string {
	return fmt.Sprintf("Convert unsafe to safe: %s", diagCode(site).Title())
}
