package diagfmt

import (
	"cmp"
	"slices"

	"rustsafe/internal/diag"
)

// sortedFixes orders fixes preferred first, then by applicability, kind,
// title and id.
func sortedFixes(in []diag.Fix) []diag.Fix {
	fixes := slices.Clone(in)
	slices.SortStableFunc(fixes, func(a, b diag.Fix) int {
		if a.IsPreferred != b.IsPreferred {
			if a.IsPreferred {
				return -1
			}
			return 1
		}
		return cmp.Or(
			cmp.Compare(a.Applicability, b.Applicability),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Title, b.Title),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return fixes
}
