package diagnostics

import (
	"cmp"
	"slices"

	"github.com/matzehuels/wallyscope/pkg/manifest"
)

// Finding is one diagnostic attached to a range of the manifest.
type Finding struct {
	Code          Code              `json:"code"`
	Severity      Severity          `json:"severity"`
	Range         manifest.Range    `json:"range"`
	Message       string            `json:"message"`
	Substitutions map[string]string `json:"substitutions,omitempty"`
}

func newFinding(code Code, rng manifest.Range, subs map[string]string) *Finding {
	if len(subs) == 0 {
		subs = nil
	}
	return &Finding{
		Code:          code,
		Severity:      code.Severity(),
		Range:         rng,
		Message:       Render(code, subs),
		Substitutions: subs,
	}
}

// suggestion builds a single-placeholder substitution, or nil when there is
// nothing worth suggesting.
func suggestion(placeholder, value, typed string) map[string]string {
	if value == "" || value == typed {
		return nil
	}
	return map[string]string{placeholder: value}
}

// sortFindings orders findings by position, then code.
func sortFindings(fs []Finding) {
	slices.SortStableFunc(fs, func(a, b Finding) int {
		if c := cmp.Compare(a.Range.Start.Line, b.Range.Start.Line); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Range.Start.Column, b.Range.Start.Column); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
}
