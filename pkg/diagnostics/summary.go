package diagnostics

import "strings"

// Summary counts findings by class for status reporting.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Upgrades int `json:"upgrades"`
	Total    int `json:"total"`
}

// Summarize counts fs.
func Summarize(fs []Finding) Summary {
	var s Summary
	for _, f := range fs {
		switch {
		case strings.HasPrefix(string(f.Code), "W-1"):
			s.Errors++
		case strings.HasPrefix(string(f.Code), "W-2"):
			s.Warnings++
		case f.Code == CodeNewerVersion:
			s.Upgrades++
		}
	}
	s.Total = len(fs)
	return s
}

// Add returns the element-wise sum of s and o.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Errors:   s.Errors + o.Errors,
		Warnings: s.Warnings + o.Warnings,
		Upgrades: s.Upgrades + o.Upgrades,
		Total:    s.Total + o.Total,
	}
}
