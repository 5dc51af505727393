package semver

import (
	"strings"

	xsemver "golang.org/x/mod/semver"
)

// Op is a comparator operator in a version requirement.
type Op string

const (
	OpCaret   Op = "^"
	OpTilde   Op = "~"
	OpExact   Op = "="
	OpGreater Op = ">"
	OpGTE     Op = ">="
	OpLess    Op = "<"
	OpLTE     Op = "<="
	OpAny     Op = "*"
)

// Comparator is a single operator/version pair.
type Comparator struct {
	Op      Op
	Version Version
}

// Requirement is a conjunction of comparators, as written in a dependency
// specifier after the "@".
type Requirement struct {
	Comparators []Comparator
}

// ParseRequirement parses a comma-separated requirement. Each comparator's
// version is coerced, so "^1.2" reads as "^1.2.0" and a bare "2" as "^2.0.0".
// An empty requirement, "*" or "x" matches every release.
func ParseRequirement(s string) (Requirement, bool) {
	var req Requirement
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "*" || part == "x" || part == "X" {
			req.Comparators = append(req.Comparators, Comparator{Op: OpAny})
			continue
		}

		op, rest := splitOp(part)
		v, ok := Parse(rest)
		if !ok {
			coerced, ok := Coerce(rest)
			if !ok {
				return Requirement{}, false
			}
			v, _ = Parse(coerced)
		}
		req.Comparators = append(req.Comparators, Comparator{Op: op, Version: v})
	}
	return req, true
}

func splitOp(s string) (Op, string) {
	for _, op := range []Op{OpGTE, OpLTE, OpCaret, OpTilde, OpExact, OpGreater, OpLess} {
		if strings.HasPrefix(s, string(op)) {
			return op, strings.TrimSpace(s[len(op):])
		}
	}
	return OpCaret, s
}

// Matches reports whether available satisfies every comparator.
//
// A pre-release is only accepted when some comparator names a pre-release of
// the same major.minor.patch; otherwise "^1.0.0" would pull in 1.1.0-beta.
func (r Requirement) Matches(available string) bool {
	v, ok := Parse(available)
	if !ok {
		return false
	}
	if v.Prerelease != "" && !r.allowsPrerelease(v) {
		return false
	}
	for _, c := range r.Comparators {
		if !c.matches(v) {
			return false
		}
	}
	return true
}

func (r Requirement) allowsPrerelease(v Version) bool {
	for _, c := range r.Comparators {
		if c.Op != OpAny && c.Version.Prerelease != "" && c.Version.sameCore(v) {
			return true
		}
	}
	return false
}

// lower returns the smallest version the requirement names.
func (r Requirement) lower() Version {
	for _, c := range r.Comparators {
		switch c.Op {
		case OpCaret, OpTilde, OpExact, OpGTE, OpGreater:
			return c.Version
		}
	}
	return Version{}
}

func (c Comparator) matches(v Version) bool {
	cmp := compareVersions(v, c.Version)
	switch c.Op {
	case OpAny:
		return true
	case OpExact:
		return cmp == 0
	case OpGreater:
		return cmp > 0
	case OpGTE:
		return cmp >= 0
	case OpLess:
		return cmp < 0
	case OpLTE:
		return cmp <= 0
	case OpTilde:
		return v.Major == c.Version.Major && v.Minor == c.Version.Minor && cmp >= 0
	default:
		if v.Major != c.Version.Major {
			return false
		}
		if c.Version.Major == 0 && v.Minor != c.Version.Minor {
			return false
		}
		return cmp >= 0
	}
}

func compareVersions(a, b Version) int {
	return xsemver.Compare(a.canonical(), b.canonical())
}

// IsCompatible reports whether available satisfies the desired requirement.
// Textually identical versions are always compatible, even when neither
// parses.
func IsCompatible(desired, available string) bool {
	if desired == available {
		return true
	}
	req, ok := ParseRequirement(desired)
	if !ok {
		return false
	}
	return req.Matches(available)
}

// IsCompatibleAny reports whether any entry of available satisfies desired.
func IsCompatibleAny(desired string, available []string) bool {
	req, ok := ParseRequirement(desired)
	for _, a := range available {
		if a == desired || (ok && req.Matches(a)) {
			return true
		}
	}
	return false
}
