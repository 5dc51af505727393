// Package semver implements the version rules used by Wally manifests.
//
// Versions are plain "major.minor.patch[-prerelease][+build]" strings, as
// published in registry records. A dependency's version requirement is a
// comma-separated list of comparators; a bare version is treated as a caret
// requirement, so "1.2.3" accepts any 1.x.y at or above 1.2.3 and "0.3.1"
// accepts any 0.3.y at or above 0.3.1.
//
// Ordering and validity are delegated to golang.org/x/mod/semver, which uses
// the same precedence rules as semver 2.0.0.
package semver

import (
	"slices"
	"strconv"
	"strings"

	xsemver "golang.org/x/mod/semver"
)

// Version is a parsed semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
}

// String formats v without a leading "v".
func (v Version) String() string {
	s := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// canonical returns the x/mod form, which drops build metadata.
func (v Version) canonical() string {
	s := "v" + strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

func (v Version) sameCore(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch
}

// Parse parses a full version. A leading "v" is accepted; partial versions
// such as "1.2" are rejected (see [Coerce]).
func Parse(s string) (Version, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if strings.Count(coreOf(s), ".") != 2 || !xsemver.IsValid("v"+s) {
		return Version{}, false
	}

	var v Version
	rest := s
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		v.Build = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		v.Prerelease = rest[i+1:]
		rest = rest[:i]
	}
	parts := strings.Split(rest, ".")
	nums := [3]int{}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, false
		}
		nums[i] = n
	}
	v.Major, v.Minor, v.Patch = nums[0], nums[1], nums[2]
	return v, true
}

func coreOf(s string) string {
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		return s[:i]
	}
	return s
}

// IsValid reports whether s is a complete semantic version.
func IsValid(s string) bool {
	_, ok := Parse(s)
	return ok
}

// Coerce extracts the most plausible version from arbitrary text: the first
// run of digits and up to two following dot-separated numeric parts. Missing
// parts are zero-filled and pre-release or build suffixes are dropped, so
// "^1.2" coerces to "1.2.0" and "v3-beta" to "3.0.0". It returns false when
// the text contains no digits.
func Coerce(s string) (string, bool) {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return "", false
	}

	var nums [3]int
	i := start
	for part := 0; part < 3; part++ {
		j := i
		for j < len(s) && isDigit(rune(s[j])) {
			j++
		}
		n, err := strconv.Atoi(s[i:j])
		if err != nil {
			return "", false
		}
		nums[part] = n
		if j+1 >= len(s) || s[j] != '.' || !isDigit(rune(s[j+1])) {
			break
		}
		i = j + 1
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}.String(), true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// Compare orders two version strings. Unparseable versions sort before every
// valid version and compare equal to each other.
func Compare(a, b string) int {
	va, okA := Parse(a)
	vb, okB := Parse(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	return xsemver.Compare(va.canonical(), vb.canonical())
}

// SortDescending returns a copy of versions ordered newest first. The sort is
// stable, so equal or unparseable entries keep their relative order.
func SortDescending(versions []string) []string {
	out := slices.Clone(versions)
	slices.SortStableFunc(out, func(a, b string) int { return Compare(b, a) })
	return out
}

// Latest returns the newest stable version, or the newest pre-release when no
// stable version exists.
func Latest(versions []string) (string, bool) {
	var best, bestPre string
	for _, s := range versions {
		v, ok := Parse(s)
		if !ok {
			continue
		}
		if v.Prerelease != "" {
			if bestPre == "" || Compare(s, bestPre) > 0 {
				bestPre = s
			}
			continue
		}
		if best == "" || Compare(s, best) > 0 {
			best = s
		}
	}
	if best != "" {
		return best, true
	}
	return bestPre, bestPre != ""
}

// LatestCompatible returns the newest version in versions satisfying desired.
func LatestCompatible(desired string, versions []string) (string, bool) {
	var best string
	for _, s := range versions {
		if !IsCompatible(desired, s) {
			continue
		}
		if best == "" || Compare(s, best) > 0 {
			best = s
		}
	}
	return best, best != ""
}

// Outdated reports whether versions contains a release newer than anything
// desired can resolve to. It returns that release when it does.
func Outdated(desired string, versions []string) (string, bool) {
	latest, ok := Latest(versions)
	if !ok {
		return "", false
	}
	req, ok := ParseRequirement(desired)
	if !ok {
		return "", false
	}
	if Compare(latest, req.lower().String()) <= 0 || req.Matches(latest) {
		return "", false
	}
	return latest, true
}
