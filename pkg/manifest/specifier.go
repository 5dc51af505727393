package manifest

import "github.com/matzehuels/wallyscope/pkg/semver"

// Specifier is the decomposition of an "author/name@version" string. Parts
// that have not been typed yet are left empty; nothing is inferred.
type Specifier struct {
	Author        string `json:"author"`
	Name          string `json:"name"`
	VersionText   string `json:"versionText"`
	Version       string `json:"version"`
	HasFullAuthor bool   `json:"hasFullAuthor"`
	HasFullName   bool   `json:"hasFullName"`
}

// MatchSpecifier splits text into its specifier parts.
//
// Author and name are words: an ASCII letter followed by letters, digits or
// hyphens. The author counts as complete once a "/" follows it, the name once
// an "@" follows it. Everything after the "@" is the version requirement;
// Version holds its coerced form, or "" when no version can be read.
func MatchSpecifier(text string) Specifier {
	var s Specifier

	author, rest := scanWord(text)
	s.Author = author
	if author == "" || len(rest) == 0 || rest[0] != '/' {
		return s
	}
	s.HasFullAuthor = true

	name, rest := scanWord(rest[1:])
	s.Name = name
	if name == "" || len(rest) == 0 || rest[0] != '@' {
		return s
	}
	s.HasFullName = true

	s.VersionText = rest[1:]
	s.Version, _ = semver.Coerce(s.VersionText)
	return s
}

// String reassembles the parts that were matched.
func (s Specifier) String() string {
	out := s.Author
	if s.HasFullAuthor {
		out += "/" + s.Name
	}
	if s.HasFullName {
		out += "@" + s.VersionText
	}
	return out
}

func scanWord(s string) (word, rest string) {
	if s == "" || !isLetter(s[0]) {
		return "", s
	}
	i := 1
	for i < len(s) && (isLetter(s[i]) || (s[i] >= '0' && s[i] <= '9') || s[i] == '-') {
		i++
	}
	return s[:i], s[i:]
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
