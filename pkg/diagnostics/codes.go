package diagnostics

import (
	"fmt"
	"strings"
)

// Code identifies a kind of finding. Codes and their default messages are a
// stable, versioned contract: the digit after "W-" selects the severity.
type Code string

const (
	CodeInvalidAuthor   Code = "W-101"
	CodeInvalidName     Code = "W-102"
	CodeInvalidVersion  Code = "W-103"
	CodeInvalidRealm    Code = "W-104"
	CodeInvalidRegistry Code = "W-105"

	CodeMissingAuthor   Code = "W-201"
	CodeMissingName     Code = "W-202"
	CodeMissingVersion  Code = "W-203"
	CodeMissingRealm    Code = "W-204"
	CodeMissingRegistry Code = "W-205"

	CodeNewerVersion   Code = "W-301"
	CodeMisplacedRealm Code = "W-302"
)

// Placeholders substituted into message templates.
const (
	PlaceholderAuthor       = "<PACKAGE_AUTHOR>"
	PlaceholderName         = "<PACKAGE_NAME>"
	PlaceholderVersion      = "<VERSION_IDENTIFIER>"
	PlaceholderRealm        = "<REALM_NAME>"
	PlaceholderRegistry     = "<REGISTRY_NAME>"
	PlaceholderLatest       = "<PACKAGE_VERSION>"
	PlaceholderRealmCurrent = "<REALM_CURRENT>"
	PlaceholderRealmSection = "<REALM_SECTION>"
)

var templates = map[Code]string{
	CodeInvalidAuthor:   "Invalid package author.\nDid you mean `<PACKAGE_AUTHOR>`?",
	CodeInvalidName:     "Invalid package name.\nDid you mean `<PACKAGE_NAME>`?",
	CodeInvalidVersion:  "Invalid package version.\nDid you mean `<VERSION_IDENTIFIER>`?",
	CodeInvalidRealm:    "Invalid package realm.\nDid you mean `<REALM_NAME>`?",
	CodeInvalidRegistry: "Invalid package registry.\nDid you mean `<REGISTRY_NAME>`?",

	CodeMissingAuthor:   "Missing package author.",
	CodeMissingName:     "Missing package name.",
	CodeMissingVersion:  "Missing package version.",
	CodeMissingRealm:    "Missing package realm.",
	CodeMissingRegistry: "Missing package registry.",

	CodeNewerVersion:   "A newer package version is available.\nThe latest version is `<PACKAGE_VERSION>`.",
	CodeMisplacedRealm: "Package is a `<REALM_NAME>` dependency but was listed in `<REALM_CURRENT>`.\nDid you mean to list it under `<REALM_SECTION>`?",
}

// Template returns the default message for c, placeholders included.
func (c Code) Template() string {
	if t, ok := templates[c]; ok {
		return t
	}
	return c.Severity().String()
}

// Severity derives the severity from the code class.
func (c Code) Severity() Severity {
	switch {
	case strings.HasPrefix(string(c), "W-2"):
		return SeverityWarning
	case strings.HasPrefix(string(c), "W-3"):
		return SeverityInformation
	case strings.HasPrefix(string(c), "W-4"):
		return SeverityHint
	}
	return SeverityError
}

// Render builds the message for c. When subs supplies a non-empty value for
// every placeholder the template is returned fully substituted; otherwise
// only its first line is used, so no placeholder text ever leaks.
func Render(c Code, subs map[string]string) string {
	tmpl := c.Template()
	first, _, _ := strings.Cut(tmpl, "\n")
	if len(subs) == 0 {
		return first
	}

	pairs := make([]string, 0, 2*len(subs))
	for k, v := range subs {
		if v == "" {
			return first
		}
		pairs = append(pairs, k, v)
	}
	out := strings.NewReplacer(pairs...).Replace(tmpl)
	if hasPlaceholder(out) {
		return first
	}
	return out
}

func hasPlaceholder(s string) bool {
	for _, p := range []string{
		PlaceholderAuthor, PlaceholderName, PlaceholderVersion, PlaceholderRealm,
		PlaceholderRegistry, PlaceholderLatest, PlaceholderRealmCurrent, PlaceholderRealmSection,
	} {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Severity mirrors the editor diagnostic levels.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	}
	return "unknown"
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	for _, v := range []Severity{SeverityError, SeverityWarning, SeverityInformation, SeverityHint} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", b)
}
