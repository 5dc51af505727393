// Package assist answers editor-style questions about a position in a
// manifest: what could be typed next, and what the dependency under the
// cursor is.
package assist

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/matzehuels/wallyscope/pkg/manifest"
	"github.com/matzehuels/wallyscope/pkg/registry"
	"github.com/matzehuels/wallyscope/pkg/wally"
)

// Kind says which part of a specifier a candidate completes.
type Kind int

const (
	KindAuthor Kind = iota
	KindPackage
	KindVersion
)

func (k Kind) String() string {
	switch k {
	case KindAuthor:
		return "author"
	case KindPackage:
		return "package"
	case KindVersion:
		return "version"
	}
	return "unknown"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Candidate is one completion suggestion.
type Candidate struct {
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`

	// InsertText is what remains to be typed, when it differs from Label.
	InsertText string `json:"insertText,omitempty"`

	// SortText orders candidates when set.
	SortText string `json:"sortText,omitempty"`
}

// Complete lists candidates for the dependency at pos. Until the author is
// complete it offers authors, then package names, then versions newest
// first. Candidates are filtered by what has been typed so far.
func Complete(ctx context.Context, store *registry.Store, m *manifest.Manifest, pos manifest.Position) []Candidate {
	_, d, ok := m.DependencyAt(pos)
	if !ok {
		return nil
	}
	client, err := store.Client(m.Registry())
	if err != nil {
		return nil
	}

	var out []Candidate
	switch {
	case !d.HasFullAuthor:
		authors, _ := client.AuthorNames(ctx)
		for _, a := range authors {
			if strings.HasPrefix(a, d.Author) {
				out = append(out, Candidate{Label: a, Kind: KindAuthor})
			}
		}
	case !d.HasFullName:
		names, _ := client.PackageNames(ctx, d.Author)
		for _, n := range names {
			if strings.HasPrefix(n, d.Name) {
				out = append(out, Candidate{Label: n, Kind: KindPackage})
			}
		}
	default:
		versions, _ := client.PackageVersions(ctx, d.Author, d.Name)
		for _, v := range versions {
			if !strings.HasPrefix(v, d.VersionText) {
				continue
			}
			out = append(out, Candidate{
				Label:      v,
				Kind:       KindVersion,
				InsertText: v[len(d.VersionText):],
				SortText:   fmt.Sprintf("%05d", len(out)),
			})
		}
	}
	return out
}

// Hover describes the package a dependency resolves to.
type Hover struct {
	Title       string         `json:"title"`
	Author      string         `json:"author"`
	Version     string         `json:"version"`
	Description string         `json:"description,omitempty"`
	Link        string         `json:"link,omitempty"`
	Range       manifest.Range `json:"range"`
}

// Describe returns details for the fully specified dependency at pos, taken
// from the newest published version compatible with its requirement.
func Describe(ctx context.Context, store *registry.Store, m *manifest.Manifest, pos manifest.Position) (*Hover, bool) {
	_, d, ok := m.DependencyAt(pos)
	if !ok || !d.HasFullAuthor || !d.HasFullName {
		return nil, false
	}
	client, err := store.Client(m.Registry())
	if err != nil {
		return nil, false
	}
	if _, ok := client.LatestCompatibleVersion(ctx, d.Author, d.Name, d.VersionText); !ok {
		return nil, false
	}
	info, ok := client.FullPackageInfo(ctx, d.Author, d.Name, d.VersionText)
	if !ok {
		return nil, false
	}
	h := NewHover(info)
	h.Range = d.FieldRange
	return h, true
}

// NewHover builds the description of a published version.
func NewHover(info *registry.PackageVersion) *Hover {
	author, name, found := strings.Cut(info.Package.Name, "/")
	if !found {
		author, name = "", info.Package.Name
	}

	h := &Hover{
		Title:       TitleCase(name),
		Author:      FormatAuthors(author, info.Package.Authors),
		Version:     info.Package.Version,
		Description: info.Package.Description,
	}
	if strings.EqualFold(wally.NormalizeRegistry(info.Package.Registry), wally.PublicRegistry) {
		h.Link = wally.PackagePage(author, name)
	}
	return h
}

// Markdown renders the hover as a short Markdown document.
func (h *Hover) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n### by %s\n", h.Title, h.Author)
	if h.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", h.Description)
	}
	if h.Link != "" {
		fmt.Fprintf(&b, "\n[View on the official Wally registry](%s)\n", h.Link)
	}
	return b.String()
}

// FormatAuthors renders the author line for a package published under scope.
// Contact details in angle brackets or parentheses are dropped:
//
//	["Jane <j@x.dev>"]            -> "Jane (scope)"
//	["A", "B", "C (site)"]        -> "A, B and C (scope)"
//
// A single author whose name is the scope is shown without repetition.
func FormatAuthors(scope string, authors []string) string {
	switch len(authors) {
	case 0:
		return scope
	case 1:
		name := authorName(authors[0])
		if strings.ToLower(name) == scope {
			return name
		}
		return fmt.Sprintf("%s (%s)", name, scope)
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = authorName(a)
	}
	last := len(names) - 1
	return fmt.Sprintf("%s and %s (%s)", strings.Join(names[:last], ", "), names[last], scope)
}

func authorName(a string) string {
	if i := strings.IndexAny(a, "<("); i >= 0 {
		a = a[:i]
	}
	return strings.TrimSpace(a)
}

// TitleCase turns an identifier such as "roact-hooks" or "dataStore2" into
// space separated capitalised words.
func TitleCase(s string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
			continue
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
		}
		cur = append(cur, r)
	}
	flush()

	for i, w := range words {
		rs := []rune(strings.ToLower(w))
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}
