package registry

import (
	"strings"

	"github.com/matzehuels/wallyscope/pkg/semver"
)

// Entry is a named Git object in the registry tree.
type Entry struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

// Tree is the registry's root listing: one subtree per author plus the
// registry configuration blob.
type Tree struct {
	Authors []Entry `json:"authors"`
	Config  *Entry  `json:"config,omitempty"`
}

func (t *Tree) author(name string) (Entry, bool) {
	for _, e := range t.Authors {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Author is an author's subtree: one blob per published package.
type Author struct {
	Name     string  `json:"name"`
	SHA      string  `json:"sha"`
	Packages []Entry `json:"packages"`
}

func (a *Author) pkg(name string) (Entry, bool) {
	for _, e := range a.Packages {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// PackageNames returns the names of the author's packages.
func (a *Author) PackageNames() []string {
	names := make([]string, len(a.Packages))
	for i, e := range a.Packages {
		names[i] = e.Name
	}
	return names
}

// PackageMeta is the [package] section of a published manifest.
type PackageMeta struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Registry    string   `json:"registry"`
	Realm       string   `json:"realm"`
	Description string   `json:"description,omitempty"`
	License     string   `json:"license,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Include     []string `json:"include,omitempty"`
	Exclude     []string `json:"exclude,omitempty"`
	Private     bool     `json:"private,omitempty"`
}

// PackageVersion is one line of a package's index file: the manifest of a
// single published version.
type PackageVersion struct {
	Package            PackageMeta       `json:"package"`
	Place              map[string]any    `json:"place,omitempty"`
	Dependencies       map[string]string `json:"dependencies,omitempty"`
	ServerDependencies map[string]string `json:"server-dependencies,omitempty"`
	DevDependencies    map[string]string `json:"dev-dependencies,omitempty"`
}

// Package is a package's full publication history, oldest first as stored
// in the index.
type Package struct {
	Author   string           `json:"author"`
	Name     string           `json:"name"`
	SHA      string           `json:"sha"`
	Versions []PackageVersion `json:"versions"`
}

// VersionStrings returns every published version, newest first.
func (p *Package) VersionStrings() []string {
	out := make([]string, len(p.Versions))
	for i, v := range p.Versions {
		out[len(out)-1-i] = v.Package.Version
	}
	return semver.SortDescending(out)
}

// Version returns the record whose version equals v exactly.
func (p *Package) Version(v string) (*PackageVersion, bool) {
	for i := len(p.Versions) - 1; i >= 0; i-- {
		if p.Versions[i].Package.Version == v {
			return &p.Versions[i], true
		}
	}
	return nil, false
}

// Config is the registry's config.json.
type Config struct {
	API                string   `json:"api"`
	GitHubOAuthID      string   `json:"github_oauth_id,omitempty"`
	FallbackRegistries []string `json:"fallback_registries,omitempty"`
}

// Validity is the outcome of a registry check. Indeterminate means the
// registry could not be consulted, which callers must not treat as Invalid.
type Validity int

const (
	Indeterminate Validity = iota
	Valid
	Invalid
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return "indeterminate"
}

func validity(ok bool) Validity {
	if ok {
		return Valid
	}
	return Invalid
}
